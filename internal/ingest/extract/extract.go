// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package extract turns the free-text fragments retailers print into structured
catalog fields.

Every function is pure: no I/O, no state, safe for concurrent use. A field the
text does not carry comes back empty (or false / nil); only a Taiwanese title
that cannot be parsed at all is an error, because it means the source page is
not what the caller thinks it is.

Full-width digits (０-９) appear in both markets and are folded to ASCII before
any number is parsed.
*/
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/taibuivan/tankobon/pkg/slice"
)

// ErrMalformedTitle is returned when a Taiwanese title has no volume number.
var ErrMalformedTitle = errors.New("extract: malformed title")

const dayLayout = "2006-01-02"

var (
	// dateJPRegex matches 2025年12月18日 as well as unpadded 2018年1月6日.
	dateJPRegex = regexp.MustCompile(`([0-9]{4})年([0-9]{1,2})月([0-9]{1,2})日`)

	// volumeJPRegex matches a digit run, optionally in half- or full-width parentheses.
	volumeJPRegex = regexp.MustCompile(`[（(]?[0-9０-９]+[)）]?`)

	isbnRegex = regexp.MustCompile(`^[0-9]{13}$`)
)

// # Release Dates

// ReleaseDateTW extracts the day from a books.com.tw / eslite style line such as
// "出版日期：2025/11/27".
//
// The label is whatever precedes the last full-width colon.
func ReleaseDateTW(text string) (string, bool) {
	segments := strings.Split(text, "：")
	value := strings.TrimSpace(segments[len(segments)-1])
	value = strings.ReplaceAll(value, "/", "-")
	if value == "" {
		return "", false
	}

	day, err := time.Parse("2006-1-2", width.Narrow.String(value))
	if err != nil {
		return "", false
	}
	return day.Format(dayLayout), true
}

// ReleaseDateJP returns the first YYYY年M月D日 date found in a books.or.jp
// product description, zero padded.
//
// Descriptions often list a planned and an actual date; the first one in
// document order wins.
func ReleaseDateJP(text string) (string, bool) {
	match := dateJPRegex.FindStringSubmatch(width.Narrow.String(text))
	if match == nil {
		return "", false
	}

	month, _ := strconv.Atoi(match[2])
	day, _ := strconv.Atoi(match[3])
	return fmt.Sprintf("%s-%02d-%02d", match[1], month, day), true
}

// # Titles

// variantMarkers are the trailing edition tokens of Taiwanese titles.
var variantMarkers = map[string]string{
	"(特裝版)":    "特裝版",
	"(首刷限定版)":  "首刷限定版",
	"（特裝版）":   "特裝版",
	"（首刷限定版）": "首刷限定版",
}

const (
	markerFinal    = "(完)"
	markerComplete = "(全)"
)

// TitleTW is a parsed Taiwanese book title.
type TitleTW struct {
	SeriesName string
	Variant    string // "" for the standard edition
	// VolumeNumber is 1 for single-volume works marked (全).
	VolumeNumber int
	IsFinal      bool
	// LatestVolumeNumber equals VolumeNumber for final volumes, nil otherwise.
	LatestVolumeNumber *int
}

// ParseTitleTW splits a title like "藍色時期 16 (首刷限定版)" into series name,
// volume number and edition.
//
// Recognised trailing markers, checked in this order:
//
//   - (特裝版), (首刷限定版): edition variant, removed from the title
//   - (完): last volume of the series, removed from the title
//   - (全): complete in one volume, kept as the volume token
func ParseTitleTW(title string) (TitleTW, error) {
	var parsed TitleTW

	tokens := strings.Fields(title)
	if len(tokens) == 0 {
		return parsed, fmt.Errorf("%w: empty title", ErrMalformedTitle)
	}

	last := tokens[len(tokens)-1]
	if variant, ok := variantMarkers[last]; ok {
		parsed.Variant = variant
		tokens = tokens[:len(tokens)-1]
	} else if last == markerFinal {
		parsed.IsFinal = true
		tokens = tokens[:len(tokens)-1]
	} else if last == markerComplete {
		parsed.IsFinal = true
	}

	if len(tokens) == 0 {
		return TitleTW{}, fmt.Errorf("%w: %q has only markers", ErrMalformedTitle, title)
	}

	last = tokens[len(tokens)-1]
	switch last {
	case markerComplete, "1":
		parsed.VolumeNumber = 1
	default:
		digits := width.Narrow.String(last)
		number, err := strconv.Atoi(digits)
		if err != nil || number < 1 || digits[0] < '0' || digits[0] > '9' {
			return TitleTW{}, fmt.Errorf("%w: %q has no volume number", ErrMalformedTitle, title)
		}
		parsed.VolumeNumber = number
	}

	parsed.SeriesName = strings.TrimSpace(strings.Join(tokens[:len(tokens)-1], " "))

	if parsed.IsFinal {
		latest := parsed.VolumeNumber
		parsed.LatestVolumeNumber = &latest
	}
	return parsed, nil
}

// ParseTitleJP finds the volume number of a books.or.jp title such as
// "ブルーピリオド（1）実写映画化記念特装版" given its known series name.
//
// The last digit run is the volume; whatever remains after removing the series
// name and that run is the edition variant. A title without digits yields
// ("", nil).
func ParseTitleJP(title, seriesName string) (string, *int) {
	matches := volumeJPRegex.FindAllString(title, -1)
	if len(matches) == 0 {
		return "", nil
	}
	run := matches[len(matches)-1]

	variant := title
	if seriesName != "" {
		variant = strings.ReplaceAll(variant, seriesName, "")
	}
	variant = strings.TrimSpace(variant)
	variant = strings.TrimSpace(strings.ReplaceAll(variant, run, ""))

	digits := width.Narrow.String(strings.Trim(run, "()（）"))
	number, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil {
		return variant, nil
	}
	return variant, &number
}

// # Identifiers

// ValidISBN reports whether s is exactly 13 ASCII digits.
func ValidISBN(s string) bool {
	return isbnRegex.MatchString(s)
}

// ISBNFromURL returns the trailing path segment of a detail URL, which
// books.or.jp uses as the product code.
func ISBNFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		raw = parsed.Path
	}
	return strings.TrimSpace(path.Base(strings.TrimRight(raw, "/")))
}

// digitalMarkers flag a product description as an e-book.
var digitalMarkers = []string{"JP-eコード", "EISBN："}

// IsDigitalEdition reports whether a product description belongs to an e-book.
func IsDigitalEdition(description string) bool {
	for _, marker := range digitalMarkers {
		if strings.Contains(description, marker) {
			return true
		}
	}
	return false
}

// # Labels

// StripLabel drops a "作者：\n" style label by keeping only the last line.
func StripLabel(text string) string {
	if index := strings.LastIndex(text, "\n"); index >= 0 {
		text = text[index+1:]
	}
	return cutLabel(strings.TrimSpace(text))
}

// StripPublisherJP keeps the text after the last 出版社： label.
func StripPublisherJP(text string) string {
	const label = "出版社："
	if index := strings.LastIndex(text, label); index >= 0 {
		text = text[index+len(label):]
	}
	return strings.TrimSpace(text)
}

// JoinAuthorsJP joins the author entries of a books.or.jp page.
//
// The page always lists two boilerplate entries before the authors.
func JoinAuthorsJP(entries []string) string {
	if len(entries) <= 2 {
		return ""
	}

	return strings.Join(slice.TrimmedNonEmpty(entries[2:]), "; ")
}

// cutLabel removes an inline "label：" prefix left on a single-line value.
func cutLabel(text string) string {
	if _, value, found := strings.Cut(text, "："); found {
		return strings.TrimSpace(value)
	}
	return text
}
