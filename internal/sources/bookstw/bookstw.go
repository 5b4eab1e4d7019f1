// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package bookstw crawls the books.com.tw comic new-release listing.

The listing links to one detail page per volume. Each detail page carries the
volume ISBN, which becomes an orphan volume record: the Taiwanese edition is
known to exist, but its series is resolved later by the search scrapers.

E-book pages are skipped.
*/
package bookstw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/taibuivan/tankobon/internal/ingest"
	"github.com/taibuivan/tankobon/internal/ingest/extract"
)

// DefaultListingURL is the comic new-release listing.
const DefaultListingURL = "https://www.books.com.tw/web/sys_compub/books/16/?loc=P_0001_017"

const (
	listingLinks  = "div.type02_bd-a h4 a"
	detailEntries = "div.bd ul li"
	isbnLabel     = "ISBN："
)

// Fetcher returns the body of a page. [*fetch.Client] satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Session is the navigation state of one crawl.
type Session struct {
	Listing string
	Current string
	Visited map[string]bool
	Emitted int
	Skipped int
	Failed  int
}

// NewSession starts a crawl at listing.
func NewSession(listing string) *Session {
	return &Session{Listing: listing, Visited: make(map[string]bool)}
}

// Detail is what a volume page says about the volume.
type Detail struct {
	ISBN    string
	Digital bool
}

// Crawler walks the listing and its detail pages.
type Crawler struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewCrawler returns a crawler that reads pages through fetcher.
func NewCrawler(fetcher Fetcher, logger *slog.Logger) *Crawler {
	return &Crawler{fetcher: fetcher, logger: logger.With(slog.String("source", "books_tw"))}
}

// Crawl fetches the session listing and emits one [ingest.OrphanVolume] per new detail page.
//
// A detail page that cannot be fetched is logged and counted; the crawl moves on.
// A failing emit or a cancelled context stops the crawl.
func (c *Crawler) Crawl(ctx context.Context, session *Session, emit func(context.Context, ingest.Record) error) error {
	base, err := url.Parse(session.Listing)
	if err != nil {
		return fmt.Errorf("bookstw: invalid listing URL: %w", err)
	}

	session.Current = session.Listing
	body, err := c.fetcher.Get(ctx, session.Listing)
	if err != nil {
		return fmt.Errorf("bookstw: fetch listing: %w", err)
	}

	links, err := ParseListing(body, base)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "listing_parsed", slog.String("url", session.Listing), slog.Int("links", len(links)))

	for _, link := range links {
		if session.Visited[link] {
			continue
		}
		session.Visited[link] = true
		session.Current = link

		page, err := c.fetcher.Get(ctx, link)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			session.Failed++
			c.logger.WarnContext(ctx, "detail_fetch_failed", slog.String("url", link), slog.String("error", err.Error()))
			continue
		}

		detail, err := ParseDetail(page)
		if err != nil {
			session.Failed++
			c.logger.WarnContext(ctx, "detail_parse_failed", slog.String("url", link), slog.String("error", err.Error()))
			continue
		}
		if detail.Digital {
			session.Skipped++
			c.logger.InfoContext(ctx, "digital_edition_skipped", slog.String("url", link))
			continue
		}
		if detail.ISBN == "" {
			c.logger.WarnContext(ctx, "detail_without_isbn", slog.String("url", link))
		}

		// Records without an ISBN are still emitted so the drop is logged with its source
		if err := emit(ctx, &ingest.OrphanVolume{ISBN: detail.ISBN, SourceURL: link}); err != nil {
			return fmt.Errorf("bookstw: emit %s: %w", link, err)
		}
		session.Emitted++
	}

	return nil
}

// ParseListing returns the absolute detail links of a listing page in page order.
func ParseListing(body []byte, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bookstw: parse listing: %w", err)
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find(listingLinks).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links, nil
}

// ErrNotDetailPage is returned for a page without the product detail list.
var ErrNotDetailPage = errors.New("bookstw: not a detail page")

// ParseDetail reads the ISBN of a volume page.
func ParseDetail(body []byte) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("bookstw: parse detail: %w", err)
	}

	entries := doc.Find(detailEntries)
	if entries.Length() == 0 {
		return Detail{}, ErrNotDetailPage
	}

	var detail Detail
	entries.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if extract.IsDigitalEdition(text) {
			detail = Detail{Digital: true}
			return false
		}
		if detail.ISBN == "" {
			if _, isbn, ok := strings.Cut(text, isbnLabel); ok {
				detail.ISBN = strings.TrimSpace(isbn)
			}
		}
		return true
	})
	return detail, nil
}
