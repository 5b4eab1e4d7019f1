// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ingest reconciles Source Records produced by the retailer crawlers into
the canonical catalog.

A Source Record is one of three closed kinds:

  - [OrphanVolume]: an ISBN seen on the books.com.tw new-release listing.
  - [DetailMapping]: an eslite.com detail page found by searching an orphan ISBN.
  - [JapanComic]: a books.or.jp detail page found by searching a series name.

Records travel as JSON Lines, one object per line, discriminated by "kind".
The [Engine] processes each record to completion without shared state and the
[Pool] runs it on a fixed set of workers.
*/
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the Source Record union.
type Kind string

const (
	KindOrphanVolume  Kind = "orphan_volume"
	KindDetailMapping Kind = "detail_mapping"
	KindJapanComic    Kind = "japan_comic"
)

// ErrUnknownKind is returned when a line carries no recognised "kind".
var ErrUnknownKind = errors.New("ingest: unknown record kind")

// Record is a Source Record. The set of implementations is closed.
type Record interface {
	Kind() Kind
	isRecord()
}

// OrphanVolume is an ISBN known to exist in Taiwan, not yet linked to a series.
type OrphanVolume struct {
	ISBN      string `json:"isbn_tw"`
	SourceURL string `json:"source_url,omitempty"`
}

// DetailMapping ties a Taiwanese ISBN to its Japanese title.
//
// Labelled fields (author, publisher, release date) carry the retailer text as
// printed, for example "出版社：東立出版社有限公司".
type DetailMapping struct {
	ISBN          string `json:"isbn_tw"`
	TitleJP       string `json:"title_jp"`
	TitleTW       string `json:"title_tw,omitempty"`
	AuthorTW      string `json:"author_tw,omitempty"`
	ReleaseDateTW string `json:"release_date_tw,omitempty"`
	PublisherTW   string `json:"publisher_tw,omitempty"`
	SearchURL     string `json:"search_url,omitempty"`
	DetailURL     string `json:"detail_url,omitempty"`
	ProductDesc   string `json:"product_desc,omitempty"`
}

// JapanComic is one Japanese volume found by searching its series name.
type JapanComic struct {
	SeriesName  string   `json:"series_name"`
	TitleJP     string   `json:"title_jp"`
	AuthorJP    []string `json:"author_jp,omitempty"`
	PublisherJP string   `json:"publisher_jp,omitempty"`
	DetailURL   string   `json:"detail_url"`
	ProductDesc string   `json:"product_desc,omitempty"`
}

func (*OrphanVolume) Kind() Kind  { return KindOrphanVolume }
func (*DetailMapping) Kind() Kind { return KindDetailMapping }
func (*JapanComic) Kind() Kind    { return KindJapanComic }

func (*OrphanVolume) isRecord()  {}
func (*DetailMapping) isRecord() {}
func (*JapanComic) isRecord()    {}

// # JSON Lines Codec

type envelope struct {
	Kind Kind `json:"kind"`
}

// DecodeRecord decodes one JSON Lines entry.
func DecodeRecord(line []byte) (Record, error) {
	var head envelope
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, fmt.Errorf("ingest: decode record: %w", err)
	}

	var record Record
	switch head.Kind {
	case KindOrphanVolume:
		record = &OrphanVolume{}
	case KindDetailMapping:
		record = &DetailMapping{}
	case KindJapanComic:
		record = &JapanComic{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Kind)
	}

	if err := json.Unmarshal(line, record); err != nil {
		return nil, fmt.Errorf("ingest: decode %s: %w", head.Kind, err)
	}
	return record, nil
}

// EncodeRecord encodes a record as one JSON Lines entry, without the newline.
func EncodeRecord(record Record) ([]byte, error) {
	switch r := record.(type) {
	case *OrphanVolume:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*OrphanVolume
		}{r.Kind(), r})
	case *DetailMapping:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*DetailMapping
		}{r.Kind(), r})
	case *JapanComic:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*JapanComic
		}{r.Kind(), r})
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownKind, record)
}
