// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bookstw_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/ingest"
	"github.com/taibuivan/tankobon/internal/sources/bookstw"
)

const listingPage = `<html><body>
<div class="type02_bd-a"><h4><a href="https://www.books.com.tw/products/0010000001?loc=P_0001">藍色時期 16</a></h4></div>
<div class="type02_bd-a"><h4><a href="/products/0010000002">藍色時期 16 (電子書)</a></h4></div>
<div class="type02_bd-a"><h4><a href="/products/0010000003">葬送的芙莉蓮 12</a></h4></div>
<div class="type02_bd-a"><h4><a href="/products/0010000003">葬送的芙莉蓮 12</a></h4></div>
<div class="type02_bd-a"><h4><a href="/products/0010000004">無 ISBN</a></h4></div>
<div class="other"><h4><a href="/products/9999999999">ad</a></h4></div>
</body></html>`

const printedPage = `<html><body><div class="bd"><ul>
<li>ISBN：9786264364843</li>
<li>叢書系列：東立漫畫</li>
<li>規格：平裝 / 192頁</li>
</ul></div></body></html>`

const ebookPage = `<html><body><div class="bd"><ul>
<li>EISBN：9786264364850</li>
<li>檔案格式：EPUB</li>
</ul></div></body></html>`

const secondPrintedPage = `<html><body><div class="bd"><ul>
<li>規格：平裝</li>
<li> ISBN：9786263808881 </li>
</ul></div></body></html>`

const noISBNPage = `<html><body><div class="bd"><ul><li>規格：平裝</li></ul></div></body></html>`

// pages serves fixed bodies and fails for everything else.
type pages map[string]string

func (p pages) Get(_ context.Context, url string) ([]byte, error) {
	body, ok := p[url]
	if !ok {
		return nil, errors.New("unexpected url " + url)
	}
	return []byte(body), nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestParseListing resolves detail links against the listing URL.
*/
func TestParseListing(t *testing.T) {
	base, err := url.Parse(bookstw.DefaultListingURL)
	require.NoError(t, err)

	links, err := bookstw.ParseListing([]byte(listingPage), base)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.books.com.tw/products/0010000001?loc=P_0001",
		"https://www.books.com.tw/products/0010000002",
		"https://www.books.com.tw/products/0010000003",
		"https://www.books.com.tw/products/0010000004",
	}, links)
}

/*
TestParseDetail reads the ISBN entry and recognizes e-book pages.
*/
func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bookstw.Detail
	}{
		{name: "printed", body: printedPage, want: bookstw.Detail{ISBN: "9786264364843"}},
		{name: "ebook", body: ebookPage, want: bookstw.Detail{Digital: true}},
		{name: "isbn_not_first", body: secondPrintedPage, want: bookstw.Detail{ISBN: "9786263808881"}},
		{name: "no_isbn", body: noISBNPage, want: bookstw.Detail{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := bookstw.ParseDetail([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, detail)
		})
	}

	_, err := bookstw.ParseDetail([]byte(`<html><body><p>maintenance</p></body></html>`))
	assert.ErrorIs(t, err, bookstw.ErrNotDetailPage)
}

/*
TestCrawler_Crawl emits one orphan volume per printed detail page.
*/
func TestCrawler_Crawl(t *testing.T) {
	fetcher := pages{
		bookstw.DefaultListingURL: listingPage,
		"https://www.books.com.tw/products/0010000001?loc=P_0001": printedPage,
		"https://www.books.com.tw/products/0010000002":            ebookPage,
		"https://www.books.com.tw/products/0010000004":            noISBNPage,
	}

	var records []ingest.Record
	session := bookstw.NewSession(bookstw.DefaultListingURL)
	err := bookstw.NewCrawler(fetcher, discard()).Crawl(context.Background(), session, func(_ context.Context, record ingest.Record) error {
		records = append(records, record)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []ingest.Record{
		&ingest.OrphanVolume{ISBN: "9786264364843", SourceURL: "https://www.books.com.tw/products/0010000001?loc=P_0001"},
		&ingest.OrphanVolume{SourceURL: "https://www.books.com.tw/products/0010000004"},
	}, records)

	assert.Equal(t, 2, session.Emitted)
	assert.Equal(t, 1, session.Skipped)
	assert.Equal(t, 1, session.Failed)
	assert.Len(t, session.Visited, 4)
	assert.Equal(t, "https://www.books.com.tw/products/0010000004", session.Current)
}

/*
TestCrawler_Crawl_Stops aborts on listing failures and emit errors.
*/
func TestCrawler_Crawl_Stops(t *testing.T) {
	keep := func(context.Context, ingest.Record) error { return nil }

	err := bookstw.NewCrawler(pages{}, discard()).Crawl(context.Background(), bookstw.NewSession(bookstw.DefaultListingURL), keep)
	assert.Error(t, err)

	fetcher := pages{
		bookstw.DefaultListingURL: listingPage,
		"https://www.books.com.tw/products/0010000001?loc=P_0001": printedPage,
	}
	full := errors.New("queue closed")
	session := bookstw.NewSession(bookstw.DefaultListingURL)
	err = bookstw.NewCrawler(fetcher, discard()).Crawl(context.Background(), session, func(context.Context, ingest.Record) error {
		return full
	})
	assert.ErrorIs(t, err, full)
	assert.Equal(t, 0, session.Emitted)
}
