// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceRecords = `{"kind":"orphan_volume","isbn_tw":"9786264364843","source_url":"https://www.books.com.tw/products/0010000001"}
{"kind":"orphan_volume","isbn_tw":"9786263808881","source_url":"https://www.books.com.tw/products/0010000002"}

{"kind":"detail_mapping","isbn_tw":"9786264364843","title_jp":"ブルーピリオド","title_tw":"藍色時期 16 (首刷限定版)","author_tw":"作者：山口飛翔","release_date_tw":"出版日期：2025/11/27","publisher_tw":"出版社：東立出版社有限公司"}
{"kind":"orphan_volume","isbn_tw":"123"}
not json at all
`

// setupCLIEnv points the CLI at a fresh SQLite catalog.
func setupCLIEnv(t *testing.T) {
	t.Helper()

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "data", "catalog.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("BOOKS_TW_MIN_INTERVAL", "0s")
	t.Setenv("BOOKS_TW_RETRY_COUNT", "0")
}

func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

/*
TestCLI_IngestAndTargets runs a listing, a detail mapping and the target exports end to end.
*/
func TestCLI_IngestAndTargets(t *testing.T) {
	setupCLIEnv(t)

	out, err := runCLI(t, nil, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date (sqlite)")

	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sourceRecords), 0o600))

	// One worker keeps the listing ahead of its detail mapping
	out, err = runCLI(t, nil, "ingest", path, "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Read:      5")
	assert.Contains(t, out, "Processed: 3")
	assert.Contains(t, out, "Dropped:   1")
	assert.Contains(t, out, "Failed:    0")
	assert.Contains(t, out, "Rejected:  1")

	out, err = runCLI(t, nil, "targets", "orphans", "--region", "tw")
	require.NoError(t, err)
	var orphans []string
	require.NoError(t, json.Unmarshal([]byte(out), &orphans))
	assert.Equal(t, []string{"9786263808881"}, orphans)

	out, err = runCLI(t, nil, "targets", "jp-series")
	require.NoError(t, err)
	var releases []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &releases))
	require.Len(t, releases, 1)
	assert.Equal(t, "ブルーピリオド", releases[0]["title_jp"])
	assert.Nil(t, releases[0]["release_date"])

	_, err = runCLI(t, nil, "targets", "orphans", "--region", "kr")
	assert.Error(t, err)
}

/*
TestCLI_IngestStdin reads records from stdin when the argument is "-".
*/
func TestCLI_IngestStdin(t *testing.T) {
	setupCLIEnv(t)

	_, err := runCLI(t, nil, "migrate")
	require.NoError(t, err)

	stdin := strings.NewReader(`{"kind":"japan_comic","series_name":"ブルーピリオド","title_jp":"ブルーピリオド（18）","author_jp":["著者","／","山口つばさ"],"publisher_jp":"出版社：講談社","detail_url":"https://www.books.or.jp/book-details/9784065100018","product_desc":"発売日：2025年11月21日"}`)
	out, err := runCLI(t, stdin, "ingest", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed: 1")

	out, err = runCLI(t, nil, "targets", "jp-series")
	require.NoError(t, err)
	assert.Contains(t, out, `"release_date": "2025-11-21"`)
}

/*
TestCLI_CrawlBooksTWDryRun prints the crawled orphan volumes as JSON Lines.
*/
func TestCLI_CrawlBooksTWDryRun(t *testing.T) {
	setupCLIEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/listing":
			_, _ = io.WriteString(w, `<div class="type02_bd-a"><h4><a href="/products/1">藍色時期 16</a></h4></div>
<div class="type02_bd-a"><h4><a href="/products/2">藍色時期 16 電子書</a></h4></div>`)
		case "/products/1":
			_, _ = io.WriteString(w, `<div class="bd"><ul><li>ISBN：9786264364843</li></ul></div>`)
		case "/products/2":
			_, _ = io.WriteString(w, `<div class="bd"><ul><li>EISBN：9786264364850</li></ul></div>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out, err := runCLI(t, nil, "crawl", "books-tw", "--dry-run", "--listing", server.URL+"/listing")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"kind":"orphan_volume","isbn_tw":"9786264364843","source_url":"`+server.URL+`/products/1"}`, lines[0])
}
