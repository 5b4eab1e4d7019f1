// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/ingest"
)

/*
TestDecodeRecord dispatches JSON Lines entries by kind.
*/
func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ingest.Record
	}{
		{
			name: "orphan_volume",
			line: `{"kind":"orphan_volume","isbn_tw":"9786264364843","source_url":"https://www.books.com.tw/products/0010000001"}`,
			want: &ingest.OrphanVolume{ISBN: "9786264364843", SourceURL: "https://www.books.com.tw/products/0010000001"},
		},
		{
			name: "detail_mapping",
			line: `{"kind":"detail_mapping","isbn_tw":"9786264364843","title_jp":"ブルーピリオド","title_tw":"藍色時期 16 (首刷限定版)","publisher_tw":"出版社：東立出版社有限公司"}`,
			want: &ingest.DetailMapping{ISBN: "9786264364843", TitleJP: "ブルーピリオド", TitleTW: "藍色時期 16 (首刷限定版)", PublisherTW: "出版社：東立出版社有限公司"},
		},
		{
			name: "japan_comic",
			line: `{"kind":"japan_comic","series_name":"ブルーピリオド","title_jp":"ブルーピリオド（18）","author_jp":["著者","／","山口つばさ"],"detail_url":"https://www.books.or.jp/book-details/9784065100018","extra":"ignored"}`,
			want: &ingest.JapanComic{SeriesName: "ブルーピリオド", TitleJP: "ブルーピリオド（18）", AuthorJP: []string{"著者", "／", "山口つばさ"}, DetailURL: "https://www.books.or.jp/book-details/9784065100018"},
		},
		{
			name: "fields_all_optional",
			line: `{"kind":"detail_mapping"}`,
			want: &ingest.DetailMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ingest.DecodeRecord([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, record)
		})
	}
}

/*
TestDecodeRecord_Rejects reports unknown kinds and broken JSON.
*/
func TestDecodeRecord_Rejects(t *testing.T) {
	_, err := ingest.DecodeRecord([]byte(`{"kind":"amazon_listing"}`))
	assert.ErrorIs(t, err, ingest.ErrUnknownKind)

	_, err = ingest.DecodeRecord([]byte(`{"isbn_tw":"9786264364843"}`))
	assert.ErrorIs(t, err, ingest.ErrUnknownKind)

	_, err = ingest.DecodeRecord([]byte(`{"kind":`))
	assert.Error(t, err)

	_, err = ingest.DecodeRecord([]byte(`{"kind":"japan_comic","author_jp":"not a list"}`))
	assert.Error(t, err)
}

/*
TestEncodeRecord writes the kind discriminator the decoder reads back.
*/
func TestEncodeRecord(t *testing.T) {
	line, err := ingest.EncodeRecord(&ingest.OrphanVolume{ISBN: "9786264364843"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"orphan_volume","isbn_tw":"9786264364843"}`, string(line))

	decoded, err := ingest.DecodeRecord(line)
	require.NoError(t, err)
	assert.Equal(t, ingest.KindOrphanVolume, decoded.Kind())
}
