// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/core/catalog"
)

/*
TestParseDate accepts only the canonical day layout.
*/
func TestParseDate(t *testing.T) {
	d, err := catalog.ParseDate("2024-09-12")
	require.NoError(t, err)
	assert.Equal(t, "2024-09-12", d.String())
	assert.True(t, d.Equal(catalog.NewDate(2024, time.September, 12)))

	for _, bad := range []string{"2024/09/12", "2024-9-12", "", "2024-02-30"} {
		_, err := catalog.ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

/*
TestDate_Scan reads the values both catalog backends produce for a DATE column.
*/
func TestDate_Scan(t *testing.T) {
	want := catalog.NewDate(2024, time.September, 12)

	tests := []struct {
		name string
		src  any
	}{
		{"time_value", time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC)},
		{"time_with_zone", time.Date(2024, 9, 12, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))},
		{"plain_day", "2024-09-12"},
		{"go_string_form", "2024-09-12 00:00:00 +0000 UTC"},
		{"rfc3339", "2024-09-12T00:00:00Z"},
		{"bytes", []byte("2024-09-12")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got catalog.Date
			require.NoError(t, got.Scan(tt.src))
			assert.True(t, want.Equal(got), got.String())
		})
	}

	var got catalog.Date
	assert.Error(t, got.Scan(42))
	assert.Error(t, got.Scan("next tuesday"))
}

/*
TestDate_JSON encodes dates as YYYY-MM-DD strings.
*/
func TestDate_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		ReleaseDate *catalog.Date `json:"release_date"`
		Missing     *catalog.Date `json:"missing"`
	}{ReleaseDate: func() *catalog.Date { d := catalog.NewDate(2024, 9, 12); return &d }()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"release_date":"2024-09-12","missing":null}`, string(payload))

	var decoded catalog.Date
	require.NoError(t, json.Unmarshal([]byte(`"2021-11-01"`), &decoded))
	assert.Equal(t, "2021-11-01", decoded.String())
}
