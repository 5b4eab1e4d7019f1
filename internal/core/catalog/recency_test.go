// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tankobon/internal/core/catalog"
	"github.com/taibuivan/tankobon/pkg/pointer"
)

/*
TestShouldAdvance walks the recency rules for the latest volume pointer.
*/
func TestShouldAdvance(t *testing.T) {
	dated := func(day string) *catalog.Volume {
		d, _ := catalog.ParseDate(day)
		return &catalog.Volume{ReleaseDate: &d}
	}
	undated := &catalog.Volume{}

	tests := []struct {
		name      string
		current   *catalog.Volume
		candidate *catalog.Volume
		isFinal   bool
		want      bool
	}{
		{"no_pointer_yet", nil, dated("2024-01-01"), false, true},
		{"no_pointer_undated_candidate", nil, undated, false, true},
		{"strictly_newer", dated("2024-01-01"), dated("2024-05-01"), false, true},
		{"same_day", dated("2024-01-01"), dated("2024-01-01"), false, false},
		{"older", dated("2024-05-01"), dated("2024-01-01"), false, false},
		{"final_wins_even_if_older", dated("2024-05-01"), dated("2024-01-01"), true, true},
		{"final_wins_without_date", dated("2024-05-01"), undated, true, true},
		{"undated_candidate_never_newer", dated("2024-05-01"), undated, false, false},
		{"dated_beats_undated_current", undated, dated("2020-01-01"), false, true},
		{"nil_candidate", nil, nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.ShouldAdvance(tt.current, tt.candidate, tt.isFinal))
		})
	}
}

/*
TestVolumeUpdate_ApplyTo verifies that unknown fields never clobber and dates only move forward.
*/
func TestVolumeUpdate_ApplyTo(t *testing.T) {
	early, _ := catalog.ParseDate("2024-01-01")
	late, _ := catalog.ParseDate("2024-09-12")

	t.Run("adopts_orphan", func(t *testing.T) {
		volume := &catalog.Volume{Region: catalog.RegionTW}
		changed := catalog.VolumeUpdate{
			SeriesID:     pointer.To(int64(7)),
			PublisherID:  pointer.To(int64(3)),
			VolumeNumber: pointer.To(13),
			Variant:      pointer.To("特裝版"),
			ReleaseDate:  &late,
		}.ApplyTo(volume)

		assert.True(t, changed)
		assert.Equal(t, int64(7), pointer.Val(volume.SeriesID))
		assert.Equal(t, int64(3), pointer.Val(volume.PublisherID))
		assert.Equal(t, 13, pointer.Val(volume.VolumeNumber))
		assert.Equal(t, "特裝版", volume.Variant)
		assert.Equal(t, "2024-09-12", volume.ReleaseDate.String())
	})

	t.Run("unknown_fields_keep_values", func(t *testing.T) {
		volume := &catalog.Volume{
			SeriesID:     pointer.To(int64(7)),
			Region:       catalog.RegionTW,
			VolumeNumber: pointer.To(13),
			Variant:      "特裝版",
			ReleaseDate:  &late,
		}
		changed := catalog.VolumeUpdate{}.ApplyTo(volume)

		assert.False(t, changed)
		assert.Equal(t, 13, pointer.Val(volume.VolumeNumber))
		assert.Equal(t, "特裝版", volume.Variant)
	})

	t.Run("earlier_date_ignored", func(t *testing.T) {
		volume := &catalog.Volume{ReleaseDate: &late}
		changed := catalog.VolumeUpdate{ReleaseDate: &early}.ApplyTo(volume)

		assert.False(t, changed)
		assert.Equal(t, "2024-09-12", volume.ReleaseDate.String())
	})

	t.Run("later_date_replaces", func(t *testing.T) {
		volume := &catalog.Volume{ReleaseDate: &early}
		changed := catalog.VolumeUpdate{ReleaseDate: &late}.ApplyTo(volume)

		assert.True(t, changed)
		assert.Equal(t, "2024-09-12", volume.ReleaseDate.String())
	})

	t.Run("same_values_report_no_change", func(t *testing.T) {
		volume := &catalog.Volume{SeriesID: pointer.To(int64(7)), Region: catalog.RegionJP, Variant: ""}
		changed := catalog.VolumeUpdate{
			SeriesID: pointer.To(int64(7)),
			Region:   catalog.RegionJP,
			Variant:  pointer.To(""),
		}.ApplyTo(volume)

		assert.False(t, changed)
	})
}

/*
TestSeries_ClearLatestVolume drops only the pointers naming the volume.
*/
func TestSeries_ClearLatestVolume(t *testing.T) {
	series := &catalog.Series{LatestVolumeJPID: pointer.To(int64(7)), LatestVolumeTWID: pointer.To(int64(9))}

	assert.False(t, series.ClearLatestVolume(3))
	assert.True(t, series.ClearLatestVolume(9))
	assert.Nil(t, series.LatestVolumeTWID)
	assert.Equal(t, int64(7), pointer.Val(series.LatestVolumeJPID))
}
