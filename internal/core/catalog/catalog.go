// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog defines the canonical Publisher / Series / Volume model and the
store that persists it.

A Series is one comic work identified by its Japanese title. A Volume is one
physical release in one region (JP or TW) and may exist without a Series while
the pipeline has only seen its ISBN; such a volume is an orphan and is adopted
in place once its series becomes known.

Core Responsibility:

  - Identity: natural keys (publisher name+region, series title_jp, volume ISBN).
  - Recency: each Series points at its latest volume per region.
  - Read model: paginated series listing and series detail for the API.
*/
package catalog

import (
	"strings"
	"time"

	"github.com/taibuivan/tankobon/pkg/slice"
)

// # Domain Enums

// Region is the market a volume was released in.
type Region string

const (
	RegionJP Region = "JP"
	RegionTW Region = "TW"
)

// IsValid reports whether r is a supported market.
func (r Region) IsValid() bool {
	return r == RegionJP || r == RegionTW
}

// Status represents the Japanese publication status of a series.
type Status string

const (
	// StatusOngoing indicates the series is still being published.
	StatusOngoing Status = "ongoing"

	// StatusCompleted indicates no further volumes are expected.
	StatusCompleted Status = "completed"

	// StatusHiatus indicates the series is paused.
	StatusHiatus Status = "hiatus"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusHiatus:
		return true
	}
	return false
}

// # Core Entities

// Publisher is a publishing house in one region.
type Publisher struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Region Region `json:"region"`
}

// Series is one comic work, identified by its Japanese title.
type Series struct {
	ID                 int64    `json:"id"`
	TitleJP            string   `json:"title_jp"`
	TitleTW            string   `json:"title_tw"`
	AuthorJP           string   `json:"author_jp"`
	AuthorTW           string   `json:"author_tw"`
	StatusJP           Status   `json:"status_jp"`
	Genres             []string `json:"genres"`
	FirstPublishedYear *int     `json:"first_published_year"`

	// LatestVolumeJPID and LatestVolumeTWID are the recency pointers per region.
	LatestVolumeJPID *int64 `json:"-"`
	LatestVolumeTWID *int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LatestVolumeID returns the recency pointer for region.
func (s *Series) LatestVolumeID(region Region) *int64 {
	if region == RegionJP {
		return s.LatestVolumeJPID
	}
	return s.LatestVolumeTWID
}

// SetLatestVolumeID moves the recency pointer for region.
func (s *Series) SetLatestVolumeID(region Region, id int64) {
	if region == RegionJP {
		s.LatestVolumeJPID = &id
		return
	}
	s.LatestVolumeTWID = &id
}

// ClearLatestVolume drops every recency pointer naming volumeID and reports
// whether one was set.
func (s *Series) ClearLatestVolume(volumeID int64) bool {
	cleared := false
	if s.LatestVolumeJPID != nil && *s.LatestVolumeJPID == volumeID {
		s.LatestVolumeJPID = nil
		cleared = true
	}
	if s.LatestVolumeTWID != nil && *s.LatestVolumeTWID == volumeID {
		s.LatestVolumeTWID = nil
		cleared = true
	}
	return cleared
}

// Volume is one physical release of a series in one region.
type Volume struct {
	ID           int64   `json:"id"`
	SeriesID     *int64  `json:"series_id"`
	PublisherID  *int64  `json:"publisher_id"`
	Region       Region  `json:"region"`
	VolumeNumber *int    `json:"volume_number"`
	Variant      string  `json:"variant"` // "" is the standard edition
	ReleaseDate  *Date   `json:"release_date"`
	ISBN         *string `json:"isbn"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOrphan reports whether the volume has not been linked to a series yet.
func (v *Volume) IsOrphan() bool {
	return v.SeriesID == nil
}

// # Read Model

// SeriesSummary is one row of the series listing.
type SeriesSummary struct {
	ID                 int64    `json:"id"`
	TitleTW            string   `json:"title_tw"`
	TitleJP            string   `json:"title_jp"`
	Author             string   `json:"author"`
	StatusJP           Status   `json:"status_jp"`
	Genres             []string `json:"genres"`
	FirstPublishedYear *int     `json:"first_published_year"`
}

// SeriesDetail is a series with every known volume.
type SeriesDetail struct {
	Series

	LatestVolumeJPNumber *int            `json:"latest_volume_jp_number"`
	LatestVolumeTWNumber *int            `json:"latest_volume_tw_number"`
	Volumes              []VolumeListing `json:"volumes"`
}

// VolumeListing is a volume as shown inside a series detail.
type VolumeListing struct {
	ID            int64   `json:"id"`
	Region        Region  `json:"region"`
	VolumeNumber  *int    `json:"volume_number"`
	Variant       string  `json:"variant"`
	ReleaseDate   *Date   `json:"release_date"`
	ISBN          *string `json:"isbn"`
	PublisherName string  `json:"publisher_name"`
}

// SeriesRelease is the latest known release of a series in one region.
//
// The JP catalog crawler uses it to skip search results it already has.
type SeriesRelease struct {
	SeriesID    int64  `json:"series_id"`
	TitleJP     string `json:"title_jp"`
	ReleaseDate *Date  `json:"release_date"`
}

// # Listing Filters

// Filter narrows the series listing.
type Filter struct {
	// Query is a case-insensitive substring matched against both titles and authors.
	Query    string
	StatusJP Status
	Genre    string
	Year     *int
	Sort     string
}

// seriesOrderings maps accepted sort keys to ORDER BY clauses.
var seriesOrderings = map[string]string{
	"":                      "s.id DESC",
	"-id":                   "s.id DESC",
	"id":                    "s.id ASC",
	"title_jp":              "s.title_jp ASC, s.id DESC",
	"-title_jp":             "s.title_jp DESC, s.id DESC",
	"first_published_year":  "s.first_published_year ASC, s.id DESC",
	"-first_published_year": "s.first_published_year DESC, s.id DESC",
}

// SortKeys lists the accepted values of [Filter.Sort].
func SortKeys() []string {
	return []string{"-id", "id", "title_jp", "-title_jp", "first_published_year", "-first_published_year"}
}

// IsValidSort reports whether key is an accepted sort key.
func IsValidSort(key string) bool {
	_, ok := seriesOrderings[key]
	return ok
}

// # Helpers

// joinGenres encodes genres the way they are stored: a comma separated list.
func joinGenres(genres []string) string {
	return strings.Join(genres, ",")
}

// splitGenres decodes the stored comma separated list.
func splitGenres(raw string) []string {
	return slice.TrimmedNonEmpty(strings.Split(raw, ","))
}
