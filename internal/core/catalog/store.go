// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import "context"

// Writer is the part of the store the reconciliation engine depends on.
//
// Every GetOrCreate call is safe to race: a concurrent insert of the same
// natural key resolves to the row that won. Lookups that find nothing return
// dberr.ErrNotFound; writes that collide with a uniqueness constraint return
// dberr.ErrConflict.
type Writer interface {
	GetOrCreatePublisher(ctx context.Context, name string, region Region) (*Publisher, bool, error)
	GetOrCreateSeries(ctx context.Context, titleJP string) (*Series, bool, error)
	GetOrCreateVolume(ctx context.Context, isbn string, defaults VolumeUpdate) (*Volume, bool, error)

	FindVolumeByISBN(ctx context.Context, isbn string) (*Volume, error)
	GetSeries(ctx context.Context, id int64) (*Series, error)
	GetVolume(ctx context.Context, id int64) (*Volume, error)

	UpdateSeries(ctx context.Context, series *Series) error
	UpdateVolume(ctx context.Context, volume *Volume) error
}

// Reader serves the read API and the crawl target lists.
type Reader interface {
	ListSeries(ctx context.Context, filter Filter, limit, offset int) ([]*SeriesSummary, int, error)
	GetSeriesDetail(ctx context.Context, id int64) (*SeriesDetail, error)

	// ListOrphanISBNs returns the ISBNs of volumes in region not yet linked to a series.
	ListOrphanISBNs(ctx context.Context, region Region) ([]string, error)

	// ListLatestReleases returns every series with the release date of its latest volume in region.
	ListLatestReleases(ctx context.Context, region Region) ([]SeriesRelease, error)
}

// Store is the complete catalog persistence contract.
type Store interface {
	Writer
	Reader
}
