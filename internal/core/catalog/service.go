// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/tankobon/internal/platform/apperr"
	"github.com/taibuivan/tankobon/internal/platform/dberr"
	"github.com/taibuivan/tankobon/internal/platform/validate"
	"github.com/taibuivan/tankobon/pkg/pagination"
)

// Service serves the read side of the catalog.
type Service struct {
	repo   Reader
	logger *slog.Logger
}

// NewService constructs a read service over repo.
func NewService(repo Reader, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListSeries validates filter and returns one page of series with its total count.
func (service *Service) ListSeries(ctx context.Context, filter Filter, page pagination.Params) ([]*SeriesSummary, int, error) {
	v := &validate.Validator{}
	v.Custom("sort", !IsValidSort(filter.Sort), "Must be one of the sort keys")
	v.Custom("status_jp", filter.StatusJP != "" && !filter.StatusJP.IsValid(), "Must be ongoing, completed or hiatus")
	v.MaxLen("q", filter.Query, 200)
	if filter.Year != nil {
		v.Range("year", *filter.Year, 1900, 2999)
	}
	if err := v.Err(); err != nil {
		return nil, 0, err
	}

	return service.repo.ListSeries(ctx, filter, page.Limit, page.Offset())
}

// GetSeries returns a series with every known volume.
func (service *Service) GetSeries(ctx context.Context, id int64) (*SeriesDetail, error) {
	detail, err := service.repo.GetSeriesDetail(ctx, id)
	if errors.Is(err, dberr.ErrNotFound) {
		return nil, apperr.NotFound("Series")
	}
	return detail, err
}

// OrphanISBNs returns the ISBNs waiting for the details crawl in region.
func (service *Service) OrphanISBNs(ctx context.Context, region Region) ([]string, error) {
	if !region.IsValid() {
		return nil, apperr.ValidationError("Invalid region", apperr.FieldError{Field: "region", Message: "Must be JP or TW"})
	}
	return service.repo.ListOrphanISBNs(ctx, region)
}

// LatestReleases returns every series with its latest release date in region.
func (service *Service) LatestReleases(ctx context.Context, region Region) ([]SeriesRelease, error) {
	if !region.IsValid() {
		return nil, apperr.ValidationError("Invalid region", apperr.FieldError{Field: "region", Message: "Must be JP or TW"})
	}
	return service.repo.ListLatestReleases(ctx, region)
}
