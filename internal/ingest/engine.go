// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/taibuivan/tankobon/internal/core/catalog"
	"github.com/taibuivan/tankobon/internal/ingest/extract"
	"github.com/taibuivan/tankobon/internal/platform/constants"
	"github.com/taibuivan/tankobon/internal/platform/ctxutil"
	"github.com/taibuivan/tankobon/internal/platform/dberr"
	"github.com/taibuivan/tankobon/internal/platform/keylock"
	"github.com/taibuivan/tankobon/internal/platform/validate"
	"github.com/taibuivan/tankobon/pkg/pointer"
	"github.com/taibuivan/tankobon/pkg/uuidv7"
)

// Source Record field names, as they appear in JSON Lines and in drop details.
const (
	fieldISBNTW     = "isbn_tw"
	fieldTitleJP    = "title_jp"
	fieldSeriesName = "series_name"
	fieldDetailURL  = "detail_url"
)

var errNilRecord = errors.New("nil record")

// Outcome summarises what one record did to the catalog.
type Outcome struct {
	RecordID string `json:"record_id"`
	Kind     Kind   `json:"kind"`

	// SeriesID and VolumeID are zero when the record touched no such row.
	SeriesID int64 `json:"series_id,omitempty"`
	VolumeID int64 `json:"volume_id,omitempty"`

	// DetachedSeriesID is the series the volume belonged to before this record moved it.
	DetachedSeriesID int64 `json:"detached_series_id,omitempty"`

	VolumeCreated bool `json:"volume_created"`
	VolumeChanged bool `json:"volume_changed"`
	LatestMoved   bool `json:"latest_moved"`
}

// Engine is the reconciliation engine. It is safe for concurrent use; records
// touching the same series are serialized through the [keylock.Locker].
type Engine struct {
	store  catalog.Writer
	locks  keylock.Locker
	logger *slog.Logger
}

// NewEngine constructs an engine writing to store.
func NewEngine(store catalog.Writer, locks keylock.Locker, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		locks:  locks,
		logger: logger,
	}
}

/*
Process reconciles one record into the catalog.

A data problem with the record (missing mandatory field, failed identity check,
invalid ISBN, uniqueness conflict) returns a [*DropError]. Any other error is an
infrastructure failure and leaves the record eligible for a later run.
*/
func (e *Engine) Process(ctx context.Context, record Record) (Outcome, error) {
	if record == nil {
		return Outcome{}, fmt.Errorf("ingest: %w", errNilRecord)
	}

	recordID := uuidv7.New()
	logger := e.logger.With(
		slog.String("record_id", recordID),
		slog.String("kind", string(record.Kind())),
	)
	ctx = ctxutil.WithLogger(ctxutil.WithRecordID(ctx, recordID), logger)

	var outcome Outcome
	var err error

	switch r := record.(type) {
	case *OrphanVolume:
		outcome, err = e.processOrphanVolume(ctx, r)
	case *DetailMapping:
		outcome, err = e.processDetailMapping(ctx, r)
	case *JapanComic:
		outcome, err = e.processJapanComic(ctx, r)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownKind, record)
	}

	outcome.RecordID = recordID
	outcome.Kind = record.Kind()

	if err == nil && outcome.DetachedSeriesID != 0 {
		err = e.detach(ctx, outcome.DetachedSeriesID, outcome.VolumeID)
	}

	if err != nil {
		err = classify(record, err)

		var dropped *DropError
		if errors.As(err, &dropped) {
			logger.WarnContext(ctx, "record_dropped",
				slog.String("reason", string(dropped.Reason)),
				slog.Any("error", dropped.Cause),
				slog.Any("record", record),
			)
		} else {
			logger.ErrorContext(ctx, "record_failed",
				slog.Any("error", err),
				slog.Any("record", record),
			)
		}
		return outcome, err
	}

	logger.DebugContext(ctx, "record_processed",
		slog.Int64("series_id", outcome.SeriesID),
		slog.Int64("volume_id", outcome.VolumeID),
		slog.Bool("volume_created", outcome.VolumeCreated),
		slog.Bool("latest_moved", outcome.LatestMoved),
	)
	return outcome, nil
}

// classify turns uniqueness conflicts into drops; another record already holds the key.
func classify(record Record, err error) error {
	if errors.Is(err, ErrDropped) {
		return err
	}
	if errors.Is(err, dberr.ErrConflict) {
		return drop(record, ReasonConflict, err)
	}
	return err
}

// # Kind A: Orphan Volume

func (e *Engine) processOrphanVolume(ctx context.Context, r *OrphanVolume) (Outcome, error) {
	var outcome Outcome
	if r == nil {
		return outcome, drop(r, ReasonMissingField, errNilRecord)
	}

	isbn := strings.TrimSpace(r.ISBN)
	if err := (&validate.Validator{}).Required(fieldISBNTW, isbn).Err(); err != nil {
		return outcome, drop(r, ReasonMissingField, err)
	}
	if !extract.ValidISBN(isbn) {
		return outcome, drop(r, ReasonInvalidISBN, fmt.Errorf("%s %q", fieldISBNTW, isbn))
	}

	volume, created, err := e.store.GetOrCreateVolume(ctx, isbn, catalog.VolumeUpdate{
		Region:  catalog.RegionTW,
		Variant: pointer.To(""),
	})
	if err != nil {
		return outcome, err
	}

	outcome.VolumeID = volume.ID
	outcome.VolumeCreated = created
	if volume.SeriesID != nil {
		outcome.SeriesID = *volume.SeriesID
	}

	logger := ctxutil.GetLogger(ctx)
	if created {
		logger.InfoContext(ctx, "orphan_volume_created", slog.String("isbn", isbn), slog.Int64("volume_id", volume.ID))
	} else {
		logger.DebugContext(ctx, "orphan_volume_exists", slog.String("isbn", isbn), slog.Int64("volume_id", volume.ID))
	}
	return outcome, nil
}

// # Kind B: Detail Mapping

func (e *Engine) processDetailMapping(ctx context.Context, r *DetailMapping) (Outcome, error) {
	var outcome Outcome
	if r == nil {
		return outcome, drop(r, ReasonMissingField, errNilRecord)
	}
	logger := ctxutil.GetLogger(ctx)

	titleJP := strings.TrimSpace(r.TitleJP)
	if err := (&validate.Validator{}).Required(fieldTitleJP, titleJP).Err(); err != nil {
		return outcome, drop(r, ReasonMissingField, err)
	}
	if extract.IsDigitalEdition(r.ProductDesc) {
		return outcome, drop(r, ReasonDigitalEdition, nil)
	}

	// 1. Extract every field before touching the catalog
	var title extract.TitleTW
	hasTitle := strings.TrimSpace(r.TitleTW) != ""
	if hasTitle {
		parsed, err := extract.ParseTitleTW(r.TitleTW)
		if err != nil {
			return outcome, drop(r, ReasonMalformedTitle, err)
		}
		title = parsed
	}

	authorTW := extract.StripLabel(r.AuthorTW)
	publisherTW := extract.StripLabel(r.PublisherTW)
	releaseDate := day(extract.ReleaseDateTW(r.ReleaseDateTW))
	if releaseDate == nil && r.ReleaseDateTW != "" {
		logger.DebugContext(ctx, "release_date_unparsed", slog.String("text", r.ReleaseDateTW))
	}

	// 2. Publisher
	publisherID, err := e.publisher(ctx, publisherTW, catalog.RegionTW)
	if err != nil {
		return outcome, err
	}

	// 3. Series, by its Japanese title
	series, unlock, err := e.lockSeries(ctx, titleJP)
	if err != nil {
		return outcome, err
	}
	defer unlock()
	outcome.SeriesID = series.ID

	seriesChanged := false
	if hasTitle && title.SeriesName != "" && series.TitleTW != title.SeriesName {
		series.TitleTW = title.SeriesName
		seriesChanged = true
	}
	if authorTW != "" && series.AuthorTW != authorTW {
		series.AuthorTW = authorTW
		seriesChanged = true
	}

	// 4. Adopt the orphan created from the listing
	volume, err := e.findOrphan(ctx, strings.TrimSpace(r.ISBN))
	if err != nil {
		return outcome, err
	}

	if volume != nil {
		update := catalog.VolumeUpdate{
			SeriesID:    &series.ID,
			PublisherID: publisherID,
			Region:      catalog.RegionTW,
			ReleaseDate: releaseDate,
		}
		if hasTitle {
			update.VolumeNumber = pointer.To(title.VolumeNumber)
			update.Variant = pointer.To(title.Variant)
		}

		wasOrphan := volume.IsOrphan()
		outcome.DetachedSeriesID = movedFrom(volume, series.ID)
		if update.ApplyTo(volume) {
			if err := e.store.UpdateVolume(ctx, volume); err != nil {
				return outcome, err
			}
			outcome.VolumeChanged = true
		}
		outcome.VolumeID = volume.ID

		if wasOrphan {
			logger.InfoContext(ctx, "volume_adopted",
				slog.String("isbn", pointer.Val(volume.ISBN)),
				slog.Int64("volume_id", volume.ID),
				slog.Int64("series_id", series.ID),
			)
		}

		// 5. Recency
		moved, err := e.advance(ctx, series, volume, title.IsFinal)
		if err != nil {
			return outcome, err
		}
		outcome.LatestMoved = moved
		seriesChanged = seriesChanged || moved
	}

	if seriesChanged {
		if err := e.store.UpdateSeries(ctx, series); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// findOrphan returns the volume a detail record is anchored on, or nil when the
// listing has not produced it yet.
func (e *Engine) findOrphan(ctx context.Context, isbn string) (*catalog.Volume, error) {
	logger := ctxutil.GetLogger(ctx)

	if !extract.ValidISBN(isbn) {
		logger.WarnContext(ctx, "orphan_volume_unresolvable", slog.String("isbn", isbn))
		return nil, nil
	}

	volume, err := e.store.FindVolumeByISBN(ctx, isbn)
	if errors.Is(err, dberr.ErrNotFound) {
		logger.WarnContext(ctx, "orphan_volume_missing", slog.String("isbn", isbn))
		return nil, nil
	}
	return volume, err
}

// # Kind C: Japan Comic

func (e *Engine) processJapanComic(ctx context.Context, r *JapanComic) (Outcome, error) {
	var outcome Outcome
	if r == nil {
		return outcome, drop(r, ReasonMissingField, errNilRecord)
	}

	seriesName := strings.TrimSpace(r.SeriesName)
	titleJP := strings.TrimSpace(r.TitleJP)

	v := &validate.Validator{}
	v.Required(fieldDetailURL, r.DetailURL).Required(fieldSeriesName, seriesName)
	if err := v.Err(); err != nil {
		return outcome, drop(r, ReasonMissingField, err)
	}

	// 1. Identity checks
	if !strings.HasPrefix(titleJP, seriesName) {
		return outcome, drop(r, ReasonTitleMismatch, fmt.Errorf("%q does not start with %q", titleJP, seriesName))
	}

	isbn := extract.ISBNFromURL(r.DetailURL)
	if !extract.ValidISBN(isbn) {
		return outcome, drop(r, ReasonInvalidISBN, fmt.Errorf("detail url code %q", isbn))
	}
	if extract.IsDigitalEdition(r.ProductDesc) {
		return outcome, drop(r, ReasonDigitalEdition, nil)
	}

	// 2. Fields
	publisherJP := extract.StripPublisherJP(r.PublisherJP)
	authorJP := extract.JoinAuthorsJP(r.AuthorJP)
	variant, volumeNumber := extract.ParseTitleJP(titleJP, seriesName)
	releaseDate := day(extract.ReleaseDateJP(r.ProductDesc))

	// 3. Publisher
	publisherID, err := e.publisher(ctx, publisherJP, catalog.RegionJP)
	if err != nil {
		return outcome, err
	}

	// 4. Series, by the searched series name
	series, unlock, err := e.lockSeries(ctx, seriesName)
	if err != nil {
		return outcome, err
	}
	defer unlock()
	outcome.SeriesID = series.ID

	seriesChanged := false
	if authorJP != "" && series.AuthorJP != authorJP {
		series.AuthorJP = authorJP
		seriesChanged = true
	}

	// 5. Volume, created directly: this source has no listing phase
	defaults := catalog.VolumeUpdate{
		SeriesID:     &series.ID,
		PublisherID:  publisherID,
		Region:       catalog.RegionJP,
		VolumeNumber: volumeNumber,
		ReleaseDate:  releaseDate,
	}
	if volumeNumber != nil {
		defaults.Variant = pointer.To(variant)
	}

	volume, created, err := e.store.GetOrCreateVolume(ctx, isbn, defaults)
	if err != nil {
		return outcome, err
	}
	outcome.VolumeID = volume.ID
	outcome.VolumeCreated = created

	if !created {
		outcome.DetachedSeriesID = movedFrom(volume, series.ID)
	}
	if !created && defaults.ApplyTo(volume) {
		if err := e.store.UpdateVolume(ctx, volume); err != nil {
			return outcome, err
		}
		outcome.VolumeChanged = true
	}

	// 6. Recency
	moved, err := e.advance(ctx, series, volume, false)
	if err != nil {
		return outcome, err
	}
	outcome.LatestMoved = moved

	if seriesChanged || moved {
		if err := e.store.UpdateSeries(ctx, series); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// # Shared Steps

// publisher resolves a publisher when the source printed one.
func (e *Engine) publisher(ctx context.Context, name string, region catalog.Region) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	publisher, created, err := e.store.GetOrCreatePublisher(ctx, name, region)
	if err != nil {
		return nil, err
	}
	if created {
		ctxutil.GetLogger(ctx).InfoContext(ctx, "publisher_created",
			slog.String("name", name),
			slog.String("region", string(region)),
		)
	}
	return &publisher.ID, nil
}

// lockSeries resolves the series for titleJP and locks it. The returned series is
// read after the lock is held so concurrent writers never lose updates.
func (e *Engine) lockSeries(ctx context.Context, titleJP string) (*catalog.Series, func(), error) {
	series, created, err := e.store.GetOrCreateSeries(ctx, titleJP)
	if err != nil {
		return nil, nil, err
	}
	if created {
		ctxutil.GetLogger(ctx).InfoContext(ctx, "series_created",
			slog.String("title_jp", titleJP),
			slog.Int64("series_id", series.ID),
		)
	}

	unlock, err := e.locks.Lock(ctx, seriesKey(series.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: lock series %d: %w", series.ID, err)
	}

	fresh, err := e.store.GetSeries(ctx, series.ID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return fresh, unlock, nil
}

func seriesKey(id int64) string {
	return constants.LockPrefixSeries + strconv.FormatInt(id, 10)
}

// movedFrom returns the series volume leaves when it is assigned to seriesID, or zero.
func movedFrom(volume *catalog.Volume, seriesID int64) int64 {
	if volume.SeriesID == nil || *volume.SeriesID == seriesID {
		return 0
	}
	return *volume.SeriesID
}

// detach clears the recency pointers of seriesID that still name volumeID. It runs
// after the adopting series is unlocked, so a record never holds two series locks.
func (e *Engine) detach(ctx context.Context, seriesID, volumeID int64) error {
	unlock, err := e.locks.Lock(ctx, seriesKey(seriesID))
	if err != nil {
		return fmt.Errorf("ingest: lock series %d: %w", seriesID, err)
	}
	defer unlock()

	series, err := e.store.GetSeries(ctx, seriesID)
	if errors.Is(err, dberr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !series.ClearLatestVolume(volumeID) {
		return nil
	}
	if err := e.store.UpdateSeries(ctx, series); err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "latest_volume_detached",
		slog.Int64("series_id", seriesID),
		slog.Int64("volume_id", volumeID),
	)
	return nil
}

// advance moves the series pointer for the candidate's region when the recency
// rules allow it. The caller persists the series.
func (e *Engine) advance(ctx context.Context, series *catalog.Series, candidate *catalog.Volume, isFinal bool) (bool, error) {
	currentID := series.LatestVolumeID(candidate.Region)
	if currentID != nil && *currentID == candidate.ID {
		return false, nil
	}

	var current *catalog.Volume
	if currentID != nil {
		loaded, err := e.store.GetVolume(ctx, *currentID)
		switch {
		case errors.Is(err, dberr.ErrNotFound):
		case err != nil:
			return false, err
		default:
			current = loaded
		}
	}

	if !catalog.ShouldAdvance(current, candidate, isFinal) {
		return false, nil
	}

	series.SetLatestVolumeID(candidate.Region, candidate.ID)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "latest_volume_moved",
		slog.Int64("series_id", series.ID),
		slog.String("region", string(candidate.Region)),
		slog.Int64("volume_id", candidate.ID),
		slog.Bool("is_final", isFinal),
	)
	return true, nil
}

// day converts an extractor result to a catalog date.
func day(value string, found bool) *catalog.Date {
	if !found {
		return nil
	}
	parsed, err := catalog.ParseDate(value)
	if err != nil {
		return nil
	}
	return &parsed
}
