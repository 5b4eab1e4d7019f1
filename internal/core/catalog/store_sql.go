// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
SQLStore is the database/sql implementation of [Store].

The same statements run on PostgreSQL and SQLite: both support
INSERT ... ON CONFLICT DO NOTHING RETURNING, window functions and partial
indexes, and placeholders are rebound per dialect by [database.DB].

Get-or-create follows one pattern everywhere: try the insert, and when the
natural key already exists (no row returned) read the existing row.
*/
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/tankobon/internal/platform/database"
	"github.com/taibuivan/tankobon/internal/platform/database/schema"
	"github.com/taibuivan/tankobon/internal/platform/dberr"
)

// SQLStore implements [Store] on top of a catalog database handle.
type SQLStore struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLStore constructs a store on an open, migrated catalog database.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

var (
	publisherColumns = schema.List("", schema.CatalogPublisher.Columns())
	seriesColumns    = schema.List("", schema.CatalogSeries.Columns())
	volumeColumns    = schema.List("", schema.CatalogVolume.Columns())
)

// # Publisher

// GetOrCreatePublisher resolves the publisher by its (name, region) key.
func (store *SQLStore) GetOrCreatePublisher(ctx context.Context, name string, region Region) (*Publisher, bool, error) {
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)
		ON CONFLICT (%s, %s) DO NOTHING
		RETURNING %s`,
		schema.CatalogPublisher.Table,
		schema.CatalogPublisher.Name, schema.CatalogPublisher.Region, schema.CatalogPublisher.CreatedAt,
		schema.CatalogPublisher.Name, schema.CatalogPublisher.Region,
		publisherColumns,
	)

	publisher, err := scanPublisher(store.db.QueryRowContext(ctx, store.db.Rebind(insert), name, region, store.now()))
	if err == nil {
		return publisher, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, dberr.Wrap(err, "create_publisher")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? AND %s = ?`,
		publisherColumns, schema.CatalogPublisher.Table,
		schema.CatalogPublisher.Name, schema.CatalogPublisher.Region,
	)
	publisher, err = scanPublisher(store.db.QueryRowContext(ctx, store.db.Rebind(query), name, region))
	if err != nil {
		return nil, false, dberr.Wrap(err, "get_publisher")
	}
	return publisher, false, nil
}

func scanPublisher(row rowScanner) (*Publisher, error) {
	publisher := &Publisher{}
	if err := row.Scan(&publisher.ID, &publisher.Name, &publisher.Region); err != nil {
		return nil, err
	}
	return publisher, nil
}

// # Series

// GetOrCreateSeries resolves the series by its Japanese title.
func (store *SQLStore) GetOrCreateSeries(ctx context.Context, titleJP string) (*Series, bool, error) {
	now := store.now()
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)
		ON CONFLICT (%s) DO NOTHING
		RETURNING %s`,
		schema.CatalogSeries.Table,
		schema.CatalogSeries.TitleJP, schema.CatalogSeries.StatusJP,
		schema.CatalogSeries.CreatedAt, schema.CatalogSeries.UpdatedAt,
		schema.CatalogSeries.TitleJP,
		seriesColumns,
	)

	series, err := scanSeries(store.db.QueryRowContext(ctx, store.db.Rebind(insert), titleJP, StatusOngoing, now, now))
	if err == nil {
		return series, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, dberr.Wrap(err, "create_series")
	}

	series, err = store.seriesWhere(ctx, schema.CatalogSeries.TitleJP, titleJP)
	if err != nil {
		return nil, false, dberr.Wrap(err, "get_series_by_title")
	}
	return series, false, nil
}

// GetSeries loads a series by ID.
func (store *SQLStore) GetSeries(ctx context.Context, id int64) (*Series, error) {
	series, err := store.seriesWhere(ctx, schema.CatalogSeries.ID, id)
	if err != nil {
		return nil, dberr.Wrap(err, "get_series")
	}
	return series, nil
}

func (store *SQLStore) seriesWhere(ctx context.Context, column string, value any) (*Series, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, seriesColumns, schema.CatalogSeries.Table, column)
	return scanSeries(store.db.QueryRowContext(ctx, store.db.Rebind(query), value))
}

// UpdateSeries writes every mutable series field.
func (store *SQLStore) UpdateSeries(ctx context.Context, series *Series) error {
	now := store.now()
	query := fmt.Sprintf(`
		UPDATE %s SET %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?
		WHERE %s = ?`,
		schema.CatalogSeries.Table,
		schema.CatalogSeries.TitleTW,
		schema.CatalogSeries.AuthorJP,
		schema.CatalogSeries.AuthorTW,
		schema.CatalogSeries.StatusJP,
		schema.CatalogSeries.Genres,
		schema.CatalogSeries.FirstPublishedYear,
		schema.CatalogSeries.LatestVolumeJPID,
		schema.CatalogSeries.LatestVolumeTWID,
		schema.CatalogSeries.UpdatedAt,
		schema.CatalogSeries.ID,
	)

	result, err := store.db.ExecContext(ctx, store.db.Rebind(query),
		series.TitleTW,
		series.AuthorJP,
		series.AuthorTW,
		series.StatusJP,
		joinGenres(series.Genres),
		series.FirstPublishedYear,
		series.LatestVolumeJPID,
		series.LatestVolumeTWID,
		now,
		series.ID,
	)
	if err := affectedOne(result, err, "update_series"); err != nil {
		return err
	}

	series.UpdatedAt = now
	return nil
}

func scanSeries(row rowScanner, extra ...any) (*Series, error) {
	series := &Series{}
	var genres string
	var createdAt, updatedAt timestamp

	dest := []any{
		&series.ID,
		&series.TitleJP,
		&series.TitleTW,
		&series.AuthorJP,
		&series.AuthorTW,
		&series.StatusJP,
		&genres,
		&series.FirstPublishedYear,
		&series.LatestVolumeJPID,
		&series.LatestVolumeTWID,
		&createdAt,
		&updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	series.Genres = splitGenres(genres)
	series.CreatedAt = createdAt.Time
	series.UpdatedAt = updatedAt.Time
	return series, nil
}

// # Volume

// GetOrCreateVolume resolves the volume by ISBN, creating it from defaults.
//
// Defaults are ignored when the ISBN already exists. An insert that collides with
// the (series, number, region, variant) key fails with dberr.ErrConflict.
func (store *SQLStore) GetOrCreateVolume(ctx context.Context, isbn string, defaults VolumeUpdate) (*Volume, bool, error) {
	if !defaults.Region.IsValid() {
		return nil, false, fmt.Errorf("catalog: volume %s: invalid region %q", isbn, defaults.Region)
	}

	variant := ""
	if defaults.Variant != nil {
		variant = *defaults.Variant
	}

	now := store.now()
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (%s) DO NOTHING
		RETURNING %s`,
		schema.CatalogVolume.Table,
		schema.CatalogVolume.SeriesID,
		schema.CatalogVolume.PublisherID,
		schema.CatalogVolume.Region,
		schema.CatalogVolume.VolumeNumber,
		schema.CatalogVolume.Variant,
		schema.CatalogVolume.ReleaseDate,
		schema.CatalogVolume.ISBN,
		schema.CatalogVolume.CreatedAt,
		schema.CatalogVolume.UpdatedAt,
		schema.CatalogVolume.ISBN,
		volumeColumns,
	)

	volume, err := scanVolume(store.db.QueryRowContext(ctx, store.db.Rebind(insert),
		defaults.SeriesID,
		defaults.PublisherID,
		defaults.Region,
		defaults.VolumeNumber,
		variant,
		defaults.ReleaseDate,
		isbn,
		now,
		now,
	))
	if err == nil {
		return volume, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, dberr.Wrap(err, "create_volume")
	}

	volume, err = store.FindVolumeByISBN(ctx, isbn)
	if err != nil {
		return nil, false, err
	}
	return volume, false, nil
}

// FindVolumeByISBN returns the volume with the given ISBN.
func (store *SQLStore) FindVolumeByISBN(ctx context.Context, isbn string) (*Volume, error) {
	volume, err := store.volumeWhere(ctx, schema.CatalogVolume.ISBN, isbn)
	if err != nil {
		return nil, dberr.Wrap(err, "find_volume_by_isbn")
	}
	return volume, nil
}

// GetVolume loads a volume by ID.
func (store *SQLStore) GetVolume(ctx context.Context, id int64) (*Volume, error) {
	volume, err := store.volumeWhere(ctx, schema.CatalogVolume.ID, id)
	if err != nil {
		return nil, dberr.Wrap(err, "get_volume")
	}
	return volume, nil
}

func (store *SQLStore) volumeWhere(ctx context.Context, column string, value any) (*Volume, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, volumeColumns, schema.CatalogVolume.Table, column)
	return scanVolume(store.db.QueryRowContext(ctx, store.db.Rebind(query), value))
}

// UpdateVolume writes every mutable volume field. The ISBN never changes.
func (store *SQLStore) UpdateVolume(ctx context.Context, volume *Volume) error {
	now := store.now()
	query := fmt.Sprintf(`
		UPDATE %s SET %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?
		WHERE %s = ?`,
		schema.CatalogVolume.Table,
		schema.CatalogVolume.SeriesID,
		schema.CatalogVolume.PublisherID,
		schema.CatalogVolume.Region,
		schema.CatalogVolume.VolumeNumber,
		schema.CatalogVolume.Variant,
		schema.CatalogVolume.ReleaseDate,
		schema.CatalogVolume.UpdatedAt,
		schema.CatalogVolume.ID,
	)

	result, err := store.db.ExecContext(ctx, store.db.Rebind(query),
		volume.SeriesID,
		volume.PublisherID,
		volume.Region,
		volume.VolumeNumber,
		volume.Variant,
		volume.ReleaseDate,
		now,
		volume.ID,
	)
	if err := affectedOne(result, err, "update_volume"); err != nil {
		return err
	}

	volume.UpdatedAt = now
	return nil
}

func scanVolume(row rowScanner) (*Volume, error) {
	volume := &Volume{}
	var createdAt, updatedAt timestamp

	err := row.Scan(
		&volume.ID,
		&volume.SeriesID,
		&volume.PublisherID,
		&volume.Region,
		&volume.VolumeNumber,
		&volume.Variant,
		&volume.ReleaseDate,
		&volume.ISBN,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	volume.CreatedAt = createdAt.Time
	volume.UpdatedAt = updatedAt.Time
	return volume, nil
}

// # Read Model

// ListSeries returns one page of series matching filter and the total match count.
func (store *SQLStore) ListSeries(ctx context.Context, filter Filter, limit, offset int) ([]*SeriesSummary, int, error) {
	ordering, ok := seriesOrderings[filter.Sort]
	if !ok {
		ordering = seriesOrderings[""]
	}

	where, args := seriesWhere(filter)

	query := fmt.Sprintf(`
		SELECT s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s,
		       COUNT(*) OVER() AS total_count
		FROM %s s
		WHERE 1 = 1%s
		ORDER BY %s LIMIT ? OFFSET ?`,
		schema.CatalogSeries.ID,
		schema.CatalogSeries.TitleTW,
		schema.CatalogSeries.TitleJP,
		schema.CatalogSeries.AuthorTW,
		schema.CatalogSeries.AuthorJP,
		schema.CatalogSeries.StatusJP,
		schema.CatalogSeries.Genres,
		schema.CatalogSeries.FirstPublishedYear,
		schema.CatalogSeries.Table,
		where,
		ordering,
	)

	rows, err := store.db.QueryContext(ctx, store.db.Rebind(query), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_series")
	}
	defer rows.Close()

	items := make([]*SeriesSummary, 0, limit)
	total := 0

	for rows.Next() {
		item := &SeriesSummary{}
		var authorTW, authorJP, genres string

		err := rows.Scan(
			&item.ID, &item.TitleTW, &item.TitleJP, &authorTW, &authorJP,
			&item.StatusJP, &genres, &item.FirstPublishedYear, &total,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_series_summary")
		}

		item.Author = authorTW
		if item.Author == "" {
			item.Author = authorJP
		}
		item.Genres = splitGenres(genres)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_series")
	}

	// The window count rides on the rows, so a page past the end needs its own count
	if len(items) == 0 && offset > 0 {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s s WHERE 1 = 1%s", schema.CatalogSeries.Table, where)
		if err := store.db.QueryRowContext(ctx, store.db.Rebind(countQuery), args...).Scan(&total); err != nil {
			return nil, 0, dberr.Wrap(err, "count_series")
		}
	}

	return items, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is a LIKE pattern matching s anywhere, with wildcards in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// seriesWhere renders the filter as AND clauses over alias s.
func seriesWhere(filter Filter) (string, []any) {
	var where strings.Builder
	var args []any

	// Substring search across both titles and both authors
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := containsPattern(query)
		where.WriteString(fmt.Sprintf(
			` AND (LOWER(s.%s) LIKE ? ESCAPE '\' OR LOWER(s.%s) LIKE ? ESCAPE '\' OR LOWER(s.%s) LIKE ? ESCAPE '\' OR LOWER(s.%s) LIKE ? ESCAPE '\')`,
			schema.CatalogSeries.TitleJP, schema.CatalogSeries.TitleTW,
			schema.CatalogSeries.AuthorJP, schema.CatalogSeries.AuthorTW,
		))
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if filter.StatusJP != "" {
		where.WriteString(fmt.Sprintf(" AND s.%s = ?", schema.CatalogSeries.StatusJP))
		args = append(args, filter.StatusJP)
	}

	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		where.WriteString(fmt.Sprintf(` AND LOWER(s.%s) LIKE ? ESCAPE '\'`, schema.CatalogSeries.Genres))
		args = append(args, containsPattern(genre))
	}

	if filter.Year != nil {
		where.WriteString(fmt.Sprintf(" AND s.%s = ?", schema.CatalogSeries.FirstPublishedYear))
		args = append(args, *filter.Year)
	}

	return where.String(), args
}

// GetSeriesDetail loads a series with its latest volume numbers and every volume.
func (store *SQLStore) GetSeriesDetail(ctx context.Context, id int64) (*SeriesDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s, jv.%s, tv.%s
		FROM %s s
		LEFT JOIN %s jv ON jv.%s = s.%s
		LEFT JOIN %s tv ON tv.%s = s.%s
		WHERE s.%s = ?`,
		schema.List("s", schema.CatalogSeries.Columns()),
		schema.CatalogVolume.VolumeNumber, schema.CatalogVolume.VolumeNumber,
		schema.CatalogSeries.Table,
		schema.CatalogVolume.Table, schema.CatalogVolume.ID, schema.CatalogSeries.LatestVolumeJPID,
		schema.CatalogVolume.Table, schema.CatalogVolume.ID, schema.CatalogSeries.LatestVolumeTWID,
		schema.CatalogSeries.ID,
	)

	detail := &SeriesDetail{}
	series, err := scanSeries(store.db.QueryRowContext(ctx, store.db.Rebind(query), id),
		&detail.LatestVolumeJPNumber, &detail.LatestVolumeTWNumber)
	if err != nil {
		return nil, dberr.Wrap(err, "get_series_detail")
	}
	detail.Series = *series

	volumes, err := store.listVolumes(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Volumes = volumes

	return detail, nil
}

func (store *SQLStore) listVolumes(ctx context.Context, seriesID int64) ([]VolumeListing, error) {
	query := fmt.Sprintf(`
		SELECT v.%s, v.%s, v.%s, v.%s, v.%s, v.%s, p.%s
		FROM %s v
		LEFT JOIN %s p ON p.%s = v.%s
		WHERE v.%s = ?
		ORDER BY v.%s, CASE WHEN v.%s IS NULL THEN 1 ELSE 0 END, v.%s, v.%s`,
		schema.CatalogVolume.ID,
		schema.CatalogVolume.Region,
		schema.CatalogVolume.VolumeNumber,
		schema.CatalogVolume.Variant,
		schema.CatalogVolume.ReleaseDate,
		schema.CatalogVolume.ISBN,
		schema.CatalogPublisher.Name,
		schema.CatalogVolume.Table,
		schema.CatalogPublisher.Table, schema.CatalogPublisher.ID, schema.CatalogVolume.PublisherID,
		schema.CatalogVolume.SeriesID,
		schema.CatalogVolume.Region,
		schema.CatalogVolume.VolumeNumber,
		schema.CatalogVolume.VolumeNumber,
		schema.CatalogVolume.ID,
	)

	rows, err := store.db.QueryContext(ctx, store.db.Rebind(query), seriesID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_series_volumes")
	}
	defer rows.Close()

	volumes := make([]VolumeListing, 0)
	for rows.Next() {
		var listing VolumeListing
		var publisherName sql.NullString

		err := rows.Scan(
			&listing.ID, &listing.Region, &listing.VolumeNumber, &listing.Variant,
			&listing.ReleaseDate, &listing.ISBN, &publisherName,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_volume_listing")
		}
		listing.PublisherName = publisherName.String
		volumes = append(volumes, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_series_volumes")
	}

	return volumes, nil
}

// # Crawl Targets

// ListOrphanISBNs returns orphan ISBNs in region, oldest first.
func (store *SQLStore) ListOrphanISBNs(ctx context.Context, region Region) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s IS NULL AND %s IS NOT NULL AND %s = ?
		ORDER BY %s`,
		schema.CatalogVolume.ISBN, schema.CatalogVolume.Table,
		schema.CatalogVolume.SeriesID, schema.CatalogVolume.ISBN, schema.CatalogVolume.Region,
		schema.CatalogVolume.ID,
	)

	rows, err := store.db.QueryContext(ctx, store.db.Rebind(query), region)
	if err != nil {
		return nil, dberr.Wrap(err, "list_orphan_isbns")
	}
	defer rows.Close()

	isbns := make([]string, 0)
	for rows.Next() {
		var isbn string
		if err := rows.Scan(&isbn); err != nil {
			return nil, dberr.Wrap(err, "scan_orphan_isbn")
		}
		isbns = append(isbns, isbn)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_orphan_isbns")
	}

	return isbns, nil
}

// ListLatestReleases returns each series with the release date of its region pointer.
func (store *SQLStore) ListLatestReleases(ctx context.Context, region Region) ([]SeriesRelease, error) {
	pointer := schema.CatalogSeries.LatestVolumeTWID
	if region == RegionJP {
		pointer = schema.CatalogSeries.LatestVolumeJPID
	}

	query := fmt.Sprintf(`
		SELECT s.%s, s.%s, v.%s
		FROM %s s
		LEFT JOIN %s v ON v.%s = s.%s
		ORDER BY s.%s`,
		schema.CatalogSeries.ID, schema.CatalogSeries.TitleJP, schema.CatalogVolume.ReleaseDate,
		schema.CatalogSeries.Table,
		schema.CatalogVolume.Table, schema.CatalogVolume.ID, pointer,
		schema.CatalogSeries.ID,
	)

	rows, err := store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_latest_releases")
	}
	defer rows.Close()

	releases := make([]SeriesRelease, 0)
	for rows.Next() {
		var release SeriesRelease
		if err := rows.Scan(&release.SeriesID, &release.TitleJP, &release.ReleaseDate); err != nil {
			return nil, dberr.Wrap(err, "scan_latest_release")
		}
		releases = append(releases, release)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_latest_releases")
	}

	return releases, nil
}

// # Helpers

// affectedOne turns an UPDATE that touched no row into dberr.ErrNotFound.
func affectedOne(result sql.Result, err error, action string) error {
	if err != nil {
		return dberr.Wrap(err, action)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return dberr.Wrap(err, action)
	}
	if count == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
