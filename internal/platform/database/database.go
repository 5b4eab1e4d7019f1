// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package database opens the catalog database for either supported backend and
hides the dialect differences the store has to care about.

Supported drivers:

  - postgres: production catalog, pgxpool exposed through database/sql.
  - sqlite: single-file catalog for local crawls and tests.

Queries are written once with `?` placeholders; [DB.Rebind] rewrites them to
`$n` for PostgreSQL.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tankobon/internal/platform/postgres"
	"github.com/taibuivan/tankobon/internal/platform/sqlite"
)

// Driver names a catalog backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// IsValid reports whether d is a supported backend.
func (d Driver) IsValid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

// DB is an open catalog database.
type DB struct {
	*sql.DB
	driver Driver
	pool   *pgxpool.Pool
}

// Open connects to the catalog. For postgres dsn is a connection URL, for
// sqlite it is a file path.
func Open(ctx context.Context, driver Driver, dsn string, logger *slog.Logger) (*DB, error) {
	switch driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return &DB{DB: postgres.OpenDB(pool), driver: driver, pool: pool}, nil

	case DriverSQLite:
		db, err := sqlite.Open(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return &DB{DB: db, driver: driver}, nil
	}

	return nil, fmt.Errorf("database: unsupported driver %q", driver)
}

// Wrap adopts an already opened handle, mainly for tests.
func Wrap(db *sql.DB, driver Driver) *DB {
	return &DB{DB: db, driver: driver}
}

// Driver returns the backend this handle talks to.
func (db *DB) Driver() Driver {
	return db.driver
}

// Rebind rewrites `?` placeholders into the dialect's positional form.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var builder strings.Builder
	builder.Grow(len(query) + 8)

	position := 0
	for _, r := range query {
		if r == '?' {
			position++
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(position))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// Ping checks the backend is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		return postgres.Ping(ctx, db.pool)
	}
	return sqlite.Ping(ctx, db.DB)
}

// Close releases the handle and, for postgres, the underlying pool.
func (db *DB) Close() error {
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}
