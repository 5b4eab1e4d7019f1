// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/platform/database"
	"github.com/taibuivan/tankobon/internal/platform/migration"
)

/*
TestDatabaseURL covers the scheme conversion for both backends.
*/
func TestDatabaseURL(t *testing.T) {
	tests := []struct {
		name   string
		driver database.Driver
		dsn    string
		want   string
	}{
		{"postgres_scheme", database.DriverPostgres, "postgres://u:p@db:5432/catalog", "pgx5://u:p@db:5432/catalog"},
		{"postgresql_scheme", database.DriverPostgres, "postgresql://db/catalog", "pgx5://db/catalog"},
		{"already_pgx5", database.DriverPostgres, "pgx5://db/catalog", "pgx5://db/catalog"},
		{"sqlite_path", database.DriverSQLite, "/var/lib/tankobon/catalog.db", "sqlite:///var/lib/tankobon/catalog.db"},
		{"sqlite_url", database.DriverSQLite, "sqlite://catalog.db", "sqlite://catalog.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, migration.DatabaseURL(tt.driver, tt.dsn))
		})
	}
}

/*
TestRunUp_SQLiteIsIdempotent applies the embedded schema twice to a fresh file.
*/
func TestRunUp_SQLiteIsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "catalog.db")

	require.NoError(t, migration.RunUp(database.DriverSQLite, path, logger))
	require.NoError(t, migration.RunUp(database.DriverSQLite, path, logger))

	db, err := database.Open(context.Background(), database.DriverSQLite, path, logger)
	require.NoError(t, err)
	defer db.Close()

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('publisher', 'series', 'volume')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 3, tables)
}

/*
TestRunUp_RejectsUnknownDriver fails before touching any database.
*/
func TestRunUp_RejectsUnknownDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Error(t, migration.RunUp(database.Driver("mysql"), "whatever", logger))
}
