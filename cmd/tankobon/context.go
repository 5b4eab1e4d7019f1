// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/taibuivan/tankobon/internal/core/catalog"
	"github.com/taibuivan/tankobon/internal/ingest"
	"github.com/taibuivan/tankobon/internal/platform/config"
	"github.com/taibuivan/tankobon/internal/platform/constants"
	"github.com/taibuivan/tankobon/internal/platform/database"
	"github.com/taibuivan/tankobon/internal/platform/keylock"
	redisstore "github.com/taibuivan/tankobon/internal/platform/redis"
)

type commandContext struct {
	debugFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(debugFlag *bool) *commandContext {
	return &commandContext{debugFlag: debugFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

// logger writes JSON to the command's stderr so stdout stays machine readable.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if (c.debugFlag != nil && *c.debugFlag) || (c.config != nil && c.config.Debug) {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String(constants.FieldApp, constants.AppName),
		slog.String("command", cmd.Name()),
	)
}

// withCatalog opens the configured catalog for the duration of fn.
func (c *commandContext) withCatalog(cmd *cobra.Command, fn func(db *database.DB, logger *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.logger(cmd)

	db, err := database.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseDSN(), logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("catalog_close_failed", slog.Any("error", cerr))
		}
	}()

	return fn(db, logger)
}

// withEngine builds the reconciliation engine on top of the catalog.
//
// Series locks live in Redis when REDIS_URL is set so several ingest
// processes can share one catalog; otherwise they are in-process.
func (c *commandContext) withEngine(cmd *cobra.Command, fn func(engine *ingest.Engine, logger *slog.Logger) error) error {
	return c.withCatalog(cmd, func(db *database.DB, logger *slog.Logger) error {
		cfg := c.config

		var locks keylock.Locker = keylock.NewMemory()
		if cfg.RedisURL != "" {
			client, err := redisstore.NewClient(cmd.Context(), cfg.RedisURL, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := client.Close(); cerr != nil {
					logger.Error("redis_close_failed", slog.Any("error", cerr))
				}
			}()
			locks = keylock.NewRedis(client, cfg.LockTTL, logger)
		}

		engine := ingest.NewEngine(catalog.NewSQLStore(db), locks, logger)
		return fn(engine, logger)
	})
}

// poolOptions applies a --workers override to the configured pool size.
func (c *commandContext) poolOptions(workers int) ingest.PoolOptions {
	if workers < 1 {
		workers = c.config.Workers
	}
	return ingest.PoolOptions{Workers: workers, QueueSize: c.config.QueueSize}
}

// errRecordsFailed makes infrastructure failures visible in the exit status.
var errRecordsFailed = errors.New("some records failed and can be retried")
