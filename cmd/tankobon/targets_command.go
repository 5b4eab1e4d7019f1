// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taibuivan/tankobon/internal/core/catalog"
	"github.com/taibuivan/tankobon/internal/platform/database"
)

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Export crawl targets for the search scrapers",
	}

	targetsCmd.AddCommand(newTargetsOrphansCommand(ctx))
	targetsCmd.AddCommand(newTargetsJPSeriesCommand(ctx))
	return targetsCmd
}

func newTargetsOrphansCommand(ctx *commandContext) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List ISBNs of volumes that have no series yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(db *database.DB, logger *slog.Logger) error {
				service := catalog.NewService(catalog.NewSQLStore(db), logger)
				isbns, err := service.OrphanISBNs(cmd.Context(), catalog.Region(strings.ToUpper(region)))
				if err != nil {
					return err
				}
				return writeJSON(cmd, isbns)
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", string(catalog.RegionTW), "Edition region (TW or JP)")
	return cmd
}

func newTargetsJPSeriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jp-series",
		Short: "List series with the release date of their latest Japanese volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(db *database.DB, logger *slog.Logger) error {
				service := catalog.NewService(catalog.NewSQLStore(db), logger)
				releases, err := service.LatestReleases(cmd.Context(), catalog.RegionJP)
				if err != nil {
					return err
				}
				return writeJSON(cmd, releases)
			})
		},
	}
}
