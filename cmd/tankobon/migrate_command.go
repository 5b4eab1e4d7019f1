// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/tankobon/internal/platform/database"
	"github.com/taibuivan/tankobon/internal/platform/migration"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening first creates the SQLite directory when needed
			return ctx.withCatalog(cmd, func(db *database.DB, logger *slog.Logger) error {
				if err := migration.RunUp(db.Driver(), ctx.config.DatabaseDSN(), logger); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog schema is up to date (%s)\n", db.Driver())
				return nil
			})
		},
	}
}
