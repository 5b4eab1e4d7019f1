// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/tankobon/internal/ingest"
	"github.com/taibuivan/tankobon/internal/platform/fetch"
	"github.com/taibuivan/tankobon/internal/sources/bookstw"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl retailer listings for new volumes",
	}

	crawlCmd.AddCommand(newCrawlBooksTWCommand(ctx))
	return crawlCmd
}

func newCrawlBooksTWCommand(ctx *commandContext) *cobra.Command {
	var (
		workers int
		dryRun  bool
		listing string
	)

	cmd := &cobra.Command{
		Use:   "books-tw",
		Short: "Record new books.com.tw comic releases as orphan volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if listing == "" {
				listing = cfg.BooksTW.ListingURL
			}
			session := bookstw.NewSession(listing)

			// Dry runs print the records as JSON Lines, ready for `tankobon ingest`
			if dryRun {
				logger := ctx.logger(cmd)
				crawler := bookstw.NewCrawler(fetch.New(cfg.BooksTW.Policy(), logger), logger)
				err := crawler.Crawl(cmd.Context(), session, func(_ context.Context, record ingest.Record) error {
					line, err := ingest.EncodeRecord(record)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", line)
					return err
				})
				printCrawlSummary(cmd.ErrOrStderr(), session)
				return err
			}

			return ctx.withEngine(cmd, func(engine *ingest.Engine, logger *slog.Logger) error {
				crawler := bookstw.NewCrawler(fetch.New(cfg.BooksTW.Policy(), logger), logger)
				pool := ingest.NewPool(cmd.Context(), engine, ctx.poolOptions(workers))

				crawlErr := crawler.Crawl(cmd.Context(), session, pool.Submit)
				stats := pool.Close()

				printCrawlSummary(cmd.OutOrStdout(), session)
				printIngestSummary(cmd.OutOrStdout(), ingestSummary{Read: session.Emitted, Stats: stats})
				if crawlErr != nil {
					return crawlErr
				}
				if stats.Failed > 0 {
					return fmt.Errorf("%d record(s): %w", stats.Failed, errRecordsFailed)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (defaults to INGEST_WORKERS)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print records as JSON Lines instead of ingesting them")
	cmd.Flags().StringVar(&listing, "listing", "", "Listing URL (defaults to BOOKS_TW_LISTING_URL)")
	return cmd
}

func printCrawlSummary(out io.Writer, session *bookstw.Session) {
	fmt.Fprintf(out, "Pages:     %d\n", len(session.Visited))
	fmt.Fprintf(out, "Emitted:   %d\n", session.Emitted)
	fmt.Fprintf(out, "Skipped:   %d\n", session.Skipped)
	fmt.Fprintf(out, "Unfetched: %d\n", session.Failed)
}
