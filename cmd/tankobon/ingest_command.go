// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/taibuivan/tankobon/internal/ingest"
)

const maxLineBytes = 4 << 20

// ingestSummary is printed after every ingest run.
type ingestSummary struct {
	Read     int `json:"read"`
	Rejected int `json:"rejected"`
	ingest.Stats
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest [file|-]",
		Short: "Reconcile JSON Lines source records into the catalog",
		Long: "Reads one source record per line, from the named file or stdin, and reconciles\n" +
			"each one into the catalog. Records are discriminated by their \"kind\" field.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				input = file
			}

			return ctx.withEngine(cmd, func(engine *ingest.Engine, logger *slog.Logger) error {
				pool := ingest.NewPool(cmd.Context(), engine, ctx.poolOptions(workers))
				summary, err := ingestLines(cmd.Context(), input, pool, logger)
				summary.Stats = pool.Close()

				printIngestSummary(cmd.OutOrStdout(), summary)
				if err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d record(s): %w", summary.Failed, errRecordsFailed)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (defaults to INGEST_WORKERS)")
	return cmd
}

// ingestLines decodes input line by line and submits every record to pool.
//
// Lines that are not valid records are logged and counted; they never stop the run.
func ingestLines(ctx context.Context, input io.Reader, pool *ingest.Pool, logger *slog.Logger) (ingestSummary, error) {
	var summary ingestSummary

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		summary.Read++

		record, err := ingest.DecodeRecord(raw)
		if err != nil {
			summary.Rejected++
			logger.WarnContext(ctx, "record_rejected", slog.Int("line", line), slog.Any("error", err))
			continue
		}

		if err := pool.Submit(ctx, record); err != nil {
			return summary, err
		}
	}

	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read input line %d: %w", line+1, err)
	}
	return summary, nil
}

func printIngestSummary(out io.Writer, summary ingestSummary) {
	fmt.Fprintf(out, "Read:      %d\n", summary.Read)
	fmt.Fprintf(out, "Processed: %d\n", summary.Processed)
	fmt.Fprintf(out, "Dropped:   %d\n", summary.Dropped)
	fmt.Fprintf(out, "Failed:    %d\n", summary.Failed)
	fmt.Fprintf(out, "Rejected:  %d\n", summary.Rejected)
}
