// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/core/catalog"
	"github.com/taibuivan/tankobon/internal/ingest"
	"github.com/taibuivan/tankobon/pkg/pointer"
)

// processorFunc adapts a function to [ingest.Processor].
type processorFunc func(ctx context.Context, record ingest.Record) (ingest.Outcome, error)

func (f processorFunc) Process(ctx context.Context, record ingest.Record) (ingest.Outcome, error) {
	return f(ctx, record)
}

/*
TestPool_CountsResults classifies every record by its result.
*/
func TestPool_CountsResults(t *testing.T) {
	processor := processorFunc(func(_ context.Context, record ingest.Record) (ingest.Outcome, error) {
		orphan := record.(*ingest.OrphanVolume)
		switch orphan.ISBN {
		case "drop":
			return ingest.Outcome{}, &ingest.DropError{Reason: ingest.ReasonInvalidISBN, Kind: record.Kind(), Record: record}
		case "fail":
			return ingest.Outcome{}, errors.New("database unavailable")
		}
		return ingest.Outcome{}, nil
	})

	var mu sync.Mutex
	var seen []string
	pool := ingest.NewPool(context.Background(), processor, ingest.PoolOptions{
		Workers:   3,
		QueueSize: 2,
		OnResult: func(record ingest.Record, _ ingest.Outcome, _ error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, record.(*ingest.OrphanVolume).ISBN)
		},
	})

	for _, isbn := range []string{"ok", "drop", "ok", "fail", "ok", "drop"} {
		require.NoError(t, pool.Submit(context.Background(), &ingest.OrphanVolume{ISBN: isbn}))
	}

	stats := pool.Close()
	assert.Equal(t, ingest.Stats{Processed: 3, Dropped: 2, Failed: 1}, stats)
	assert.Len(t, seen, 6)

	assert.ErrorIs(t, pool.Submit(context.Background(), &ingest.OrphanVolume{ISBN: "late"}), ingest.ErrPoolClosed)
	assert.Equal(t, stats, pool.Close())
}

/*
TestPool_SubmitHonoursContext stops waiting for queue space when the context ends.
*/
func TestPool_SubmitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	processor := processorFunc(func(context.Context, ingest.Record) (ingest.Outcome, error) {
		<-release
		return ingest.Outcome{}, nil
	})

	pool := ingest.NewPool(context.Background(), processor, ingest.PoolOptions{Workers: 1, QueueSize: 1})

	// One record in the worker, one in the queue
	require.NoError(t, pool.Submit(context.Background(), &ingest.OrphanVolume{}))
	require.NoError(t, pool.Submit(context.Background(), &ingest.OrphanVolume{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, &ingest.OrphanVolume{})

	// The queue may have drained one slot already; either way nothing blocks
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	close(release)
	stats := pool.Close()
	assert.GreaterOrEqual(t, stats.Processed, int64(2))
}

/*
TestPool_ConcurrentSeriesUpdates keeps the recency pointer correct under contention.
*/
func TestPool_ConcurrentSeriesUpdates(t *testing.T) {
	engine, store := newTestEngine(t)

	const volumes = 24
	pool := ingest.NewPool(context.Background(), engine, ingest.PoolOptions{Workers: 8, QueueSize: 4})

	// Submitted newest first so most records must not move the pointer
	for n := volumes; n >= 1; n-- {
		record := &ingest.JapanComic{
			SeriesName:  "葬送のフリーレン",
			TitleJP:     fmt.Sprintf("葬送のフリーレン（%d）", n),
			AuthorJP:    []string{"著者", "／", "山田鐘人", "アベツカサ"},
			PublisherJP: "出版社：小学館",
			DetailURL:   fmt.Sprintf("https://www.books.or.jp/book-details/97840985%05d", n),
			ProductDesc: fmt.Sprintf("発売日：2023年1月%d日\n", n),
		}
		require.NoError(t, pool.Submit(context.Background(), record))
	}

	stats := pool.Close()
	require.Equal(t, ingest.Stats{Processed: volumes}, stats)

	items, total, err := store.ListSeries(context.Background(), catalog.Filter{}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	latest := latestVolume(t, store, items[0].ID, catalog.RegionJP)
	require.NotNil(t, latest)
	assert.Equal(t, volumes, pointer.Val(latest.VolumeNumber))
	assert.Equal(t, "2023-01-24", latest.ReleaseDate.String())

	detail, err := store.GetSeriesDetail(context.Background(), items[0].ID)
	require.NoError(t, err)
	assert.Len(t, detail.Volumes, volumes)
	assert.Equal(t, "山田鐘人; アベツカサ", detail.AuthorJP)
}
