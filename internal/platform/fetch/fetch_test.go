// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package fetch_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/platform/fetch"
)

// replay answers with statuses in order, repeating the last one.
func replay(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1)) - 1
		status := statuses[min(n, len(statuses)-1)]
		w.WriteHeader(status)
		_, _ = io.WriteString(w, http.StatusText(status))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func testPolicy() fetch.Policy {
	policy := fetch.DefaultPolicy()
	policy.RetryWait = time.Millisecond
	policy.RetryMaxWait = 5 * time.Millisecond
	policy.MinInterval = 0
	policy.Timeout = 5 * time.Second
	return policy
}

func newClient(policy fetch.Policy, delays *[]time.Duration) *fetch.Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fetch.New(policy, logger, fetch.WithSleeper(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}))
}

/*
TestPolicy_ThrottleDelay doubles the base delay on every attempt.
*/
func TestPolicy_ThrottleDelay(t *testing.T) {
	policy := fetch.DefaultPolicy()

	assert.Equal(t, 30*time.Second, policy.ThrottleDelay(1))
	assert.Equal(t, 60*time.Second, policy.ThrottleDelay(2))
	assert.Equal(t, 120*time.Second, policy.ThrottleDelay(3))
	assert.Equal(t, 30*time.Second, policy.ThrottleDelay(0))
}

/*
TestClient_Get covers the throttle and generic retry loops.
*/
func TestClient_Get(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		wantHits   int32
		wantDelays []time.Duration
		wantBody   string
		wantErr    error
	}{
		{
			name:     "ok",
			statuses: []int{http.StatusOK},
			wantHits: 1,
			wantBody: "OK",
		},
		{
			name:       "throttled_then_ok",
			statuses:   []int{484, 484, http.StatusOK},
			wantHits:   3,
			wantDelays: []time.Duration{30 * time.Second, 60 * time.Second},
			wantBody:   "OK",
		},
		{
			name:       "throttle_attempts_spent",
			statuses:   []int{484},
			wantHits:   4,
			wantDelays: []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second},
			wantErr:    fetch.ErrThrottled,
		},
		{
			name:     "server_error_retried_by_generic_retry",
			statuses: []int{http.StatusServiceUnavailable, http.StatusOK},
			wantHits: 2,
			wantBody: "OK",
		},
		{
			name:     "server_error_exhausted",
			statuses: []int{http.StatusBadGateway},
			wantHits: 3,
			wantErr:  fetch.ErrUnexpectedStatus,
		},
		{
			name:     "not_found_not_retried",
			statuses: []int{http.StatusNotFound},
			wantHits: 1,
			wantErr:  fetch.ErrUnexpectedStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := replay(t, tt.statuses...)

			var delays []time.Duration
			body, err := newClient(testPolicy(), &delays).Get(context.Background(), server.URL)

			assert.Equal(t, tt.wantHits, hits.Load())
			assert.Equal(t, tt.wantDelays, delays)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var transient *fetch.TransientError
				require.ErrorAs(t, err, &transient)
				assert.Equal(t, server.URL, transient.URL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

/*
TestClient_Get_StopsOnCancel returns the context error when the throttle wait is interrupted.
*/
func TestClient_Get_StopsOnCancel(t *testing.T) {
	server, hits := replay(t, 484)

	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := fetch.New(testPolicy(), logger, fetch.WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := client.Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), hits.Load())
}

/*
TestClient_Get_MinInterval spaces consecutive requests.
*/
func TestClient_Get_MinInterval(t *testing.T) {
	server, _ := replay(t, http.StatusOK)

	policy := testPolicy()
	policy.MinInterval = 50 * time.Millisecond

	var delays []time.Duration
	client := newClient(policy, &delays)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), server.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
