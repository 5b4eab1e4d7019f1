// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package fetch provides the outbound HTTP client used by retailer crawlers.

Two retry loops apply to every request:

  - Throttling: the retailer answers with a dedicated status (484 for books.com.tw)
    when it wants the crawler to back off. The request is re-issued after
    Base * 2^(attempt-1), up to ThrottleMaxAttempts times.
  - Generic: transport errors, 5xx, 408 and 429 go through resty's own retry
    with a short wait and a separate attempt count.

A rate limiter spaces requests to the same source by at least MinInterval.
*/
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrThrottled is returned once the throttle attempts are spent.
	ErrThrottled = errors.New("fetch: throttled")

	// ErrUnexpectedStatus is returned for any non-2xx answer left after retries.
	ErrUnexpectedStatus = errors.New("fetch: unexpected status")
)

// TransientError reports a fetch that failed for a reason a later run may not hit.
type TransientError struct {
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch: GET %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch: GET %s: status %d after %d attempt(s): %v", e.URL, e.Status, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Policy holds the retry and pacing settings of one source.
type Policy struct {
	ThrottleStatus      int
	ThrottleBaseDelay   time.Duration
	ThrottleMaxAttempts int

	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	MinInterval time.Duration
	Timeout     time.Duration
	UserAgent   string
}

// DefaultPolicy matches the books.com.tw behaviour.
func DefaultPolicy() Policy {
	return Policy{
		ThrottleStatus:      484,
		ThrottleBaseDelay:   30 * time.Second,
		ThrottleMaxAttempts: 3,
		RetryCount:          2,
		RetryWait:           time.Second,
		RetryMaxWait:        10 * time.Second,
		MinInterval:         20 * time.Second,
		Timeout:             30 * time.Second,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	}
}

// ThrottleDelay is the wait before throttle retry number attempt (1-based).
func (p Policy) ThrottleDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.ThrottleBaseDelay << (attempt - 1)
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customises a [Client].
type Option func(*Client)

// WithSleeper replaces the wait used between throttle retries.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) { c.sleep = sleep }
}

// Client fetches pages from one source.
type Client struct {
	http   *resty.Client
	policy Policy
	sleep  Sleeper
	logger *slog.Logger
}

// New builds a client for policy.
func New(policy Policy, logger *slog.Logger, options ...Option) *Client {
	httpClient := resty.New()
	httpClient.SetLogger(restyLogger{logger: logger})
	httpClient.SetTimeout(policy.Timeout)
	if policy.UserAgent != "" {
		httpClient.SetHeader("user-agent", policy.UserAgent)
	}

	httpClient.SetRetryCount(policy.RetryCount)
	httpClient.SetRetryWaitTime(policy.RetryWait)
	httpClient.SetRetryMaxWaitTime(policy.RetryMaxWait)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		status := res.StatusCode()
		return status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
	})

	limit := rate.Inf
	if policy.MinInterval > 0 {
		limit = rate.Every(policy.MinInterval)
	}
	limiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	c := &Client{
		http:   httpClient,
		policy: policy,
		sleep:  sleepContext,
		logger: logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Get returns the body of url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		res, err := c.http.R().SetContext(ctx).Get(url)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &TransientError{URL: url, Attempts: attempt, Err: err}
		}

		status := res.StatusCode()
		switch {
		case status == c.policy.ThrottleStatus:
			if attempt > c.policy.ThrottleMaxAttempts {
				c.logger.Error("fetch_throttle_exhausted", slog.String("url", url), slog.Int("attempts", attempt))
				return nil, &TransientError{URL: url, Status: status, Attempts: attempt, Err: ErrThrottled}
			}

			delay := c.policy.ThrottleDelay(attempt)
			c.logger.Warn("fetch_throttled",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", c.policy.ThrottleMaxAttempts),
				slog.Duration("delay", delay),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}

		case res.IsError():
			return nil, &TransientError{URL: url, Status: status, Attempts: attempt, Err: ErrUnexpectedStatus}

		default:
			return res.Body(), nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restyLogger routes resty's retry chatter into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error("fetch_client", slog.String("detail", fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn("fetch_client", slog.String("detail", fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug("fetch_client", slog.String("detail", fmt.Sprintf(format, v...)))
}
