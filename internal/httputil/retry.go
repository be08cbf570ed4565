// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the upstream clients:
// retry with backoff on throttling responses and request pacing.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff step; later steps double it. Tests
// shrink it to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps how long a server-sent Retry-After may stall a lookup.
var MaxRetryAfter = 30 * time.Second

const defaultMaxRetries = 3

// retryable reports whether the status signals a transient upstream
// condition. E-utilities and Ensembl both answer 429 under load; the
// gateway codes show up when their backends restart.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter parses a Retry-After header given in seconds. HTTP-date
// values are ignored since none of the upstreams send them.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d
}

// backoff returns the wait before the next attempt: the server's
// Retry-After when present, otherwise RetryBaseDelay << attempt.
func backoff(resp *http.Response, attempt int) time.Duration {
	if d := retryAfter(resp); d > 0 {
		return d
	}
	return RetryBaseDelay << attempt
}

// DoWithRetry sends req and retries throttled or gateway failures.
//
// maxRetries <= 0 selects the default of 3. A non-nil pacer is waited on
// before every attempt, so retries count against the same rate budget as
// first tries. Request bodies are replayed through req.GetBody. Once retries
// are exhausted the last response is returned for the caller to inspect;
// transport errors and context cancellation are returned immediately.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, pacer *Pacer, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}

		try := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			try.Body = body
		}

		resp, err := client.Do(try)
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(resp, attempt)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
