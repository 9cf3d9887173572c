// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retry policy shared by the network-facing
// stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Policy is a bounded-attempt retry schedule with exponential backoff.
// The image provider and the captioner share one policy so rate limits
// are respected uniformly across the run.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. Delays grow by
	// Multiplier after each failed attempt.
	BaseDelay time.Duration

	// Multiplier scales the delay between attempts.
	Multiplier float64
}

// DefaultPolicy is the schedule used when a stage config leaves the retry
// settings zero: three attempts, 2 s base delay, doubling.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Multiplier: 2.0}

// normalized fills zero fields from DefaultPolicy.
func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultPolicy.Multiplier
	}
	return p
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It stops
// early when fn succeeds or the context is cancelled. The error from the
// last attempt is returned wrapped with the attempt count, so callers can
// still classify it with errors.Is.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	p = p.normalized()

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.Multiplier)
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}

// DrainClose discards and closes an HTTP response body so the underlying
// connection can be reused before a retry.
func DrainClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
