// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"fmt"
	"time"
)

// DefaultErrorCacheTTL is how long failed compilations are cached
// before the toolchain may be retried for the same key.
const DefaultErrorCacheTTL = 30 * time.Second

// CacheOptions configures CompileCache behavior.
type CacheOptions struct {
	// ErrorCacheTTL is how long failed compilations are cached.
	ErrorCacheTTL time.Duration
}

// DefaultCacheOptions returns sensible defaults.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		ErrorCacheTTL: DefaultErrorCacheTTL,
	}
}

// CacheOption is a functional option for configuring CompileCache.
type CacheOption func(*CacheOptions)

// WithErrorCacheTTL sets how long failed compilations are cached.
func WithErrorCacheTTL(d time.Duration) CacheOption {
	return func(o *CacheOptions) {
		if d > 0 {
			o.ErrorCacheTTL = d
		}
	}
}

// CacheStats is a point-in-time snapshot of cache counters. Counters
// accumulate for the process lifetime; Clear resets entries, not
// counters.
type CacheStats struct {
	Entries  int   // artifacts currently held
	Hits     int64 // requests served from the store
	Misses   int64 // requests that had to compile
	Joins    int64 // requests that joined an in-flight compilation
	Compiles int64 // compilations actually run
	Errors   int64 // compilations that failed
}

// HitRate returns the fraction of requests served without compiling.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ErrCompileFailed reports a request denied by the negative cache: the
// same key failed recently and the retry window has not elapsed. It
// unwraps to the original compilation error, so toolchain-error
// detection sees through it.
type ErrCompileFailed struct {
	Err      error
	FailedAt time.Time
	RetryAt  time.Time
}

func (e *ErrCompileFailed) Error() string {
	return fmt.Sprintf("compilation failed at %s, retry after %s: %v",
		e.FailedAt.Format(time.RFC3339), e.RetryAt.Format(time.RFC3339), e.Err)
}

func (e *ErrCompileFailed) Unwrap() error { return e.Err }

// failedCompile is one negative-cache record.
type failedCompile struct {
	err      error
	failedAt time.Time
	retryAt  time.Time
}
