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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfuzz_compile_cache_events_total",
		Help: "Compile cache events by kind (hit, miss, join, error)",
	}, []string{"event"})

	compileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zkfuzz_compile_duration_seconds",
		Help:    "Wall time of pattern compilations by target",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 180, 600},
	}, []string{"target"})
)

// =============================================================================
// CompileCache
// =============================================================================

// CompileCache memoizes compiled artifacts, keyed by (target name,
// pattern text).
//
// Thread Safety:
//
//	Safe for concurrent use. Uses RWMutex for the artifact map and
//	singleflight for per-key compilation deduplication.
type CompileCache struct {
	mu      sync.RWMutex
	entries map[string]target.Artifact
	failed  map[string]*failedCompile
	flight  singleflight.Group
	options CacheOptions

	// Stats
	hits     int64
	misses   int64
	joins    int64
	compiles int64
	errors   int64
}

// NewCompileCache creates an empty cache.
func NewCompileCache(opts ...CacheOption) *CompileCache {
	options := DefaultCacheOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &CompileCache{
		entries: make(map[string]target.Artifact),
		failed:  make(map[string]*failedCompile),
		options: options,
	}
}

// cacheKey is content-addressed: the pattern text verbatim, scoped by
// target name. Patterns are compared byte-for-byte; the generator is
// responsible for emitting canonical text.
func cacheKey(targetName, pattern string) string {
	return targetName + "\x00" + pattern
}

// GetOrCompile returns the artifact for (tgt, pattern), compiling at
// most once per key.
//
// Description:
//
//	The fast path serves stored artifacts. Otherwise concurrent
//	callers collapse into one compilation via singleflight; the ones
//	that did not run the compilation count as joins. A failed
//	compilation is negative-cached: until the retry window elapses,
//	further requests for the key fail immediately with
//	*ErrCompileFailed wrapping the original error.
//
// Inputs:
//
//	ctx - Bounds the compilation; cancellation propagates to the
//	    toolchain subprocesses.
//	tgt - The target to compile with.
//	pattern - The pattern text.
//
// Outputs:
//
//	target.Artifact - The compiled artifact, owned by the cache. Do
//	    not Close it; Clear does.
//	error - The compile error as returned by the target, or
//	    *ErrCompileFailed when served from the negative cache.
func (c *CompileCache) GetOrCompile(ctx context.Context, tgt target.Target, pattern string) (target.Artifact, error) {
	key := cacheKey(tgt.Name(), pattern)

	if art, ok := c.lookup(key); ok {
		atomic.AddInt64(&c.hits, 1)
		cacheEvents.WithLabelValues("hit").Inc()
		return art, nil
	}
	atomic.AddInt64(&c.misses, 1)
	cacheEvents.WithLabelValues("miss").Inc()

	if fc := c.cachedFailure(key); fc != nil {
		return nil, &ErrCompileFailed{
			Err:      fc.err,
			FailedAt: fc.failedAt,
			RetryAt:  fc.retryAt,
		}
	}

	executed := false
	result, err, _ := c.flight.Do(key, func() (interface{}, error) {
		executed = true

		// A previous flight may have stored the artifact after our
		// fast-path lookup missed.
		if art, ok := c.lookup(key); ok {
			return art, nil
		}

		start := time.Now()
		art, err := tgt.Compile(ctx, pattern)
		compileDuration.WithLabelValues(tgt.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			c.cacheFailure(key, err)
			atomic.AddInt64(&c.errors, 1)
			cacheEvents.WithLabelValues("error").Inc()
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = art
		c.mu.Unlock()
		atomic.AddInt64(&c.compiles, 1)
		return art, nil
	})
	if !executed {
		atomic.AddInt64(&c.joins, 1)
		cacheEvents.WithLabelValues("join").Inc()
	}
	if err != nil {
		return nil, err
	}
	return result.(target.Artifact), nil
}

// Len returns the number of stored artifacts.
func (c *CompileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *CompileCache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return CacheStats{
		Entries:  entries,
		Hits:     atomic.LoadInt64(&c.hits),
		Misses:   atomic.LoadInt64(&c.misses),
		Joins:    atomic.LoadInt64(&c.joins),
		Compiles: atomic.LoadInt64(&c.compiles),
		Errors:   atomic.LoadInt64(&c.errors),
	}
}

// Clear closes every stored artifact and resets the cache for the next
// campaign. Close failures are joined into the returned error; the
// cache is reset regardless.
func (c *CompileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, art := range c.entries {
		if err := art.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.entries, key)
	}
	c.failed = make(map[string]*failedCompile)
	return errors.Join(errs...)
}

// lookup returns a stored artifact.
func (c *CompileCache) lookup(key string) (target.Artifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	art, ok := c.entries[key]
	return art, ok
}

// cachedFailure returns the negative-cache record for key if it has
// not expired.
func (c *CompileCache) cachedFailure(key string) *failedCompile {
	c.mu.RLock()
	fc, ok := c.failed[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	if time.Now().After(fc.retryAt) {
		c.mu.Lock()
		delete(c.failed, key)
		c.mu.Unlock()
		return nil
	}
	return fc
}

// cacheFailure records a failed compilation.
func (c *CompileCache) cacheFailure(key string, err error) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[key] = &failedCompile{
		err:      err,
		failedAt: now,
		retryAt:  now.Add(c.options.ErrorCacheTTL),
	}
}
