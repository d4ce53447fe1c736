// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache memoizes pattern compilation per target.
//
// Circuit compilation is the expensive step of a campaign iteration: a
// single circom pipeline run takes seconds to minutes, while the same
// artifact then serves every generated input. CompileCache guarantees
// at most one compilation per (target, pattern) key for its lifetime:
// concurrent requests for an in-flight key join the running compilation
// (singleflight), later requests hit the stored artifact.
//
// Failed compilations are negative-cached with a retry-after window so
// a flaky toolchain is not re-invoked per input. The cache holds
// artifacts unbounded for a campaign's lifetime; Clear closes every
// artifact, releasing on-disk circuit workspaces, and resets the cache
// for the next campaign. Hit, miss, join, and failure counts are kept
// as campaign stats and exported as Prometheus counters.
package cache
