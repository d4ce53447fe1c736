// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package campaign drives the fuzzing loop.
//
// One iteration takes one pattern through the full cycle:
//
//	Generating → Compiling → Executing → Judging → (Persisting | Idle)
//
// The loop is single-threaded-cooperative at iteration level: one
// pattern's cycle completes before the next begins, because circuit
// compilation is a heavyweight external-process step and result
// ordering within a pattern must stay deterministic for replay. The
// only concurrency is the bounded worker pool executing independent
// (input, target) pairs against one immutable compiled artifact.
//
// Failures are data: a single input's execution error folds into its
// MatchResult and never aborts the run. Two things do stop a run
// early: a generator error (the pipeline itself is broken, findings
// would be noise) and losing the last judgeable target. A
// ToolchainError during compilation disables that target for the rest
// of the run, logged once.
//
// The campaign journals its run record and stats checkpoints into the
// corpus index and exposes a Stats snapshot for the status server and
// dashboard.
package campaign
