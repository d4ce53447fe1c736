// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package campaign

// State is the campaign's position in the iteration cycle, exposed
// through Stats for the status endpoint and dashboard.
type State string

const (
	// StateIdle is the state between iterations and before Run.
	StateIdle State = "idle"

	// StateGenerating covers pattern generation.
	StateGenerating State = "generating"

	// StateCompiling covers per-target compilation via the cache.
	StateCompiling State = "compiling"

	// StateExecuting covers the (input, target) worker pool.
	StateExecuting State = "executing"

	// StateJudging covers per-input oracle judgment.
	StateJudging State = "judging"

	// StatePersisting covers corpus writes for divergences.
	StatePersisting State = "persisting"

	// StateStopped is terminal: budget exhausted, source exhausted,
	// cancelled, or failed.
	StateStopped State = "stopped"
)
