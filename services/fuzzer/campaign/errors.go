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

import "errors"

var (
	// ErrNoTargets indicates a campaign constructed with no targets.
	ErrNoTargets = errors.New("campaign requires at least one target")

	// ErrDuplicateTarget indicates two configured targets sharing a
	// registry name.
	ErrDuplicateTarget = errors.New("duplicate target")

	// ErrAllTargetsDisabled indicates every target has been disabled by
	// toolchain failures; nothing remains to execute against.
	ErrAllTargetsDisabled = errors.New("all targets disabled")

	// ErrGroundTruthDisabled indicates the validity oracle's
	// ground-truth target was disabled; no later judgment could be
	// conclusive.
	ErrGroundTruthDisabled = errors.New("ground-truth target disabled")

	// ErrGroundTruthMissing indicates a validity oracle whose
	// ground-truth target is not among the configured targets.
	ErrGroundTruthMissing = errors.New("ground-truth target not configured")
)
