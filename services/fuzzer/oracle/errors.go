// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import "errors"

var (
	// ErrUnknownKind indicates an oracle kind outside the closed set.
	ErrUnknownKind = errors.New("unknown oracle kind")

	// ErrUnknownVerdict indicates a verdict string outside the closed
	// set, typically from hand-edited corpus metadata.
	ErrUnknownVerdict = errors.New("unknown verdict")

	// ErrNoGroundTruth indicates a validity oracle constructed without
	// a ground-truth target name.
	ErrNoGroundTruth = errors.New("validity oracle requires a ground-truth target")
)
