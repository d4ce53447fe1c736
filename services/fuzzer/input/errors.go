// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package input

import "errors"

// Sentinel errors for input generation.
var (
	// ErrUnsupportedLabel indicates a generator was asked for a label
	// outside its strategy (for example negatives from enumeration).
	ErrUnsupportedLabel = errors.New("label unsupported by this generator")

	// ErrUnknownStrategy indicates an unrecognized valid-input strategy
	// name.
	ErrUnknownStrategy = errors.New("unknown input strategy")

	// ErrUnknownMethod indicates an unrecognized invalid-input method
	// name.
	ErrUnknownMethod = errors.New("unknown invalid-input method")

	// ErrUnknownLabel indicates an unrecognized label string.
	ErrUnknownLabel = errors.New("unknown input label")
)
