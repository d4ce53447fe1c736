// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"errors"
	"fmt"
)

// Sentinel errors for pattern generation.
var (
	// ErrExhausted indicates every regeneration round failed to produce
	// a usable pattern.
	ErrExhausted = errors.New("pattern generation exhausted")

	// ErrMalformed indicates the generator emitted a pattern its own
	// grammar should have made impossible.
	ErrMalformed = errors.New("generator emitted malformed pattern")

	// ErrNoMorePatterns indicates a predefined list has been fully
	// replayed.
	ErrNoMorePatterns = errors.New("no more patterns")

	// ErrEmptyList indicates a predefined source contained no patterns.
	ErrEmptyList = errors.New("pattern list is empty")
)

// GeneratorError is fatal: it reports a broken generator, not a fuzz
// finding, and stops the run.
type GeneratorError struct {
	Generator string
	Err       error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator %s: %v", e.Generator, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// IsGeneratorError reports whether err carries a GeneratorError
// anywhere in its chain.
func IsGeneratorError(err error) bool {
	var ge *GeneratorError
	return errors.As(err, &ge)
}
