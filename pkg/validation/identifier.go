// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for values that reach
// security-critical sinks.
//
// Run identifiers are joined into corpus directory paths and embedded
// in ':'-delimited index keys; manifest paths name files the process
// will read. Validating them at the boundary prevents path traversal
// and keeps the index key space parseable.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// runIDPattern matches safe corpus run identifiers.
// Allows: letters, digits, dots, hyphens, underscores.
// Must not start with a dot (the corpus index lives in a dot
// directory under the same root).
// Max length: 128 characters (well under filesystem name limits).
var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidateRunID validates a corpus run identifier.
//
// Valid run IDs:
//   - 1-128 characters
//   - Letters, digits, dots, hyphens, underscores
//   - First character a letter or digit
//
// This rules out path separators, traversal sequences, and the ':'
// the index uses as its key delimiter.
//
// Example:
//
//	if err := validation.ValidateRunID(cfg.RunID); err != nil {
//	    return nil, err
//	}
//	// Safe to use in corpus paths and index keys
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("invalid run ID %q (must be 1-128 letters, digits, dots, hyphens, or underscores, not starting with a dot)", id)
	}
	return nil
}

// ValidatePath validates a user-supplied file path that the process
// will open, rejecting traversal sequences.
//
// Example:
//
//	if err := validation.ValidatePath(manifestPath); err != nil {
//	    return nil, err
//	}
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path must not contain traversal: %s", path)
	}
	return nil
}
