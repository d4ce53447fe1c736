// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

import "errors"

var (
	// ErrCorruptEntry indicates an entry directory missing files or
	// holding unparseable metadata.
	ErrCorruptEntry = errors.New("corrupt corpus entry")

	// ErrEntryNotFound indicates a lookup for an entry the index does
	// not hold.
	ErrEntryNotFound = errors.New("corpus entry not found")

	// ErrRunNotFound indicates a lookup for a run the journal does not
	// hold.
	ErrRunNotFound = errors.New("run not found in corpus index")

	// ErrNoRunID indicates a store operation called with an empty run
	// identifier.
	ErrNoRunID = errors.New("run id must not be empty")
)
