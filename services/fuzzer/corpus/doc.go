// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package corpus persists divergences and replays them.
//
// Every finding lives in its own directory under the corpus root:
//
//	<root>/<runID>/<entryID>/
//	    pattern.txt      raw pattern bytes
//	    input.txt        raw input bytes
//	    metadata.json    label, strategy, per-target results, judgment,
//	                     seed, toolchain versions, timestamp
//
// The three files are sufficient to replay the finding with no
// campaign state: reproduce reads them directly and never needs the
// index. Entries are immutable once written; cleanup is external.
//
// Alongside the directories the store keeps a BadgerDB index at
// <root>/.index holding the same metadata plus the run journal. The
// index serves the two queries the campaign makes while fuzzing,
// duplicate suppression (same pattern, input, and verdict within a
// run) and run bookkeeping, and feeds report without a filesystem
// walk. Losing the index loses nothing replayable.
package corpus
