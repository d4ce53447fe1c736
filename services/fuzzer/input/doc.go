// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package input turns one pattern into the strings a campaign executes
// against every target.
//
// Valid (`should-match`) strategies:
//   - enumeration: exhaustive DFA enumeration up to a length bound.
//     Deterministic, and the only strategy whose labels are ground
//     truth for the validity oracle.
//   - random: seeded accepted-path walks over the pattern's DFA.
//     Broader and cheaper; labels are hints.
//
// Invalid (`should-not-match`) strategies, all hints by definition:
//   - mutation: perturb a known-matching string (substitute, truncate,
//     insert).
//   - random: uniform random strings over the alphabet.
//   - complement: DFA walks steered into rejecting states.
//   - mixed: round-robin over the above.
//
// Every invalid candidate is verified against the reference engine
// before it is labeled; candidates that still match are discarded and
// regenerated within a bounded attempt budget, so a returned batch may
// be shorter than requested. A pattern that matches every string over
// the alphabet yields an empty negative batch rather than an error.
//
// # Thread Safety
//
// Generators are not safe for concurrent use; the campaign calls them
// from its loop goroutine.
package input
