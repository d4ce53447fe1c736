// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package automata converts regex patterns into deterministic finite
// automata and provides the language operations the fuzzing pipeline is
// built on.
//
// The package offers:
//   - DFA construction from a pattern over a fixed finite alphabet, in
//     two flavors: find semantics (the DFA accepts strings that contain
//     a match, mirroring regexp.FindStringIndex) and full-string
//     semantics (the DFA accepts strings the whole pattern matches).
//   - Exhaustive breadth-first enumeration of accepted strings up to a
//     length bound, used as the ground-truth input source.
//   - Seeded random walks that produce accepted strings, and complement
//     walks that steer into rejecting states.
//   - Structural checks for circuit-compiler compatibility: anchor
//     placement, greedy-only quantifiers, a single accepting state, and
//     no transitions back into the initial state.
//
// # Architecture
//
// Construction goes through the standard library's regexp/syntax: the
// pattern is parsed with Perl flags (matching the reference engine),
// compiled to an NFA instruction program, and determinized by subset
// construction restricted to the campaign alphabet. Begin-text and
// end-text anchors are resolved during determinization; word boundaries
// are rejected as unsupported. The resulting DFA is complete (every
// state has a transition for every alphabet rune, with an explicit dead
// state) and carries a precomputed distance-to-accept table that the
// enumeration and walk operations use for pruning and steering.
//
// # Usage
//
//	d, err := automata.CompileFind("a+b", automata.DefaultAlphabet)
//	if err != nil {
//		return err
//	}
//	matches := d.Enumerate(4, 10)             // ground truth, deterministic
//	s, ok := d.RandomAccepted(rng, 8)         // likely-match sample
//	if err := automata.CheckCompat("a+b", automata.DefaultAlphabet); err != nil {
//		// pattern is outside the circuit compiler's supported shape
//	}
//
// # Thread Safety
//
// A compiled DFA is immutable and safe for concurrent use. The random
// walk methods take the caller's rand.Rand, which is not synchronized;
// callers that share an Expander-style source must serialize access.
package automata
