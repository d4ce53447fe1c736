// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package automata

import "errors"

// Sentinel errors for DFA construction and compatibility checks.
var (
	// ErrEmptyAlphabet indicates DFA construction was asked to run over
	// an empty alphabet.
	ErrEmptyAlphabet = errors.New("alphabet is empty")

	// ErrUnsupportedSyntax indicates the pattern uses constructs the DFA
	// builder cannot express, such as word boundaries.
	ErrUnsupportedSyntax = errors.New("pattern syntax unsupported for DFA construction")

	// ErrTooManyStates indicates subset construction exceeded the state
	// budget.
	ErrTooManyStates = errors.New("DFA exceeds state limit")

	// ErrLazyQuantifier indicates the pattern contains a non-greedy
	// quantifier, which the circuit compiler does not support.
	ErrLazyQuantifier = errors.New("pattern contains lazy quantifier")

	// ErrCaretPlacement indicates a ^ anchor somewhere other than the
	// pattern start or a leading (|^) group.
	ErrCaretPlacement = errors.New("^ allowed only at pattern start or in leading (|^)")

	// ErrDollarPlacement indicates a $ anchor somewhere other than the
	// very end of the pattern.
	ErrDollarPlacement = errors.New("$ allowed only at pattern end")

	// ErrMultipleAcceptStates indicates the pattern's DFA has more than
	// one accepting state.
	ErrMultipleAcceptStates = errors.New("DFA has multiple accepting states")

	// ErrNoAcceptState indicates the pattern's language is empty.
	ErrNoAcceptState = errors.New("DFA has no accepting state")

	// ErrInitialStateTransition indicates some transition re-enters the
	// DFA's initial state.
	ErrInitialStateTransition = errors.New("DFA has transition into initial state")
)
