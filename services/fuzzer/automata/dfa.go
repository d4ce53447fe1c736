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

// DefaultAlphabet is the lowercase ASCII alphabet most campaigns run
// over.
var DefaultAlphabet = []rune("abcdefghijklmnopqrstuvwxyz")

// DFA is a complete deterministic finite automaton over a fixed rune
// alphabet. Every state has a transition for every alphabet rune; runes
// outside the alphabet route to the dead state. Immutable after
// construction and safe for concurrent use.
type DFA struct {
	alphabet []rune
	index    map[rune]int
	start    int
	dead     int
	accept   []bool
	trans    [][]int
	dist     []int
}

// NumStates returns the number of reachable states, dead state included.
func (d *DFA) NumStates() int { return len(d.trans) }

// Start returns the initial state.
func (d *DFA) Start() int { return d.start }

// Dead returns the non-accepting sink state.
func (d *DFA) Dead() int { return d.dead }

// Alphabet returns a copy of the alphabet in symbol-index order.
func (d *DFA) Alphabet() []rune { return append([]rune(nil), d.alphabet...) }

// SymbolIndex returns the index of r in the alphabet.
func (d *DFA) SymbolIndex(r rune) (int, bool) {
	i, ok := d.index[r]
	return i, ok
}

// Accepting reports whether state accepts.
func (d *DFA) Accepting(state int) bool {
	return state >= 0 && state < len(d.accept) && d.accept[state]
}

// AcceptingStates returns all accepting states in index order.
func (d *DFA) AcceptingStates() []int {
	var out []int
	for s, ok := range d.accept {
		if ok {
			out = append(out, s)
		}
	}
	return out
}

// Step advances one transition. Runes outside the alphabet go to the
// dead state.
func (d *DFA) Step(state int, r rune) int {
	idx, ok := d.index[r]
	if !ok {
		return d.dead
	}
	return d.trans[state][idx]
}

// Run reports whether the automaton accepts input.
//
// Acceptance is exact for strings over the compile alphabet. Strings
// containing other runes are conservatively rejected, which is why
// labels derived from Run on such strings are hints rather than ground
// truth.
func (d *DFA) Run(input string) bool {
	state := d.start
	for _, r := range input {
		state = d.Step(state, r)
	}
	return d.accept[state]
}

// DistanceToAccept returns the shortest number of symbols from state to
// an accepting state, or -1 if no accepting state is reachable.
func (d *DFA) DistanceToAccept(state int) int { return d.dist[state] }

// TransitionTable returns a deep copy of the transition matrix indexed
// [state][symbol]. Circuit targets lay their constraint systems out
// from this table.
func (d *DFA) TransitionTable() [][]int {
	out := make([][]int, len(d.trans))
	for s, row := range d.trans {
		out[s] = append([]int(nil), row...)
	}
	return out
}
