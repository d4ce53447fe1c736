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

// MaxEnumerationNodes caps the breadth-first frontier work so a wide
// alphabet with a permissive pattern cannot stall a campaign. Within
// the cap, enumeration is exhaustive.
const MaxEnumerationNodes = 1 << 18

// Enumerate returns accepted strings of length <= maxLen in
// deterministic order: shortest first, lexicographic by alphabet index
// within a length.
//
// Description:
//
//	Breadth-first walk over live prefixes. A prefix is extended only
//	when its target state can still reach an accepting state within
//	the remaining length budget, so the walk never explores provably
//	dead branches. Every returned string is accepted by the automaton,
//	which for a find-semantics DFA means it truly matches under the
//	reference engine.
//
// Inputs:
//
//	maxLen - Maximum string length in runes.
//	limit - Maximum number of results; <= 0 means unlimited.
//
// Outputs:
//
//	[]string - Accepted strings, possibly empty.
func (d *DFA) Enumerate(maxLen, limit int) []string {
	type node struct {
		state int
		text  string
		depth int
	}

	var out []string
	explored := 0
	queue := []node{{state: d.start}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		explored++
		if explored > MaxEnumerationNodes {
			break
		}
		if d.accept[n.state] {
			out = append(out, n.text)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		if n.depth == maxLen {
			continue
		}
		remaining := maxLen - n.depth - 1
		for idx, r := range d.alphabet {
			next := d.trans[n.state][idx]
			if nd := d.dist[next]; nd >= 0 && nd <= remaining {
				queue = append(queue, node{state: next, text: n.text + string(r), depth: n.depth + 1})
			}
		}
	}
	return out
}
