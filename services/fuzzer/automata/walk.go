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

import (
	"math/rand"
	"strings"
)

const (
	// acceptStopProb is the chance an accepted walk stops at an
	// accepting state instead of growing the string further.
	acceptStopProb = 0.3

	// rejectAttempts bounds retries when sampling a rejected string.
	rejectAttempts = 10
)

// RandomAccepted samples an accepted string of length <= maxLen.
//
// Description:
//
//	Walks transitions chosen uniformly among runes whose target state
//	can still reach acceptance within the remaining budget, stopping
//	early at accepting states with probability acceptStopProb. The
//	result always accepts; ok is false when the language contains no
//	string within maxLen.
//
// Determinism follows the caller's rng seed.
func (d *DFA) RandomAccepted(rng *rand.Rand, maxLen int) (string, bool) {
	if start := d.dist[d.start]; start < 0 || start > maxLen {
		return "", false
	}

	var sb strings.Builder
	state := d.start
	for n := 0; n < maxLen; n++ {
		budget := maxLen - n
		var candidates []int
		for idx := range d.alphabet {
			next := d.trans[state][idx]
			if nd := d.dist[next]; nd >= 0 && nd < budget {
				candidates = append(candidates, idx)
			}
		}
		if d.accept[state] {
			if len(candidates) == 0 || rng.Float64() < acceptStopProb {
				return sb.String(), true
			}
		}
		if len(candidates) == 0 {
			return "", false
		}
		idx := candidates[rng.Intn(len(candidates))]
		sb.WriteRune(d.alphabet[idx])
		state = d.trans[state][idx]
	}
	if d.accept[state] {
		return sb.String(), true
	}
	return "", false
}

// RandomRejected samples a string of length <= maxLen the automaton
// rejects.
//
// Description:
//
//	Takes a uniform random walk of random length; if the walk ends
//	accepting, it is steered one extra symbol into a rejecting state
//	when one exists. ok is false after bounded attempts, which happens
//	when the automaton accepts every string over its alphabet up to
//	maxLen (for example a find DFA for a pattern matching the empty
//	string).
func (d *DFA) RandomRejected(rng *rand.Rand, maxLen int) (string, bool) {
	for attempt := 0; attempt < rejectAttempts; attempt++ {
		n := rng.Intn(maxLen + 1)
		var sb strings.Builder
		state := d.start
		for i := 0; i < n; i++ {
			idx := rng.Intn(len(d.alphabet))
			sb.WriteRune(d.alphabet[idx])
			state = d.trans[state][idx]
		}
		if !d.accept[state] {
			return sb.String(), true
		}
		if n == maxLen {
			continue
		}
		var rejecting []int
		for idx := range d.alphabet {
			if !d.accept[d.trans[state][idx]] {
				rejecting = append(rejecting, idx)
			}
		}
		if len(rejecting) > 0 {
			idx := rejecting[rng.Intn(len(rejecting))]
			sb.WriteRune(d.alphabet[idx])
			return sb.String(), true
		}
	}
	return "", false
}
