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
	"encoding/binary"
	"fmt"
	"regexp/syntax"
	"sort"
)

// MaxStates bounds subset construction. Patterns from the builtin
// grammar stay far below this; the limit protects against adversarial
// grammar files.
const MaxStates = 4096

// CompileFind builds a DFA over alphabet that accepts exactly the
// strings containing a match of pattern.
//
// Description:
//
//	The pattern is parsed with the same Perl flags the standard
//	library's regexp.Compile uses, so acceptance agrees with
//	regexp.FindStringIndex(s) != nil for strings over the alphabet.
//	This is the construction behind ground-truth enumeration and the
//	random walk generators.
//
// Inputs:
//
//	pattern - Regex source text.
//	alphabet - Runes the DFA is defined over. Input runes outside the
//	    alphabet route to the dead state.
//
// Outputs:
//
//	*DFA - Complete deterministic automaton with find semantics.
//	error - ErrEmptyAlphabet, ErrUnsupportedSyntax, ErrTooManyStates,
//	    or a parse error for malformed patterns.
func CompileFind(pattern string, alphabet []rune) (*DFA, error) {
	return compile(pattern, alphabet, true)
}

// CompileFull builds a DFA over alphabet that accepts exactly the
// strings matched by pattern in their entirety. This is the automaton
// shape the circuit compilers derive their layout from, so the
// structural checks in CheckShape run against it.
func CompileFull(pattern string, alphabet []rune) (*DFA, error) {
	return compile(pattern, alphabet, false)
}

func compile(pattern string, alphabet []rune, find bool) (*DFA, error) {
	if len(alphabet) == 0 {
		return nil, ErrEmptyAlphabet
	}

	text := pattern
	if find {
		// Validate the raw pattern first so parse errors point at the
		// user's text, then wrap it for containment semantics. The
		// wrap's dot must cross newlines because Find searches at
		// every byte position.
		if _, err := syntax.Parse(pattern, syntax.Perl); err != nil {
			return nil, fmt.Errorf("parse pattern %q: %w", pattern, err)
		}
		text = "(?s:.*)(?:" + pattern + ")(?s:.*)"
	}

	re, err := syntax.Parse(text, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("parse pattern %q: %w", pattern, err)
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	for i := range prog.Inst {
		if prog.Inst[i].Op != syntax.InstEmptyWidth {
			continue
		}
		op := syntax.EmptyOp(prog.Inst[i].Arg)
		if op&(syntax.EmptyWordBoundary|syntax.EmptyNoWordBoundary) != 0 {
			return nil, fmt.Errorf("%w: word boundary in %q", ErrUnsupportedSyntax, pattern)
		}
	}

	alpha := dedupeRunes(alphabet)
	index := make(map[rune]int, len(alpha))
	for i, r := range alpha {
		index[r] = i
	}

	c := &determinizer{prog: prog}
	d := &DFA{alphabet: alpha, index: index}

	ids := make(map[string]int)
	var sets [][]uint32
	intern := func(set []uint32) int {
		k := setKey(set)
		if id, ok := ids[k]; ok {
			return id
		}
		id := len(sets)
		ids[k] = id
		sets = append(sets, set)
		d.accept = append(d.accept, c.accepts(set))
		d.trans = append(d.trans, nil)
		return id
	}

	startSat := syntax.EmptyBeginText | syntax.EmptyBeginLine
	d.start = intern(c.closure([]uint32{uint32(prog.Start)}, startSat))
	d.dead = intern(nil)

	for done := 0; done < len(sets); done++ {
		if len(sets) > MaxStates {
			return nil, fmt.Errorf("%w: pattern %q", ErrTooManyStates, pattern)
		}
		row := make([]int, len(alpha))
		for i, r := range alpha {
			row[i] = intern(c.step(sets[done], r))
		}
		d.trans[done] = row
	}

	d.dist = distanceToAccept(d)
	return d, nil
}

// determinizer runs subset construction over a compiled NFA program.
type determinizer struct {
	prog *syntax.Prog
}

// closure expands pcs through epsilon instructions. Empty-width
// instructions pass only when every condition they require is in sat;
// blocked ones stay in the set so accepts can re-evaluate them with
// end-of-text granted.
func (c *determinizer) closure(pcs []uint32, sat syntax.EmptyOp) []uint32 {
	seen := make(map[uint32]bool, 2*len(pcs)+8)
	var set []uint32
	stack := append([]uint32(nil), pcs...)
	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[pc] {
			continue
		}
		seen[pc] = true
		inst := &c.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			stack = append(stack, inst.Out, inst.Arg)
		case syntax.InstCapture, syntax.InstNop:
			stack = append(stack, inst.Out)
		case syntax.InstEmptyWidth:
			set = append(set, pc)
			if syntax.EmptyOp(inst.Arg)&^sat == 0 {
				stack = append(stack, inst.Out)
			}
		case syntax.InstMatch, syntax.InstRune, syntax.InstRune1,
			syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			set = append(set, pc)
		case syntax.InstFail:
			// dead end
		}
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// step consumes r from every rune instruction in set and returns the
// epsilon-closed successor set.
func (c *determinizer) step(set []uint32, r rune) []uint32 {
	var next []uint32
	for _, pc := range set {
		inst := &c.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstRune, syntax.InstRune1,
			syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			if inst.MatchRune(r) {
				next = append(next, inst.Out)
			}
		}
	}
	return c.closure(next, 0)
}

// accepts reports whether set reaches a match with end-of-text granted.
func (c *determinizer) accepts(set []uint32) bool {
	closed := c.closure(set, syntax.EmptyEndText|syntax.EmptyEndLine)
	for _, pc := range closed {
		if c.prog.Inst[pc].Op == syntax.InstMatch {
			return true
		}
	}
	return false
}

func setKey(pcs []uint32) string {
	b := make([]byte, 4*len(pcs))
	for i, pc := range pcs {
		binary.LittleEndian.PutUint32(b[i*4:], pc)
	}
	return string(b)
}

func dedupeRunes(rs []rune) []rune {
	seen := make(map[rune]bool, len(rs))
	out := make([]rune, 0, len(rs))
	for _, r := range rs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// distanceToAccept computes, per state, the length of the shortest
// suffix leading to an accepting state, or -1 when none exists. Used to
// prune enumeration and steer accepted walks.
func distanceToAccept(d *DFA) []int {
	n := len(d.trans)
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}
	rev := make([][]int, n)
	for s := 0; s < n; s++ {
		for _, t := range d.trans[s] {
			rev[t] = append(rev[t], s)
		}
	}
	var queue []int
	for s := 0; s < n; s++ {
		if d.accept[s] {
			dist[s] = 0
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, p := range rev[s] {
			if dist[p] < 0 {
				dist[p] = dist[s] + 1
				queue = append(queue, p)
			}
		}
	}
	return dist
}
