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
	"fmt"
	"regexp/syntax"
	"strings"
)

// CheckPattern validates the syntactic constraints the circuit
// compiler documents: anchors only at the pattern edges (^ at the
// start, optionally as a leading (|^) group; $ at the very end) and no
// lazy quantifiers. A parse failure is returned as-is so callers can
// distinguish generator bugs from compatibility rejections.
func CheckPattern(pattern string) error {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return fmt.Errorf("parse pattern %q: %w", pattern, err)
	}
	if err := checkGreedy(re); err != nil {
		return err
	}
	return checkAnchors(pattern)
}

// CheckShape validates the automaton shape the circuit layout assumes:
// exactly one accepting state and no transition re-entering the
// initial state. Run it on a full-match DFA of the raw pattern.
func CheckShape(d *DFA) error {
	acc := d.AcceptingStates()
	if len(acc) == 0 {
		return ErrNoAcceptState
	}
	if len(acc) > 1 {
		return fmt.Errorf("%w: %d accepting states", ErrMultipleAcceptStates, len(acc))
	}
	for s := 0; s < d.NumStates(); s++ {
		for _, t := range d.trans[s] {
			if t == d.start {
				return ErrInitialStateTransition
			}
		}
	}
	return nil
}

// CheckCompat runs the full compatibility gate for one pattern:
// syntactic constraints, then a full-match DFA build over alphabet,
// then the shape rules. Pattern generators regenerate on any
// compatibility error.
func CheckCompat(pattern string, alphabet []rune) error {
	if err := CheckPattern(pattern); err != nil {
		return err
	}
	d, err := CompileFull(pattern, alphabet)
	if err != nil {
		return err
	}
	return CheckShape(d)
}

func checkGreedy(re *syntax.Regexp) error {
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		if re.Flags&syntax.NonGreedy != 0 {
			return ErrLazyQuantifier
		}
	}
	for _, sub := range re.Sub {
		if err := checkGreedy(sub); err != nil {
			return err
		}
	}
	return nil
}

// checkAnchors scans the raw pattern text. Anchors inside character
// classes are class members, not anchors, and escaped metacharacters
// are literals.
func checkAnchors(pattern string) error {
	escaped := false
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '^':
			if inClass || i == 0 {
				continue
			}
			if i == 2 && strings.HasPrefix(pattern, "(|^)") {
				continue
			}
			return ErrCaretPlacement
		case '$':
			if inClass {
				continue
			}
			if i != len(pattern)-1 {
				return ErrDollarPlacement
			}
		}
	}
	return nil
}
