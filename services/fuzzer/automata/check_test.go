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
	"errors"
	"testing"
)

func TestCheckPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr error
	}{
		{"plain", "a+b", nil},
		{"anchored", "^ab$", nil},
		{"optional start anchor", "(|^)ab", nil},
		{"caret in class", "[a^b]c", nil},
		{"negated class", "[^ab]c", nil},
		{"escaped caret", `a\^b`, nil},
		{"escaped dollar", `a\$b`, nil},
		{"lazy star", "a*?b", ErrLazyQuantifier},
		{"lazy plus", "a+?b", ErrLazyQuantifier},
		{"lazy quest", "a??b", ErrLazyQuantifier},
		{"lazy repeat", "a{1,3}?b", ErrLazyQuantifier},
		{"caret mid-pattern", "a^b", ErrCaretPlacement},
		{"caret in late group", "a(^b)", ErrCaretPlacement},
		{"dollar mid-pattern", "a$b", ErrDollarPlacement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPattern(tt.pattern)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckPattern(%q) = %v, want nil", tt.pattern, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckPattern(%q) = %v, want %v", tt.pattern, err, tt.wantErr)
			}
		})
	}
}

func TestCheckPattern_ParseFailure(t *testing.T) {
	if err := CheckPattern("a("); err == nil {
		t.Fatal("expected parse error for unbalanced group")
	}
}

func TestCheckShape(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr error
	}{
		{"single chain", "^ab$", nil},
		{"anchored alternation", "^(a|bb)$", nil},
		{"anchored plus", "^a+b$", nil},
		{"optional start anchor", "(|^)ab$", nil},
		{"optional tail", "^ab?$", ErrMultipleAcceptStates},
		{"star re-enters start", "a*", ErrInitialStateTransition},
		{"star prefix", "a*b", ErrInitialStateTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := CompileFull(tt.pattern, DefaultAlphabet)
			if err != nil {
				t.Fatalf("CompileFull(%q): %v", tt.pattern, err)
			}
			err = CheckShape(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckShape(%q) = %v, want nil", tt.pattern, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckShape(%q) = %v, want %v", tt.pattern, err, tt.wantErr)
			}
		})
	}
}

func TestCheckShape_EmptyLanguage(t *testing.T) {
	d, err := CompileFull("a", []rune("bc"))
	if err != nil {
		t.Fatalf("CompileFull: %v", err)
	}
	if err := CheckShape(d); !errors.Is(err, ErrNoAcceptState) {
		t.Fatalf("CheckShape = %v, want ErrNoAcceptState", err)
	}
}

func TestCheckCompat(t *testing.T) {
	if err := CheckCompat("^a+b$", DefaultAlphabet); err != nil {
		t.Fatalf("compliant pattern rejected: %v", err)
	}
	if err := CheckCompat("a*?b", DefaultAlphabet); !errors.Is(err, ErrLazyQuantifier) {
		t.Fatalf("lazy quantifier not caught: %v", err)
	}
	if err := CheckCompat("a*b", DefaultAlphabet); !errors.Is(err, ErrInitialStateTransition) {
		t.Fatalf("initial-state transition not caught: %v", err)
	}
}
