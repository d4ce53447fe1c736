// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grammar

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoStartSymbol indicates the grammar has no rule for its start symbol.
	ErrNoStartSymbol = errors.New("grammar has no start symbol rule")

	// ErrUndefinedSymbol indicates an expansion references a nonterminal
	// with no rule (the "<char>" symbol is exempt; it falls back to the
	// alphabet).
	ErrUndefinedSymbol = errors.New("expansion references undefined nonterminal")

	// ErrEmptyRule indicates a nonterminal with zero expansion alternatives.
	ErrEmptyRule = errors.New("nonterminal has no expansions")

	// ErrNonTerminating indicates a nonterminal with no finite derivation,
	// so expansion could never close.
	ErrNonTerminating = errors.New("nonterminal has no finite derivation")

	// ErrTooLarge indicates the grammar exceeds size limits.
	ErrTooLarge = errors.New("grammar exceeds size limits")
)

// Size limits, enforced at load time.
const (
	// MaxRules is the maximum number of nonterminals in one grammar.
	MaxRules = 200

	// MaxExpansionsPerRule is the maximum alternatives for one nonterminal.
	MaxExpansionsPerRule = 100
)

// CharSymbol is the nonterminal the expander resolves from the
// configured alphabet when the grammar defines no rule for it.
const CharSymbol = "<char>"

// nonterminalRE matches nonterminal occurrences inside an expansion.
var nonterminalRE = regexp.MustCompile(`<[^<> ]+>`)

// =============================================================================
// Grammar
// =============================================================================

// Grammar is a context-free grammar over regex syntax fragments.
//
// Rules map each nonterminal symbol (including the angle brackets) to
// its expansion alternatives. Everything in an expansion that is not a
// nonterminal occurrence is terminal text emitted verbatim.
//
// Thread Safety: Immutable after Validate; safe for concurrent use.
type Grammar struct {
	// Start is the start symbol, e.g. "<start>".
	Start string

	// Rules maps nonterminal -> expansion alternatives.
	Rules map[string][]string

	// minCost caches the minimum derivation cost per nonterminal,
	// computed by Validate. Used by the expander to close derivations.
	minCost map[string]float64
}

// Nonterminals returns the nonterminal occurrences in an expansion,
// in order, including duplicates.
func Nonterminals(expansion string) []string {
	return nonterminalRE.FindAllString(expansion, -1)
}

// IsNonterminal reports whether s is written as a nonterminal symbol.
func IsNonterminal(s string) bool {
	return nonterminalRE.MatchString(s) && nonterminalRE.FindString(s) == s
}

// Validate checks structural soundness and computes derivation costs.
//
// Description:
//
//	Verifies the start symbol has a rule, every referenced nonterminal
//	is defined (except CharSymbol), no rule is empty, limits hold, and
//	every nonterminal has a finite derivation so expansion terminates.
//
// Outputs:
//
//	error - Non-nil if the grammar is unusable. Wraps one of the
//	sentinel errors above with the offending symbol.
func (g *Grammar) Validate() error {
	if len(g.Rules) > MaxRules {
		return fmt.Errorf("%w: %d rules (max %d)", ErrTooLarge, len(g.Rules), MaxRules)
	}
	if _, ok := g.Rules[g.Start]; !ok {
		return fmt.Errorf("%w: %q", ErrNoStartSymbol, g.Start)
	}

	for sym, expansions := range g.Rules {
		if len(expansions) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyRule, sym)
		}
		if len(expansions) > MaxExpansionsPerRule {
			return fmt.Errorf("%w: %q has %d expansions (max %d)",
				ErrTooLarge, sym, len(expansions), MaxExpansionsPerRule)
		}
		for _, exp := range expansions {
			for _, nt := range Nonterminals(exp) {
				if nt == CharSymbol {
					continue
				}
				if _, ok := g.Rules[nt]; !ok {
					return fmt.Errorf("%w: %q in rule %q", ErrUndefinedSymbol, nt, sym)
				}
			}
		}
	}

	// Cost analysis: every nonterminal needs a finite minimum derivation
	// or depth-bounded expansion could loop forever.
	g.minCost = make(map[string]float64, len(g.Rules))
	for sym := range g.Rules {
		cost := g.symbolCost(sym, map[string]bool{})
		if math.IsInf(cost, 1) {
			return fmt.Errorf("%w: %q", ErrNonTerminating, sym)
		}
		g.minCost[sym] = cost
	}

	return nil
}

// symbolCost returns the minimum derivation cost of a nonterminal.
// Symbols already on the derivation path cost +Inf (left recursion).
func (g *Grammar) symbolCost(sym string, seen map[string]bool) float64 {
	if sym == CharSymbol {
		if _, ok := g.Rules[sym]; !ok {
			return 1
		}
	}
	if seen[sym] {
		return math.Inf(1)
	}
	expansions, ok := g.Rules[sym]
	if !ok {
		return math.Inf(1)
	}

	seen[sym] = true
	defer delete(seen, sym)

	best := math.Inf(1)
	for _, exp := range expansions {
		if c := g.expansionCost(exp, seen); c < best {
			best = c
		}
	}
	return best
}

// expansionCost is 1 plus the cost of every nonterminal in the expansion.
func (g *Grammar) expansionCost(expansion string, seen map[string]bool) float64 {
	cost := 1.0
	for _, nt := range Nonterminals(expansion) {
		cost += g.symbolCost(nt, seen)
	}
	return cost
}

// ExpansionCost exposes the cost of one expansion for the expander's
// minimum-cost closing pass.
func (g *Grammar) ExpansionCost(expansion string) float64 {
	return g.expansionCost(expansion, map[string]bool{})
}

// Symbols returns the defined nonterminals in unspecified order.
func (g *Grammar) Symbols() []string {
	out := make([]string, 0, len(g.Rules))
	for sym := range g.Rules {
		out = append(out, sym)
	}
	return out
}

// String renders the grammar in a compact rule-per-line form for logs.
func (g *Grammar) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start: %s\n", g.Start)
	for sym, expansions := range g.Rules {
		fmt.Fprintf(&b, "%s ::= %s\n", sym, strings.Join(expansions, " | "))
	}
	return b.String()
}
