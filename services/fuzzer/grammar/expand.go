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
	"math/rand"
	"strings"
)

// ErrEmptyAlphabet indicates the expander has no characters to draw
// from after removing regex metacharacters.
var ErrEmptyAlphabet = errors.New("alphabet empty after removing metacharacters")

// DefaultMaxDepth bounds derivation depth when the config leaves it zero.
const DefaultMaxDepth = 8

// =============================================================================
// Configuration
// =============================================================================

// ExpanderConfig configures a derivation expander.
type ExpanderConfig struct {
	// Seed initializes the private random source. The same
	// (grammar, Seed, MaxDepth, Alphabet) always yields the same
	// derivation.
	Seed int64

	// MaxDepth bounds the derivation tree depth. Beyond it, only
	// minimum-cost expansions are chosen so the tree closes.
	// Default: DefaultMaxDepth.
	MaxDepth int

	// Alphabet supplies characters for CharSymbol when the grammar has
	// no explicit rule for it. Metacharacters are stripped before use.
	// Default: AlphabetLower.
	Alphabet Alphabet
}

// Validate checks the configuration.
func (c *ExpanderConfig) Validate() error {
	if c.MaxDepth < 0 {
		return errors.New("MaxDepth must be >= 0")
	}
	if len(c.Alphabet) > 0 && len(c.Alphabet.PatternSafe()) == 0 {
		return ErrEmptyAlphabet
	}
	return nil
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *ExpanderConfig) ApplyDefaults() {
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if len(c.Alphabet) == 0 {
		c.Alphabet = AlphabetLower
	}
}

// =============================================================================
// Derivation Tree
// =============================================================================

// Derivation is a node of the derivation tree.
//
// Interior nodes carry a nonterminal Symbol and one child per token of
// the chosen expansion. Leaves carry terminal text in Symbol and a nil
// Children slice.
type Derivation struct {
	// Symbol is the nonterminal (interior) or terminal text (leaf).
	Symbol string

	// Children are the expansion's tokens, nil for leaves.
	Children []*Derivation
}

// Text concatenates the terminal leaves into the derived string.
func (d *Derivation) Text() string {
	var b strings.Builder
	d.appendText(&b)
	return b.String()
}

func (d *Derivation) appendText(b *strings.Builder) {
	if d.Children == nil {
		b.WriteString(d.Symbol)
		return
	}
	for _, c := range d.Children {
		c.appendText(b)
	}
}

// Walk visits the tree in depth-first preorder.
func (d *Derivation) Walk(fn func(*Derivation)) {
	fn(d)
	for _, c := range d.Children {
		c.Walk(fn)
	}
}

// Depth returns the height of the tree (a lone leaf has depth 1).
func (d *Derivation) Depth() int {
	if d.Children == nil {
		return 1
	}
	max := 0
	for _, c := range d.Children {
		if n := c.Depth(); n > max {
			max = n
		}
	}
	return max + 1
}

// =============================================================================
// Expander
// =============================================================================

// Expander derives strings from a grammar with a seeded random source.
//
// Thread Safety: NOT safe for concurrent use; the random source is
// private mutable state. Create one expander per goroutine.
type Expander struct {
	grammar  *Grammar
	rng      *rand.Rand
	maxDepth int
	chars    Alphabet
}

// NewExpander creates an expander over a validated grammar.
//
// Inputs:
//
//	g - A grammar that passed Validate. Must not be nil.
//	cfg - Expander configuration; zero values are defaulted.
//
// Outputs:
//
//	*Expander - Ready to expand. Never nil on success.
//	error - Non-nil if cfg is invalid.
func NewExpander(g *Grammar, cfg ExpanderConfig) (*Expander, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("expander config: %w", err)
	}
	chars := cfg.Alphabet.PatternSafe()
	if len(chars) == 0 {
		return nil, ErrEmptyAlphabet
	}
	return &Expander{
		grammar:  g,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		maxDepth: cfg.MaxDepth,
		chars:    chars,
	}, nil
}

// Expand derives one string from the grammar's start symbol.
//
// Description:
//
//	Expands nonterminals with uniformly random alternatives until the
//	depth budget is reached, then switches to minimum-cost alternatives
//	so the derivation closes. Repeated calls advance the random source,
//	so a fresh expander is needed to replay a seed.
//
// Outputs:
//
//	*Derivation - The derivation tree. Never nil on success.
//	error - Non-nil only for grammar defects that escaped Validate.
func (e *Expander) Expand() (*Derivation, error) {
	return e.expand(e.grammar.Start, 0)
}

func (e *Expander) expand(symbol string, depth int) (*Derivation, error) {
	expansions, ok := e.grammar.Rules[symbol]
	if !ok {
		if symbol == CharSymbol {
			r := e.chars[e.rng.Intn(len(e.chars))]
			return &Derivation{
				Symbol:   symbol,
				Children: []*Derivation{{Symbol: string(r)}},
			}, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUndefinedSymbol, symbol)
	}

	chosen := e.choose(expansions, depth)

	node := &Derivation{Symbol: symbol, Children: []*Derivation{}}
	for _, tok := range tokenize(chosen) {
		if IsNonterminal(tok) {
			child, err := e.expand(tok, depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		} else {
			node.Children = append(node.Children, &Derivation{Symbol: tok})
		}
	}
	return node, nil
}

// choose picks an expansion: uniform while under budget, cheapest when
// the budget is spent.
func (e *Expander) choose(expansions []string, depth int) string {
	if depth < e.maxDepth {
		return expansions[e.rng.Intn(len(expansions))]
	}

	best := math.Inf(1)
	var candidates []string
	for _, exp := range expansions {
		c := e.grammar.ExpansionCost(exp)
		switch {
		case c < best:
			best = c
			candidates = candidates[:0]
			candidates = append(candidates, exp)
		case c == best:
			candidates = append(candidates, exp)
		}
	}
	return candidates[e.rng.Intn(len(candidates))]
}

// tokenize splits an expansion into terminal runs and nonterminals,
// preserving order.
func tokenize(expansion string) []string {
	locs := nonterminalRE.FindAllStringIndex(expansion, -1)
	if len(locs) == 0 {
		if expansion == "" {
			return nil
		}
		return []string{expansion}
	}

	var out []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			out = append(out, expansion[prev:loc[0]])
		}
		out = append(out, expansion[loc[0]:loc[1]])
		prev = loc[1]
	}
	if prev < len(expansion) {
		out = append(out, expansion[prev:])
	}
	return out
}
