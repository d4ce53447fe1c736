// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"fmt"
	"regexp/syntax"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/automata"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// Generation bounds. A candidate that fails the compatibility gate or
// repeats recent output is regenerated; a round is MaxAttempts
// candidates, and MaxFailedRounds wholly failed rounds abort the run.
const (
	MaxAttempts     = 20
	MaxRepeats      = 3
	MaxFailedRounds = 3
)

// Config controls grammar-based generation.
type Config struct {
	// Seed drives the derivation RNG. Same seed, same pattern stream.
	Seed int64

	// MaxDepth bounds derivation trees. Zero means
	// grammar.DefaultMaxDepth.
	MaxDepth int

	// Alphabet supplies literal characters and is the universe the
	// compatibility DFA is built over. Zero value means lowercase.
	Alphabet grammar.Alphabet

	// SkipCompatCheck disables the circuit compatibility gate, for
	// campaigns that only run software engines.
	SkipCompatCheck bool
}

// ApplyDefaults fills zero-value fields in place.
func (c *Config) ApplyDefaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = grammar.DefaultMaxDepth
	}
	if len(c.Alphabet) == 0 {
		c.Alphabet = grammar.AlphabetLower
	}
}

// GrammarGenerator derives patterns from a grammar, gates them through
// the circuit compatibility checks, and deduplicates recent output.
type GrammarGenerator struct {
	cfg      Config
	expander *grammar.Expander
	emitted  map[string]int
	stats    Stats
}

// NewGrammarGenerator builds a generator over g.
//
// Inputs:
//
//	g - Validated grammar to derive patterns from.
//	cfg - Generation bounds; zero values are defaulted.
//
// Outputs:
//
//	*GrammarGenerator - Ready generator.
//	error - Non-nil when the expander rejects the grammar or alphabet.
func NewGrammarGenerator(g *grammar.Grammar, cfg Config) (*GrammarGenerator, error) {
	cfg.ApplyDefaults()
	exp, err := grammar.NewExpander(g, grammar.ExpanderConfig{
		Seed:     cfg.Seed,
		MaxDepth: cfg.MaxDepth,
		Alphabet: cfg.Alphabet,
	})
	if err != nil {
		return nil, fmt.Errorf("build expander: %w", err)
	}
	return &GrammarGenerator{
		cfg:      cfg,
		expander: exp,
		emitted:  make(map[string]int),
	}, nil
}

// Name implements Generator.
func (g *GrammarGenerator) Name() string { return "grammar" }

// Generate returns the next compatible, non-repeated pattern.
//
// Description:
//
//	Runs up to MaxFailedRounds rounds of MaxAttempts derivations. A
//	derivation whose text does not parse is a grammar bug and fails
//	immediately with a GeneratorError wrapping ErrMalformed; it is
//	never silently discarded. Compatibility rejections and repeats
//	count in Stats and trigger regeneration. When every round fails,
//	Generate returns a GeneratorError wrapping ErrExhausted.
func (g *GrammarGenerator) Generate() (Pattern, error) {
	for round := 0; round < MaxFailedRounds; round++ {
		for attempt := 0; attempt < MaxAttempts; attempt++ {
			d, err := g.expander.Expand()
			if err != nil {
				return Pattern{}, &GeneratorError{Generator: g.Name(), Err: err}
			}
			text := d.Text()
			if _, err := syntax.Parse(text, syntax.Perl); err != nil {
				return Pattern{}, &GeneratorError{
					Generator: g.Name(),
					Err:       fmt.Errorf("%w: %q: %v", ErrMalformed, text, err),
				}
			}
			if !g.cfg.SkipCompatCheck {
				if err := automata.CheckCompat(text, []rune(g.cfg.Alphabet)); err != nil {
					g.stats.Rejected++
					continue
				}
			}
			if g.emitted[text] >= MaxRepeats {
				g.stats.Deduped++
				continue
			}
			g.emitted[text]++
			g.stats.Generated++
			return Pattern{
				Text:      text,
				Generator: g.Name(),
				Seed:      g.cfg.Seed,
				Tree:      d,
			}, nil
		}
		g.stats.FailedRounds++
	}
	return Pattern{}, &GeneratorError{Generator: g.Name(), Err: ErrExhausted}
}

// Stats returns a snapshot of generation counters.
func (g *GrammarGenerator) Stats() Stats { return g.stats }
