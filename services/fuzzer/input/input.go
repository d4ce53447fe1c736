// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package input

import (
	"fmt"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
)

// DefaultMaxLen bounds generated input length in runes.
const DefaultMaxLen = 6

// Label is the intent the generator attaches to an input. Only
// enumeration-derived should-match labels are ground truth; everything
// else is a hint the oracle weighs accordingly.
type Label int

const (
	// LabelShouldMatch marks inputs intended to match the pattern.
	LabelShouldMatch Label = iota

	// LabelShouldNotMatch marks inputs intended to miss the pattern.
	LabelShouldNotMatch
)

// String returns the corpus-metadata form of the label.
func (l Label) String() string {
	switch l {
	case LabelShouldMatch:
		return "should-match"
	case LabelShouldNotMatch:
		return "should-not-match"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// ParseLabel resolves the corpus-metadata form back to a Label.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "should-match":
		return LabelShouldMatch, nil
	case "should-not-match":
		return LabelShouldNotMatch, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
}

// TestInput is one string to execute against every target. Immutable.
type TestInput struct {
	// Text is the raw input string.
	Text string

	// Label records the generator's intent.
	Label Label

	// Strategy names the strategy that produced the input, recorded in
	// corpus metadata.
	Strategy string
}

// Generator produces a batch of inputs for one pattern.
type Generator interface {
	// Name identifies the strategy in stats and metadata.
	Name() string

	// Generate returns up to count inputs carrying label. Batches may
	// be shorter when the pattern's language (or co-language) is too
	// small within the length bound.
	Generate(p pattern.Pattern, count int, label Label) ([]TestInput, error)
}

// Config controls input generation.
type Config struct {
	// Seed drives sampling strategies. Enumeration ignores it.
	Seed int64

	// MaxLen bounds input length in runes. Zero means DefaultMaxLen.
	MaxLen int

	// Alphabet is the universe inputs are built over. Zero value means
	// lowercase.
	Alphabet grammar.Alphabet
}

// ApplyDefaults fills zero-value fields in place.
func (c *Config) ApplyDefaults() {
	if c.MaxLen <= 0 {
		c.MaxLen = DefaultMaxLen
	}
	if len(c.Alphabet) == 0 {
		c.Alphabet = grammar.AlphabetLower
	}
}

// NewValidGenerator resolves a valid-input strategy name. The set is
// closed: enumeration or random.
func NewValidGenerator(strategy string, cfg Config) (Generator, error) {
	switch strategy {
	case "enumeration", "":
		return NewEnumerationGenerator(cfg), nil
	case "random":
		return NewRandomGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}
