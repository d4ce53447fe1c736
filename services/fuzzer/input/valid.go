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
	"math/rand"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/automata"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
)

// randomSampleFactor bounds how many walks the random strategy takes
// while collecting distinct inputs.
const randomSampleFactor = 10

// EnumerationGenerator exhaustively lists matching strings up to the
// length bound. Its should-match labels are ground truth: every
// returned string provably matches under reference semantics.
type EnumerationGenerator struct {
	cfg Config
}

// NewEnumerationGenerator builds the ground-truth strategy.
func NewEnumerationGenerator(cfg Config) *EnumerationGenerator {
	cfg.ApplyDefaults()
	return &EnumerationGenerator{cfg: cfg}
}

// Name implements Generator.
func (e *EnumerationGenerator) Name() string { return "enumeration" }

// Generate implements Generator for LabelShouldMatch.
//
// A DFA construction failure here is a generator-class fault: the
// pattern generator already parse-validated the text, so failing to
// determinize it means the pipeline itself is broken.
func (e *EnumerationGenerator) Generate(p pattern.Pattern, count int, label Label) ([]TestInput, error) {
	if label != LabelShouldMatch {
		return nil, fmt.Errorf("%w: enumeration produces should-match only", ErrUnsupportedLabel)
	}
	d, err := automata.CompileFind(p.Text, []rune(e.cfg.Alphabet))
	if err != nil {
		return nil, &pattern.GeneratorError{Generator: e.Name(), Err: err}
	}
	texts := d.Enumerate(e.cfg.MaxLen, count)
	out := make([]TestInput, 0, len(texts))
	for _, t := range texts {
		out = append(out, TestInput{Text: t, Label: label, Strategy: e.Name()})
	}
	return out, nil
}

// RandomGenerator samples matching strings by seeded accepted-path
// walks. Labels are hints under the oracle even though walks accept by
// construction.
type RandomGenerator struct {
	cfg Config
	rng *rand.Rand
}

// NewRandomGenerator builds the sampling strategy.
func NewRandomGenerator(cfg Config) *RandomGenerator {
	cfg.ApplyDefaults()
	return &RandomGenerator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Name implements Generator.
func (r *RandomGenerator) Name() string { return "random" }

// Generate implements Generator for LabelShouldMatch. Collects up to
// count distinct samples within a bounded number of walks; small
// languages yield short batches.
func (r *RandomGenerator) Generate(p pattern.Pattern, count int, label Label) ([]TestInput, error) {
	if label != LabelShouldMatch {
		return nil, fmt.Errorf("%w: random produces should-match only", ErrUnsupportedLabel)
	}
	d, err := automata.CompileFind(p.Text, []rune(r.cfg.Alphabet))
	if err != nil {
		return nil, &pattern.GeneratorError{Generator: r.Name(), Err: err}
	}

	seen := make(map[string]bool, count)
	out := make([]TestInput, 0, count)
	for attempt := 0; attempt < count*randomSampleFactor && len(out) < count; attempt++ {
		s, ok := d.RandomAccepted(r.rng, r.cfg.MaxLen)
		if !ok {
			break
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, TestInput{Text: s, Label: label, Strategy: r.Name()})
	}
	return out, nil
}
