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
	"regexp"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/automata"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
)

// MaxInvalidAttempts bounds candidate generation per returned input.
// Candidates that still match the reference engine are discarded and
// retried within this budget.
const MaxInvalidAttempts = 50

// mutationSeedCount is how many matching strings the mutation method
// keeps around as perturbation sources.
const mutationSeedCount = 10

// InvalidMethod selects how should-not-match candidates are built.
type InvalidMethod int

const (
	// MethodMixed rotates over mutation, random, and complement.
	MethodMixed InvalidMethod = iota

	// MethodMutation perturbs a known-matching string.
	MethodMutation

	// MethodRandom draws uniform random strings over the alphabet.
	MethodRandom

	// MethodComplement walks the DFA into rejecting states.
	MethodComplement
)

// String returns the configuration name of the method.
func (m InvalidMethod) String() string {
	switch m {
	case MethodMixed:
		return "mixed"
	case MethodMutation:
		return "mutation"
	case MethodRandom:
		return "random"
	case MethodComplement:
		return "complement"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseInvalidMethod resolves a configuration name. Empty defaults to
// mixed.
func ParseInvalidMethod(s string) (InvalidMethod, error) {
	switch s {
	case "", "mixed":
		return MethodMixed, nil
	case "mutation":
		return MethodMutation, nil
	case "random":
		return MethodRandom, nil
	case "complement":
		return MethodComplement, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// InvalidGenerator builds should-not-match inputs. Every candidate is
// verified against the reference engine before labeling, so labels are
// honest hints; a pattern matching all strings over the alphabet
// yields an empty batch.
type InvalidGenerator struct {
	cfg    Config
	method InvalidMethod
	rng    *rand.Rand
}

// NewInvalidGenerator builds a negative-input generator.
func NewInvalidGenerator(method InvalidMethod, cfg Config) *InvalidGenerator {
	cfg.ApplyDefaults()
	return &InvalidGenerator{
		cfg:    cfg,
		method: method,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Name implements Generator.
func (g *InvalidGenerator) Name() string { return "invalid:" + g.method.String() }

// Generate implements Generator for LabelShouldNotMatch.
func (g *InvalidGenerator) Generate(p pattern.Pattern, count int, label Label) ([]TestInput, error) {
	if label != LabelShouldNotMatch {
		return nil, fmt.Errorf("%w: %s produces should-not-match only", ErrUnsupportedLabel, g.Name())
	}
	re, err := regexp.Compile(p.Text)
	if err != nil {
		return nil, &pattern.GeneratorError{Generator: g.Name(), Err: err}
	}
	d, err := automata.CompileFind(p.Text, []rune(g.cfg.Alphabet))
	if err != nil {
		return nil, &pattern.GeneratorError{Generator: g.Name(), Err: err}
	}

	// Matching strings seed the mutation method. An empty seed set just
	// disables mutation candidates.
	seeds := d.Enumerate(g.cfg.MaxLen, mutationSeedCount)

	seen := make(map[string]bool, count)
	out := make([]TestInput, 0, count)
	for len(out) < count {
		produced := false
		for attempt := 0; attempt < MaxInvalidAttempts; attempt++ {
			candidate, ok := g.candidate(d, seeds, attempt)
			if !ok || seen[candidate] {
				continue
			}
			if re.MatchString(candidate) {
				continue
			}
			seen[candidate] = true
			out = append(out, TestInput{Text: candidate, Label: label, Strategy: g.Name()})
			produced = true
			break
		}
		if !produced {
			break
		}
	}
	return out, nil
}

func (g *InvalidGenerator) candidate(d *automata.DFA, seeds []string, attempt int) (string, bool) {
	method := g.method
	if method == MethodMixed {
		rotation := []InvalidMethod{MethodMutation, MethodRandom, MethodComplement}
		method = rotation[attempt%len(rotation)]
	}
	switch method {
	case MethodMutation:
		if len(seeds) == 0 {
			return "", false
		}
		return g.mutate(seeds[g.rng.Intn(len(seeds))]), true
	case MethodRandom:
		return g.randomString(), true
	case MethodComplement:
		return d.RandomRejected(g.rng, g.cfg.MaxLen)
	default:
		return "", false
	}
}

// mutate applies one random perturbation: substitution, truncation, or
// insertion.
func (g *InvalidGenerator) mutate(s string) string {
	runes := []rune(s)
	op := g.rng.Intn(3)
	if len(runes) == 0 {
		op = 2
	}
	switch op {
	case 0: // substitute
		runes[g.rng.Intn(len(runes))] = g.randomRune()
		return string(runes)
	case 1: // truncate
		return string(runes[:g.rng.Intn(len(runes))])
	default: // insert, or substitute when already at the length cap
		if len(runes) >= g.cfg.MaxLen {
			runes[g.rng.Intn(len(runes))] = g.randomRune()
			return string(runes)
		}
		pos := g.rng.Intn(len(runes) + 1)
		out := make([]rune, 0, len(runes)+1)
		out = append(out, runes[:pos]...)
		out = append(out, g.randomRune())
		out = append(out, runes[pos:]...)
		return string(out)
	}
}

func (g *InvalidGenerator) randomString() string {
	n := g.rng.Intn(g.cfg.MaxLen + 1)
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = g.randomRune()
	}
	return string(runes)
}

func (g *InvalidGenerator) randomRune() rune {
	return g.cfg.Alphabet[g.rng.Intn(len(g.cfg.Alphabet))]
}
