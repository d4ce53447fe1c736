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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/automata"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// singlePatternGrammar always derives exactly one pattern.
func singlePatternGrammar(t *testing.T, text string) *grammar.Grammar {
	t.Helper()
	g := &grammar.Grammar{
		Start: "<start>",
		Rules: map[string][]string{"<start>": {text}},
	}
	require.NoError(t, g.Validate())
	return g
}

// TestGrammarGenerator_Deterministic verifies seed-stable pattern
// streams.
func TestGrammarGenerator_Deterministic(t *testing.T) {
	g, err := grammar.Builtin()
	require.NoError(t, err)

	stream := func(seed int64) []string {
		gen, err := NewGrammarGenerator(g, Config{Seed: seed})
		require.NoError(t, err)
		out := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			p, err := gen.Generate()
			require.NoError(t, err)
			out = append(out, p.Text)
		}
		return out
	}

	assert.Equal(t, stream(42), stream(42), "same seed must reproduce the stream")
	assert.NotEqual(t, stream(42), stream(1042), "different seeds should diverge")
}

// TestGrammarGenerator_CompatGate verifies every emitted pattern passes
// the circuit compatibility checks.
func TestGrammarGenerator_CompatGate(t *testing.T) {
	g, err := grammar.Builtin()
	require.NoError(t, err)

	gen, err := NewGrammarGenerator(g, Config{Seed: 7})
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		p, err := gen.Generate()
		require.NoError(t, err)
		assert.NoError(t, automata.CheckCompat(p.Text, []rune(grammar.AlphabetLower)),
			"emitted pattern %q must be circuit compatible", p.Text)
		assert.Equal(t, "grammar", p.Generator)
		assert.Equal(t, int64(7), p.Seed)
		assert.NotNil(t, p.Tree)
	}
}

// TestGrammarGenerator_RejectsIncompatible verifies a grammar that can
// only produce incompatible patterns exhausts with counted rejections.
func TestGrammarGenerator_RejectsIncompatible(t *testing.T) {
	gen, err := NewGrammarGenerator(singlePatternGrammar(t, "a*b"), Config{Seed: 1})
	require.NoError(t, err)

	_, err = gen.Generate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.True(t, IsGeneratorError(err))

	stats := gen.Stats()
	assert.Equal(t, int64(MaxFailedRounds*MaxAttempts), stats.Rejected)
	assert.Equal(t, int64(MaxFailedRounds), stats.FailedRounds)
	assert.Zero(t, stats.Generated)
}

// TestGrammarGenerator_SkipCompat verifies the gate can be disabled for
// software-only campaigns.
func TestGrammarGenerator_SkipCompat(t *testing.T) {
	gen, err := NewGrammarGenerator(singlePatternGrammar(t, "a*b"), Config{Seed: 1, SkipCompatCheck: true})
	require.NoError(t, err)

	p, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, "a*b", p.Text)
}

// TestGrammarGenerator_Dedup verifies an identical pattern is emitted
// at most MaxRepeats times before the generator gives up.
func TestGrammarGenerator_Dedup(t *testing.T) {
	gen, err := NewGrammarGenerator(singlePatternGrammar(t, "^ab$"), Config{Seed: 1})
	require.NoError(t, err)

	for i := 0; i < MaxRepeats; i++ {
		p, err := gen.Generate()
		require.NoError(t, err, "repeat %d should still be allowed", i+1)
		assert.Equal(t, "^ab$", p.Text)
	}

	_, err = gen.Generate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int64(MaxFailedRounds*MaxAttempts), gen.Stats().Deduped)
}

// TestGrammarGenerator_MalformedIsFatal verifies an unparsable emitted
// pattern fails immediately instead of being regenerated.
func TestGrammarGenerator_MalformedIsFatal(t *testing.T) {
	gen, err := NewGrammarGenerator(singlePatternGrammar(t, "a("), Config{Seed: 1})
	require.NoError(t, err)

	_, err = gen.Generate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.True(t, IsGeneratorError(err))
	assert.Zero(t, gen.Stats().FailedRounds, "malformed output must not look like a failed round")
}
