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
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInvalid_NeverMatch verifies every produced negative is verified
// against the reference engine, for every method.
func TestInvalid_NeverMatch(t *testing.T) {
	methods := []InvalidMethod{MethodMixed, MethodMutation, MethodRandom, MethodComplement}
	p := testPattern("a+b")
	re := regexp.MustCompile(p.Text)

	for _, m := range methods {
		t.Run(m.String(), func(t *testing.T) {
			gen := NewInvalidGenerator(m, Config{Seed: 11})
			batch, err := gen.Generate(p, 10, LabelShouldNotMatch)
			require.NoError(t, err)
			require.NotEmpty(t, batch, "method %s should find negatives for a+b", m)

			for _, in := range batch {
				assert.False(t, re.MatchString(in.Text), "method %s produced matching %q", m, in.Text)
				assert.Equal(t, LabelShouldNotMatch, in.Label)
				assert.Equal(t, "invalid:"+m.String(), in.Strategy)
			}
		})
	}
}

// TestInvalid_Deterministic verifies seed-stable negative batches.
func TestInvalid_Deterministic(t *testing.T) {
	p := testPattern("^(a|bb)c$")
	run := func(seed int64) []TestInput {
		gen := NewInvalidGenerator(MethodMixed, Config{Seed: seed})
		batch, err := gen.Generate(p, 8, LabelShouldNotMatch)
		require.NoError(t, err)
		return batch
	}
	assert.Equal(t, run(21), run(21))
}

// TestInvalid_SaturatedLanguage verifies a pattern matching every
// string yields an empty batch, not an error or a lie.
func TestInvalid_SaturatedLanguage(t *testing.T) {
	gen := NewInvalidGenerator(MethodMixed, Config{Seed: 2})
	batch, err := gen.Generate(testPattern("a*"), 5, LabelShouldNotMatch)
	require.NoError(t, err)
	assert.Empty(t, batch, "a* matches everything, no honest negative exists")
}

// TestInvalid_RejectsPositiveLabel verifies the label space is closed.
func TestInvalid_RejectsPositiveLabel(t *testing.T) {
	gen := NewInvalidGenerator(MethodRandom, Config{Seed: 1})
	_, err := gen.Generate(testPattern("a"), 5, LabelShouldMatch)
	assert.ErrorIs(t, err, ErrUnsupportedLabel)
}

// TestInvalid_DistinctBatch verifies batches do not repeat strings.
func TestInvalid_DistinctBatch(t *testing.T) {
	gen := NewInvalidGenerator(MethodRandom, Config{Seed: 6})
	batch, err := gen.Generate(testPattern("zzz"), 12, LabelShouldNotMatch)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, in := range batch {
		assert.False(t, seen[in.Text], "duplicate %q", in.Text)
		seen[in.Text] = true
	}
}

// TestParseInvalidMethod verifies the closed method set and default.
func TestParseInvalidMethod(t *testing.T) {
	m, err := ParseInvalidMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodMixed, m)

	for _, name := range []string{"mixed", "mutation", "random", "complement"} {
		m, err := ParseInvalidMethod(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}

	_, err = ParseInvalidMethod("antimatch")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
