// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package target

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// =============================================================================
// Fixtures
// =============================================================================

func newTestTarget(t *testing.T, name string) Target {
	t.Helper()
	tgt, err := New(context.Background(), name, Config{
		Alphabet:    grammar.Alphabet("ab"),
		MaxInputLen: 8,
	})
	require.NoError(t, err)
	return tgt
}

func compileTestPattern(t *testing.T, tgt Target, pattern string) Artifact {
	t.Helper()
	art, err := tgt.Compile(context.Background(), pattern)
	require.NoError(t, err)
	t.Cleanup(func() { art.Close() })
	return art
}

// =============================================================================
// Registry
// =============================================================================

func TestNames(t *testing.T) {
	assert.Equal(t,
		[]string{NameReference, NameRegexp2, NameGnark, NameCircom, NameNoir},
		Names())
}

func TestNew_UnknownTarget(t *testing.T) {
	_, err := New(context.Background(), "pcre", Config{})
	require.ErrorIs(t, err, ErrUnknownTarget)
	assert.Contains(t, err.Error(), "pcre")
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, grammar.AlphabetLower, cfg.Alphabet)
	assert.Equal(t, DefaultMaxInputLen, cfg.MaxInputLen)
	assert.Equal(t, DefaultCompileTimeout, cfg.CompileTimeout)
	assert.Equal(t, DefaultExecuteTimeout, cfg.ExecuteTimeout)
}

func TestConfig_ApplyDefaultsKeepsExplicit(t *testing.T) {
	cfg := Config{
		Alphabet:       grammar.Alphabet("01"),
		MaxInputLen:    4,
		CompileTimeout: time.Second,
		ExecuteTimeout: 2 * time.Second,
	}
	cfg.ApplyDefaults()

	assert.Equal(t, grammar.Alphabet("01"), cfg.Alphabet)
	assert.Equal(t, 4, cfg.MaxInputLen)
	assert.Equal(t, time.Second, cfg.CompileTimeout)
	assert.Equal(t, 2*time.Second, cfg.ExecuteTimeout)
}

// =============================================================================
// Reference Target
// =============================================================================

func TestReference_FindSemantics(t *testing.T) {
	tgt := newTestTarget(t, NameReference)
	art := compileTestPattern(t, tgt, "a+b")

	tests := []struct {
		input     string
		matched   bool
		substring string
		span      []int
	}{
		{"aab", true, "aab", []int{0, 3}},
		{"bbaab", true, "aab", []int{2, 5}},
		{"ab", true, "ab", []int{0, 2}},
		{"b", false, "", nil},
		{"aaaa", false, "", nil},
		{"", false, "", nil},
	}
	for _, tc := range tests {
		res := tgt.Execute(context.Background(), art, tc.input)
		require.False(t, res.Errored(), "input %q: %s", tc.input, res.Reason)
		assert.Equal(t, tc.matched, res.Matched(), "input %q", tc.input)
		assert.Equal(t, tc.substring, res.Substring, "input %q", tc.input)
		assert.Equal(t, tc.span, res.Span, "input %q", tc.input)
	}
}

func TestReference_CompileFailure(t *testing.T) {
	tgt := newTestTarget(t, NameReference)
	_, err := tgt.Compile(context.Background(), "a(")
	require.Error(t, err)
	require.True(t, IsToolchainError(err))

	var te *ToolchainError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, NameReference, te.Target)
	assert.Equal(t, StageCompile, te.Stage)
}

func TestReference_IgnoresCircuitWindow(t *testing.T) {
	// Ground truth must execute any input, including ones the circuit
	// targets reject for exceeding the window.
	tgt, err := New(context.Background(), NameReference, Config{
		Alphabet:    grammar.Alphabet("ab"),
		MaxInputLen: 4,
	})
	require.NoError(t, err)
	art := compileTestPattern(t, tgt, "a+")

	res := tgt.Execute(context.Background(), art, "aaaaaaaa")
	assert.True(t, res.Matched())
	assert.Equal(t, "aaaaaaaa", res.Substring)
}

func TestReference_WrongArtifact(t *testing.T) {
	ref := newTestTarget(t, NameReference)
	r2 := newTestTarget(t, NameRegexp2)
	art := compileTestPattern(t, r2, "a")

	res := ref.Execute(context.Background(), art, "a")
	assert.True(t, res.Errored())
	assert.Equal(t, StageMatch, res.Stage)
}

// =============================================================================
// Regexp2 Target
// =============================================================================

func TestRegexp2_AgreesWithReference(t *testing.T) {
	ref := newTestTarget(t, NameReference)
	r2 := newTestTarget(t, NameRegexp2)

	patterns := []string{"a+b", "(ab)*", "a|bb", "a*b+a*", "(a|b)(a|b)"}
	inputs := enumerateInputs("ab", 3)

	for _, pattern := range patterns {
		refArt := compileTestPattern(t, ref, pattern)
		r2Art := compileTestPattern(t, r2, pattern)
		for _, in := range inputs {
			want := ref.Execute(context.Background(), refArt, in)
			got := r2.Execute(context.Background(), r2Art, in)
			require.False(t, want.Errored())
			require.False(t, got.Errored(), "pattern %q input %q: %s", pattern, in, got.Reason)
			assert.Equal(t, want.Matched(), got.Matched(), "pattern %q input %q", pattern, in)
			assert.Equal(t, want.Substring, got.Substring, "pattern %q input %q", pattern, in)
			assert.Equal(t, want.Span, got.Span, "pattern %q input %q", pattern, in)
		}
	}
}

func TestRegexp2_CompileFailure(t *testing.T) {
	tgt := newTestTarget(t, NameRegexp2)
	_, err := tgt.Compile(context.Background(), "a(")
	require.Error(t, err)

	var te *ToolchainError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, NameRegexp2, te.Target)
	assert.Equal(t, StageCompile, te.Stage)
}

// enumerateInputs lists every string over alphabet with length 0
// through maxLen.
func enumerateInputs(alphabet string, maxLen int) []string {
	out := []string{""}
	frontier := []string{""}
	for l := 0; l < maxLen; l++ {
		var next []string
		for _, prefix := range frontier {
			for _, r := range alphabet {
				next = append(next, prefix+string(r))
			}
		}
		out = append(out, next...)
		frontier = next
	}
	return out
}

// =============================================================================
// Results
// =============================================================================

func TestMatchResult_Predicates(t *testing.T) {
	assert.True(t, MatchResult{Outcome: OutcomeMatched}.Matched())
	assert.False(t, MatchResult{Outcome: OutcomeNotMatched}.Matched())
	assert.True(t, MatchResult{Outcome: OutcomeError}.Errored())
	assert.False(t, MatchResult{Outcome: OutcomeMatched}.Errored())
}

func TestErrorResult_CarriesStageAndReason(t *testing.T) {
	res := errorResult(NameGnark, StageWitness, time.Now(), assert.AnError)
	assert.True(t, res.Errored())
	assert.Equal(t, NameGnark, res.Target)
	assert.Equal(t, StageWitness, res.Stage)
	assert.Equal(t, assert.AnError.Error(), res.Reason)
}
