// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

func verdictOf(name string, outcome target.Outcome) target.MatchResult {
	return target.MatchResult{Target: name, Outcome: outcome}
}

func errorOf(name string, stage target.Stage, reason string) target.MatchResult {
	return target.MatchResult{
		Target:  name,
		Outcome: target.OutcomeError,
		Stage:   stage,
		Reason:  reason,
	}
}

func shouldMatch(text string) input.TestInput {
	return input.TestInput{Text: text, Label: input.LabelShouldMatch, Strategy: "enumeration"}
}

func TestParseVerdict(t *testing.T) {
	for _, v := range []Verdict{VerdictAgree, VerdictDiverge, VerdictInconclusive} {
		got, err := ParseVerdict(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVerdict("maybe")
	assert.ErrorIs(t, err, ErrUnknownVerdict)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindValidity, KindCross} {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("valid")
	require.NoError(t, err)
	assert.Equal(t, KindValidity, got, "CLI short form")

	_, err = ParseKind("majority")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNew(t *testing.T) {
	o, err := New(KindValidity, target.NameReference)
	require.NoError(t, err)
	assert.Equal(t, KindValidity, o.Kind())

	o, err = New(KindCross, "")
	require.NoError(t, err)
	assert.Equal(t, KindCross, o.Kind())

	_, err = New(Kind("majority"), "")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(KindValidity, "")
	assert.ErrorIs(t, err, ErrNoGroundTruth)
}

func TestValidity_AllAgree(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	j := o.Judge("a+b", shouldMatch("aab"), map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeMatched),
		target.NameRegexp2:   verdictOf(target.NameRegexp2, target.OutcomeMatched),
		target.NameGnark:     verdictOf(target.NameGnark, target.OutcomeMatched),
	})

	assert.Equal(t, VerdictAgree, j.Verdict)
	assert.Equal(t, KindValidity, j.Kind)
	assert.Equal(t, target.NameReference, j.Baseline)
	assert.Empty(t, j.Divergent)
	assert.Empty(t, j.Errored)
	assert.Equal(t, target.OutcomeMatched, j.GroundTruth)
	assert.False(t, j.LabelMismatch)
	assert.False(t, j.IsFinding())
}

func TestValidity_CircuitRejectsLegalInput(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	j := o.Judge("a+b", shouldMatch("aab"), map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeMatched),
		target.NameCircom:    verdictOf(target.NameCircom, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictDiverge, j.Verdict)
	assert.Equal(t, []string{target.NameCircom}, j.Divergent)
	assert.True(t, j.IsFinding())
	assert.Contains(t, j.Reason, `pattern "a+b"`)
	assert.Contains(t, j.Reason, `input "aab"`)
	assert.Contains(t, j.Reason, target.NameCircom)
}

func TestValidity_DivergentSetIsSorted(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeMatched),
		target.NameNoir:      verdictOf(target.NameNoir, target.OutcomeNotMatched),
		target.NameCircom:    verdictOf(target.NameCircom, target.OutcomeNotMatched),
		target.NameGnark:     verdictOf(target.NameGnark, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictDiverge, j.Verdict)
	assert.Equal(t, []string{target.NameCircom, target.NameGnark, target.NameNoir}, j.Divergent)
}

func TestValidity_GroundTruthErrored(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	j := o.Judge("a+b", shouldMatch("aab"), map[string]target.MatchResult{
		target.NameReference: errorOf(target.NameReference, target.StageMatch, "panic"),
		target.NameCircom:    verdictOf(target.NameCircom, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictInconclusive, j.Verdict)
	assert.Empty(t, j.Divergent)
	assert.Equal(t, []string{target.NameReference}, j.Errored)
	assert.Contains(t, j.Reason, "ground truth")
}

func TestValidity_GroundTruthMissing(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameCircom: verdictOf(target.NameCircom, target.OutcomeMatched),
	})

	assert.Equal(t, VerdictInconclusive, j.Verdict)
	assert.Contains(t, j.Reason, "no result")
}

func TestValidity_ErrorOnAcceptedInputDiverges(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	j := o.Judge("a+b", shouldMatch("aab"), map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeMatched),
		target.NameNoir:      errorOf(target.NameNoir, target.StageWitness, "solver crash"),
	})

	assert.Equal(t, VerdictDiverge, j.Verdict)
	assert.Equal(t, []string{target.NameNoir}, j.Divergent)
	assert.Equal(t, []string{target.NameNoir}, j.Errored)
}

func TestValidity_ErrorOnRejectedInputIsInconclusive(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	in := input.TestInput{Text: "zzz", Label: input.LabelShouldNotMatch, Strategy: "invalid:random"}
	j := o.Judge("a+b", in, map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeNotMatched),
		target.NameRegexp2:   errorOf(target.NameRegexp2, target.StageMatch, "match timeout"),
		target.NameGnark:     verdictOf(target.NameGnark, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictInconclusive, j.Verdict)
	assert.Empty(t, j.Divergent)
	assert.Equal(t, []string{target.NameRegexp2}, j.Errored)
	assert.False(t, j.LabelMismatch)
}

func TestValidity_LabelMismatchDoesNotChangeVerdict(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	// Generator claimed should-match, ground truth rejects, and every
	// target agrees with ground truth: the verdict stays agree and the
	// mismatch is flagged for the campaign to triage.
	j := o.Judge("a+b", shouldMatch("ba"), map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeNotMatched),
		target.NameGnark:     verdictOf(target.NameGnark, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictAgree, j.Verdict)
	assert.True(t, j.LabelMismatch)
	assert.Equal(t, target.OutcomeNotMatched, j.GroundTruth)
}

func TestCross_Split(t *testing.T) {
	o := NewCross()

	j := o.Judge("a|b", shouldMatch("b"), map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeMatched),
		target.NameRegexp2:   verdictOf(target.NameRegexp2, target.OutcomeMatched),
		target.NameCircom:    verdictOf(target.NameCircom, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictDiverge, j.Verdict)
	assert.Equal(t, []string{target.NameCircom}, j.Divergent, "minority side nominated")
	assert.Contains(t, j.Reason, "matched by")
	assert.Contains(t, j.Reason, "rejected by")
	assert.True(t, j.IsFinding())
}

func TestCross_EvenSplitNominatesMatchedSide(t *testing.T) {
	o := NewCross()

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameGnark:  verdictOf(target.NameGnark, target.OutcomeMatched),
		target.NameCircom: verdictOf(target.NameCircom, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictDiverge, j.Verdict)
	assert.Equal(t, []string{target.NameGnark}, j.Divergent)
}

func TestCross_SplitOutranksErrors(t *testing.T) {
	o := NewCross()

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameGnark:  verdictOf(target.NameGnark, target.OutcomeMatched),
		target.NameCircom: verdictOf(target.NameCircom, target.OutcomeNotMatched),
		target.NameNoir:   errorOf(target.NameNoir, target.StageProve, "oom"),
	})

	assert.Equal(t, VerdictDiverge, j.Verdict)
	assert.Equal(t, []string{target.NameNoir}, j.Errored)
}

func TestCross_ErrorsWithoutSplitAreInconclusive(t *testing.T) {
	o := NewCross()

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameGnark: verdictOf(target.NameGnark, target.OutcomeMatched),
		target.NameNoir:  errorOf(target.NameNoir, target.StageWitness, "crash"),
	})

	assert.Equal(t, VerdictInconclusive, j.Verdict)
	assert.Empty(t, j.Divergent)
}

func TestCross_Unanimous(t *testing.T) {
	o := NewCross()

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameGnark:  verdictOf(target.NameGnark, target.OutcomeNotMatched),
		target.NameCircom: verdictOf(target.NameCircom, target.OutcomeNotMatched),
	})

	assert.Equal(t, VerdictAgree, j.Verdict)
	assert.Empty(t, j.GroundTruth, "cross judgments carry no ground truth")
	assert.False(t, j.LabelMismatch)
}

func TestCross_NoResults(t *testing.T) {
	o := NewCross()

	j := o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{})
	assert.Equal(t, VerdictInconclusive, j.Verdict)

	j = o.Judge("a", shouldMatch("a"), map[string]target.MatchResult{
		target.NameNoir: errorOf(target.NameNoir, target.StageCompile, "gone"),
	})
	assert.Equal(t, VerdictInconclusive, j.Verdict)
}

func TestJudge_Deterministic(t *testing.T) {
	o, err := NewValidity(target.NameReference)
	require.NoError(t, err)

	results := map[string]target.MatchResult{
		target.NameReference: verdictOf(target.NameReference, target.OutcomeMatched),
		target.NameNoir:      verdictOf(target.NameNoir, target.OutcomeNotMatched),
		target.NameCircom:    errorOf(target.NameCircom, target.StageWitness, "crash"),
		target.NameGnark:     verdictOf(target.NameGnark, target.OutcomeNotMatched),
	}

	first := o.Judge("a+b", shouldMatch("ab"), results)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, o.Judge("a+b", shouldMatch("ab"), results))
	}
}
