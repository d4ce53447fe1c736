// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/pkg/ux"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/cache"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/corpus"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// =============================================================================
// Fixtures
// =============================================================================

func openStore(t *testing.T) *corpus.Store {
	t.Helper()
	s, err := corpus.Open(t.TempDir(), corpus.WithInMemoryIndex())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func divergence(pattern, text string) corpus.Entry {
	return corpus.Entry{
		Pattern: pattern,
		Input:   input.TestInput{Text: text, Label: input.LabelShouldMatch, Strategy: "enumeration"},
		Judgment: oracle.Judgment{
			Kind:        oracle.KindValidity,
			Verdict:     oracle.VerdictDiverge,
			Baseline:    target.NameReference,
			Divergent:   []string{target.NameCircom},
			GroundTruth: target.OutcomeMatched,
			Reason:      "recorded divergence",
		},
		Results: map[string]target.MatchResult{
			target.NameReference: {Target: target.NameReference, Outcome: target.OutcomeMatched},
			target.NameCircom:    {Target: target.NameCircom, Outcome: target.OutcomeNotMatched},
		},
	}
}

func campaignStats(runID string) campaign.Stats {
	return campaign.Stats{
		RunID:           runID,
		State:           campaign.StateStopped,
		OracleKind:      string(oracle.KindValidity),
		Iterations:      40,
		Inputs:          200,
		Executions:      600,
		ExecutionErrors: 3,
		Agreements:      190,
		Divergences:     2,
		Inconclusives:   8,
		SavedEntries:    2,
		ActiveTargets:   []string{target.NameGnark, target.NameReference},
		DisabledTargets: map[string]string{target.NameCircom: "codegen: zk-regex rejected the pattern"},
		Cache:           cache.CacheStats{Hits: 150, Misses: 50, Compiles: 50},
	}
}

// putRun journals a finished run with a stats snapshot.
func putRun(t *testing.T, s *corpus.Store, runID string, started time.Time) {
	t.Helper()
	summary, err := json.Marshal(campaignStats(runID))
	require.NoError(t, err)
	finished := started.Add(90 * time.Second)
	require.NoError(t, s.PutRun(context.Background(), corpus.RunRecord{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: &finished,
		Config:     json.RawMessage(`{"seed":7}`),
		Summary:    summary,
	}))
}

// =============================================================================
// Assembly
// =============================================================================

func TestFromStore_ResolvesLatestRun(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	putRun(t, store, "run-old", base)
	putRun(t, store, "run-new", base.Add(time.Hour))

	_, dup, err := store.Save(ctx, "run-new", divergence("a+b", "aab"))
	require.NoError(t, err)
	require.False(t, dup)

	rep, err := FromStore(ctx, store, "")
	require.NoError(t, err)

	assert.Equal(t, "run-new", rep.RunID)
	require.NotNil(t, rep.Stats)
	assert.Equal(t, int64(2), rep.Stats.Divergences)
	assert.Equal(t, map[string]any{"seed": float64(7)}, rep.Config)
	assert.Equal(t, 90*time.Second, rep.Elapsed())

	require.Len(t, rep.Findings, 1)
	assert.Equal(t, "a+b", rep.Findings[0].Pattern)
	assert.Equal(t, "aab", rep.Findings[0].Input)
	assert.Equal(t, oracle.VerdictDiverge, rep.Findings[0].Verdict)
	assert.Equal(t, []string{target.NameCircom}, rep.Findings[0].Divergent)
}

func TestFromStore_ExplicitRun(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	putRun(t, store, "run-old", base)
	putRun(t, store, "run-new", base.Add(time.Hour))

	rep, err := FromStore(ctx, store, "run-old")
	require.NoError(t, err)
	assert.Equal(t, "run-old", rep.RunID)
	assert.Empty(t, rep.Findings)
}

func TestFromStore_UnknownRun(t *testing.T) {
	store := openStore(t)
	_, err := FromStore(context.Background(), store, "run-missing")
	assert.ErrorIs(t, err, corpus.ErrRunNotFound)
}

func TestFromStore_EmptyJournal(t *testing.T) {
	store := openStore(t)
	_, err := FromStore(context.Background(), store, "")
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestFromScan(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := corpus.Open(root, corpus.WithInMemoryIndex())
	require.NoError(t, err)
	defer store.Close()

	_, _, err = store.Save(ctx, "run-a", divergence("ab", "ab"))
	require.NoError(t, err)
	_, _, err = store.Save(ctx, "run-b", divergence("a+", "aa"))
	require.NoError(t, err)

	all, err := FromScan(root, "")
	require.NoError(t, err)
	assert.Len(t, all.Findings, 2)
	assert.Nil(t, all.Stats)

	one, err := FromScan(root, "run-b")
	require.NoError(t, err)
	require.Len(t, one.Findings, 1)
	assert.Equal(t, "a+", one.Findings[0].Pattern)
}

func TestFromScan_Empty(t *testing.T) {
	_, err := FromScan(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNoEntries)
}

// =============================================================================
// Rendering
// =============================================================================

// withMode pins the global output mode for one test.
func withMode(t *testing.T, m ux.OutputMode) {
	t.Helper()
	prev := ux.GetMode()
	ux.SetMode(m)
	t.Cleanup(func() { ux.SetMode(prev) })
}

func sampleReport() *Report {
	started := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	stats := campaignStats("run-render")
	return &Report{
		RunID:      "run-render",
		StartedAt:  started,
		FinishedAt: &finished,
		Stats:      &stats,
		Findings: []Finding{{
			Dir:       "/corpus/run-render/entry-1",
			Pattern:   "a+b",
			Input:     "aab",
			Verdict:   oracle.VerdictDiverge,
			Divergent: []string{target.NameCircom},
		}},
	}
}

func TestRender_Machine(t *testing.T) {
	withMode(t, ux.ModeMachine)

	var buf bytes.Buffer
	sampleReport().Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "run=run-render\n")
	assert.Contains(t, out, "divergences=2\n")
	assert.Contains(t, out, "cache_hit_rate=0.750\n")
	assert.Contains(t, out, "disabled_target=circom")
	assert.Contains(t, out, "findings=1\n")
	assert.Contains(t, out, `pattern="a+b"`)
}

func TestRender_Styled(t *testing.T) {
	withMode(t, ux.ModePlain)

	var buf bytes.Buffer
	sampleReport().Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "zkfuzz campaign report")
	assert.Contains(t, out, "run-render")
	assert.Contains(t, out, `"a+b"`)
	assert.Contains(t, out, "circom disabled:")
	assert.Contains(t, out, "divergence(s) recorded")
}

func TestRender_NoFindings(t *testing.T) {
	withMode(t, ux.ModePlain)

	rep := sampleReport()
	rep.Findings = nil
	rep.Stats.Divergences = 0

	var buf bytes.Buffer
	rep.Render(&buf)
	assert.Contains(t, buf.String(), "no divergences")
}
