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
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/corpus"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
)

// =============================================================================
// Report Types
// =============================================================================

// Finding is one persisted divergence, loaded for display.
type Finding struct {
	// Dir is the entry directory.
	Dir string `json:"dir"`

	// Pattern and Input are the replayable texts. Empty when the entry
	// files have been cleaned up from under the index.
	Pattern string `json:"pattern"`
	Input   string `json:"input"`

	// Label is the generator's intended label in corpus form.
	Label string `json:"label"`

	// Verdict is the recorded oracle verdict.
	Verdict oracle.Verdict `json:"verdict"`

	// Divergent and Errored are the recorded target sets.
	Divergent []string `json:"divergent,omitempty"`
	Errored   []string `json:"errored,omitempty"`

	// CreatedAt is the capture timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// Report is one campaign's assembled summary.
type Report struct {
	// RunID identifies the run. Empty for a whole-corpus scan.
	RunID string `json:"run_id,omitempty"`

	// StartedAt and FinishedAt bracket the run when the journal knows
	// them. FinishedAt is nil for a run that died without finishing.
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Stats is the campaign's last journaled snapshot. Nil when the
	// report was assembled from a bare scan.
	Stats *campaign.Stats `json:"stats,omitempty"`

	// Config is the decoded campaign config snapshot for display.
	Config map[string]any `json:"config,omitempty"`

	// Findings are the run's persisted divergences in capture order.
	Findings []Finding `json:"findings"`
}

// Elapsed returns the run duration: journaled finish minus start, or
// the stats snapshot's elapsed time for an unfinished run.
func (r *Report) Elapsed() time.Duration {
	switch {
	case r.FinishedAt != nil:
		return r.FinishedAt.Sub(r.StartedAt)
	case r.Stats != nil:
		return r.Stats.Elapsed
	default:
		return 0
	}
}

// =============================================================================
// Assembly
// =============================================================================

// FromStore assembles a run's report from the journal and index.
//
// Description:
//
//	Resolves runID against the journal (empty selects the most
//	recently started run), decodes the stats and config snapshots, and
//	loads every indexed entry. Entry directories removed by external
//	cleanup still appear, with their metadata but without the
//	replayable texts.
//
// Inputs:
//
//	ctx - Bounds the index reads.
//	store - The corpus store.
//	runID - The run to report on, or empty for the latest.
//
// Outputs:
//
//	*Report - The assembled report.
//	error - ErrNoRuns, corpus.ErrRunNotFound, or an index error.
func FromStore(ctx context.Context, store *corpus.Store, runID string) (*Report, error) {
	if runID == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, ErrNoRuns
		}
		runID = runs[len(runs)-1].ID
	}

	rec, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:      rec.ID,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
	if len(rec.Summary) > 0 {
		var stats campaign.Stats
		if err := json.Unmarshal(rec.Summary, &stats); err != nil {
			return nil, fmt.Errorf("run %s: decoding stats snapshot: %w", runID, err)
		}
		rep.Stats = &stats
	}
	if len(rec.Config) > 0 {
		// Display only; an undecodable snapshot loses nothing else.
		_ = json.Unmarshal(rec.Config, &rep.Config)
	}

	metas, err := store.Entries(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, meta := range metas {
		rep.Findings = append(rep.Findings, loadFinding(store.EntryDir(meta.RunID, meta.EntryID), meta))
	}
	return rep, nil
}

// FromScan assembles a report by walking a corpus root directly.
//
// Description:
//
//	Index-free fallback for corpora without a usable .index: every
//	entry directory under root is loaded, optionally filtered to one
//	run. No campaign stats are available this way, so the report
//	carries findings only.
//
// Inputs:
//
//	root - The corpus root directory.
//	runID - Keep only this run's entries; empty keeps all.
//
// Outputs:
//
//	*Report - Findings-only report.
//	error - ErrNoEntries or a walk error.
func FromScan(root, runID string) (*Report, error) {
	dirs, err := corpus.Scan(root)
	if err != nil {
		return nil, err
	}

	rep := &Report{RunID: runID}
	for _, dir := range dirs {
		entry, err := corpus.LoadEntry(dir)
		if err != nil {
			continue
		}
		if runID != "" && entry.Metadata.RunID != runID {
			continue
		}
		rep.Findings = append(rep.Findings, Finding{
			Dir:       dir,
			Pattern:   entry.Pattern,
			Input:     entry.Input.Text,
			Label:     entry.Metadata.Label,
			Verdict:   entry.Metadata.Judgment.Verdict,
			Divergent: entry.Metadata.Judgment.Divergent,
			Errored:   entry.Metadata.Judgment.Errored,
			CreatedAt: entry.Metadata.CreatedAt,
		})
	}
	if len(rep.Findings) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoEntries, root)
	}

	sort.Slice(rep.Findings, func(i, j int) bool {
		if !rep.Findings[i].CreatedAt.Equal(rep.Findings[j].CreatedAt) {
			return rep.Findings[i].CreatedAt.Before(rep.Findings[j].CreatedAt)
		}
		return rep.Findings[i].Dir < rep.Findings[j].Dir
	})
	return rep, nil
}

// loadFinding reads an entry's replayable texts, falling back to
// metadata-only when the directory is gone.
func loadFinding(dir string, meta corpus.Metadata) Finding {
	f := Finding{
		Dir:       dir,
		Label:     meta.Label,
		Verdict:   meta.Judgment.Verdict,
		Divergent: meta.Judgment.Divergent,
		Errored:   meta.Judgment.Errored,
		CreatedAt: meta.CreatedAt,
	}
	if entry, err := corpus.LoadEntry(dir); err == nil {
		f.Pattern = entry.Pattern
		f.Input = entry.Input.Text
	}
	return f
}
