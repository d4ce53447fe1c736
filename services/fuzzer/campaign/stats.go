// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package campaign

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/cache"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
)

var (
	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zkfuzz_campaign_iterations_total",
		Help: "Completed pattern iterations.",
	})
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfuzz_campaign_verdicts_total",
		Help: "Oracle verdicts partitioned by verdict.",
	}, []string{"verdict"})
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfuzz_campaign_executions_total",
		Help: "Per-target executions partitioned by outcome.",
	}, []string{"target", "outcome"})
	targetsDisabled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfuzz_campaign_targets_disabled_total",
		Help: "Targets disabled by compile-time toolchain failures.",
	}, []string{"target"})
	iterationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zkfuzz_campaign_iteration_duration_seconds",
		Help:    "Wall time of one full pattern iteration.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1200},
	})
)

// Stats is a point-in-time snapshot of one run. Serialized as-is to
// the status endpoint and the run journal's summary checkpoint.
type Stats struct {
	// RunID identifies the run, also its corpus directory.
	RunID string `json:"run_id"`

	// State is the loop's position when the snapshot was taken.
	State State `json:"state"`

	// OracleKind is the configured oracle.
	OracleKind string `json:"oracle_kind"`

	// StartedAt is the run start, UTC.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is wall time since StartedAt.
	Elapsed time.Duration `json:"elapsed_ns"`

	// Iterations counts completed pattern cycles.
	Iterations int64 `json:"iterations"`

	// Inputs counts generated test inputs.
	Inputs int64 `json:"inputs"`

	// Executions counts (input, target) executions.
	Executions int64 `json:"executions"`

	// ExecutionErrors counts executions folded into the error outcome.
	ExecutionErrors int64 `json:"execution_errors"`

	// Agreements, Divergences, Inconclusives count oracle verdicts.
	Agreements    int64 `json:"agreements"`
	Divergences   int64 `json:"divergences"`
	Inconclusives int64 `json:"inconclusives"`

	// LabelMismatches counts sampled inputs whose ground-truth verdict
	// contradicted the generator's hint. Expected noise, tracked for
	// strategy quality.
	LabelMismatches int64 `json:"label_mismatches"`

	// SavedEntries counts corpus entries created by this run;
	// DuplicateFindings counts divergences suppressed as repeats.
	SavedEntries      int64 `json:"saved_entries"`
	DuplicateFindings int64 `json:"duplicate_findings"`

	// ActiveTargets are the targets still executing, sorted.
	ActiveTargets []string `json:"active_targets"`

	// DisabledTargets maps disabled target names to the failure that
	// disabled them.
	DisabledTargets map[string]string `json:"disabled_targets,omitempty"`

	// Generator is the pattern generator's own view of the run.
	Generator pattern.Stats `json:"generator"`

	// Cache is the compile cache's view of the run.
	Cache cache.CacheStats `json:"cache"`
}

// snapshot assembles Stats from the campaign's guarded fields. Caller
// holds c.mu.
func (c *Campaign) snapshot() Stats {
	s := c.stats
	s.Elapsed = time.Since(s.StartedAt)
	s.ActiveTargets = make([]string, 0, len(c.targets))
	for name := range c.targets {
		if _, off := c.disabled[name]; !off {
			s.ActiveTargets = append(s.ActiveTargets, name)
		}
	}
	sort.Strings(s.ActiveTargets)
	if len(c.disabled) > 0 {
		s.DisabledTargets = make(map[string]string, len(c.disabled))
		for name, reason := range c.disabled {
			s.DisabledTargets[name] = reason
		}
	}
	if sp, ok := c.patterns.(interface{ Stats() pattern.Stats }); ok {
		s.Generator = sp.Stats()
	}
	if c.cache != nil {
		s.Cache = c.cache.Stats()
	}
	return s
}
