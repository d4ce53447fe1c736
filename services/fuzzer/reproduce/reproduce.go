// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reproduce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/cache"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/corpus"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// =============================================================================
// Replay Verdicts
// =============================================================================

// Verdict classifies one replayed entry.
type Verdict string

const (
	// VerdictStillDiverges: the fresh run diverges and every compared
	// target produced the recorded outcome. The bug reproduces.
	VerdictStillDiverges Verdict = "still-diverges"

	// VerdictNoLongerDiverges: the fresh run no longer diverges. The
	// toolchain moved on, or the recording captured a fixed bug.
	VerdictNoLongerDiverges Verdict = "no-longer-diverges"

	// VerdictDiffers: the fresh run still diverges, but some target's
	// outcome changed since capture. A bug is still there, just not
	// the recorded one.
	VerdictDiffers Verdict = "differs-from-recording"
)

// ParseVerdict maps a string back to a replay Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictStillDiverges, VerdictNoLongerDiverges, VerdictDiffers:
		return Verdict(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
	}
}

// =============================================================================
// Replay Results
// =============================================================================

// VersionChange is one tool whose probed version differs from the
// version recorded at capture time. Current is empty when the tool is
// no longer resolvable.
type VersionChange struct {
	Tool     string `json:"tool"`
	Recorded string `json:"recorded"`
	Current  string `json:"current"`
}

// Result is the outcome of replaying one corpus entry.
type Result struct {
	// Dir is the replayed entry directory.
	Dir string `json:"dir"`

	// Verdict classifies the replay.
	Verdict Verdict `json:"verdict"`

	// Recorded is the judgment persisted at capture time.
	Recorded oracle.Judgment `json:"recorded"`

	// Fresh is the judgment over the replayed executions.
	Fresh oracle.Judgment `json:"fresh"`

	// Results holds the fresh per-target results, keyed by registry
	// name.
	Results map[string]target.MatchResult `json:"results"`

	// Changed lists the targets whose fresh outcome differs from the
	// recorded one, sorted. Targets added by an override have nothing
	// recorded to compare against and never appear here.
	Changed []string `json:"changed,omitempty"`

	// Drift lists tools whose probed version differs from the one
	// recorded at capture. A non-reproduction with drift indicts the
	// toolchain upgrade before it indicts the recording.
	Drift []VersionChange `json:"drift,omitempty"`
}

// Summary aggregates a batch replay.
type Summary struct {
	Replayed         int `json:"replayed"`
	StillDiverges    int `json:"still_diverges"`
	NoLongerDiverges int `json:"no_longer_diverges"`
	Differs          int `json:"differs_from_recording"`
	Skipped          int `json:"skipped"`
}

// Findings counts the replays that still expose a bug.
func (s Summary) Findings() int { return s.StillDiverges + s.Differs }

func (s *Summary) observe(v Verdict) {
	s.Replayed++
	switch v {
	case VerdictStillDiverges:
		s.StillDiverges++
	case VerdictNoLongerDiverges:
		s.NoLongerDiverges++
	case VerdictDiffers:
		s.Differs++
	}
}

// =============================================================================
// Runner
// =============================================================================

// Config parameterizes a replay runner.
type Config struct {
	// Targets overrides the replayed target set by registry name.
	// Empty replays the recorded set. A validity replay always
	// includes the recorded ground-truth target, override or not.
	Targets []string

	// Target configures target construction for the replay.
	Target target.Config

	// Logger receives replay progress. Nil uses the default logger.
	Logger *slog.Logger
}

// Runner replays corpus entries. Targets construct lazily on first
// use and compiled artifacts are shared across entries, so replaying
// a run's worth of entries for the same pattern compiles once.
//
// Thread Safety: not safe for concurrent use.
type Runner struct {
	overrides []string
	tcfg      target.Config
	logger    *slog.Logger
	cache     *cache.CompileCache
	targets   map[string]target.Target
	versions  map[string]string
}

// NewRunner constructs a replay runner.
//
// Description:
//
//	Resolves a shared toolchain registry up front so every constructed
//	target and the drift probe see the same binaries. Target
//	construction itself is deferred to the first entry that needs the
//	target, so replaying an in-process recording never probes circuit
//	toolchains.
//
// Inputs:
//
//	cfg - Runner configuration.
//
// Outputs:
//
//	*Runner - The runner. Close releases its compile cache.
//	error - A toolchain registry construction error.
func NewRunner(cfg Config) (*Runner, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Target.Toolchains == nil {
		tc, err := target.NewToolchains(nil)
		if err != nil {
			return nil, fmt.Errorf("reproduce: %w", err)
		}
		cfg.Target.Toolchains = tc
	}
	return &Runner{
		overrides: append([]string(nil), cfg.Targets...),
		tcfg:      cfg.Target,
		logger:    logger,
		cache:     cache.NewCompileCache(),
		targets:   make(map[string]target.Target),
	}, nil
}

// Close releases the compiled artifacts held by the runner.
func (r *Runner) Close() error {
	return r.cache.Clear()
}

// Replay re-executes one corpus entry.
//
// Description:
//
//	Loads the entry, rebuilds the oracle from the recorded judgment,
//	recompiles the pattern for each replayed target, re-executes the
//	recorded input, and classifies the fresh judgment against the
//	recording. Compile failures fold into error outcomes; only entry
//	corruption and target construction abort.
//
// Inputs:
//
//	ctx - Bounds compilation and execution.
//	dir - The entry directory.
//
// Outputs:
//
//	*Result - The classified replay.
//	error - corpus.ErrCorruptEntry wrapped, an oracle construction
//	    error, or a target construction error such as a missing
//	    toolchain binary.
func (r *Runner) Replay(ctx context.Context, dir string) (*Result, error) {
	entry, err := corpus.LoadEntry(dir)
	if err != nil {
		return nil, err
	}

	kind, baseline := recordedOracle(entry.Metadata.Judgment)
	orc, err := oracle.New(kind, baseline)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", dir, err)
	}

	names := r.replaySet(entry.Metadata, kind, baseline)
	results := make(map[string]target.MatchResult, len(names))
	for _, name := range names {
		tgt, err := r.target(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", dir, err)
		}
		results[name] = r.execute(ctx, tgt, entry.Pattern, entry.Input.Text)
	}

	res := &Result{
		Dir:      entry.Dir,
		Recorded: entry.Metadata.Judgment,
		Fresh:    orc.Judge(entry.Pattern, entry.Input, results),
		Results:  results,
		Changed:  changedTargets(entry.Metadata.Results, results),
		Drift:    r.drift(ctx, entry.Metadata.Toolchains),
	}
	res.Verdict = classify(res.Fresh, res.Changed)

	r.logger.Info("replayed corpus entry",
		"dir", dir,
		"verdict", res.Verdict,
		"recorded", res.Recorded.Verdict,
		"fresh", res.Fresh.Verdict,
		"changed", res.Changed,
		"drift", len(res.Drift))
	return res, nil
}

// ReplayAll expands path globs and replays every entry they name.
//
// Description:
//
//	Each argument is a glob; matches that are not entry directories
//	are skipped quietly, so pointing a glob at a run directory or the
//	corpus root does the expected thing. Corrupt entries are logged
//	and counted as skipped. Target construction failures abort, since
//	a missing binary would fail every remaining entry the same way.
//
// Inputs:
//
//	ctx - Bounds the whole replay.
//	patterns - Glob patterns naming entry directories.
//
// Outputs:
//
//	[]*Result - One result per replayed entry, in path order.
//	Summary - Verdict counts over the batch.
//	error - ErrNoEntries when nothing matched, a bad glob, a target
//	    construction error, or ctx's error.
func (r *Runner) ReplayAll(ctx context.Context, patterns []string) ([]*Result, Summary, error) {
	var sum Summary

	dirs, err := expandGlobs(patterns)
	if err != nil {
		return nil, sum, err
	}

	var results []*Result
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return results, sum, err
		}
		if !isEntryDir(dir) {
			r.logger.Debug("skipping path without entry metadata", "dir", dir)
			continue
		}
		res, err := r.Replay(ctx, dir)
		if err != nil {
			if errors.Is(err, corpus.ErrCorruptEntry) {
				r.logger.Warn("skipping corrupt corpus entry", "dir", dir, "error", err)
				sum.Skipped++
				continue
			}
			return results, sum, err
		}
		results = append(results, res)
		sum.observe(res.Verdict)
	}

	if sum.Replayed == 0 && sum.Skipped == 0 {
		return nil, sum, fmt.Errorf("%w: %v", ErrNoEntries, patterns)
	}
	return results, sum, nil
}

// =============================================================================
// Replay Mechanics
// =============================================================================

// recordedOracle recovers the oracle parameters from a recorded
// judgment. Recordings that predate the baseline field fall back to
// the reference engine, the only ground truth older corpora used.
func recordedOracle(j oracle.Judgment) (oracle.Kind, string) {
	kind := j.Kind
	if kind == "" {
		kind = oracle.KindValidity
	}
	baseline := j.Baseline
	if kind == oracle.KindValidity && baseline == "" {
		baseline = target.NameReference
	}
	return kind, baseline
}

// replaySet resolves the target names to replay: the override set when
// one was given, the recorded result set otherwise, deduplicated and
// sorted. Validity replays always include the ground-truth target.
func (r *Runner) replaySet(meta corpus.Metadata, kind oracle.Kind, baseline string) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if len(r.overrides) > 0 {
		for _, name := range r.overrides {
			add(name)
		}
	} else {
		for name := range meta.Results {
			add(name)
		}
	}
	if kind == oracle.KindValidity {
		add(baseline)
	}
	sort.Strings(names)
	return names
}

// target returns the memoized target for name, constructing it on
// first use.
func (r *Runner) target(ctx context.Context, name string) (target.Target, error) {
	if tgt, ok := r.targets[name]; ok {
		return tgt, nil
	}
	tgt, err := target.New(ctx, name, r.tcfg)
	if err != nil {
		return nil, err
	}
	r.targets[name] = tgt
	return tgt, nil
}

// execute compiles through the shared cache and runs one input.
// Compile failures fold into an error outcome so the comparison sees
// them as a result change.
func (r *Runner) execute(ctx context.Context, tgt target.Target, pattern, text string) target.MatchResult {
	art, err := r.cache.GetOrCompile(ctx, tgt, pattern)
	if err != nil {
		return compileResult(tgt.Name(), err)
	}
	return tgt.Execute(ctx, art, text)
}

// compileResult folds a replay-time compile failure into a result.
func compileResult(name string, err error) target.MatchResult {
	stage := target.StageCompile
	var te *target.ToolchainError
	if errors.As(err, &te) && te.Stage != "" {
		stage = te.Stage
	}
	return target.MatchResult{
		Target:  name,
		Outcome: target.OutcomeError,
		Stage:   stage,
		Reason:  err.Error(),
	}
}

// classify maps a fresh judgment and the per-target outcome changes to
// a replay verdict. Oracles are deterministic, so an unchanged result
// set over the recorded targets reproduces the recorded verdict; a
// fresh divergence over changed outcomes is a different bug shape.
func classify(fresh oracle.Judgment, changed []string) Verdict {
	switch {
	case fresh.Verdict == oracle.VerdictDiverge && len(changed) == 0:
		return VerdictStillDiverges
	case fresh.Verdict != oracle.VerdictDiverge:
		return VerdictNoLongerDiverges
	default:
		return VerdictDiffers
	}
}

// changedTargets lists the replayed targets whose outcome differs from
// the recording, sorted. Targets with no recorded result to compare
// against are ignored.
func changedTargets(recorded, fresh map[string]target.MatchResult) []string {
	var changed []string
	for name, now := range fresh {
		was, ok := recorded[name]
		if !ok {
			continue
		}
		if now.Outcome != was.Outcome {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// drift compares the recorded tool versions against the probed current
// ones. The probe runs once per runner. Tools that were unresolvable
// at capture time are not drift.
func (r *Runner) drift(ctx context.Context, recorded map[string]string) []VersionChange {
	if len(recorded) == 0 {
		return nil
	}
	if r.versions == nil {
		r.versions = r.tcfg.Toolchains.Versions(ctx)
	}

	tools := make([]string, 0, len(recorded))
	for tool := range recorded {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	var changes []VersionChange
	for _, tool := range tools {
		was := recorded[tool]
		if was == "" {
			continue
		}
		if now := r.versions[tool]; now != was {
			changes = append(changes, VersionChange{Tool: tool, Recorded: was, Current: now})
		}
	}
	return changes
}

// expandGlobs resolves path patterns to a sorted, deduplicated list.
// Literal paths pass through filepath.Glob unchanged.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("bad corpus path pattern %q: %w", pat, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			dirs = append(dirs, m)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// isEntryDir reports whether dir holds entry metadata.
func isEntryDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, corpus.MetadataFile))
	return err == nil && info.Mode().IsRegular()
}
