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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/zkfuzz/pkg/validation"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/cache"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/corpus"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/telemetry"
)

// Defaults for the campaign configuration.
const (
	// DefaultInputCount is the per-label batch size per pattern.
	DefaultInputCount = 5

	// DefaultWorkers bounds the (input, target) execution pool. Witness
	// generation is the bottleneck and each subprocess already burns a
	// core, so the pool stays small.
	DefaultWorkers = 4

	// DefaultCheckpointEvery is the progress-log and journal-checkpoint
	// cadence.
	DefaultCheckpointEvery = 30 * time.Second
)

// groundTruthStrategy is the one input strategy whose should-match
// labels are provably correct; a ground-truth contradiction on it is a
// generator bug, not a finding.
const groundTruthStrategy = "enumeration"

// Config carries the run settings. The zero value is usable after
// ApplyDefaults. The struct marshals into the run journal as the
// config snapshot.
type Config struct {
	// RunID names the run and its corpus directory. Assigned when
	// empty. Must not contain ':' or path separators.
	RunID string `json:"run_id"`

	// Seed is the campaign seed recorded into corpus metadata. The
	// generators are seeded by the caller; this field is bookkeeping.
	Seed int64 `json:"seed"`

	// MaxIterations stops the run after this many pattern cycles.
	// Zero means unlimited.
	MaxIterations int64 `json:"max_iterations,omitempty"`

	// TimeBudget stops the run after this much wall time, checked
	// between iterations. Zero means unlimited.
	TimeBudget time.Duration `json:"time_budget_ns,omitempty"`

	// InputCount is the per-label batch size per pattern.
	InputCount int `json:"input_count"`

	// Workers bounds the execution pool.
	Workers int `json:"workers"`

	// CheckpointEvery is the progress-log and journal cadence.
	CheckpointEvery time.Duration `json:"checkpoint_every_ns"`

	// Logger receives campaign logging. Nil means slog.Default().
	Logger *slog.Logger `json:"-"`
}

// ApplyDefaults fills zero-value fields in place.
func (c *Config) ApplyDefaults() {
	if c.RunID == "" {
		c.RunID = time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
	}
	if c.InputCount <= 0 {
		c.InputCount = DefaultInputCount
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = DefaultCheckpointEvery
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Deps are the campaign's collaborators. Patterns, ValidInputs,
// Targets, and Oracle are required; the rest are optional.
type Deps struct {
	// Patterns produces candidate patterns.
	Patterns pattern.Generator

	// ValidInputs produces should-match inputs per pattern.
	ValidInputs input.Generator

	// InvalidInputs produces should-not-match inputs per pattern. Nil
	// runs a positive-only campaign.
	InvalidInputs input.Generator

	// Targets are the engines under test.
	Targets []target.Target

	// Cache memoizes compilation. Nil constructs a private cache the
	// campaign clears (closing artifacts) when the run ends.
	Cache *cache.CompileCache

	// Oracle judges each input's results.
	Oracle oracle.Oracle

	// Store persists divergences and the run journal. Nil disables
	// persistence; findings are logged and counted only.
	Store *corpus.Store

	// Toolchains supplies probed tool versions for corpus metadata.
	Toolchains *target.Toolchains
}

// Campaign is one configured fuzzing run.
//
// Thread Safety: Run executes on one goroutine; Stats may be called
// concurrently from the status server and dashboard.
type Campaign struct {
	cfg    Config
	logger *slog.Logger

	patterns   pattern.Generator
	valid      input.Generator
	invalid    input.Generator
	targets    map[string]target.Target
	cache      *cache.CompileCache
	ownsCache  bool
	oracle     oracle.Oracle
	// groundTruth is the validity oracle's baseline target name, empty
	// for cross.
	groundTruth  string
	store        *corpus.Store
	toolchains   *target.Toolchains
	toolVersions map[string]string
	cfgSnapshot  json.RawMessage

	mu       sync.Mutex
	stats    Stats
	disabled map[string]string
}

// New wires a campaign.
//
// Inputs:
//
//	cfg - Run settings. Defaults applied in place.
//	deps - Collaborators. Targets must be non-empty with unique names
//	    and must leave the configured oracle something to judge: the
//	    validity oracle needs its ground-truth target plus at least
//	    one other, cross needs at least two.
//
// Outputs:
//
//	*Campaign - Ready to Run.
//	error - Configuration or wiring error.
func New(cfg Config, deps Deps) (*Campaign, error) {
	cfg.ApplyDefaults()
	if err := validation.ValidateRunID(cfg.RunID); err != nil {
		return nil, err
	}
	if deps.Patterns == nil {
		return nil, errors.New("campaign requires a pattern generator")
	}
	if deps.ValidInputs == nil {
		return nil, errors.New("campaign requires a valid-input generator")
	}
	if deps.Oracle == nil {
		return nil, errors.New("campaign requires an oracle")
	}
	if len(deps.Targets) == 0 {
		return nil, ErrNoTargets
	}

	targets := make(map[string]target.Target, len(deps.Targets))
	for _, tgt := range deps.Targets {
		if _, dup := targets[tgt.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, tgt.Name())
		}
		targets[tgt.Name()] = tgt
	}

	c := &Campaign{
		cfg:        cfg,
		logger:     cfg.Logger,
		patterns:   deps.Patterns,
		valid:      deps.ValidInputs,
		invalid:    deps.InvalidInputs,
		targets:    targets,
		cache:      deps.Cache,
		oracle:     deps.Oracle,
		store:      deps.Store,
		toolchains: deps.Toolchains,
		disabled:   make(map[string]string),
	}
	if c.cache == nil {
		c.cache = cache.NewCompileCache()
		c.ownsCache = true
	}
	if v, ok := deps.Oracle.(*oracle.Validity); ok {
		c.groundTruth = v.GroundTruth()
		if _, ok := targets[c.groundTruth]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrGroundTruthMissing, c.groundTruth)
		}
	}
	if err := c.judgeable(); err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config snapshot: %w", err)
	}
	c.cfgSnapshot = snapshot

	c.stats = Stats{
		RunID:      cfg.RunID,
		State:      StateIdle,
		OracleKind: string(deps.Oracle.Kind()),
	}
	return c, nil
}

// RunID returns the run identifier.
func (c *Campaign) RunID() string { return c.cfg.RunID }

// Stats returns a point-in-time snapshot.
func (c *Campaign) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// =============================================================================
// Run Loop
// =============================================================================

// Run executes the campaign until a budget is exhausted, the pattern
// source runs dry, the context is cancelled, or a fatal error.
//
// Description:
//
//	Cancellation and budget exhaustion are clean stops: Run returns
//	the final Stats with a nil error and the caller inspects
//	Divergences for the exit code. A non-nil error means the run
//	itself broke: a generator fault, a dead persistence layer, or no
//	judgeable targets remaining.
func (c *Campaign) Run(ctx context.Context) (Stats, error) {
	start := time.Now().UTC()
	c.mu.Lock()
	c.stats.StartedAt = start
	c.mu.Unlock()

	if c.toolchains != nil {
		c.toolVersions = c.toolchains.Versions(ctx)
	}
	c.journalRun(ctx, false)
	c.logger.Info("campaign started",
		slog.String("run_id", c.cfg.RunID),
		slog.String("oracle", string(c.oracle.Kind())),
		slog.Int("targets", len(c.targets)),
		slog.Int64("max_iterations", c.cfg.MaxIterations),
		slog.Duration("time_budget", c.cfg.TimeBudget))

	var runErr error
	lastCheckpoint := time.Now()

loop:
	for {
		if ctx.Err() != nil {
			c.logger.Info("campaign cancelled", slog.String("run_id", c.cfg.RunID))
			break
		}
		if c.cfg.MaxIterations > 0 && c.iterations() >= c.cfg.MaxIterations {
			c.logger.Info("iteration budget exhausted", slog.Int64("iterations", c.iterations()))
			break
		}
		if c.cfg.TimeBudget > 0 && time.Since(start) >= c.cfg.TimeBudget {
			c.logger.Info("time budget exhausted", slog.Duration("elapsed", time.Since(start)))
			break
		}

		err := c.iterate(ctx)
		switch {
		case err == nil:
		case errors.Is(err, pattern.ErrNoMorePatterns):
			c.logger.Info("pattern source exhausted", slog.Int64("iterations", c.iterations()))
			break loop
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			c.logger.Info("campaign cancelled mid-iteration", slog.String("run_id", c.cfg.RunID))
			break loop
		default:
			runErr = err
			c.logger.Error("campaign failed", slog.String("error", err.Error()))
			break loop
		}

		if time.Since(lastCheckpoint) >= c.cfg.CheckpointEvery {
			c.progress()
			c.journalRun(ctx, false)
			lastCheckpoint = time.Now()
		}
	}

	c.setState(StateStopped)
	if c.ownsCache {
		if err := c.cache.Clear(); err != nil {
			c.logger.Warn("artifact cleanup failed", slog.String("error", err.Error()))
		}
	}
	final := c.Stats()
	c.journalRun(context.WithoutCancel(ctx), true)
	c.logger.Info("campaign stopped",
		slog.String("run_id", c.cfg.RunID),
		slog.Int64("iterations", final.Iterations),
		slog.Int64("divergences", final.Divergences),
		slog.Int64("inconclusives", final.Inconclusives))
	return final, runErr
}

// iterate runs one full pattern cycle.
func (c *Campaign) iterate(ctx context.Context) (err error) {
	iterStart := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "fuzzer.campaign", "campaign.iterate")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	c.setState(StateGenerating)
	p, err := c.patterns.Generate()
	if err != nil {
		if errors.Is(err, pattern.ErrNoMorePatterns) {
			return err
		}
		return fmt.Errorf("pattern generation: %w", err)
	}
	span.SetAttributes(attribute.String("pattern", p.Text))
	c.logger.Debug("pattern generated", slog.String("pattern", p.Text))

	c.setState(StateCompiling)
	artifacts, err := c.compileAll(ctx, p)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return ErrAllTargetsDisabled
	}

	inputs, err := c.generateInputs(p)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		c.logger.Debug("no inputs within length bound", slog.String("pattern", p.Text))
		c.finishIteration(iterStart)
		return nil
	}

	c.setState(StateExecuting)
	results := c.executeBatch(ctx, artifacts, inputs)
	if err := ctx.Err(); err != nil {
		// A cancelled batch folds kills into error outcomes; judging
		// them would mint bogus verdicts.
		return err
	}

	c.setState(StateJudging)
	for i, in := range inputs {
		j := c.oracle.Judge(p.Text, in, results[i])
		if j.Verdict == oracle.VerdictDiverge {
			telemetry.AddSpanEvent(span, "divergence",
				attribute.String("input", in.Text),
				attribute.StringSlice("divergent", j.Divergent))
		}
		if err := c.recordJudgment(ctx, p, in, results[i], j); err != nil {
			return err
		}
	}

	c.finishIteration(iterStart)
	return nil
}

// compileAll compiles the pattern for every active target. A compile
// failure disables the target for the rest of the run.
func (c *Campaign) compileAll(ctx context.Context, p pattern.Pattern) (map[string]target.Artifact, error) {
	artifacts := make(map[string]target.Artifact, len(c.targets))
	for _, name := range c.activeTargets() {
		art, err := c.cache.GetOrCompile(ctx, c.targets[name], p.Text)
		if err == nil {
			artifacts[name] = art
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.disableTarget(name, p.Text, err)
		if name == c.groundTruth {
			return nil, fmt.Errorf("%w: %v", ErrGroundTruthDisabled, err)
		}
		if err := c.judgeable(); err != nil {
			return nil, err
		}
	}
	return artifacts, nil
}

// generateInputs builds the mixed batch for one pattern.
func (c *Campaign) generateInputs(p pattern.Pattern) ([]input.TestInput, error) {
	batch, err := c.valid.Generate(p, c.cfg.InputCount, input.LabelShouldMatch)
	if err != nil {
		return nil, fmt.Errorf("valid input generation: %w", err)
	}
	if c.invalid != nil {
		negatives, err := c.invalid.Generate(p, c.cfg.InputCount, input.LabelShouldNotMatch)
		if err != nil {
			return nil, fmt.Errorf("invalid input generation: %w", err)
		}
		batch = append(batch, negatives...)
	}
	c.mu.Lock()
	c.stats.Inputs += int64(len(batch))
	c.mu.Unlock()
	return batch, nil
}

// executeBatch runs every (input, target) pair through the bounded
// worker pool. Workers share only the immutable artifacts; per-input
// result maps are assembled under a lock.
func (c *Campaign) executeBatch(ctx context.Context, artifacts map[string]target.Artifact, inputs []input.TestInput) []map[string]target.MatchResult {
	results := make([]map[string]target.MatchResult, len(inputs))
	for i := range results {
		results[i] = make(map[string]target.MatchResult, len(artifacts))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, in := range inputs {
		for name, art := range artifacts {
			g.Go(func() error {
				res := c.targets[name].Execute(gctx, art, in.Text)
				mu.Lock()
				results[i][name] = res
				mu.Unlock()
				c.countExecution(res)
				return nil
			})
		}
	}
	// Workers fold failures into their results and never return
	// errors, so Wait only joins.
	_ = g.Wait()
	return results
}

// recordJudgment updates stats for one judgment and persists a
// divergence.
func (c *Campaign) recordJudgment(ctx context.Context, p pattern.Pattern, in input.TestInput, results map[string]target.MatchResult, j oracle.Judgment) error {
	verdictsTotal.WithLabelValues(string(j.Verdict)).Inc()

	if j.LabelMismatch && in.Label == input.LabelShouldMatch && in.Strategy == groundTruthStrategy {
		// Ground truth rejected an enumerated member of the language:
		// the enumeration machinery is broken and every finding judged
		// against it would be noise.
		return &pattern.GeneratorError{
			Generator: in.Strategy,
			Err:       fmt.Errorf("ground truth rejected enumerated input %q for pattern %q", in.Text, p.Text),
		}
	}

	c.mu.Lock()
	if j.LabelMismatch {
		c.stats.LabelMismatches++
	}
	switch j.Verdict {
	case oracle.VerdictAgree:
		c.stats.Agreements++
	case oracle.VerdictDiverge:
		c.stats.Divergences++
	case oracle.VerdictInconclusive:
		c.stats.Inconclusives++
	}
	c.mu.Unlock()

	if j.Verdict != oracle.VerdictDiverge {
		return nil
	}

	c.logger.Warn("divergence found",
		slog.String("pattern", p.Text),
		slog.String("input", in.Text),
		slog.String("reason", j.Reason))
	if c.store == nil {
		return nil
	}

	c.setState(StatePersisting)
	defer c.setState(StateJudging)
	saved, created, err := c.store.Save(ctx, c.cfg.RunID, corpus.Entry{
		Pattern:    p.Text,
		Input:      in,
		Seed:       c.cfg.Seed,
		Judgment:   j,
		Results:    results,
		Toolchains: c.toolVersions,
	})
	if err != nil {
		// Losing findings silently is worse than stopping.
		return fmt.Errorf("persist divergence: %w", err)
	}
	c.mu.Lock()
	if created {
		c.stats.SavedEntries++
	} else {
		c.stats.DuplicateFindings++
	}
	c.mu.Unlock()
	if created {
		c.logger.Info("corpus entry saved", slog.String("path", saved.Dir))
	}
	return nil
}

// =============================================================================
// Target Lifecycle
// =============================================================================

// activeTargets returns the enabled target names, sorted for
// deterministic compile order.
func (c *Campaign) activeTargets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.targets))
	for name := range c.targets {
		if _, off := c.disabled[name]; !off {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// disableTarget takes a target out of the run after a compile-time
// failure. Logged once here; later iterations skip it silently.
func (c *Campaign) disableTarget(name, patternText string, err error) {
	c.mu.Lock()
	c.disabled[name] = err.Error()
	c.mu.Unlock()
	targetsDisabled.WithLabelValues(name).Inc()
	c.logger.Warn("target disabled for the rest of the run",
		slog.String("target", name),
		slog.String("pattern", patternText),
		slog.String("error", err.Error()))
}

// judgeable verifies the remaining targets still give the oracle
// something to compare: ground truth plus one other for validity, two
// for cross.
func (c *Campaign) judgeable() error {
	active := c.activeTargets()
	if len(active) == 0 {
		return ErrAllTargetsDisabled
	}
	if len(active) < 2 {
		return fmt.Errorf("%w: %q alone leaves nothing to compare", ErrAllTargetsDisabled, active[0])
	}
	return nil
}

// =============================================================================
// Bookkeeping
// =============================================================================

func (c *Campaign) setState(s State) {
	c.mu.Lock()
	c.stats.State = s
	c.mu.Unlock()
}

func (c *Campaign) iterations() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Iterations
}

func (c *Campaign) finishIteration(start time.Time) {
	c.mu.Lock()
	c.stats.Iterations++
	c.stats.State = StateIdle
	c.mu.Unlock()
	iterationsTotal.Inc()
	iterationDuration.Observe(time.Since(start).Seconds())
}

func (c *Campaign) countExecution(res target.MatchResult) {
	executionsTotal.WithLabelValues(res.Target, string(res.Outcome)).Inc()
	c.mu.Lock()
	c.stats.Executions++
	if res.Errored() {
		c.stats.ExecutionErrors++
	}
	c.mu.Unlock()
}

// progress emits the periodic one-line run summary.
func (c *Campaign) progress() {
	s := c.Stats()
	c.logger.Info("campaign progress",
		slog.Int64("iterations", s.Iterations),
		slog.Int64("executions", s.Executions),
		slog.Int64("agreements", s.Agreements),
		slog.Int64("divergences", s.Divergences),
		slog.Int64("inconclusives", s.Inconclusives),
		slog.Int("active_targets", len(s.ActiveTargets)),
		slog.Float64("cache_hit_rate", s.Cache.HitRate()))
}

// journalRun writes the run record. Journal failures are logged, not
// fatal: the filesystem corpus remains authoritative.
func (c *Campaign) journalRun(ctx context.Context, finished bool) {
	if c.store == nil {
		return
	}
	snap := c.Stats()
	summary, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("stats snapshot marshal failed", slog.String("error", err.Error()))
		return
	}
	rec := corpus.RunRecord{
		ID:        c.cfg.RunID,
		StartedAt: snap.StartedAt,
		Config:    c.cfgSnapshot,
		Summary:   summary,
	}
	if finished {
		now := time.Now().UTC()
		rec.FinishedAt = &now
	}
	if err := c.store.PutRun(ctx, rec); err != nil {
		c.logger.Warn("run journal write failed", slog.String("error", err.Error()))
	}
}
