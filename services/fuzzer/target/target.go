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
	"fmt"
	"time"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// Registry names of the closed target set.
const (
	NameReference = "reference"
	NameRegexp2   = "regexp2"
	NameGnark     = "gnark"
	NameCircom    = "circom"
	NameNoir      = "noir"
)

// Defaults for the shared target configuration.
const (
	// DefaultMaxInputLen is the fixed circuit input window in symbols.
	DefaultMaxInputLen = 64

	// DefaultCompileTimeout bounds one subprocess compilation step.
	DefaultCompileTimeout = 3 * time.Minute

	// DefaultExecuteTimeout bounds one subprocess execution step.
	DefaultExecuteTimeout = time.Minute
)

// Names returns the registry names in construction order: the
// reference engine first, then the in-process targets, then the
// subprocess ones.
func Names() []string {
	return []string{NameReference, NameRegexp2, NameGnark, NameCircom, NameNoir}
}

// =============================================================================
// Outcomes
// =============================================================================

// Outcome is a target's tri-state answer for one input.
type Outcome string

const (
	// OutcomeMatched means the target found a match.
	OutcomeMatched Outcome = "matched"

	// OutcomeNotMatched means the target found no match.
	OutcomeNotMatched Outcome = "not-matched"

	// OutcomeError means the execution failed before producing a
	// verdict. Stage and Reason on the MatchResult say where and why.
	OutcomeError Outcome = "error"
)

// Stage locates a failure in the compile/execute pipeline.
type Stage string

const (
	// StageCompile covers pattern-to-artifact compilation, including
	// circuit code generation.
	StageCompile Stage = "compile"

	// StageInput covers input validation and encoding: inputs outside
	// the circuit window or alphabet fail here.
	StageInput Stage = "input"

	// StageWitness covers witness generation and solving.
	StageWitness Stage = "witness"

	// StageMatch covers in-process match evaluation and readout.
	StageMatch Stage = "match"

	// StageProve covers the optional prove and verify round.
	StageProve Stage = "prove"
)

// MatchResult is the outcome of executing one input against one
// artifact. Produced fresh per execution and persisted verbatim into
// corpus metadata.
type MatchResult struct {
	// Target is the producing target's registry name.
	Target string `json:"target"`

	// Outcome is the tri-state verdict.
	Outcome Outcome `json:"outcome"`

	// Substring is the matched substring, when the target exposes one.
	Substring string `json:"substring,omitempty"`

	// Span is the matched byte range [start, end) in the input, when
	// the target exposes offsets.
	Span []int `json:"span,omitempty"`

	// Stage is the failing pipeline stage. Error outcomes only.
	Stage Stage `json:"stage,omitempty"`

	// Reason is the failure description. Error outcomes only.
	Reason string `json:"reason,omitempty"`

	// Duration is the wall time of the execution.
	Duration time.Duration `json:"duration_ns"`
}

// Matched reports a positive verdict.
func (r MatchResult) Matched() bool { return r.Outcome == OutcomeMatched }

// Errored reports that the execution failed before producing a
// verdict.
func (r MatchResult) Errored() bool { return r.Outcome == OutcomeError }

// errorResult folds a failure into a MatchResult.
func errorResult(target string, stage Stage, start time.Time, err error) MatchResult {
	return MatchResult{
		Target:   target,
		Outcome:  OutcomeError,
		Stage:    stage,
		Reason:   err.Error(),
		Duration: time.Since(start),
	}
}

// =============================================================================
// Target Interface
// =============================================================================

// Artifact is a target-specific compiled form of one pattern,
// reusable across many inputs. Owned by the compile cache; Close
// releases workspaces and keys.
type Artifact interface {
	// TargetName returns the registry name of the producing target.
	TargetName() string

	// Pattern returns the compiled pattern text.
	Pattern() string

	// Close releases the artifact's resources. Idempotent.
	Close() error
}

// Target is one engine under differential test.
//
// Description:
//
//	Compile turns a pattern into an Artifact once; Execute evaluates
//	inputs against it any number of times without recompiling.
//	Compile failures are *ToolchainError. Execute never fails: every
//	per-input problem folds into the MatchResult as an error outcome
//	so the oracle sees failures and verdicts uniformly.
//
// Thread Safety: Execute is safe for concurrent calls sharing one
// Artifact.
type Target interface {
	// Name returns the registry name.
	Name() string

	// Compile builds the artifact for pattern.
	Compile(ctx context.Context, pattern string) (Artifact, error)

	// Execute evaluates input against a previously compiled artifact.
	Execute(ctx context.Context, artifact Artifact, input string) MatchResult
}

// =============================================================================
// Configuration
// =============================================================================

// Config is shared by all targets. The zero value is usable after
// ApplyDefaults.
type Config struct {
	// Alphabet is the symbol universe circuit targets lay their
	// automata out over. Inputs containing other runes fold into
	// error outcomes on circuit targets.
	Alphabet grammar.Alphabet

	// MaxInputLen is the fixed circuit input window in symbols.
	// Longer inputs fold into error outcomes on circuit targets; the
	// in-process engines ignore it.
	MaxInputLen int

	// CompileTimeout bounds each subprocess compilation step.
	CompileTimeout time.Duration

	// ExecuteTimeout bounds each subprocess execution step and the
	// regexp2 backtracker.
	ExecuteTimeout time.Duration

	// WorkDir is the parent directory for compile workspaces. Empty
	// uses the system temp directory.
	WorkDir string

	// Prove enables the full prove and verify round after witness
	// generation.
	Prove bool

	// PtauPath is the powers-of-tau file for the circom Groth16
	// setup. Required by the circom target in prove mode.
	PtauPath string

	// CircomLibs are extra circom include paths (-l).
	CircomLibs []string

	// Toolchains resolves and probes external tool binaries.
	// Subprocess targets construct a default registry when nil.
	Toolchains *Toolchains
}

// ApplyDefaults fills zero-value fields in place.
func (c *Config) ApplyDefaults() {
	if len(c.Alphabet) == 0 {
		c.Alphabet = grammar.AlphabetLower
	}
	if c.MaxInputLen <= 0 {
		c.MaxInputLen = DefaultMaxInputLen
	}
	if c.CompileTimeout <= 0 {
		c.CompileTimeout = DefaultCompileTimeout
	}
	if c.ExecuteTimeout <= 0 {
		c.ExecuteTimeout = DefaultExecuteTimeout
	}
}

// =============================================================================
// Construction
// =============================================================================

// New constructs the named target.
//
// Description:
//
//	In-process targets construct unconditionally. Subprocess targets
//	probe their required toolchains through the registry and fail
//	construction when a binary is missing or below the manifest
//	minimum, so an unrunnable target surfaces before the campaign
//	starts rather than as its first compile error.
//
// Inputs:
//
//	ctx - Bounds the toolchain probes.
//	name - Registry name from Names().
//	cfg - Shared target configuration. Defaults applied on a copy.
//
// Outputs:
//
//	Target - The constructed target.
//	error - ErrUnknownTarget, a probe failure, or a prove-mode
//	    requirement the configuration does not meet.
func New(ctx context.Context, name string, cfg Config) (Target, error) {
	cfg.ApplyDefaults()
	switch name {
	case NameReference:
		return newReference(cfg), nil
	case NameRegexp2:
		return newRegexp2(cfg), nil
	case NameGnark:
		return newGnark(cfg)
	case NameCircom:
		return newCircom(ctx, cfg)
	case NameNoir:
		return newNoir(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTarget, name, Names())
	}
}
