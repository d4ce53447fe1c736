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
	"regexp"
	"time"
)

// reference wraps the standard library regexp engine. It is the
// validity oracle's ground truth: linear-time, no input window, no
// alphabet restriction.
type reference struct {
	cfg Config
}

func newReference(cfg Config) *reference { return &reference{cfg: cfg} }

// Name implements Target.
func (t *reference) Name() string { return NameReference }

// referenceArtifact is a compiled stdlib regexp.
type referenceArtifact struct {
	pattern string
	re      *regexp.Regexp
}

func (a *referenceArtifact) TargetName() string { return NameReference }
func (a *referenceArtifact) Pattern() string    { return a.pattern }
func (a *referenceArtifact) Close() error       { return nil }

// Compile implements Target. A pattern the reference engine rejects
// is unjudgeable by every oracle, so the failure uses the same
// ToolchainError shape the circuit targets use.
func (t *reference) Compile(_ context.Context, pattern string) (Artifact, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ToolchainError{
			Target: NameReference,
			Stage:  StageCompile,
			Tool:   "regexp",
			Err:    err,
		}
	}
	return &referenceArtifact{pattern: pattern, re: re}, nil
}

// Execute implements Target. Find semantics: a match anywhere in the
// input counts, and the first match's span and text are reported.
func (t *reference) Execute(_ context.Context, artifact Artifact, input string) MatchResult {
	start := time.Now()
	art, ok := artifact.(*referenceArtifact)
	if !ok {
		return errorResult(NameReference, StageMatch, start,
			fmt.Errorf("artifact from %s handed to the reference target", artifact.TargetName()))
	}

	span := art.re.FindStringIndex(input)
	if span == nil {
		return MatchResult{
			Target:   NameReference,
			Outcome:  OutcomeNotMatched,
			Duration: time.Since(start),
		}
	}
	return MatchResult{
		Target:    NameReference,
		Outcome:   OutcomeMatched,
		Substring: input[span[0]:span[1]],
		Span:      span,
		Duration:  time.Since(start),
	}
}
