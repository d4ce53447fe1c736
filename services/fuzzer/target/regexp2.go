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

	"github.com/dlclark/regexp2"
)

// regexp2Target wraps dlclark/regexp2, a backtracking engine with
// .NET-style semantics. Disagreements with the reference target on
// shared-syntax patterns are real engine divergences, which makes it
// a useful second witness for the cross oracle.
type regexp2Target struct {
	cfg Config
}

func newRegexp2(cfg Config) *regexp2Target { return &regexp2Target{cfg: cfg} }

// Name implements Target.
func (t *regexp2Target) Name() string { return NameRegexp2 }

type regexp2Artifact struct {
	pattern string
	re      *regexp2.Regexp
}

func (a *regexp2Artifact) TargetName() string { return NameRegexp2 }
func (a *regexp2Artifact) Pattern() string    { return a.pattern }
func (a *regexp2Artifact) Close() error       { return nil }

// Compile implements Target.
func (t *regexp2Target) Compile(_ context.Context, pattern string) (Artifact, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, &ToolchainError{
			Target: NameRegexp2,
			Stage:  StageCompile,
			Tool:   "regexp2",
			Err:    err,
		}
	}
	// Backtracking can blow up on pathological pattern/input pairs.
	// The engine's own timeout keeps a single execution bounded.
	re.MatchTimeout = t.cfg.ExecuteTimeout
	return &regexp2Artifact{pattern: pattern, re: re}, nil
}

// Execute implements Target. A match timeout is reported as an error
// outcome at the match stage, not as a verdict.
func (t *regexp2Target) Execute(_ context.Context, artifact Artifact, input string) MatchResult {
	start := time.Now()
	art, ok := artifact.(*regexp2Artifact)
	if !ok {
		return errorResult(NameRegexp2, StageMatch, start,
			fmt.Errorf("artifact from %s handed to the regexp2 target", artifact.TargetName()))
	}

	m, err := art.re.FindStringMatch(input)
	if err != nil {
		return errorResult(NameRegexp2, StageMatch, start, err)
	}
	if m == nil {
		return MatchResult{
			Target:   NameRegexp2,
			Outcome:  OutcomeNotMatched,
			Duration: time.Since(start),
		}
	}
	// The engine reports rune offsets; spans are byte offsets so they
	// line up with the reference target on non-ASCII input.
	text := m.String()
	from := len(string([]rune(input)[:m.Index]))
	return MatchResult{
		Target:    NameRegexp2,
		Outcome:   OutcomeMatched,
		Substring: text,
		Span:      []int{from, from + len(text)},
		Duration:  time.Since(start),
	}
}
