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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// =============================================================================
// Verdicts
// =============================================================================

// Verdict is the oracle's conclusion for one input.
type Verdict string

const (
	// VerdictAgree means every comparable result was consistent.
	VerdictAgree Verdict = "agree"

	// VerdictDiverge means at least one target contradicted the
	// comparison baseline. Divergences are findings.
	VerdictDiverge Verdict = "diverge"

	// VerdictInconclusive means errors prevented the comparison without
	// contradicting it.
	VerdictInconclusive Verdict = "inconclusive"
)

// ParseVerdict maps corpus metadata back to a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictAgree, VerdictDiverge, VerdictInconclusive:
		return Verdict(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
	}
}

// =============================================================================
// Oracle Kinds
// =============================================================================

// Kind selects the comparison baseline.
type Kind string

const (
	// KindValidity compares every target against a designated
	// ground-truth target.
	KindValidity Kind = "validity"

	// KindCross requires pairwise agreement among all targets with no
	// designated ground truth.
	KindCross Kind = "cross"
)

// ParseKind resolves a configuration string to a Kind. "valid" is
// accepted as the CLI short form of validity.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindValidity, Kind("valid"):
		return KindValidity, nil
	case KindCross:
		return KindCross, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// =============================================================================
// Judgments
// =============================================================================

// Judgment is the oracle's full conclusion for one (pattern, input)
// execution round. It is persisted verbatim into corpus metadata.
type Judgment struct {
	// Kind is the oracle kind that produced the judgment.
	Kind Kind `json:"kind"`

	// Verdict is the conclusion.
	Verdict Verdict `json:"verdict"`

	// Divergent lists the targets that contradicted the baseline,
	// sorted by name. Empty unless Verdict is diverge.
	Divergent []string `json:"divergent,omitempty"`

	// Errored lists the targets whose execution failed, sorted by
	// name, whether or not the failure counted as a divergence.
	Errored []string `json:"errored,omitempty"`

	// Baseline is the ground-truth target's registry name. Validity
	// judgments only; replay reconstructs the oracle from it.
	Baseline string `json:"baseline,omitempty"`

	// GroundTruth is the ground-truth outcome. Validity judgments
	// only; empty for cross judgments.
	GroundTruth target.Outcome `json:"ground_truth,omitempty"`

	// LabelMismatch reports that ground truth contradicted the
	// generator's intended label. For enumeration-derived inputs that
	// is a generator bug the campaign surfaces separately; for sampled
	// inputs it is expected noise. Validity judgments only.
	LabelMismatch bool `json:"label_mismatch,omitempty"`

	// Reason is a one-line human-readable account of the verdict.
	Reason string `json:"reason,omitempty"`
}

// IsFinding reports whether the judgment should be persisted to the
// corpus.
func (j Judgment) IsFinding() bool { return j.Verdict == VerdictDiverge }

// =============================================================================
// Oracle Interface
// =============================================================================

// Oracle judges one input's results across targets.
//
// Description:
//
//	Judge consumes the per-target MatchResults for a single (pattern,
//	input) pair and produces a Judgment. Oracles are pure functions of
//	their inputs: no clock, no randomness, no logging, and
//	deterministic ordering in every list and reason string. Replaying
//	a recorded corpus entry through the same oracle kind must
//	reproduce the recorded verdict when the results repeat.
//
// Thread Safety: implementations are stateless and safe for concurrent
// use.
type Oracle interface {
	// Kind returns the oracle kind.
	Kind() Kind

	// Judge produces the judgment for one input's execution round.
	Judge(pattern string, in input.TestInput, results map[string]target.MatchResult) Judgment
}

// New constructs the oracle for kind. The validity oracle needs the
// registry name of its ground-truth target; cross ignores it.
func New(kind Kind, groundTruth string) (Oracle, error) {
	switch kind {
	case KindValidity:
		return NewValidity(groundTruth)
	case KindCross:
		return NewCross(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// =============================================================================
// Validity Oracle
// =============================================================================

// Validity compares every target against one ground-truth target,
// normally the reference engine.
//
// The rules, in order:
//
//   - Ground truth itself errored: inconclusive. Nothing can be judged
//     without a baseline verdict.
//   - A target's verdict differs from ground truth: divergence.
//   - A target errored on an input ground truth accepts: divergence.
//     The toolchain failed to handle a legal input, which is exactly
//     the class of bug the fuzzer hunts.
//   - A target errored on an input ground truth rejects: inconclusive
//     for that target. A timeout on a pathological non-member proves
//     nothing either way.
//
// Ground truth is additionally compared against the generator's
// intended label. A mismatch never changes the verdict; it is reported
// on the judgment so the campaign can flag generator bugs when the
// strategy guaranteed the label.
type Validity struct {
	groundTruth string
}

// NewValidity constructs a validity oracle anchored on the named
// ground-truth target.
func NewValidity(groundTruth string) (*Validity, error) {
	if groundTruth == "" {
		return nil, ErrNoGroundTruth
	}
	return &Validity{groundTruth: groundTruth}, nil
}

// Kind returns KindValidity.
func (o *Validity) Kind() Kind { return KindValidity }

// GroundTruth returns the registry name of the baseline target.
func (o *Validity) GroundTruth() string { return o.groundTruth }

// Judge applies the validity rules to one execution round.
//
// Inputs:
//
//	pattern - the pattern text, used only in reason strings.
//	in      - the executed input with its intended label.
//	results - per-target results keyed by registry name. Must contain
//	          the ground-truth target for a conclusive judgment.
//
// Outputs:
//
//	Judgment - verdict plus the divergent and errored target sets.
func (o *Validity) Judge(pattern string, in input.TestInput, results map[string]target.MatchResult) Judgment {
	j := Judgment{Kind: KindValidity, Verdict: VerdictAgree, Baseline: o.groundTruth}

	gt, ok := results[o.groundTruth]
	if !ok {
		j.Verdict = VerdictInconclusive
		j.Reason = fmt.Sprintf("ground truth %q produced no result", o.groundTruth)
		return j
	}
	j.Errored = erroredNames(results)

	if gt.Errored() {
		j.Verdict = VerdictInconclusive
		j.Reason = fmt.Sprintf("ground truth %q errored at stage %s: %s", o.groundTruth, gt.Stage, gt.Reason)
		return j
	}
	j.GroundTruth = gt.Outcome
	j.LabelMismatch = gt.Matched() != (in.Label == input.LabelShouldMatch)

	inconclusive := false
	for _, name := range sortedNames(results) {
		if name == o.groundTruth {
			continue
		}
		res := results[name]
		switch {
		case res.Errored() && gt.Matched():
			// Failure on a legal input is itself a divergence.
			j.Divergent = append(j.Divergent, name)
		case res.Errored():
			inconclusive = true
		case res.Matched() != gt.Matched():
			j.Divergent = append(j.Divergent, name)
		}
	}

	switch {
	case len(j.Divergent) > 0:
		j.Verdict = VerdictDiverge
		j.Reason = fmt.Sprintf("pattern %q input %q: ground truth %s, contradicted by %s",
			pattern, in.Text, gt.Outcome, strings.Join(j.Divergent, ", "))
	case inconclusive:
		j.Verdict = VerdictInconclusive
		j.Reason = fmt.Sprintf("errors on a rejected input prevent comparison: %s",
			strings.Join(j.Errored, ", "))
	default:
		j.Reason = fmt.Sprintf("all targets %s", gt.Outcome)
	}
	return j
}

// =============================================================================
// Cross-Target Oracle
// =============================================================================

// Cross requires pairwise agreement among all real verdicts and
// ignores the intended label entirely. With no designated baseline, a
// split between matched and not-matched proves at least one target
// wrong without identifying which.
type Cross struct{}

// NewCross constructs a cross-target oracle.
func NewCross() *Cross { return &Cross{} }

// Kind returns KindCross.
func (o *Cross) Kind() Kind { return KindCross }

// Judge applies pairwise comparison to one execution round.
//
// A split among real verdicts is a divergence even when other targets
// errored. With no split, any error downgrades the judgment to
// inconclusive: agreement cannot be certified over missing verdicts.
// Divergent lists the minority side of a split; on an even split the
// matched side is listed.
func (o *Cross) Judge(pattern string, in input.TestInput, results map[string]target.MatchResult) Judgment {
	j := Judgment{Kind: KindCross, Verdict: VerdictAgree}
	j.Errored = erroredNames(results)

	var matched, notMatched []string
	for _, name := range sortedNames(results) {
		res := results[name]
		switch {
		case res.Errored():
			// Already collected.
		case res.Matched():
			matched = append(matched, name)
		default:
			notMatched = append(notMatched, name)
		}
	}

	switch {
	case len(matched) > 0 && len(notMatched) > 0:
		j.Verdict = VerdictDiverge
		j.Divergent = minoritySide(matched, notMatched)
		j.Reason = fmt.Sprintf("pattern %q input %q: matched by %s, rejected by %s",
			pattern, in.Text, strings.Join(matched, ", "), strings.Join(notMatched, ", "))
	case len(j.Errored) > 0:
		j.Verdict = VerdictInconclusive
		j.Reason = fmt.Sprintf("no split, but errors leave agreement uncertified: %s",
			strings.Join(j.Errored, ", "))
	case len(matched)+len(notMatched) == 0:
		j.Verdict = VerdictInconclusive
		j.Reason = "no results to compare"
	case len(matched) > 0:
		j.Reason = "all targets matched"
	default:
		j.Reason = "all targets not-matched"
	}
	return j
}

// minoritySide picks the smaller of the two disagreeing camps, biased
// toward the matched side on a tie. The full split is always in the
// reason string; this only nominates the likelier culprits.
func minoritySide(matched, notMatched []string) []string {
	if len(matched) <= len(notMatched) {
		return matched
	}
	return notMatched
}

// =============================================================================
// Helpers
// =============================================================================

// sortedNames returns the result keys in lexical order so judgments
// are deterministic regardless of map iteration.
func sortedNames(results map[string]target.MatchResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// erroredNames returns the sorted names of targets whose execution
// failed.
func erroredNames(results map[string]target.MatchResult) []string {
	var names []string
	for _, name := range sortedNames(results) {
		if results[name].Errored() {
			names = append(names, name)
		}
	}
	return names
}
