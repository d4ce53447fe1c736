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
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/zkfuzz/pkg/ux"
)

// barWidth sizes the agreement bar in the results section.
const barWidth = 32

// Render writes the report in the active output mode.
//
// Description:
//
//	Rich and plain modes build the boxed summary through the shared ux
//	styles; machine mode emits key=value lines for scripts. Output is
//	best-effort terminal writing, so write errors are not reported.
//
// Inputs:
//
//	w - Destination, normally stdout.
func (r *Report) Render(w io.Writer) {
	if ux.GetMode() == ux.ModeMachine {
		r.renderMachine(w)
		return
	}
	r.renderStyled(w)
}

// ===== Machine Mode ==========================================================

func (r *Report) renderMachine(w io.Writer) {
	fmt.Fprintf(w, "run=%s\n", r.RunID)
	if !r.StartedAt.IsZero() {
		fmt.Fprintf(w, "started=%s\n", r.StartedAt.Format(timeFormat))
	}
	if r.FinishedAt != nil {
		fmt.Fprintf(w, "finished=%s\n", r.FinishedAt.Format(timeFormat))
	}
	if d := r.Elapsed(); d > 0 {
		fmt.Fprintf(w, "elapsed=%s\n", d.Round(timeRounding))
	}

	if s := r.Stats; s != nil {
		fmt.Fprintf(w, "iterations=%d\n", s.Iterations)
		fmt.Fprintf(w, "patterns=%d\n", s.Generator.Generated)
		fmt.Fprintf(w, "inputs=%d\n", s.Inputs)
		fmt.Fprintf(w, "executions=%d\n", s.Executions)
		fmt.Fprintf(w, "execution_errors=%d\n", s.ExecutionErrors)
		fmt.Fprintf(w, "agreements=%d\n", s.Agreements)
		fmt.Fprintf(w, "divergences=%d\n", s.Divergences)
		fmt.Fprintf(w, "inconclusives=%d\n", s.Inconclusives)
		fmt.Fprintf(w, "label_mismatches=%d\n", s.LabelMismatches)
		fmt.Fprintf(w, "saved_entries=%d\n", s.SavedEntries)
		fmt.Fprintf(w, "duplicate_findings=%d\n", s.DuplicateFindings)
		fmt.Fprintf(w, "cache_hit_rate=%.3f\n", s.Cache.HitRate())
		fmt.Fprintf(w, "active_targets=%s\n", strings.Join(s.ActiveTargets, ","))
		for _, name := range sortedKeys(s.DisabledTargets) {
			fmt.Fprintf(w, "disabled_target=%s\treason=%s\n", name, s.DisabledTargets[name])
		}
	}

	fmt.Fprintf(w, "findings=%d\n", len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(w, "finding=%s\tpattern=%q\tinput=%q\tdivergent=%s\n",
			f.Dir, f.Pattern, f.Input, strings.Join(f.Divergent, ","))
	}
}

// ===== Styled Modes ==========================================================

func (r *Report) renderStyled(w io.Writer) {
	var b strings.Builder

	b.WriteString(ux.Styles.Title.Render("zkfuzz campaign report"))
	b.WriteString("\n")
	b.WriteString(r.headerLines())

	if r.Stats != nil {
		b.WriteString("\n")
		b.WriteString(r.resultLines())
		b.WriteString("\n")
		b.WriteString(r.targetLines())
		b.WriteString("\n")
		b.WriteString(r.pipelineLines())
	}

	b.WriteString("\n")
	b.WriteString(r.findingLines())
	b.WriteString("\n")
	b.WriteString(r.verdictLine())
	b.WriteString("\n")

	io.WriteString(w, b.String())
}

func (r *Report) headerLines() string {
	var b strings.Builder
	if r.RunID != "" {
		fmt.Fprintf(&b, "%s %s\n", ux.Styles.Muted.Render("run"), ux.Styles.Bold.Render(r.RunID))
	}
	if !r.StartedAt.IsZero() {
		fmt.Fprintf(&b, "%s %s\n", ux.Styles.Muted.Render("started"), r.StartedAt.Format(timeFormat))
	}
	switch {
	case r.FinishedAt != nil:
		fmt.Fprintf(&b, "%s %s (%s)\n", ux.Styles.Muted.Render("finished"),
			r.FinishedAt.Format(timeFormat), r.Elapsed().Round(timeRounding))
	case r.Stats != nil:
		fmt.Fprintf(&b, "%s %s\n", ux.Styles.Warning.Render("unfinished"),
			ux.Styles.Muted.Render("journal has no finish record; stats are the last checkpoint"))
	}
	return b.String()
}

func (r *Report) resultLines() string {
	s := r.Stats
	var b strings.Builder

	b.WriteString(ux.Styles.Subtitle.Render("results"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  patterns %d  inputs %d  executions %d  exec-errors %d\n",
		s.Generator.Generated, s.Inputs, s.Executions, s.ExecutionErrors)
	fmt.Fprintf(&b, "  %s %s   %s %s   %s %s   %s %s\n",
		ux.Styles.Success.Render(fmt.Sprintf("%d", s.Agreements)), ux.Styles.Muted.Render("agree"),
		ux.Styles.Error.Render(fmt.Sprintf("%d", s.Divergences)), ux.Styles.Muted.Render("diverge"),
		ux.Styles.Warning.Render(fmt.Sprintf("%d", s.Inconclusives)), ux.Styles.Muted.Render("inconclusive"),
		ux.Styles.Warning.Render(fmt.Sprintf("%d", s.LabelMismatches)), ux.Styles.Muted.Render("label-mismatch"))

	if judged := s.Agreements + s.Divergences + s.Inconclusives; judged > 0 {
		fmt.Fprintf(&b, "  %s %s\n", ux.Styles.Muted.Render("agreement"),
			ux.ProgressBar(int(s.Agreements), int(judged), barWidth))
	}
	return b.String()
}

func (r *Report) targetLines() string {
	s := r.Stats
	var b strings.Builder

	b.WriteString(ux.Styles.Subtitle.Render("targets"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", ux.Styles.Muted.Render("active"),
		strings.Join(s.ActiveTargets, ", "))
	for _, name := range sortedKeys(s.DisabledTargets) {
		fmt.Fprintf(&b, "  %s %s %s\n", ux.IconWarning.Render(),
			ux.Styles.Warning.Render(name+" disabled:"), s.DisabledTargets[name])
	}
	return b.String()
}

func (r *Report) pipelineLines() string {
	s := r.Stats
	var b strings.Builder

	b.WriteString(ux.Styles.Subtitle.Render("pipeline"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  generator: rejected %d  deduped %d  failed-rounds %d\n",
		s.Generator.Rejected, s.Generator.Deduped, s.Generator.FailedRounds)
	fmt.Fprintf(&b, "  compile cache: %.0f%% hit rate (%d compiles, %d failures)\n",
		s.Cache.HitRate()*100, s.Cache.Compiles, s.Cache.Errors)
	fmt.Fprintf(&b, "  corpus: %d saved, %d duplicates suppressed\n",
		s.SavedEntries, s.DuplicateFindings)
	return b.String()
}

func (r *Report) findingLines() string {
	var b strings.Builder
	if len(r.Findings) == 0 {
		b.WriteString(ux.Styles.Muted.Render("no divergences persisted"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(ux.Styles.Subtitle.Render(fmt.Sprintf("findings (%d)", len(r.Findings))))
	b.WriteString("\n")
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "  %s %s %s %s\n", ux.IconDiverge.Render(),
			ux.Styles.Bold.Render(fmt.Sprintf("%q", f.Pattern)),
			fmt.Sprintf("on %q", f.Input),
			ux.Styles.Muted.Render("["+strings.Join(f.Divergent, ", ")+"]"))
		fmt.Fprintf(&b, "    %s\n", ux.Styles.Muted.Render(f.Dir))
	}
	return b.String()
}

// verdictLine is the one-line conclusion at the bottom, the analog of
// a test suite's pass/fail trailer.
func (r *Report) verdictLine() string {
	if n := len(r.Findings); n > 0 {
		return ux.Styles.Error.Render(fmt.Sprintf("✗ %d divergence(s) recorded", n))
	}
	if r.Stats != nil && r.Stats.Divergences > 0 {
		return ux.Styles.Error.Render(
			fmt.Sprintf("✗ %d divergence(s) observed (persistence disabled)", r.Stats.Divergences))
	}
	return ux.Styles.Success.Render("✓ no divergences")
}

// ===== Helpers ===============================================================

const (
	timeFormat   = "2006-01-02 15:04:05 MST"
	timeRounding = 100 * time.Millisecond
)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
