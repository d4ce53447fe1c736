// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/zkfuzz/pkg/ux"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
)

// agreementBarWidth is the agreement bar width in cells.
const agreementBarWidth = 24

// =============================================================================
// Dashboard Layout
// =============================================================================

func (m DashboardModel) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderVerdicts())
	b.WriteString("\n")
	b.WriteString(m.renderTargets())
	b.WriteString("\n")
	b.WriteString(m.renderPipeline())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")

	return b.String()
}

// =============================================================================
// Header Rendering
// =============================================================================

func (m DashboardModel) renderHeader() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("zkfuzz"))
	b.WriteString("  ")
	b.WriteString(runStyle.Render(m.stats.RunID))
	b.WriteString("  ")
	b.WriteString(m.renderState())

	if m.stats.State != campaign.StateStopped {
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
	}

	if m.stats.Elapsed > 0 {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(m.stats.Elapsed.Round(time.Second).String()))
	}

	return b.String()
}

func (m DashboardModel) renderState() string {
	state := strings.ToUpper(string(m.stats.State))
	if m.stats.State == campaign.StateStopped {
		return stoppedBadge.Render(state)
	}
	return runningBadge.Render(state)
}

// =============================================================================
// Verdict Rendering
// =============================================================================

func (m DashboardModel) renderVerdicts() string {
	s := m.stats
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(statPair("iterations", s.Iterations))
	b.WriteString("   ")
	b.WriteString(statPair("inputs", s.Inputs))
	b.WriteString("   ")
	b.WriteString(statPair("executions", s.Executions))
	if s.ExecutionErrors > 0 {
		b.WriteString("   ")
		b.WriteString(statPair("exec errors", s.ExecutionErrors))
	}
	b.WriteString("\n")

	b.WriteString("  ")
	b.WriteString(agreeStyle.Render(fmt.Sprintf("%s %d agree", ux.IconAgree, s.Agreements)))
	b.WriteString("   ")
	b.WriteString(divergeStyle.Render(fmt.Sprintf("%s %d diverge", ux.IconDiverge, s.Divergences)))
	b.WriteString("   ")
	b.WriteString(inconclusiveStyle.Render(fmt.Sprintf("%s %d inconclusive", ux.IconInconclusive, s.Inconclusives)))
	if s.LabelMismatches > 0 {
		b.WriteString("   ")
		b.WriteString(labelStyle.Render(fmt.Sprintf("label mismatches %d", s.LabelMismatches)))
	}
	b.WriteString("\n")

	judged := s.Agreements + s.Divergences + s.Inconclusives
	if judged > 0 {
		b.WriteString("  ")
		b.WriteString(ux.ProgressBar(int(s.Agreements), int(judged), agreementBarWidth))
		b.WriteString(" ")
		b.WriteString(labelStyle.Render("agreement"))
		b.WriteString("\n")
	}

	return b.String()
}

func statPair(label string, value int64) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(fmt.Sprintf("%d", value))
}

// =============================================================================
// Target Rendering
// =============================================================================

func (m DashboardModel) renderTargets() string {
	s := m.stats
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(labelStyle.Render("targets"))
	b.WriteString(" ")
	if len(s.ActiveTargets) > 0 {
		b.WriteString(valueStyle.Render(strings.Join(s.ActiveTargets, " ")))
	} else {
		b.WriteString(warnStyle.Render("none active"))
	}
	b.WriteString("\n")

	names := make([]string, 0, len(s.DisabledTargets))
	for name := range s.DisabledTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render(fmt.Sprintf("%s %s disabled:", ux.IconWarning, name)))
		b.WriteString(" ")
		b.WriteString(labelStyle.Render(s.DisabledTargets[name]))
		b.WriteString("\n")
	}

	return b.String()
}

// =============================================================================
// Pipeline Rendering
// =============================================================================

func (m DashboardModel) renderPipeline() string {
	s := m.stats
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(statPair("patterns", s.Generator.Generated))
	if s.Generator.Rejected > 0 || s.Generator.Deduped > 0 {
		b.WriteString(labelStyle.Render(fmt.Sprintf(" (rejected %d, deduped %d)",
			s.Generator.Rejected, s.Generator.Deduped)))
	}
	b.WriteString("   ")

	total := s.Cache.Hits + s.Cache.Misses
	if total > 0 {
		b.WriteString(labelStyle.Render("cache"))
		b.WriteString(" ")
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.1f%% hit", s.Cache.HitRate()*100)))
		if s.Cache.Errors > 0 {
			b.WriteString(labelStyle.Render(fmt.Sprintf(" (%d compile failures)", s.Cache.Errors)))
		}
		b.WriteString("   ")
	}

	b.WriteString(statPair("saved", s.SavedEntries))
	if s.DuplicateFindings > 0 {
		b.WriteString(labelStyle.Render(fmt.Sprintf(" (%d dup)", s.DuplicateFindings)))
	}
	b.WriteString("\n")

	return b.String()
}

// =============================================================================
// Footer Rendering
// =============================================================================

func (m DashboardModel) renderFooter() string {
	return footerStyle.Render(fmt.Sprintf("  [Q] Quit   refresh %s",
		m.config.RefreshInterval))
}
