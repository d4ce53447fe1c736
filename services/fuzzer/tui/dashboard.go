// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the live terminal dashboard for a running
// fuzzing campaign.
//
// # Description
//
// This package implements the campaign dashboard using bubbletea. It
// polls the campaign for stats snapshots on a fixed interval and
// renders verdict counts, target health, and pipeline throughput until
// the campaign stops or the user quits.
//
// # Thread Safety
//
// TUI components are designed for single-threaded use within the
// bubbletea event loop. The stats source is the only shared state and
// must be safe for concurrent snapshots.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
)

// =============================================================================
// Messages
// =============================================================================

// tickMsg asks the model to poll a fresh stats snapshot.
type tickMsg time.Time

// =============================================================================
// Stats Source
// =============================================================================

// StatsSource is the campaign-side view the dashboard polls. The
// running campaign satisfies it; tests substitute fixtures.
type StatsSource interface {
	// RunID identifies the run being displayed.
	RunID() string

	// Stats returns a point-in-time snapshot.
	Stats() campaign.Stats
}

// =============================================================================
// Config
// =============================================================================

// DashboardConfig configures the campaign dashboard.
type DashboardConfig struct {
	// RefreshInterval is the stats polling cadence.
	RefreshInterval time.Duration

	// ExitOnStop quits the dashboard when the campaign reaches the
	// stopped state, returning the terminal to the CLI for the final
	// report.
	ExitOnStop bool
}

// DefaultDashboardConfig returns sensible defaults.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		RefreshInterval: 500 * time.Millisecond,
		ExitOnStop:      true,
	}
}

// =============================================================================
// Model
// =============================================================================

// DashboardModel is the bubbletea model for the live campaign view.
//
// # Description
//
// Holds the last polled stats snapshot and the terminal dimensions.
// All mutation happens inside Update; View is pure rendering.
type DashboardModel struct {
	// Configuration
	config DashboardConfig

	// Campaign being observed
	source StatsSource

	// Last polled snapshot
	stats campaign.Stats

	// Activity indicator while the campaign runs
	spinner spinner.Model

	// Terminal dimensions
	width  int
	height int

	// State flags
	ready       bool
	interrupted bool
	quitting    bool
}

// NewDashboardModel creates a dashboard over source.
//
// # Inputs
//
//   - source: The campaign to poll. Must be safe for concurrent
//     snapshots.
//   - config: Configuration options.
//
// # Outputs
//
//   - DashboardModel: Ready-to-use model for tea.NewProgram.
func NewDashboardModel(source StatsSource, config DashboardConfig) DashboardModel {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultDashboardConfig().RefreshInterval
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return DashboardModel{
		config:  config,
		source:  source,
		stats:   source.Stats(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scheduleTick())
}

// Update implements tea.Model.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			m.interrupted = true
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.stats = m.source.Stats()
		if m.config.ExitOnStop && m.stats.State == campaign.StateStopped {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.scheduleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m DashboardModel) View() string {
	if m.quitting {
		// Leave the terminal clean; the CLI prints the final report.
		return ""
	}

	if !m.ready {
		return "Starting campaign...\n"
	}

	return m.renderDashboard()
}

func (m DashboardModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.config.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// =============================================================================
// Result Access
// =============================================================================

// Interrupted reports whether the user quit before the campaign
// stopped. The CLI uses it to cancel the run context.
func (m DashboardModel) Interrupted() bool {
	return m.interrupted
}

// Stats returns the last snapshot the dashboard displayed.
func (m DashboardModel) Stats() campaign.Stats {
	return m.stats
}

// =============================================================================
// Styles
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	runStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	agreeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	divergeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	inconclusiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("226"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	runningBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Background(lipgloss.Color("22")).
			Padding(0, 1)

	stoppedBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Background(lipgloss.Color("58")).
			Padding(0, 1)
)
