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
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
)

// pollSource serves whatever snapshot the test last stored.
type pollSource struct {
	stats campaign.Stats
}

func (p *pollSource) RunID() string         { return p.stats.RunID }
func (p *pollSource) Stats() campaign.Stats { return p.stats }

func testSource() *pollSource {
	return &pollSource{
		stats: campaign.Stats{
			RunID:       "run-dash",
			State:       campaign.StateExecuting,
			Iterations:  7,
			Inputs:      35,
			Executions:  105,
			Agreements:  30,
			Divergences: 2,
			ActiveTargets: []string{
				"gnark", "reference", "regexp2",
			},
			DisabledTargets: map[string]string{
				"circom": "codegen: zk-regex rejected the pattern",
			},
		},
	}
}

func TestNewDashboardModel(t *testing.T) {
	src := testSource()
	model := NewDashboardModel(src, DefaultDashboardConfig())

	if model.stats.RunID != "run-dash" {
		t.Errorf("Expected initial snapshot, got RunID %q", model.stats.RunID)
	}
	if model.ready {
		t.Error("Model should not be ready before WindowSizeMsg")
	}
	if model.quitting {
		t.Error("Model should not start quitting")
	}
}

func TestNewDashboardModel_DefaultsInterval(t *testing.T) {
	model := NewDashboardModel(testSource(), DashboardConfig{})

	want := DefaultDashboardConfig().RefreshInterval
	if model.config.RefreshInterval != want {
		t.Errorf("RefreshInterval = %v, want %v", model.config.RefreshInterval, want)
	}
}

func TestDefaultDashboardConfig(t *testing.T) {
	config := DefaultDashboardConfig()

	if config.RefreshInterval != 500*time.Millisecond {
		t.Errorf("RefreshInterval = %v, want 500ms", config.RefreshInterval)
	}
	if !config.ExitOnStop {
		t.Error("Expected ExitOnStop = true")
	}
}

func TestDashboardModel_WindowSizeMsg(t *testing.T) {
	model := NewDashboardModel(testSource(), DefaultDashboardConfig())

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := newModel.(DashboardModel)

	if m.width != 120 {
		t.Errorf("width = %d, want 120", m.width)
	}
	if m.height != 40 {
		t.Errorf("height = %d, want 40", m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestDashboardModel_KeyMsg_Q(t *testing.T) {
	model := NewDashboardModel(testSource(), DefaultDashboardConfig())
	model.ready = true

	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m := newModel.(DashboardModel)

	if !m.interrupted {
		t.Error("Q key should mark the dashboard interrupted")
	}
	if !m.quitting {
		t.Error("Q key should start quitting")
	}
	if cmd == nil {
		t.Error("Q key should return quit command")
	}
	if !m.Interrupted() {
		t.Error("Interrupted() should report the user quit")
	}
}

func TestDashboardModel_TickPollsStats(t *testing.T) {
	src := testSource()
	model := NewDashboardModel(src, DefaultDashboardConfig())
	model.ready = true

	src.stats.Iterations = 99
	src.stats.Divergences = 5

	newModel, cmd := model.Update(tickMsg(time.Now()))
	m := newModel.(DashboardModel)

	if m.stats.Iterations != 99 {
		t.Errorf("Tick should refresh stats, Iterations = %d, want 99", m.stats.Iterations)
	}
	if m.Stats().Divergences != 5 {
		t.Errorf("Stats() Divergences = %d, want 5", m.Stats().Divergences)
	}
	if cmd == nil {
		t.Error("Tick should schedule the next poll")
	}
	if m.quitting {
		t.Error("Dashboard should keep running while the campaign runs")
	}
}

func TestDashboardModel_ExitOnStop(t *testing.T) {
	src := testSource()
	src.stats.State = campaign.StateStopped

	model := NewDashboardModel(src, DefaultDashboardConfig())
	model.ready = true

	newModel, cmd := model.Update(tickMsg(time.Now()))
	m := newModel.(DashboardModel)

	if !m.quitting {
		t.Error("Dashboard should quit when the campaign stops")
	}
	if m.interrupted {
		t.Error("Campaign stop is not a user interrupt")
	}
	if cmd == nil {
		t.Error("Stop should return quit command")
	}
}

func TestDashboardModel_StaysOpenWhenExitOnStopDisabled(t *testing.T) {
	src := testSource()
	src.stats.State = campaign.StateStopped

	config := DefaultDashboardConfig()
	config.ExitOnStop = false
	model := NewDashboardModel(src, config)
	model.ready = true

	newModel, _ := model.Update(tickMsg(time.Now()))
	m := newModel.(DashboardModel)

	if m.quitting {
		t.Error("Dashboard should stay open when ExitOnStop is disabled")
	}
}

func TestDashboardModel_View_NotReady(t *testing.T) {
	model := NewDashboardModel(testSource(), DefaultDashboardConfig())

	view := model.View()
	if view != "Starting campaign...\n" {
		t.Errorf("View when not ready = %q, want %q", view, "Starting campaign...\n")
	}
}

func TestDashboardModel_View_Quitting(t *testing.T) {
	model := NewDashboardModel(testSource(), DefaultDashboardConfig())
	model.quitting = true

	if view := model.View(); view != "" {
		t.Errorf("View when quitting = %q, want empty", view)
	}
}

func TestDashboardModel_View_RendersStats(t *testing.T) {
	model := NewDashboardModel(testSource(), DefaultDashboardConfig())
	model.ready = true
	model.width = 100
	model.height = 30

	view := model.View()

	for _, want := range []string{
		"run-dash",
		"2 diverge",
		"30 agree",
		"gnark reference regexp2",
		"circom disabled:",
		"[Q] Quit",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q:\n%s", want, view)
		}
	}
}
