// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// Helper to capture stdout
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// Helper to capture stderr
func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render_Styled(t *testing.T) {
	styled := []Icon{IconSuccess, IconWarning, IconError, IconPending,
		IconAgree, IconDiverge, IconInconclusive}
	for _, icon := range styled {
		if icon.Render() == "" {
			t.Errorf("expected non-empty render for %q", icon)
		}
	}
}

func TestIcon_Render_Default(t *testing.T) {
	// Icons without specific styling render as themselves
	icons := []Icon{IconArrow, IconBullet}
	for _, icon := range icons {
		result := icon.Render()
		if result != string(icon) {
			t.Errorf("expected %q for %q, got %q", string(icon), icon, result)
		}
	}
}

// =============================================================================
// Title Tests
// =============================================================================

func TestTitle_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	SetMode(ModeMachine)

	output := captureStdout(func() {
		Title("Campaign Summary")
	})

	// In machine mode, Title should output nothing
	if output != "" {
		t.Errorf("expected no output in machine mode, got %q", output)
	}
}

func TestTitle_RichMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	SetMode(ModeRich)

	output := captureStdout(func() {
		Title("Campaign Summary")
	})

	if !strings.Contains(output, "Campaign Summary") {
		t.Errorf("expected title text in output, got %q", output)
	}
}

// =============================================================================
// Message Helper Tests
// =============================================================================

func TestSuccess_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	output := captureStdout(func() {
		Success("no divergences")
	})

	if !strings.HasPrefix(output, "OK:") {
		t.Errorf("expected OK: prefix, got %q", output)
	}
}

func TestWarning_MachineMode_GoesToStderr(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	errOut := captureStderr(func() {
		Warning("target disabled")
	})

	if !strings.Contains(errOut, "WARN: target disabled") {
		t.Errorf("expected warning on stderr, got %q", errOut)
	}
}

func TestError_MachineMode_GoesToStderr(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	errOut := captureStderr(func() {
		Error("generator failure")
	})

	if !strings.Contains(errOut, "ERROR: generator failure") {
		t.Errorf("expected error on stderr, got %q", errOut)
	}
}

func TestInfo_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	output := captureStdout(func() {
		Info("iteration 10")
	})

	if strings.TrimSpace(output) != "iteration 10" {
		t.Errorf("expected plain text, got %q", output)
	}
}

func TestMuted_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	output := captureStdout(func() {
		Muted("corpus: /tmp/corpus")
	})

	if output != "" {
		t.Errorf("expected no output in machine mode, got %q", output)
	}
}

// =============================================================================
// Box Tests
// =============================================================================

func TestBox_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	output := captureStdout(func() {
		Box("Results", "2 divergences")
	})

	if !strings.Contains(output, "Results: 2 divergences") {
		t.Errorf("expected flat title: content, got %q", output)
	}
}

func TestBox_RichMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeRich)

	output := captureStdout(func() {
		Box("Results", "2 divergences")
	})

	if !strings.Contains(output, "Results") || !strings.Contains(output, "2 divergences") {
		t.Errorf("expected box content, got %q", output)
	}
}

func TestErrorBox_MachineMode_GoesToStderr(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	errOut := captureStderr(func() {
		ErrorBox("Divergence", "pattern a+b input aab")
	})

	if !strings.Contains(errOut, "ERROR Divergence") {
		t.Errorf("expected error box on stderr, got %q", errOut)
	}
}

// =============================================================================
// Verdict and Summary Tests
// =============================================================================

func TestVerdictLine_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	output := captureStdout(func() {
		VerdictLine(IconDiverge, "a+b", "aab", "reference=matched circom=not-matched")
	})

	for _, want := range []string{"a+b", "aab", "reference=matched"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got %q", want, output)
		}
	}
	if !strings.Contains(output, "\t") {
		t.Errorf("machine mode should be tab-separated, got %q", output)
	}
}

func TestVerdictLine_RichMode_WithDetail(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeRich)

	output := captureStdout(func() {
		VerdictLine(IconAgree, "a+b", "ab", "all targets matched")
	})

	if !strings.Contains(output, "a+b") || !strings.Contains(output, "all targets matched") {
		t.Errorf("expected pattern and detail, got %q", output)
	}
}

func TestSummary_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	output := captureStdout(func() {
		Summary(10, 2, 1)
	})

	want := "SUMMARY: agreements=10 divergences=2 inconclusive=1"
	if !strings.Contains(output, want) {
		t.Errorf("expected %q, got %q", want, output)
	}
}

func TestSummary_RichMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeRich)

	output := captureStdout(func() {
		Summary(10, 2, 1)
	})

	for _, want := range []string{"10", "2", "1", "agree", "diverge", "inconclusive"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in summary, got %q", want, output)
		}
	}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar_MachineMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeMachine)

	result := ProgressBar(5, 10, 20)
	if result != "5/10" {
		t.Errorf("expected 5/10, got %q", result)
	}
}

func TestProgressBar_RichMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeRich)

	result := ProgressBar(5, 10, 20)
	if !strings.Contains(result, "50%") {
		t.Errorf("expected 50%% in bar, got %q", result)
	}
}

func TestProgressBar_Complete(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)
	SetMode(ModeRich)

	result := ProgressBar(10, 10, 20)
	if !strings.Contains(result, "100%") {
		t.Errorf("expected 100%% in bar, got %q", result)
	}
}

// =============================================================================
// repeatChar Tests
// =============================================================================

func TestRepeatChar(t *testing.T) {
	tests := []struct {
		name string
		c    rune
		n    int
		want string
	}{
		{"five", '█', 5, "█████"},
		{"zero", '█', 0, ""},
		{"negative", '█', -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repeatChar(tt.c, tt.n); got != tt.want {
				t.Errorf("repeatChar(%q, %d) = %q, want %q", tt.c, tt.n, got, tt.want)
			}
		})
	}
}
