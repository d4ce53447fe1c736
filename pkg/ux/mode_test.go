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
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"rich", ModeRich},
		{"r", ModeRich},
		{"RICH", ModeRich},
		{"plain", ModePlain},
		{"p", ModePlain},
		{"machine", ModeMachine},
		{"quiet", ModeMachine},
		{"q", ModeMachine},
		{"unknown", ModeRich},
		{"", ModeRich},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseMode(tt.in); got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetGetMode(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	SetMode(ModePlain)
	if got := GetMode(); got != ModePlain {
		t.Errorf("GetMode() = %v, want ModePlain", got)
	}

	SetMode(ModeMachine)
	if got := GetMode(); got != ModeMachine {
		t.Errorf("GetMode() = %v, want ModeMachine", got)
	}
}

func TestInitMode_EnvOverride(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	t.Setenv("ZKFUZZ_OUTPUT", "machine")
	InitMode()
	if got := GetMode(); got != ModeMachine {
		t.Errorf("GetMode() after env override = %v, want ModeMachine", got)
	}
}

func TestInitMode_NoColor(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	t.Setenv("ZKFUZZ_OUTPUT", "")
	t.Setenv("NO_COLOR", "1")
	InitMode()
	if got := GetMode(); got != ModePlain {
		t.Errorf("GetMode() with NO_COLOR = %v, want ModePlain", got)
	}
}

func TestShouldShowProgress(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	SetMode(ModeRich)
	if !ShouldShowProgress() {
		t.Error("expected progress in rich mode")
	}

	SetMode(ModeMachine)
	if ShouldShowProgress() {
		t.Error("expected no progress in machine mode")
	}
}

func TestShouldShowColors(t *testing.T) {
	orig := GetMode()
	defer SetMode(orig)

	SetMode(ModeRich)
	if !ShouldShowColors() {
		t.Error("expected colors in rich mode")
	}

	SetMode(ModePlain)
	if ShouldShowColors() {
		t.Error("expected no colors in plain mode")
	}
}
