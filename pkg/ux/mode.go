// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// OutputMode defines the richness of CLI output
type OutputMode string

const (
	// ModeRich enables colors, icons, and boxed summaries
	ModeRich OutputMode = "rich"

	// ModePlain uses icons and basic formatting without color
	ModePlain OutputMode = "plain"

	// ModeMachine outputs plain text suitable for scripting and parsing
	ModeMachine OutputMode = "machine"
)

var (
	currentMode = ModeRich
	modeMu      sync.RWMutex
)

// GetMode returns the current output mode
func GetMode() OutputMode {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return currentMode
}

// SetMode updates the current output mode
func SetMode(m OutputMode) {
	modeMu.Lock()
	defer modeMu.Unlock()
	currentMode = m
}

// ParseMode converts a string to OutputMode
func ParseMode(s string) OutputMode {
	switch strings.ToLower(s) {
	case "rich", "r":
		return ModeRich
	case "plain", "p":
		return ModePlain
	case "machine", "quiet", "q":
		return ModeMachine
	default:
		return ModeRich
	}
}

// InitMode initializes the output mode from environment and terminal state.
//
// Resolution order: ZKFUZZ_OUTPUT env var, NO_COLOR convention, then
// TTY detection (non-interactive output drops to machine mode so logs
// and pipes stay parseable).
func InitMode() {
	if env := os.Getenv("ZKFUZZ_OUTPUT"); env != "" {
		SetMode(ParseMode(env))
		return
	}

	if os.Getenv("NO_COLOR") != "" {
		SetMode(ModePlain)
		return
	}

	if !isTerminal() {
		SetMode(ModeMachine)
		return
	}

	SetMode(ModeRich)
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ShouldShowProgress returns true if progress lines should be printed
func ShouldShowProgress() bool {
	return GetMode() != ModeMachine
}

// ShouldShowColors returns true if styled output should be used
func ShouldShowColors() bool {
	return GetMode() == ModeRich
}
