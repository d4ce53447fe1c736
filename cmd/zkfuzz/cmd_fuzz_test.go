// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// CONFIG OVERLAY TESTS
// =============================================================================

func TestLoadFuzzConfig_FlagOverlay(t *testing.T) {
	fl := fuzzCmd.Flags()
	set := func(flag, value string) {
		t.Helper()
		if err := fl.Set(flag, value); err != nil {
			t.Fatalf("set --%s=%s: %v", flag, value, err)
		}
	}
	set("seed", "42")
	set("oracle", "cross")
	set("target", "reference,gnark")
	set("time-budget", "90")
	set("no-corpus", "true")

	cfg, err := loadFuzzConfig(fuzzCmd)
	if err != nil {
		t.Fatalf("loadFuzzConfig returned %v", err)
	}

	if cfg.Fuzz.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Fuzz.Seed)
	}
	if cfg.Fuzz.Oracle != "cross" {
		t.Errorf("oracle = %q, want cross", cfg.Fuzz.Oracle)
	}
	if len(cfg.Fuzz.Targets) != 2 || cfg.Fuzz.Targets[0] != "reference" || cfg.Fuzz.Targets[1] != "gnark" {
		t.Errorf("targets = %v, want [reference gnark]", cfg.Fuzz.Targets)
	}
	if got := time.Duration(cfg.Fuzz.TimeBudget); got != 90*time.Second {
		t.Errorf("time budget = %v, want 90s", got)
	}
	if !cfg.Corpus.Disable {
		t.Error("corpus persistence still enabled after --no-corpus")
	}

	// Settings without an explicit flag keep their defaults.
	if cfg.Fuzz.Fuzzer != "grammar" {
		t.Errorf("fuzzer = %q, want the grammar default", cfg.Fuzz.Fuzzer)
	}
	if cfg.Fuzz.InputCount != 5 {
		t.Errorf("input count = %d, want the default 5", cfg.Fuzz.InputCount)
	}
}

func TestLoadFuzzConfig_RejectsBadOverlay(t *testing.T) {
	fl := fuzzCmd.Flags()
	if err := fl.Set("log-level", "loud"); err != nil {
		t.Fatalf("set --log-level: %v", err)
	}

	_, err := loadFuzzConfig(fuzzCmd)
	if err == nil {
		t.Fatal("loadFuzzConfig accepted an invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v, want a config validation error", err)
	}
}
