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
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseToolchainPaths turns repeated name=path flags into the
// override map the toolchain registry takes.
func parseToolchainPaths(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, path, ok := strings.Cut(pair, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid --toolchain-path %q, want name=path", pair)
		}
		overrides[name] = path
	}
	return overrides, nil
}

// parseTimeBudget parses a wall-clock budget. Duration strings work
// as usual; a bare number is taken as seconds, matching what most
// fuzzer harnesses expect from a budget flag.
func parseTimeBudget(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("time budget must not be negative, got %s", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --time-budget %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("time budget must not be negative, got %s", s)
	}
	return d, nil
}
