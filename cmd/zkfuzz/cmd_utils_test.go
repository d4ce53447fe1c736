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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/report"
)

// =============================================================================
// TOOLCHAIN PATH PARSING TESTS
// =============================================================================

func TestParseToolchainPaths(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "empty",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "single pair",
			pairs: []string{"circom=/opt/circom/bin/circom"},
			want:  map[string]string{"circom": "/opt/circom/bin/circom"},
		},
		{
			name:  "multiple pairs",
			pairs: []string{"circom=/opt/circom", "nargo=/home/u/.nargo/bin/nargo"},
			want: map[string]string{
				"circom": "/opt/circom",
				"nargo":  "/home/u/.nargo/bin/nargo",
			},
		},
		{
			name:  "path containing equals",
			pairs: []string{"bb=/weird=dir/bb"},
			want:  map[string]string{"bb": "/weird=dir/bb"},
		},
		{
			name:    "missing separator",
			pairs:   []string{"circom"},
			wantErr: true,
		},
		{
			name:    "empty name",
			pairs:   []string{"=/opt/circom"},
			wantErr: true,
		},
		{
			name:    "empty path",
			pairs:   []string{"circom="},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolchainPaths(tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseToolchainPaths(%v) = %v, want error", tt.pairs, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseToolchainPaths(%v) returned %v", tt.pairs, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseToolchainPaths(%v) = %v, want %v", tt.pairs, got, tt.want)
			}
			for name, path := range tt.want {
				if got[name] != path {
					t.Errorf("override %s = %q, want %q", name, got[name], path)
				}
			}
		})
	}
}

// =============================================================================
// TIME BUDGET PARSING TESTS
// =============================================================================

func TestParseTimeBudget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{
			name:  "empty means unlimited",
			input: "",
			want:  0,
		},
		{
			name:  "bare number is seconds",
			input: "90",
			want:  90 * time.Second,
		},
		{
			name:  "fractional seconds",
			input: "0.5",
			want:  500 * time.Millisecond,
		},
		{
			name:  "duration string",
			input: "90s",
			want:  90 * time.Second,
		},
		{
			name:  "minutes",
			input: "10m",
			want:  10 * time.Minute,
		},
		{
			name:    "negative seconds",
			input:   "-5",
			wantErr: true,
		},
		{
			name:    "negative duration",
			input:   "-5s",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "soon",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimeBudget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseTimeBudget(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimeBudget(%q) returned %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseTimeBudget(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// =============================================================================
// COMMAND TREE TESTS
// =============================================================================

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"fuzz", "reproduce", "report", "targets", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

// =============================================================================
// REPORT ASSEMBLY TESTS
// =============================================================================

func TestBuildReport_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	_, err := buildReport(context.Background(), dir, "")
	if !errors.Is(err, report.ErrNoEntries) {
		t.Fatalf("buildReport on empty dir = %v, want ErrNoEntries", err)
	}
}
