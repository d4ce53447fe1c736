// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{
			name: "campaign-assigned form",
			id:   "20260824-120000-a1b2c3d4",
		},
		{
			name: "simple name",
			id:   "nightly",
		},
		{
			name: "dots and underscores",
			id:   "run_2.1-rc",
		},
		{
			name: "single character",
			id:   "x",
		},
		{
			name: "max length",
			id:   "r" + strings.Repeat("0", 127),
		},
		{
			name:    "empty",
			id:      "",
			wantErr: true,
		},
		{
			name:    "too long",
			id:      "r" + strings.Repeat("0", 128),
			wantErr: true,
		},
		{
			name:    "path separator",
			id:      "run/evil",
			wantErr: true,
		},
		{
			name:    "windows path separator",
			id:      `run\evil`,
			wantErr: true,
		},
		{
			name:    "traversal",
			id:      "..",
			wantErr: true,
		},
		{
			name:    "index key delimiter",
			id:      "run:1",
			wantErr: true,
		},
		{
			name:    "leading dot collides with index dir",
			id:      ".index",
			wantErr: true,
		},
		{
			name:    "whitespace",
			id:      "run 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunID(tt.id)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateRunID(%q) accepted, want error", tt.id)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateRunID(%q) = %v, want nil", tt.id, err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name: "relative path",
			path: "tools.yaml",
		},
		{
			name: "absolute path",
			path: "/etc/zkfuzz/tools.yaml",
		},
		{
			name:    "empty",
			path:    "",
			wantErr: true,
		},
		{
			name:    "traversal",
			path:    "../../etc/passwd",
			wantErr: true,
		},
		{
			name:    "embedded traversal",
			path:    "configs/../../secret.yaml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr && err == nil {
				t.Errorf("ValidatePath(%q) accepted, want error", tt.path)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
			}
		})
	}
}
