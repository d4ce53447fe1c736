// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp/syntax"
	"strings"
)

// MaxListFileSize bounds pattern list files.
const MaxListFileSize = 1 << 20

// PredefinedGenerator replays a fixed pattern list in order, for
// regression sweeps over previously recorded patterns. Patterns are
// parse-validated up front; the compatibility gate is deliberately
// skipped so sweeps can cover patterns a target is known to mishandle.
type PredefinedGenerator struct {
	patterns []string
	next     int
}

// NewPredefinedGenerator builds a generator over an in-memory list.
func NewPredefinedGenerator(patterns []string) (*PredefinedGenerator, error) {
	if len(patterns) == 0 {
		return nil, ErrEmptyList
	}
	for i, p := range patterns {
		if _, err := syntax.Parse(p, syntax.Perl); err != nil {
			return nil, fmt.Errorf("%w: entry %d %q: %v", ErrMalformed, i+1, p, err)
		}
	}
	return &PredefinedGenerator{patterns: append([]string(nil), patterns...)}, nil
}

// LoadPredefined reads a pattern list file: one pattern per line, blank
// lines and #-comments ignored.
func LoadPredefined(path string) (*PredefinedGenerator, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve pattern list path: %w", err)
	}
	if strings.Contains(path, "..") {
		return nil, fmt.Errorf("pattern list path contains traversal: %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat pattern list: %w", err)
	}
	if info.Size() > MaxListFileSize {
		return nil, fmt.Errorf("pattern list %s exceeds %d bytes", path, MaxListFileSize)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read pattern list: %w", err)
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	gen, err := NewPredefinedGenerator(patterns)
	if err != nil {
		return nil, fmt.Errorf("pattern list %s: %w", path, err)
	}
	return gen, nil
}

// Name implements Generator.
func (p *PredefinedGenerator) Name() string { return "predefined" }

// Generate returns the next listed pattern, or ErrNoMorePatterns when
// the list is spent.
func (p *PredefinedGenerator) Generate() (Pattern, error) {
	if p.next >= len(p.patterns) {
		return Pattern{}, ErrNoMorePatterns
	}
	text := p.patterns[p.next]
	p.next++
	return Pattern{Text: text, Generator: p.Name()}, nil
}

// Remaining reports how many patterns are left to replay.
func (p *PredefinedGenerator) Remaining() int { return len(p.patterns) - p.next }
