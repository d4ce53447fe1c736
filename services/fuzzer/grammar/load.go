// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grammar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

// MaxGrammarFileSize is the maximum allowed grammar file size (1MB).
const MaxGrammarFileSize = 1024 * 1024

//go:embed grammar.yaml
var builtinGrammarYAML []byte

// grammarYAML is the on-disk grammar structure.
type grammarYAML struct {
	Start string              `yaml:"start"`
	Rules map[string][]string `yaml:"rules"`
}

// Builtin returns the embedded default grammar, validated.
//
// The builtin targets the zk-regex syntax subset: edge anchors only,
// greedy quantifiers, small bounded repetitions.
func Builtin() (*Grammar, error) {
	g, err := parse(builtinGrammarYAML)
	if err != nil {
		return nil, fmt.Errorf("builtin grammar: %w", err)
	}
	return g, nil
}

// Load reads and validates a grammar from a YAML file.
//
// Description:
//
//	Loads an external grammar so campaigns can target other syntax
//	subsets without rebuilding. The file is size-limited and the path
//	is checked for traversal sequences before reading.
//
// Inputs:
//
//	path - Path to the YAML grammar file.
//
// Outputs:
//
//	*Grammar - The validated grammar. Never nil on success.
//	error - Non-nil on read, parse, or validation failure.
func Load(path string) (*Grammar, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving grammar path: %w", err)
	}
	if strings.Contains(absPath, "..") {
		return nil, fmt.Errorf("grammar path traversal not allowed: %s", absPath)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat grammar file: %w", err)
	}
	if info.Size() > MaxGrammarFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), MaxGrammarFileSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading grammar file: %w", err)
	}

	g, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", path, err)
	}
	return g, nil
}

// parse unmarshals and validates grammar YAML.
func parse(data []byte) (*Grammar, error) {
	var raw grammarYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling grammar YAML: %w", err)
	}

	g := &Grammar{
		Start: raw.Start,
		Rules: raw.Rules,
	}
	if g.Start == "" {
		g.Start = "<start>"
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
