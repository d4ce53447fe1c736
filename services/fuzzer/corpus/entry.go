// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// File names inside one entry directory.
const (
	PatternFile  = "pattern.txt"
	InputFile    = "input.txt"
	MetadataFile = "metadata.json"
)

// indexDirName holds the BadgerDB index under the corpus root. The
// leading dot keeps it out of run scans.
const indexDirName = ".index"

// =============================================================================
// Entry Types
// =============================================================================

// Metadata is the metadata.json payload. The pattern and input bytes
// live in their own files; everything else needed for replay and
// reporting is here.
type Metadata struct {
	// RunID is the campaign run that captured the entry.
	RunID string `json:"run_id"`

	// EntryID is the entry's directory name, unique within the run.
	EntryID string `json:"entry_id"`

	// Label is the generator's intended label in corpus form.
	Label string `json:"label"`

	// Strategy names the input strategy that produced the input.
	Strategy string `json:"strategy"`

	// Seed is the campaign seed active when the entry was captured.
	Seed int64 `json:"seed"`

	// Judgment is the oracle's full conclusion at capture time.
	Judgment oracle.Judgment `json:"judgment"`

	// Results holds the per-target results at capture time, keyed by
	// registry name.
	Results map[string]target.MatchResult `json:"results"`

	// Toolchains records the probed tool versions, keyed by tool name.
	// Reproduce compares them before trusting a non-reproduction.
	Toolchains map[string]string `json:"toolchains,omitempty"`

	// CreatedAt is the capture timestamp in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// Entry is one divergence handed to Save.
type Entry struct {
	Pattern    string
	Input      input.TestInput
	Seed       int64
	Judgment   oracle.Judgment
	Results    map[string]target.MatchResult
	Toolchains map[string]string
}

// SavedEntry points at a persisted entry.
type SavedEntry struct {
	// Dir is the entry directory.
	Dir string

	// Metadata is the persisted metadata.
	Metadata Metadata
}

// LoadedEntry is an entry read back from disk for replay.
type LoadedEntry struct {
	// Dir is the entry directory it was read from.
	Dir string

	// Pattern is the raw pattern text.
	Pattern string

	// Input is the recorded input reassembled from input.txt and the
	// metadata label and strategy.
	Input input.TestInput

	// Metadata is the parsed metadata.json.
	Metadata Metadata
}

// =============================================================================
// Replay Loading
// =============================================================================

// LoadEntry reads one entry directory.
//
// Description:
//
//	Reads pattern.txt, input.txt, and metadata.json and reassembles
//	the executed TestInput. Works on any entry directory, including
//	ones copied away from their corpus root; the index is never
//	consulted.
//
// Inputs:
//
//	dir - The entry directory.
//
// Outputs:
//
//	*LoadedEntry - The replayable entry.
//	error - ErrCorruptEntry-wrapped when files are missing or the
//	        metadata does not parse.
func LoadEntry(dir string) (*LoadedEntry, error) {
	patternBytes, err := os.ReadFile(filepath.Join(dir, PatternFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, dir, err)
	}
	inputBytes, err := os.ReadFile(filepath.Join(dir, InputFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, dir, err)
	}
	metaBytes, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, dir, err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: bad metadata: %v", ErrCorruptEntry, dir, err)
	}
	label, err := input.ParseLabel(meta.Label)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, dir, err)
	}
	if _, err := oracle.ParseVerdict(string(meta.Judgment.Verdict)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, dir, err)
	}

	return &LoadedEntry{
		Dir:     dir,
		Pattern: string(patternBytes),
		Input: input.TestInput{
			Text:     string(inputBytes),
			Label:    label,
			Strategy: meta.Strategy,
		},
		Metadata: meta,
	}, nil
}

// Scan walks root and returns every entry directory, sorted.
//
// Description:
//
//	An entry directory is any directory containing metadata.json.
//	Dot-directories, including the index, are skipped. Scan is the
//	index-free path: report falls back to it when pointed at a corpus
//	root with no readable index, and reproduce globs resolve against
//	the same layout.
func Scan(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if _, statErr := os.Stat(filepath.Join(path, MetadataFile)); statErr == nil {
			dirs = append(dirs, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus root %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}
