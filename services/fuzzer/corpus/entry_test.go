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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
)

func TestLoadEntry_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	saved, _, err := s.Save(context.Background(), "run-1", divergence("a+b", "aab"))
	require.NoError(t, err)

	loaded, err := LoadEntry(saved.Dir)
	require.NoError(t, err)
	assert.Equal(t, saved.Dir, loaded.Dir)
	assert.Equal(t, "a+b", loaded.Pattern)
	assert.Equal(t, "aab", loaded.Input.Text)
	assert.Equal(t, input.LabelShouldMatch, loaded.Input.Label)
	assert.Equal(t, "enumeration", loaded.Input.Strategy)
	assert.Equal(t, oracle.VerdictDiverge, loaded.Metadata.Judgment.Verdict)
	assert.Equal(t, saved.Metadata.EntryID, loaded.Metadata.EntryID)
}

func TestLoadEntry_MissingFiles(t *testing.T) {
	_, err := LoadEntry(t.TempDir())
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestLoadEntry_BadMetadata(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PatternFile), []byte("a"), 0640))
	require.NoError(t, os.WriteFile(filepath.Join(dir, InputFile), []byte("a"), 0640))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte("{not json"), 0640))

	_, err := LoadEntry(dir)
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestLoadEntry_UnknownLabel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PatternFile), []byte("a"), 0640))
	require.NoError(t, os.WriteFile(filepath.Join(dir, InputFile), []byte("a"), 0640))
	meta := `{"run_id":"r","entry_id":"e","label":"maybe","judgment":{"kind":"validity","verdict":"diverge"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte(meta), 0640))

	_, err := LoadEntry(dir)
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestLoadEntry_UnknownVerdict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PatternFile), []byte("a"), 0640))
	require.NoError(t, os.WriteFile(filepath.Join(dir, InputFile), []byte("a"), 0640))
	meta := `{"run_id":"r","entry_id":"e","label":"should-match","judgment":{"kind":"validity","verdict":"maybe"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte(meta), 0640))

	_, err := LoadEntry(dir)
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestScan_FindsEntriesSkipsIndex(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	// Persistent store so the .index directory exists on disk and
	// must be skipped.
	s, err := Open(root)
	require.NoError(t, err)
	defer s.Close()

	first, _, err := s.Save(ctx, "run-1", divergence("a+b", "aab"))
	require.NoError(t, err)
	second, _, err := s.Save(ctx, "run-2", divergence("a|b", "b"))
	require.NoError(t, err)

	// A run directory with no entries and a stray file must not be
	// reported.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "run-3"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0640))

	dirs, err := Scan(root)
	require.NoError(t, err)
	want := []string{first.Dir, second.Dir}
	assert.ElementsMatch(t, want, dirs)
	assert.IsIncreasing(t, dirs)
}

func TestScan_EmptyRoot(t *testing.T) {
	dirs, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, dirs)
}
