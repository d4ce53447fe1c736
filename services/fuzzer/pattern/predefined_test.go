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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPredefined_Replay verifies in-order replay and exhaustion.
func TestPredefined_Replay(t *testing.T) {
	gen, err := NewPredefinedGenerator([]string{"a+b", "^x$"})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.Remaining())

	p, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, "a+b", p.Text)
	assert.Equal(t, "predefined", p.Generator)
	assert.Nil(t, p.Tree)

	p, err = gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, "^x$", p.Text)
	assert.Zero(t, gen.Remaining())

	_, err = gen.Generate()
	assert.ErrorIs(t, err, ErrNoMorePatterns)
}

// TestPredefined_Empty verifies an empty list is rejected.
func TestPredefined_Empty(t *testing.T) {
	_, err := NewPredefinedGenerator(nil)
	assert.ErrorIs(t, err, ErrEmptyList)
}

// TestPredefined_Malformed verifies list entries are parse-validated at
// construction with the entry position in the error.
func TestPredefined_Malformed(t *testing.T) {
	_, err := NewPredefinedGenerator([]string{"ok", "a("})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "entry 2")
}

// TestLoadPredefined verifies file loading with comments and blanks.
func TestLoadPredefined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.txt")
	content := "# regression sweep\n\na+b\n  ^x$  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	gen, err := LoadPredefined(path)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.Remaining())
}

// TestLoadPredefined_Missing verifies a useful error for absent files.
func TestLoadPredefined_Missing(t *testing.T) {
	_, err := LoadPredefined(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

// TestLoadPredefined_Traversal verifies parent-escape paths are
// rejected.
func TestLoadPredefined_Traversal(t *testing.T) {
	_, err := LoadPredefined("../../secrets.txt")
	assert.Error(t, err)
}
