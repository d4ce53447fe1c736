// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package target

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// stubNargo compiles unconditionally and resolves executions from
// $NARGO_RESULT: "reject" exits non-zero the way an unsatisfiable
// circuit does, anything else prints the revealed field array.
func stubNargo(t *testing.T) string {
	t.Helper()
	return shellScript(t, `if [ "$1" = "--version" ]; then echo "nargo version = 1.0.0-beta.6"; exit 0; fi
if [ "$1" = "compile" ]; then exit 0; fi
if [ "$1" = "execute" ]; then
  if [ "$NARGO_RESULT" = "reject" ]; then
    echo "Cannot satisfy constraint" >&2
    exit 1
  fi
  echo "output: [0x61, 0x61, 0x62, 0x00, 0x00, 0x00, 0x00, 0x00]"
  exit 0
fi
exit 0
`)
}

func stubNoirTarget(t *testing.T) Target {
	t.Helper()
	tcs := stubToolchains(t, map[string]string{
		"zk-regex": stubZkRegex(t),
		"nargo":    stubNargo(t),
	})
	tgt, err := New(context.Background(), NameNoir, Config{
		Alphabet:    grammar.Alphabet("ab"),
		MaxInputLen: 8,
		WorkDir:     t.TempDir(),
		Toolchains:  tcs,
	})
	require.NoError(t, err)
	return tgt
}

// =============================================================================
// Construction
// =============================================================================

func TestNoir_ConstructorProbesTools(t *testing.T) {
	tcs := stubToolchains(t, map[string]string{
		"zk-regex": stubZkRegex(t),
		"nargo":    "/nonexistent/nargo",
	})
	_, err := New(context.Background(), NameNoir, Config{Toolchains: tcs})
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestNoir_ProveModeProbesBarretenberg(t *testing.T) {
	tcs := stubToolchains(t, map[string]string{
		"zk-regex": stubZkRegex(t),
		"nargo":    stubNargo(t),
		"bb":       "/nonexistent/bb",
	})
	_, err := New(context.Background(), NameNoir, Config{Toolchains: tcs, Prove: true})
	require.ErrorIs(t, err, ErrToolNotFound)
}

// =============================================================================
// Pipeline
// =============================================================================

func TestNoir_CompileLaysOutPackage(t *testing.T) {
	work := t.TempDir()
	tcs := stubToolchains(t, map[string]string{
		"zk-regex": stubZkRegex(t),
		"nargo":    stubNargo(t),
	})
	tgt, err := New(context.Background(), NameNoir, Config{
		Alphabet:    grammar.Alphabet("ab"),
		MaxInputLen: 8,
		WorkDir:     work,
		Toolchains:  tcs,
	})
	require.NoError(t, err)

	art, err := tgt.Compile(context.Background(), "^a+b")
	require.NoError(t, err)
	t.Cleanup(func() { art.Close() })

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	dir := filepath.Join(work, entries[0].Name())

	manifest, err := os.ReadFile(filepath.Join(dir, "Nargo.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `name = "test_regex"`)

	main, err := os.ReadFile(filepath.Join(dir, "src", "main.nr"))
	require.NoError(t, err)
	assert.Contains(t, string(main), "global MAX_INPUT_SIZE: u32 = 8;")
	assert.Contains(t, string(main), "mod regex;")

	generated, err := os.ReadFile(filepath.Join(dir, "src", "regex.nr"))
	require.NoError(t, err)
	assert.Contains(t, string(generated), "generated")
}

func TestNoir_ExecuteMatch(t *testing.T) {
	tgt := stubNoirTarget(t)
	art := compileTestPattern(t, tgt, "a+b")

	t.Setenv("NARGO_RESULT", "match")
	res := tgt.Execute(context.Background(), art, "aab")
	require.False(t, res.Errored(), res.Reason)
	assert.True(t, res.Matched())
	assert.Equal(t, "aab", res.Substring)
}

func TestNoir_ExecuteRejection(t *testing.T) {
	// A non-zero nargo exit is the circuit failing to solve, which is
	// this stack's non-match verdict rather than an error.
	tgt := stubNoirTarget(t)
	art := compileTestPattern(t, tgt, "a+b")

	t.Setenv("NARGO_RESULT", "reject")
	res := tgt.Execute(context.Background(), art, "bbb")
	require.False(t, res.Errored(), res.Reason)
	assert.False(t, res.Matched())
}

func TestNoir_InputValidation(t *testing.T) {
	tgt := stubNoirTarget(t)
	art := compileTestPattern(t, tgt, "a+")

	res := tgt.Execute(context.Background(), art, "aaaaaaaaaaaa")
	assert.True(t, res.Errored())
	assert.Equal(t, StageInput, res.Stage)
}

func TestNoir_CompileFailure(t *testing.T) {
	failing := shellScript(t, `if [ "$1" = "--version" ]; then echo "nargo version = 1.0.0-beta.6"; exit 0; fi
echo "error: cannot determine loop bound" >&2
exit 1
`)
	tcs := stubToolchains(t, map[string]string{
		"zk-regex": stubZkRegex(t),
		"nargo":    failing,
	})
	tgt, err := New(context.Background(), NameNoir, Config{
		WorkDir:    t.TempDir(),
		Toolchains: tcs,
	})
	require.NoError(t, err)

	_, err = tgt.Compile(context.Background(), "a+")
	require.Error(t, err)

	var te *ToolchainError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, NameNoir, te.Target)
	assert.Equal(t, StageCompile, te.Stage)
	assert.Equal(t, "nargo", te.Tool)
}

// =============================================================================
// Encoding
// =============================================================================

func TestProverTOML(t *testing.T) {
	assert.Equal(t, "input = [97, 98, 0]\n", proverTOML([]int{97, 98, 0}))
}

func TestParseRevealedOutput(t *testing.T) {
	got, err := parseRevealedOutput("some noise\noutput: [0x61, 0x62, 0x00, 0x00]\n")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)

	_, err = parseRevealedOutput("no revealed array here")
	require.Error(t, err)

	_, err = parseRevealedOutput("output: [0xZZ]")
	require.Error(t, err)
}
