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
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellScript writes script to a fresh executable file and returns
// its path. Skips on platforms without sh.
func shellScript(t *testing.T, script string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRun_CapturesStreamsAndExit(t *testing.T) {
	path := shellScript(t, "echo out; echo err >&2; exit 3\n")

	cap, err := run(context.Background(), command{Tool: "stub", Path: path})
	require.NoError(t, err)
	assert.Equal(t, "out\n", cap.Stdout)
	assert.Equal(t, "err\n", cap.Stderr)
	assert.Equal(t, 3, cap.ExitCode)
	assert.Greater(t, cap.Duration, time.Duration(0))
}

func TestRun_WorkingDirectory(t *testing.T) {
	path := shellScript(t, "pwd\n")
	dir := t.TempDir()

	cap, err := run(context.Background(), command{Tool: "stub", Path: path, Dir: dir})
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(cap.Stdout))
}

func TestRun_Timeout(t *testing.T) {
	path := shellScript(t, "sleep 30\n")

	start := time.Now()
	_, err := run(context.Background(), command{
		Tool:    "stub",
		Path:    path,
		Timeout: 100 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRun_Cancellation(t *testing.T) {
	path := shellScript(t, "sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := run(ctx, command{Tool: "stub", Path: path})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_StartFailure(t *testing.T) {
	_, err := run(context.Background(), command{
		Tool: "stub",
		Path: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRun_CapsOutput(t *testing.T) {
	// Emit well past the cap; the capture keeps a marked prefix.
	path := shellScript(t, `i=0
while [ $i -lt 4096 ]; do
  echo "0123456789012345678901234567890123456789012345678901234567890123"
  i=$((i+1))
done
`)

	cap, err := run(context.Background(), command{Tool: "stub", Path: path})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(cap.Stdout), maxCaptureBytes+64)
	assert.Contains(t, cap.Stdout, "[output truncated]")
}
