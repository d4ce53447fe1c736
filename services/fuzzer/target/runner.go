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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// maxCaptureBytes caps each captured stream. Circuit compilers can
// dump megabytes of diagnostics; the first chunk is what matters.
const maxCaptureBytes = 64 * 1024

// command is one external tool invocation.
type command struct {
	// Tool is the manifest name, used for metrics and error text.
	Tool string

	// Path is the resolved binary.
	Path string

	// Args are the arguments, binary excluded.
	Args []string

	// Dir is the working directory. Empty inherits the process's.
	Dir string

	// Timeout bounds the invocation. Zero means ctx alone bounds it.
	Timeout time.Duration
}

// capture is the observed result of one invocation. A non-zero exit
// is data, not an error: pipelines that treat "failed to solve" as a
// verdict read ExitCode themselves.
type capture struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// run executes cmd to completion.
//
// Description:
//
//	Starts the binary in its own process group and waits. On deadline
//	or cancellation the whole group is killed, so toolchains that
//	fork (snarkjs spawns node workers) cannot outlive their
//	invocation. Output capture is capped per stream.
//
// Outputs:
//
//	capture - Captured streams, exit code, and wall time. Valid when
//	    err is nil, including non-zero exits.
//	error - ErrTimeout wrapped on a deadline kill, ctx.Err() on
//	    cancellation, or a start failure.
func run(ctx context.Context, cmd command) (capture, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	ec := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	ec.Dir = cmd.Dir
	var stdout, stderr cappedBuffer
	ec.Stdout = &stdout
	ec.Stderr = &stderr
	setProcessGroup(ec)
	ec.Cancel = func() error { return killProcessGroup(ec) }
	// Killing the group closes the pipes; no straggler can hold Wait
	// open past this.
	ec.WaitDelay = 5 * time.Second

	start := time.Now()
	err := ec.Run()
	elapsed := time.Since(start)
	subprocessDuration.WithLabelValues(cmd.Tool).Observe(elapsed.Seconds())

	cap := capture{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			subprocessTotal.WithLabelValues(cmd.Tool, "timeout").Inc()
			return cap, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Tool, elapsed.Round(time.Millisecond))
		}
		subprocessTotal.WithLabelValues(cmd.Tool, "canceled").Inc()
		return cap, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		subprocessTotal.WithLabelValues(cmd.Tool, "ok").Inc()
		return cap, nil
	case errors.As(err, &exitErr):
		cap.ExitCode = exitErr.ExitCode()
		subprocessTotal.WithLabelValues(cmd.Tool, "exit").Inc()
		return cap, nil
	default:
		subprocessTotal.WithLabelValues(cmd.Tool, "error").Inc()
		return cap, fmt.Errorf("run %s: %w", cmd.Tool, err)
	}
}

// cappedBuffer keeps the first maxCaptureBytes and drops the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

// Write implements io.Writer, never failing the producer.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := maxCaptureBytes - b.buf.Len()
	if room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

// String returns the captured prefix, marked when truncated.
func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
