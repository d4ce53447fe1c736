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
	"errors"
	"fmt"
)

// Sentinel errors for the target package.
var (
	// ErrUnknownTarget is returned by New for names outside the closed
	// target set.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrUnknownTool is returned by the toolchain registry for tools
	// outside the manifest.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolNotFound means a manifest tool could not be resolved to a
	// binary.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolTooOld means a probed tool's version is below the
	// manifest minimum.
	ErrToolTooOld = errors.New("tool version below minimum")

	// ErrTimeout marks a subprocess killed by its deadline.
	ErrTimeout = errors.New("subprocess timed out")

	// ErrBadManifest means the embedded toolchain manifest failed
	// validation. Unreachable from a released binary.
	ErrBadManifest = errors.New("invalid toolchain manifest")
)

// ToolchainError is a compilation-stage failure: the toolchain could
// not turn the pattern into an artifact. The campaign disables the
// target for the rest of the run on the first one.
type ToolchainError struct {
	// Target is the registry name of the failing target.
	Target string

	// Stage is the pipeline stage that failed.
	Stage Stage

	// Tool names the binary (or in-process component) that failed.
	Tool string

	// Err is the underlying cause. ErrTimeout for deadline kills.
	Err error
}

// Error implements the error interface.
func (e *ToolchainError) Error() string {
	return fmt.Sprintf("target %s: %s failed at stage %s: %v", e.Target, e.Tool, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ToolchainError) Unwrap() error { return e.Err }

// IsToolchainError reports whether err wraps a *ToolchainError.
func IsToolchainError(err error) bool {
	var te *ToolchainError
	return errors.As(err, &te)
}
