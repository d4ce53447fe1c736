// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reproduce replays persisted corpus entries against freshly
// built targets and classifies whether each recorded divergence still
// holds.
//
// A replay recompiles the recorded pattern for the recorded (or an
// overridden) target set, re-executes the recorded input, and judges
// the fresh results with the same oracle that produced the recording.
// Because oracles are deterministic, an unchanged per-target result
// set reproduces the recorded verdict bit for bit; anything else is a
// change in the toolchain, not in the fuzzer. Each replay lands on one
// of three verdicts: the divergence is still there, it healed, or the
// targets now behave differently than the recording in some other way.
//
// Replay-time compile failures fold into error outcomes rather than
// aborting: the pattern compiled when the entry was captured, so a
// compiler that rejects it today is itself a reportable regression.
// Missing toolchain binaries, by contrast, abort the whole replay.
package reproduce
