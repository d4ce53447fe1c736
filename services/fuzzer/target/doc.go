// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package target implements the engines under differential test.
//
// A Target compiles a regex pattern into a reusable Artifact and
// evaluates inputs against it. The closed set:
//
//   - reference: the standard library regexp engine, the validity
//     oracle's ground truth. In-process, near-instant.
//   - regexp2: the dlclark/regexp2 backtracking engine. In-process; a
//     second independent matcher for cross-target campaigns.
//   - gnark: an in-process arithmetization of the pattern's DFA over
//     BN254. Compilation builds the constraint system; execution solves
//     the witness, optionally with a full Groth16 prove and verify
//     round.
//   - circom: the zk-regex circom backend. Compilation shells out to
//     zk-regex, circom, and (in prove mode) snarkjs setup; execution
//     generates a witness with snarkjs and reads the match bit out of
//     the exported witness vector.
//   - noir: the zk-regex Noir backend. Compilation generates a nargo
//     workspace and compiles it; execution runs nargo execute and
//     parses the revealed output array.
//
// # Error Folding
//
// Compile returns *ToolchainError: a compilation failure is a run-level
// event that disables the target for the rest of a campaign. Execute
// never returns an error; every per-input failure (timeout, unsolvable
// witness, input outside the circuit window) folds into the
// MatchResult as an error outcome with its pipeline stage, so the
// oracle reasons about failures and verdicts uniformly.
//
// # Subprocess Discipline
//
// Every external invocation runs under a deadline, with capped output
// capture and process-group teardown, so a wedged toolchain costs one
// result rather than the campaign. Non-zero exits are data: the caller
// decides whether an exit means "failed" or, for nargo execute,
// "circuit rejected the input".
//
// # Thread Safety
//
// Targets and Artifacts are safe for concurrent Execute calls with
// distinct inputs; subprocess targets isolate per-execution files by
// unique names inside the artifact workspace.
package target
