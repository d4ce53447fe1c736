// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle judges per-input execution results across targets.
//
// Two oracle kinds exist. The validity oracle compares every target
// against a designated ground-truth target (the reference engine):
// disagreement with ground truth is a divergence, and an execution
// error on an input ground truth accepts is also a divergence, because
// the toolchain failed on a legal input. The cross-target oracle
// ignores the intended label entirely and requires all real verdicts
// to be pairwise equal.
//
// A judgment is inconclusive when errors prevent the comparison
// without contradicting it, such as a timeout on an input ground truth
// rejects anyway. Inconclusive results are counted by the campaign but
// never persisted as findings.
//
// Oracles are pure: the same results always produce the same judgment,
// which is what makes corpus replay meaningful.
package oracle
