// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pattern produces the candidate regex patterns a campaign
// fuzzes with.
//
// Two generators exist:
//   - GrammarGenerator expands the configured grammar with a seeded
//     random derivation, then gates each candidate through the circuit
//     compatibility checks, deduplicates recent output, and retries
//     within bounded rounds. Deterministic for a given seed.
//   - PredefinedGenerator replays a fixed pattern list (one per line)
//     for regression sweeps.
//
// A malformed emitted pattern is never retried: it means the grammar or
// the expander is broken, and the generator fails loudly with a
// GeneratorError so the campaign stops instead of fuzzing garbage.
// Compatibility rejections, by contrast, are expected and absorbed by
// regeneration; the counts surface in Stats.
//
// # Usage
//
//	g, _ := grammar.Builtin()
//	gen, err := pattern.NewGrammarGenerator(g, pattern.Config{Seed: 1})
//	if err != nil {
//		return err
//	}
//	p, err := gen.Generate()
//
// # Thread Safety
//
// Generators are not safe for concurrent use. The campaign loop calls
// Generate from a single goroutine.
package pattern
