// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grammar provides the context-free grammar model that drives
// regex pattern generation.
//
// A grammar maps nonterminal symbols (written in angle brackets, e.g.
// "<concat>") to lists of expansion alternatives. Expanding the start
// symbol with a seeded random source yields a derivation tree whose
// terminal leaves concatenate into a regex pattern. This gives:
//
//   - Deterministic patterns for a given (grammar, seed, depth) triple
//   - Guaranteed termination via minimum-cost closing once the depth
//     budget is exhausted
//   - Structural validity by construction (balanced groups, no stray
//     operators) because only grammar productions are emitted
//
// # Architecture
//
// The package integrates into the generation pipeline:
//
//	Grammar → Expander → Derivation → pattern text → structural checks
//
// The builtin grammar is embedded and targets the syntax subset the
// zk-regex circuit compiler accepts: greedy quantifiers only, anchors
// restricted to pattern edges, small bounded repetitions.
//
// # Grammar Files
//
// Grammars load from YAML:
//
//	start: "<start>"
//	rules:
//	  "<start>":  ["<alt>"]
//	  "<alt>":    ["<concat>", "<concat>|<alt>"]
//	  "<concat>": ["<repeat>", "<repeat><concat>"]
//
// A rule for "<char>" is optional; when absent, the expander draws
// single characters from the configured alphabet instead.
//
// # Usage
//
//	g, err := grammar.Builtin()
//	if err != nil {
//	    return err
//	}
//	exp := grammar.NewExpander(g, grammar.ExpanderConfig{
//	    Seed:     42,
//	    MaxDepth: 8,
//	    Alphabet: grammar.AlphabetLower,
//	})
//	deriv, err := exp.Expand()
//	pattern := deriv.Text()
//
// # Thread Safety
//
// Grammar values are immutable after Load/Builtin and safe for
// concurrent use. An Expander owns a private random source and must
// not be shared across goroutines.
package grammar
