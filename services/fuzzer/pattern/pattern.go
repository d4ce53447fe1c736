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
	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// Pattern is one candidate regex. Immutable once generated; downstream
// components reference it by value so persisted cases stay
// self-contained.
type Pattern struct {
	// Text is the regex source handed to every target.
	Text string

	// Generator names the generator that produced the pattern.
	Generator string

	// Seed is the generator seed active when the pattern was produced,
	// recorded for replay metadata.
	Seed int64

	// Tree is the derivation that produced Text. Nil for predefined
	// patterns.
	Tree *grammar.Derivation
}

// Generator produces successive candidate patterns. Implementations are
// deterministic for a fixed configuration.
type Generator interface {
	// Name identifies the generator in stats and corpus metadata.
	Name() string

	// Generate returns the next pattern. A returned error is a
	// *GeneratorError (fatal) or ErrNoMorePatterns for finite sources.
	Generate() (Pattern, error)
}

// Stats counts generator activity for the campaign summary. Updated by
// the generator's own goroutine only.
type Stats struct {
	// Generated counts patterns handed to the campaign.
	Generated int64

	// Rejected counts candidates discarded by the compatibility gate.
	Rejected int64

	// Deduped counts candidates discarded as recent repeats.
	Deduped int64

	// FailedRounds counts wholly failed regeneration rounds.
	FailedRounds int64
}
