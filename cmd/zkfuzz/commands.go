// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/zkfuzz/pkg/ux"
)

// Exit codes for CLI commands. CI keys off the findings/error split:
// a divergence is a successful run that found a bug, not a failure.
const (
	exitClean     = 0 // Run completed, no divergence
	exitFindings  = 1 // Divergence found or reproduced
	exitToolError = 2 // Bad config, generator failure, no judgeable targets
)

// --- Global Command Variables ---
var (
	outputMode string // Output mode (rich/plain/machine)

	rootCmd = &cobra.Command{
		Use:   "zkfuzz",
		Short: "Differential fuzzer for regex-to-circuit compilers",
		Long: `zkfuzz generates regex patterns and labeled inputs, runs them
through regex engines and zk-regex circuit backends, and reports any
input where the targets disagree about acceptance.

Each divergence is persisted as a replayable corpus entry. The
subcommands cover the full loop: fuzz to search, reproduce to replay
saved findings against current toolchains, report to summarize a
corpus, and targets to check which backends are runnable.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize output mode from flag or environment
			if outputMode != "" {
				ux.SetMode(ux.ParseMode(outputMode))
			} else {
				ux.InitMode()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&outputMode, "output", "",
		"Output mode: rich, plain, or machine (default: auto-detect)")
}
