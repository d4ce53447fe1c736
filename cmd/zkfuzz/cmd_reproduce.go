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
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/zkfuzz/pkg/logging"
	"github.com/AleutianAI/zkfuzz/pkg/ux"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/config"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/reproduce"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	reproducePaths     []string // Corpus entry directories or globs
	reproduceTargets   []string // Replay target overrides
	reproduceToolPaths []string // Tool overrides as name=path
	reproduceWorkDir   string   // Parent dir for compile workspaces
	reproduceLogLevel  string   // Log level for replay progress
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// reproduceCmd replays persisted corpus entries.
//
// # Description
//
// Re-executes each saved (pattern, input) through freshly constructed
// targets and compares the fresh judgment against the recorded one.
// Version drift between the recorded toolchain and the probed one is
// reported alongside each non-reproduction, since a toolchain upgrade
// is the usual reason a finding stops reproducing.
//
// # Examples
//
//	zkfuzz reproduce --path corpus/run-20260824-120000/entry-0001
//	zkfuzz reproduce --path 'corpus/run-*/entry-*'
//	zkfuzz reproduce corpus/run-20260824-120000 --target reference --target circom
//
// # Limitations
//
//   - Entries recorded against subprocess targets need those
//     toolchains installed to replay.
var reproduceCmd = &cobra.Command{
	Use:   "reproduce [path...]",
	Short: "Replay persisted findings against current toolchains",
	Long: `Replays corpus entries and classifies each one:

  still-diverges          the recorded bug is still there
  no-longer-diverges      the targets now agree (fixed, or toolchain drift)
  differs-from-recording  still divergent, but not the recorded divergence

Exits 1 when any entry still exposes a bug, 0 when every entry has
stopped reproducing, 2 on a tool failure.`,
	Run: runReproduce, // Defined below
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	f := reproduceCmd.Flags()
	f.StringArrayVar(&reproducePaths, "path", nil,
		"Corpus entry directory or glob (repeatable; positional args work too)")
	f.StringSliceVar(&reproduceTargets, "target", nil,
		"Replay only these targets (default: each entry's recorded set)")
	f.StringArrayVar(&reproduceToolPaths, "toolchain-path", nil,
		"Tool binary override as name=path (repeatable)")
	f.StringVar(&reproduceWorkDir, "work-dir", "",
		"Parent directory for compile workspaces (default: system temp)")
	f.StringVar(&reproduceLogLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")

	rootCmd.AddCommand(reproduceCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runReproduce(cmd *cobra.Command, args []string) {
	os.Exit(executeReproduce(args))
}

func executeReproduce(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := append(append([]string{}, reproducePaths...), args...)
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "%s reproduce needs --path or entry arguments\n", ux.IconError)
		return exitToolError
	}

	logger := logging.New(config.LogConfig{Level: reproduceLogLevel}.ToLogging("zkfuzz"))
	defer logger.Close()

	overrides, err := parseToolchainPaths(reproduceToolPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}
	tcfg := target.Config{WorkDir: reproduceWorkDir}
	if len(overrides) > 0 {
		tcfg.Toolchains, err = target.NewToolchains(overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
			return exitToolError
		}
	}

	runner, err := reproduce.NewRunner(reproduce.Config{
		Targets: reproduceTargets,
		Target:  tcfg,
		Logger:  logger.Slog(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}
	defer runner.Close()

	results, summary, err := runner.ReplayAll(ctx, paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	printReproduceResults(results, summary)

	if summary.Findings() > 0 {
		return exitFindings
	}
	return exitClean
}

// printReproduceResults writes one line per replayed entry plus the
// batch summary.
func printReproduceResults(results []*reproduce.Result, summary reproduce.Summary) {
	for _, res := range results {
		switch res.Verdict {
		case reproduce.VerdictStillDiverges:
			fmt.Printf("%s %s  %s\n", ux.IconDiverge, res.Verdict, res.Dir)
		case reproduce.VerdictNoLongerDiverges:
			fmt.Printf("%s %s  %s\n", ux.IconSuccess, res.Verdict, res.Dir)
		default:
			fmt.Printf("%s %s  %s\n", ux.IconWarning, res.Verdict, res.Dir)
		}
		if len(res.Changed) > 0 {
			fmt.Printf("    changed: %s\n", strings.Join(res.Changed, ", "))
		}
		for _, d := range res.Drift {
			current := d.Current
			if current == "" {
				current = "missing"
			}
			fmt.Printf("    tool drift: %s %s -> %s\n", d.Tool, d.Recorded, current)
		}
	}

	fmt.Printf("\nreplayed %d: %d still diverge, %d no longer diverge, %d differ from recording",
		summary.Replayed, summary.StillDiverges, summary.NoLongerDiverges, summary.Differs)
	if summary.Skipped > 0 {
		fmt.Printf(", %d skipped", summary.Skipped)
	}
	fmt.Println()
}
