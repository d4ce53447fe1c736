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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/zkfuzz/pkg/ux"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/corpus"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/report"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	reportCorpusDir string // Corpus directory to summarize
	reportRunID     string // Run to report on (empty = latest)
	reportJSON      bool   // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// reportCmd summarizes a corpus.
//
// # Description
//
// Assembles a run report from the corpus journal and index. When the
// corpus has no index — copied from another machine without the
// .index directory, or index locked by a live campaign — the command
// falls back to scanning entry directories, which still recovers
// every finding's pattern, input, and verdicts.
//
// # Examples
//
//	zkfuzz report                          # latest run under ./corpus
//	zkfuzz report --corpus /data/corpus
//	zkfuzz report --run run-20260824-120000
//	zkfuzz report --json | jq .findings
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a corpus run and its findings",
	Run:   runReport, // Defined below
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportCorpusDir, "corpus", "corpus",
		"Corpus directory to summarize")
	f.StringVar(&reportRunID, "run", "",
		"Run ID to report on (default: the most recent run)")
	f.BoolVar(&reportJSON, "json", false,
		"Output the report as JSON for scripting")

	rootCmd.AddCommand(reportCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runReport(cmd *cobra.Command, args []string) {
	rep, err := buildReport(context.Background(), reportCorpusDir, reportRunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		os.Exit(exitToolError)
	}

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
			os.Exit(exitToolError)
		}
		return
	}
	rep.Render(os.Stdout)
}

// buildReport assembles the report from the journal when the corpus
// has one, falling back to a directory scan.
func buildReport(ctx context.Context, dir, runID string) (*report.Report, error) {
	if corpus.HasIndex(dir) {
		store, err := corpus.Open(dir)
		if err != nil {
			// A campaign holding the index lock is the common cause;
			// the entry files are still readable.
			fmt.Fprintf(os.Stderr, "%s corpus index unavailable (%v), scanning entries instead\n",
				ux.IconWarning, err)
			return report.FromScan(dir, runID)
		}
		defer store.Close()

		rep, err := report.FromStore(ctx, store, runID)
		if err == nil {
			return rep, nil
		}
		if !errors.Is(err, report.ErrNoRuns) {
			return nil, err
		}
	}
	return report.FromScan(dir, runID)
}
