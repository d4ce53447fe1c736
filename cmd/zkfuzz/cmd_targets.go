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
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/zkfuzz/pkg/ux"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	targetsToolPaths []string // Tool overrides as name=path
	targetsProve     bool     // Check prove-mode requirements too
	targetsPtauPath  string   // Powers-of-tau file for the prove check
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// targetsCmd reports which targets are runnable.
//
// # Description
//
// Probes every manifest tool for presence and version, then
// constructs each target the way a campaign would and reports the
// exact construction error for the ones that fail. In-process targets
// need no toolchain and always show ready.
//
// # Examples
//
//	zkfuzz targets
//	zkfuzz targets --toolchain-path circom=/opt/circom/bin/circom
//	zkfuzz targets --prove --ptau powersOfTau28_hez_final_17.ptau
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Show target readiness and toolchain versions",
	Run:   runTargets, // Defined below
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	f := targetsCmd.Flags()
	f.StringArrayVar(&targetsToolPaths, "toolchain-path", nil,
		"Tool binary override as name=path (repeatable)")
	f.BoolVar(&targetsProve, "prove", false,
		"Check prove-mode requirements (Barretenberg, powers-of-tau)")
	f.StringVar(&targetsPtauPath, "ptau", "",
		"Powers-of-tau file for the circom prove check")

	rootCmd.AddCommand(targetsCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runTargets(cmd *cobra.Command, args []string) {
	os.Exit(executeTargets())
}

func executeTargets() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	overrides, err := parseToolchainPaths(targetsToolPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}
	tcs, err := target.NewToolchains(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	fmt.Println("toolchains:")
	for _, spec := range tcs.Specs() {
		info, err := tcs.Probe(ctx, spec.Name)
		if err != nil {
			if spec.MinVersion != "" {
				fmt.Printf("  %s %-9s %v (need >= %s)\n",
					ux.IconError, spec.Name, err, spec.MinVersion)
			} else {
				fmt.Printf("  %s %-9s %v\n", ux.IconError, spec.Name, err)
			}
			continue
		}
		fmt.Printf("  %s %-9s %-8s %s\n", ux.IconSuccess, info.Name, info.Version, info.Path)
	}

	// Construct each target exactly the way a campaign would, so the
	// readiness column reports the real construction error. Probes
	// are memoized, so this reuses the table above.
	tcfg := target.Config{
		Toolchains: tcs,
		Prove:      targetsProve,
		PtauPath:   targetsPtauPath,
	}
	fmt.Println("\ntargets:")
	for _, name := range target.Names() {
		if _, err := target.New(ctx, name, tcfg); err != nil {
			fmt.Printf("  %s %-9s %v\n", ux.IconError, name, err)
			continue
		}
		fmt.Printf("  %s %-9s ready\n", ux.IconSuccess, name)
	}
	return exitClean
}
