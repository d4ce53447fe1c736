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
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/zkfuzz/pkg/logging"
	"github.com/AleutianAI/zkfuzz/pkg/ux"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/config"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/corpus"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/report"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/status"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/telemetry"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/tui"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	fuzzConfigPath     string        // Config file path (YAML or JSON)
	fuzzFuzzer         string        // Pattern source: grammar or predefined
	fuzzOracle         string        // Judging oracle: valid or cross
	fuzzTargets        []string      // Targets under test
	fuzzValidGen       string        // should-match input strategy
	fuzzInvalidGen     string        // should-not-match input strategy
	fuzzPatterns       []string      // Inline patterns for the predefined fuzzer
	fuzzPatternsFile   string        // Pattern file for the predefined fuzzer
	fuzzMaxIterations  int64         // Pattern budget (0 = unlimited)
	fuzzTimeBudget     string        // Wall-clock budget (bare numbers are seconds)
	fuzzSeed           int64         // Campaign seed (0 = from the clock)
	fuzzMaxDepth       int           // Grammar derivation depth cap
	fuzzInputCount     int           // Inputs per label per pattern
	fuzzWorkers        int           // Execution pool size
	fuzzAlphabet       string        // Input alphabet
	fuzzMaxInputLen    int           // Circuit input window in bytes
	fuzzCompileTimeout time.Duration // Per-step compile timeout
	fuzzExecuteTimeout time.Duration // Per-step execute timeout
	fuzzWorkDir        string        // Parent dir for compile workspaces
	fuzzProve          bool          // Run prove+verify after witnessing
	fuzzPtauPath       string        // Powers-of-tau file for circom setup
	fuzzCircomLibs     []string      // circom -l include paths
	fuzzToolchainPaths []string      // Tool overrides as name=path
	fuzzCorpusDir      string        // Corpus directory
	fuzzNoCorpus       bool          // Disable persistence
	fuzzStatusAddr     string        // Status server listen address
	fuzzTUI            bool          // Live dashboard
	fuzzLogLevel       string        // debug/info/warn/error
	fuzzLogDir         string        // Log file directory
	fuzzLogJSON        bool          // JSON log lines
	fuzzQuiet          bool          // Suppress console logging
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// fuzzCmd runs a differential fuzzing campaign.
//
// # Description
//
// Generates regex patterns and labeled inputs, executes them against
// the selected targets, judges each input with the oracle, and
// persists every divergence as a replayable corpus entry. The run
// stops on the iteration budget, the time budget, generator
// exhaustion, or Ctrl-C; all of those are clean stops and the exit
// code reports only whether divergences were found.
//
// # Examples
//
//	zkfuzz fuzz                                      # in-process targets, validity oracle
//	zkfuzz fuzz --target reference --target circom   # needs zk-regex + circom + snarkjs
//	zkfuzz fuzz --oracle cross --target gnark --target regexp2
//	zkfuzz fuzz --fuzzer predefined --pattern 'a+b' --max-iterations 1
//	zkfuzz fuzz --time-budget 10m --seed 42 --tui
//
// # Limitations
//
//   - circom and noir targets require their toolchains on PATH or
//     --toolchain-path overrides; an unavailable target is skipped
//     with a warning rather than failing the run.
//
// # Assumptions
//
//   - The corpus directory is writable unless --no-corpus is set.
var fuzzCmd = &cobra.Command{
	Use:   "fuzz",
	Short: "Run a differential fuzzing campaign",
	Long: `Runs the generate-execute-judge-persist loop against the selected
targets until a budget expires or the pattern source is exhausted.

Exit codes:
  0  run completed, targets agreed everywhere
  1  at least one divergence was found (and persisted unless --no-corpus)
  2  the tool itself failed: bad config, generator fault, no judgeable targets`,
	Run: runFuzz, // Defined below
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	f := fuzzCmd.Flags()
	f.StringVar(&fuzzConfigPath, "config", "",
		"Config file (YAML or JSON); explicit flags override it")
	f.StringVar(&fuzzFuzzer, "fuzzer", "grammar",
		"Pattern source: grammar or predefined")
	f.StringVar(&fuzzOracle, "oracle", "valid",
		"Oracle: valid (judge against reference) or cross (majority)")
	f.StringSliceVar(&fuzzTargets, "target", []string{"reference", "regexp2", "gnark"},
		"Target to fuzz (repeatable): "+strings.Join(target.Names(), ", "))
	f.StringVar(&fuzzValidGen, "valid-input-generator", "enumeration",
		"should-match input strategy: enumeration or random")
	f.StringVar(&fuzzInvalidGen, "invalid-input-generator", "mixed",
		"should-not-match input strategy: mutation, random, complement, mixed, or none")
	f.StringArrayVar(&fuzzPatterns, "pattern", nil,
		"Inline pattern for the predefined fuzzer (repeatable)")
	f.StringVar(&fuzzPatternsFile, "patterns-file", "",
		"File with one pattern per line for the predefined fuzzer")
	f.Int64Var(&fuzzMaxIterations, "max-iterations", 0,
		"Stop after this many patterns (0 = unlimited)")
	f.StringVar(&fuzzTimeBudget, "time-budget", "",
		"Stop after this much wall time; bare numbers are seconds (90, 90s, 10m)")
	f.Int64Var(&fuzzSeed, "seed", 0,
		"Deterministic campaign seed (0 picks one from the clock)")
	f.IntVar(&fuzzMaxDepth, "max-depth", 8,
		"Grammar derivation depth cap")
	f.IntVar(&fuzzInputCount, "input-count", 5,
		"Inputs generated per label per pattern")
	f.IntVar(&fuzzWorkers, "workers", 4,
		"Parallel execution workers")
	f.StringVar(&fuzzAlphabet, "alphabet", "",
		"Input alphabet (default: lowercase a-z)")
	f.IntVar(&fuzzMaxInputLen, "max-input-len", 64,
		"Fixed circuit input window in bytes")
	f.DurationVar(&fuzzCompileTimeout, "compile-timeout", 3*time.Minute,
		"Timeout per subprocess compilation step")
	f.DurationVar(&fuzzExecuteTimeout, "execute-timeout", time.Minute,
		"Timeout per subprocess execution step")
	f.StringVar(&fuzzWorkDir, "work-dir", "",
		"Parent directory for compile workspaces (default: system temp)")
	f.BoolVar(&fuzzProve, "prove", false,
		"Run the full prove+verify round after witness generation")
	f.StringVar(&fuzzPtauPath, "ptau", "",
		"Powers-of-tau file for the circom Groth16 setup (with --prove)")
	f.StringArrayVar(&fuzzCircomLibs, "circom-lib", nil,
		"circom include path, e.g. a circomlib checkout (repeatable)")
	f.StringArrayVar(&fuzzToolchainPaths, "toolchain-path", nil,
		"Tool binary override as name=path (repeatable)")
	f.StringVar(&fuzzCorpusDir, "corpus", "corpus",
		"Corpus directory for persisted findings")
	f.BoolVar(&fuzzNoCorpus, "no-corpus", false,
		"Disable corpus persistence (findings are logged and counted only)")
	f.StringVar(&fuzzStatusAddr, "status-addr", "",
		"Serve live status JSON on this address, e.g. 127.0.0.1:8650")
	f.BoolVar(&fuzzTUI, "tui", false,
		"Show the live campaign dashboard")
	f.StringVar(&fuzzLogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	f.StringVar(&fuzzLogDir, "log-dir", "",
		"Also write log files under this directory")
	f.BoolVar(&fuzzLogJSON, "log-json", false,
		"Emit JSON log lines instead of text")
	f.BoolVar(&fuzzQuiet, "quiet", false,
		"Suppress console logging")

	rootCmd.AddCommand(fuzzCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runFuzz executes the fuzz command and exits with the campaign's
// exit code. The work lives in executeFuzz so deferred cleanup
// (corpus close, telemetry flush) runs before the process exits.
func runFuzz(cmd *cobra.Command, args []string) {
	os.Exit(executeFuzz(cmd))
}

func executeFuzz(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadFuzzConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	// The dashboard owns the terminal; keep console logging off it.
	if cfg.Fuzz.TUI {
		cfg.Log.Quiet = true
	}

	logger := logging.New(cfg.Log.ToLogging("zkfuzz"))
	defer logger.Close()
	slogger := logger.Slog()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry.ToTelemetry(version))
	if err != nil {
		// A fuzzing run is still useful without an exporter.
		slogger.Warn("telemetry init failed, continuing without", slog.Any("error", err))
	} else {
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				slogger.Warn("telemetry shutdown", slog.Any("error", err))
			}
		}()
	}

	if cfg.Fuzz.Seed == 0 {
		cfg.Fuzz.Seed = time.Now().UnixNano()
	}
	slogger.Info("campaign seed", slog.Int64("seed", cfg.Fuzz.Seed))

	tcfg, err := cfg.Target.ToTarget()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}
	if tcfg.Toolchains == nil {
		tcfg.Toolchains, err = target.NewToolchains(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
			return exitToolError
		}
	}

	kind, err := oracle.ParseKind(cfg.Fuzz.Oracle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	names := cfg.Fuzz.Targets
	if kind == oracle.KindValidity && !slices.Contains(names, target.NameReference) {
		// The validity oracle judges against the reference engine, so
		// it has to run even when not asked for.
		slogger.Info("adding reference target as validity ground truth")
		names = append([]string{target.NameReference}, names...)
	}

	targets := make([]target.Target, 0, len(names))
	for _, name := range names {
		tgt, err := target.New(ctx, name, tcfg)
		if err != nil {
			slogger.Warn("target unavailable",
				slog.String("target", name), slog.Any("error", err))
			fmt.Fprintf(os.Stderr, "%s target %s unavailable: %v\n", ux.IconWarning, name, err)
			continue
		}
		targets = append(targets, tgt)
	}

	ora, err := oracle.New(kind, target.NameReference)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	patterns, err := buildPatternGenerator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	valid, err := input.NewValidGenerator(cfg.Fuzz.ValidInputGenerator, cfg.ToInput())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}
	var invalid input.Generator
	if m := cfg.Fuzz.InvalidInputGenerator; m != "" && m != "none" {
		method, err := input.ParseInvalidMethod(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
			return exitToolError
		}
		invalid = input.NewInvalidGenerator(method, cfg.ToInput())
	}

	var store *corpus.Store
	if !cfg.Corpus.Disable {
		store, err = corpus.Open(cfg.Corpus.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
			return exitToolError
		}
		defer store.Close()
	}

	ccfg := cfg.ToCampaign()
	ccfg.Logger = slogger
	camp, err := campaign.New(ccfg, campaign.Deps{
		Patterns:      patterns,
		ValidInputs:   valid,
		InvalidInputs: invalid,
		Targets:       targets,
		Oracle:        ora,
		Store:         store,
		Toolchains:    tcfg.Toolchains,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
		return exitToolError
	}

	if cfg.Fuzz.StatusAddr != "" {
		srv := status.NewServer(camp, slogger)
		if err := srv.Start(cfg.Fuzz.StatusAddr); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ux.IconError, err)
			return exitToolError
		}
		defer srv.Close()
	}

	var stats campaign.Stats
	if cfg.Fuzz.TUI {
		stats, err = runWithDashboard(ctx, camp)
	} else {
		stats, err = camp.Run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s campaign failed: %v\n", ux.IconError, err)
		return exitToolError
	}

	printFuzzReport(ctx, store, stats)

	if stats.Divergences > 0 {
		return exitFindings
	}
	return exitClean
}

// loadFuzzConfig loads the config file (or defaults) and overlays
// every flag the user explicitly set, then re-validates the result.
func loadFuzzConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(fuzzConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	fl := cmd.Flags()
	if fl.Changed("fuzzer") {
		cfg.Fuzz.Fuzzer = fuzzFuzzer
	}
	if fl.Changed("oracle") {
		cfg.Fuzz.Oracle = fuzzOracle
	}
	if fl.Changed("target") {
		cfg.Fuzz.Targets = fuzzTargets
	}
	if fl.Changed("valid-input-generator") {
		cfg.Fuzz.ValidInputGenerator = fuzzValidGen
	}
	if fl.Changed("invalid-input-generator") {
		cfg.Fuzz.InvalidInputGenerator = fuzzInvalidGen
	}
	if fl.Changed("pattern") {
		cfg.Fuzz.Patterns = fuzzPatterns
	}
	if fl.Changed("patterns-file") {
		cfg.Fuzz.PatternsFile = fuzzPatternsFile
	}
	if fl.Changed("max-iterations") {
		cfg.Fuzz.MaxIterations = fuzzMaxIterations
	}
	if fl.Changed("time-budget") {
		d, err := parseTimeBudget(fuzzTimeBudget)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Fuzz.TimeBudget = config.Duration(d)
	}
	if fl.Changed("seed") {
		cfg.Fuzz.Seed = fuzzSeed
	}
	if fl.Changed("max-depth") {
		cfg.Fuzz.MaxDepth = fuzzMaxDepth
	}
	if fl.Changed("input-count") {
		cfg.Fuzz.InputCount = fuzzInputCount
	}
	if fl.Changed("workers") {
		cfg.Fuzz.Workers = fuzzWorkers
	}
	if fl.Changed("status-addr") {
		cfg.Fuzz.StatusAddr = fuzzStatusAddr
	}
	if fl.Changed("tui") {
		cfg.Fuzz.TUI = fuzzTUI
	}
	if fl.Changed("alphabet") {
		cfg.Target.Alphabet = fuzzAlphabet
	}
	if fl.Changed("max-input-len") {
		cfg.Target.MaxInputLen = fuzzMaxInputLen
	}
	if fl.Changed("compile-timeout") {
		cfg.Target.CompileTimeout = config.Duration(fuzzCompileTimeout)
	}
	if fl.Changed("execute-timeout") {
		cfg.Target.ExecuteTimeout = config.Duration(fuzzExecuteTimeout)
	}
	if fl.Changed("work-dir") {
		cfg.Target.WorkDir = fuzzWorkDir
	}
	if fl.Changed("prove") {
		cfg.Target.Prove = fuzzProve
	}
	if fl.Changed("ptau") {
		cfg.Target.PtauPath = fuzzPtauPath
	}
	if fl.Changed("circom-lib") {
		cfg.Target.CircomLibs = fuzzCircomLibs
	}
	if fl.Changed("toolchain-path") {
		overrides, err := parseToolchainPaths(fuzzToolchainPaths)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Target.ToolchainPaths = overrides
	}
	if fl.Changed("corpus") {
		cfg.Corpus.Dir = fuzzCorpusDir
	}
	if fl.Changed("no-corpus") {
		cfg.Corpus.Disable = fuzzNoCorpus
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = fuzzLogLevel
	}
	if fl.Changed("log-dir") {
		cfg.Log.Dir = fuzzLogDir
	}
	if fl.Changed("log-json") {
		cfg.Log.JSON = fuzzLogJSON
	}
	if fl.Changed("quiet") {
		cfg.Log.Quiet = fuzzQuiet
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildPatternGenerator constructs the pattern source the config asks
// for.
func buildPatternGenerator(cfg config.Config) (pattern.Generator, error) {
	switch cfg.Fuzz.Fuzzer {
	case "predefined":
		pats, err := cfg.Fuzz.ResolvePatterns()
		if err != nil {
			return nil, err
		}
		return pattern.NewPredefinedGenerator(pats)
	default:
		g, err := grammar.Builtin()
		if err != nil {
			return nil, err
		}
		return pattern.NewGrammarGenerator(g, cfg.ToPattern())
	}
}

// runWithDashboard runs the campaign in a goroutine while the
// dashboard owns the terminal. Quitting the dashboard with Q cancels
// the run; the campaign treats that as a clean stop.
func runWithDashboard(ctx context.Context, camp *campaign.Campaign) (campaign.Stats, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stats  campaign.Stats
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		stats, runErr = camp.Run(runCtx)
		close(done)
	}()

	model := tui.NewDashboardModel(camp, tui.DefaultDashboardConfig())
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	finalModel, teaErr := p.Run()
	if m, ok := finalModel.(tui.DashboardModel); ok && m.Interrupted() {
		cancel()
	}
	<-done

	if teaErr != nil && runErr == nil {
		// A broken dashboard doesn't invalidate the campaign result.
		fmt.Fprintf(os.Stderr, "%s dashboard error: %v\n", ux.IconWarning, teaErr)
	}
	return stats, runErr
}

// printFuzzReport renders the end-of-run report. When the corpus
// journal is available it carries the persisted findings; otherwise
// the in-memory stats are all there is.
func printFuzzReport(ctx context.Context, store *corpus.Store, stats campaign.Stats) {
	var rep *report.Report
	if store != nil {
		// The run context may already be canceled by the Ctrl-C that
		// stopped the campaign; the report reads still have to happen.
		if r, err := report.FromStore(context.WithoutCancel(ctx), store, stats.RunID); err == nil {
			rep = r
		}
	}
	if rep == nil {
		rep = &report.Report{RunID: stats.RunID, StartedAt: stats.StartedAt, Stats: &stats}
	}
	fmt.Println()
	rep.Render(os.Stdout)
}
