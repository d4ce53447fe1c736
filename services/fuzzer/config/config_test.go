// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/zkfuzz/pkg/logging"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestDefault verifies the embedded defaults parse and validate.
func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "grammar", cfg.Fuzz.Fuzzer)
	assert.Equal(t, "valid", cfg.Fuzz.Oracle)
	assert.Contains(t, cfg.Fuzz.Targets, "reference")
	assert.Equal(t, "enumeration", cfg.Fuzz.ValidInputGenerator)
	assert.Equal(t, "mixed", cfg.Fuzz.InvalidInputGenerator)
	assert.Equal(t, 8, cfg.Fuzz.MaxDepth)
	assert.Equal(t, 5, cfg.Fuzz.InputCount)
	assert.Equal(t, 4, cfg.Fuzz.Workers)
	assert.Equal(t, Duration(0), cfg.Fuzz.TimeBudget)

	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", cfg.Target.Alphabet)
	assert.Equal(t, 64, cfg.Target.MaxInputLen)
	assert.Equal(t, Duration(3*time.Minute), cfg.Target.CompileTimeout)
	assert.Equal(t, Duration(60*time.Second), cfg.Target.ExecuteTimeout)

	assert.Equal(t, "corpus", cfg.Corpus.Dir)
	assert.False(t, cfg.Corpus.Disable)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "none", cfg.Telemetry.Traces)
	assert.Equal(t, "prometheus", cfg.Telemetry.Metrics)
}

// TestLoad_EmptyPath returns validated defaults.
func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "grammar", cfg.Fuzz.Fuzzer)
}

// TestLoad_FileOverlay verifies file values win over defaults while
// unspecified fields keep their defaults.
func TestLoad_FileOverlay(t *testing.T) {
	path := writeFile(t, "zkfuzz.yaml", `
fuzz:
  seed: 42
  targets: [reference, gnark]
  time_budget: 90s
target:
  max_input_len: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Fuzz.Seed)
	assert.Equal(t, []string{"reference", "gnark"}, cfg.Fuzz.Targets)
	assert.Equal(t, Duration(90*time.Second), cfg.Fuzz.TimeBudget)
	assert.Equal(t, 16, cfg.Target.MaxInputLen)

	// Defaults survive where the file is silent.
	assert.Equal(t, "grammar", cfg.Fuzz.Fuzzer)
	assert.Equal(t, 5, cfg.Fuzz.InputCount)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", cfg.Target.Alphabet)
	assert.Equal(t, "corpus", cfg.Corpus.Dir)
}

// TestLoad_MissingExplicitFile errors instead of silently running
// defaults.
func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

// TestLoad_JSONFallback accepts a JSON config body.
func TestLoad_JSONFallback(t *testing.T) {
	path := writeFile(t, "zkfuzz.json",
		`{"fuzz": {"seed": 7, "time_budget": "30s"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Fuzz.Seed)
	assert.Equal(t, Duration(30*time.Second), cfg.Fuzz.TimeBudget)
}

// TestLoad_Garbage rejects bodies neither parser accepts.
func TestLoad_Garbage(t *testing.T) {
	path := writeFile(t, "zkfuzz.yaml", "fuzz: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

// TestLoad_BadDuration rejects unitless durations.
func TestLoad_BadDuration(t *testing.T) {
	path := writeFile(t, "zkfuzz.yaml", "fuzz:\n  time_budget: 90\n")
	_, err := Load(path)
	require.Error(t, err)
}

// TestValidate_UnknownTarget rejects names outside the closed set.
func TestValidate_UnknownTarget(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Fuzz.Targets = []string{"reference", "warp9"}
	require.Error(t, cfg.Validate())
}

// TestValidate_CrossOracleNeedsTwoTargets enforces the cross-field
// rule.
func TestValidate_CrossOracleNeedsTwoTargets(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Fuzz.Oracle = "cross"
	cfg.Fuzz.Targets = []string{"gnark"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two targets")
}

// TestValidate_PredefinedNeedsPatterns enforces the pattern source
// rule, satisfied by either the inline list or a file.
func TestValidate_PredefinedNeedsPatterns(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Fuzz.Fuzzer = "predefined"
	require.Error(t, cfg.Validate())

	cfg.Fuzz.Patterns = []string{"a+b"}
	require.NoError(t, cfg.Validate())

	cfg.Fuzz.Patterns = nil
	cfg.Fuzz.PatternsFile = "patterns.txt"
	require.NoError(t, cfg.Validate())
}

// TestValidate_BadEnumValues exercises a few oneof gates.
func TestValidate_BadEnumValues(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Fuzz.Fuzzer = "chaos" },
		func(c *Config) { c.Fuzz.Oracle = "quorum" },
		func(c *Config) { c.Fuzz.ValidInputGenerator = "psychic" },
		func(c *Config) { c.Log.Level = "loud" },
		func(c *Config) { c.Telemetry.Metrics = "graphite" },
	} {
		cfg, err := Default()
		require.NoError(t, err)
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}
}

// TestResolvePatterns covers inline list, file parsing, and the
// missing-source error.
func TestResolvePatterns(t *testing.T) {
	fc := FuzzConfig{Patterns: []string{"a+", "b*c"}}
	got, err := fc.ResolvePatterns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a+", "b*c"}, got)

	path := writeFile(t, "patterns.txt", "# regression sweep\na+b\n\n(ab)+\n")
	fc = FuzzConfig{PatternsFile: path}
	got, err = fc.ResolvePatterns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a+b", "(ab)+"}, got)

	_, err = FuzzConfig{}.ResolvePatterns()
	require.Error(t, err)

	path = writeFile(t, "empty.txt", "# nothing here\n")
	_, err = FuzzConfig{PatternsFile: path}.ResolvePatterns()
	require.Error(t, err)
}

// TestConverters verifies the component config mappings.
func TestConverters(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	cfg.Fuzz.Seed = 7
	cfg.Target.MaxInputLen = 16

	tc, err := cfg.Target.ToTarget()
	require.NoError(t, err)
	assert.Equal(t, 16, tc.MaxInputLen)
	assert.Equal(t, grammar.AlphabetLower, tc.Alphabet)
	assert.Equal(t, 3*time.Minute, tc.CompileTimeout)
	assert.Nil(t, tc.Toolchains)

	cfg.Target.ToolchainPaths = map[string]string{"circom": "/opt/zk/bin/circom"}
	tc, err = cfg.Target.ToTarget()
	require.NoError(t, err)
	assert.NotNil(t, tc.Toolchains)

	cfg.Target.ToolchainPaths = map[string]string{"flux-capacitor": "/bin/false"}
	_, err = cfg.Target.ToTarget()
	require.Error(t, err)

	pc := cfg.ToPattern()
	assert.Equal(t, int64(7), pc.Seed)
	assert.Equal(t, 8, pc.MaxDepth)

	ic := cfg.ToInput()
	assert.Equal(t, 16, ic.MaxLen)

	cc := cfg.ToCampaign()
	assert.Equal(t, int64(7), cc.Seed)
	assert.Equal(t, 5, cc.InputCount)
	assert.Equal(t, 4, cc.Workers)

	lc := cfg.Log.ToLogging("fuzz")
	assert.Equal(t, logging.LevelInfo, lc.Level)
	assert.Equal(t, "fuzz", lc.Service)

	tel := cfg.Telemetry.ToTelemetry("1.2.3")
	assert.Equal(t, "none", tel.TraceExporter)
	assert.Equal(t, "prometheus", tel.MetricExporter)
	assert.Equal(t, "1.2.3", tel.ServiceVersion)
}
