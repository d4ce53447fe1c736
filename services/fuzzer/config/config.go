// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the campaign configuration.
// Resolution order is embedded defaults, then the optional config
// file, then command-line flags applied by the CLI layer.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/zkfuzz/pkg/logging"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/input"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/pattern"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/target"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/telemetry"
)

// MaxConfigFileSize is the maximum allowed config file size (1MB).
const MaxConfigFileSize = 1024 * 1024

//go:embed defaults.yaml
var defaultsYAML []byte

// configValidate is the validator instance for campaign configuration.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("targetname", validateTargetName)
}

// validateTargetName accepts names from the closed target set.
func validateTargetName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, known := range target.Names() {
		if name == known {
			return true
		}
	}
	return false
}

// =============================================================================
// Duration
// =============================================================================

// Duration wraps time.Duration so config files can carry Go duration
// strings ("90s", "3m") instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON accepts a duration string or nanosecond number.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case float64:
		*d = Duration(time.Duration(v))
		return nil
	default:
		return fmt.Errorf("duration must be a string or number")
	}
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// =============================================================================
// Config Types
// =============================================================================

// Config is the full campaign configuration.
//
// Thread Safety: safe to read concurrently, not safe to modify after
// Load.
type Config struct {
	// Fuzz contains the campaign loop settings.
	Fuzz FuzzConfig `json:"fuzz" yaml:"fuzz"`

	// Target contains settings shared by all targets.
	Target TargetConfig `json:"target" yaml:"target"`

	// Corpus contains persistence settings.
	Corpus CorpusConfig `json:"corpus" yaml:"corpus"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// Telemetry contains exporter settings.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// FuzzConfig contains the campaign loop settings.
type FuzzConfig struct {
	Fuzzer                string   `json:"fuzzer" yaml:"fuzzer" validate:"oneof=grammar predefined"`
	Oracle                string   `json:"oracle" yaml:"oracle" validate:"oneof=valid cross"`
	Targets               []string `json:"targets" yaml:"targets" validate:"min=1,unique,dive,targetname"`
	ValidInputGenerator   string   `json:"valid_input_generator" yaml:"valid_input_generator" validate:"oneof=enumeration random"`
	InvalidInputGenerator string   `json:"invalid_input_generator" yaml:"invalid_input_generator" validate:"omitempty,oneof=mutation random complement mixed none"`
	Patterns              []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	PatternsFile          string   `json:"patterns_file,omitempty" yaml:"patterns_file,omitempty"`
	MaxIterations         int64    `json:"max_iterations" yaml:"max_iterations" validate:"gte=0"`
	TimeBudget            Duration `json:"time_budget" yaml:"time_budget" validate:"gte=0"`
	Seed                  int64    `json:"seed" yaml:"seed"`
	MaxDepth              int      `json:"max_depth" yaml:"max_depth" validate:"gte=1"`
	InputCount            int      `json:"input_count" yaml:"input_count" validate:"gte=1"`
	Workers               int      `json:"workers" yaml:"workers" validate:"gte=1"`
	StatusAddr            string   `json:"status_addr,omitempty" yaml:"status_addr,omitempty"`
	TUI                   bool     `json:"tui" yaml:"tui"`
}

// TargetConfig contains settings shared by all targets.
type TargetConfig struct {
	Alphabet       string            `json:"alphabet" yaml:"alphabet" validate:"required"`
	MaxInputLen    int               `json:"max_input_len" yaml:"max_input_len" validate:"gte=1"`
	CompileTimeout Duration          `json:"compile_timeout" yaml:"compile_timeout" validate:"gte=0"`
	ExecuteTimeout Duration          `json:"execute_timeout" yaml:"execute_timeout" validate:"gte=0"`
	WorkDir        string            `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	Prove          bool              `json:"prove" yaml:"prove"`
	PtauPath       string            `json:"ptau_path,omitempty" yaml:"ptau_path,omitempty"`
	CircomLibs     []string          `json:"circom_libs,omitempty" yaml:"circom_libs,omitempty"`
	ToolchainPaths map[string]string `json:"toolchain_paths,omitempty" yaml:"toolchain_paths,omitempty"`
}

// CorpusConfig contains persistence settings.
type CorpusConfig struct {
	Dir     string `json:"dir" yaml:"dir" validate:"required"`
	Disable bool   `json:"disable" yaml:"disable"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `json:"dir,omitempty" yaml:"dir,omitempty"`
	JSON  bool   `json:"json" yaml:"json"`
	Quiet bool   `json:"quiet" yaml:"quiet"`
}

// TelemetryConfig contains exporter settings.
type TelemetryConfig struct {
	Traces       string `json:"traces" yaml:"traces" validate:"oneof=none otlp stdout"`
	Metrics      string `json:"metrics" yaml:"metrics" validate:"oneof=none prometheus stdout"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the embedded default configuration.
func Default() (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return cfg, fmt.Errorf("embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load resolves the configuration: embedded defaults overlaid by the
// file at path, validated.
//
// Inputs:
//
//	path - Config file path. Empty means defaults only. A missing
//	    explicit file is an error; a typo'd --config silently running
//	    defaults would mask the mistake.
//
// Outputs:
//
//	Config - Merged configuration.
//	error - Read, parse, or validation failure.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if st.Size() > MaxConfigFileSize {
		return fmt.Errorf("config %s exceeds %d bytes", path, MaxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON.
	if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", yamlErr, jsonErr)
		}
	}
	return nil
}

// Validate checks tag constraints plus the cross-field rules tags
// cannot express.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Fuzz.Fuzzer == "predefined" && len(c.Fuzz.Patterns) == 0 && c.Fuzz.PatternsFile == "" {
		return fmt.Errorf("invalid config: predefined fuzzer needs fuzz.patterns or fuzz.patterns_file")
	}
	if c.Fuzz.Oracle == "cross" && len(c.Fuzz.Targets) < 2 {
		return fmt.Errorf("invalid config: cross oracle needs at least two targets")
	}
	return nil
}

// ResolvePatterns returns the predefined pattern list: the inline list
// when present, otherwise the patterns file, one pattern per line with
// blank lines and #-comments skipped.
func (c FuzzConfig) ResolvePatterns() ([]string, error) {
	if len(c.Patterns) > 0 {
		return c.Patterns, nil
	}
	if c.PatternsFile == "" {
		return nil, fmt.Errorf("no patterns configured")
	}

	data, err := os.ReadFile(c.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("patterns file %s has no patterns", c.PatternsFile)
	}
	return patterns, nil
}

// =============================================================================
// Converters
// =============================================================================

// ToTarget converts to the target package's configuration.
func (c TargetConfig) ToTarget() (target.Config, error) {
	cfg := target.Config{
		Alphabet:       grammar.Alphabet(c.Alphabet),
		MaxInputLen:    c.MaxInputLen,
		CompileTimeout: time.Duration(c.CompileTimeout),
		ExecuteTimeout: time.Duration(c.ExecuteTimeout),
		WorkDir:        c.WorkDir,
		Prove:          c.Prove,
		PtauPath:       c.PtauPath,
		CircomLibs:     c.CircomLibs,
	}
	if len(c.ToolchainPaths) > 0 {
		tcs, err := target.NewToolchains(c.ToolchainPaths)
		if err != nil {
			return cfg, fmt.Errorf("toolchain paths: %w", err)
		}
		cfg.Toolchains = tcs
	}
	return cfg, nil
}

// ToPattern converts to the pattern generator's configuration.
func (c Config) ToPattern() pattern.Config {
	return pattern.Config{
		Seed:     c.Fuzz.Seed,
		MaxDepth: c.Fuzz.MaxDepth,
		Alphabet: grammar.Alphabet(c.Target.Alphabet),
	}
}

// ToInput converts to the input generator's configuration.
func (c Config) ToInput() input.Config {
	return input.Config{
		Seed:     c.Fuzz.Seed,
		MaxLen:   c.Target.MaxInputLen,
		Alphabet: grammar.Alphabet(c.Target.Alphabet),
	}
}

// ToCampaign converts to the campaign's configuration. RunID is left
// for the campaign to assign.
func (c Config) ToCampaign() campaign.Config {
	return campaign.Config{
		Seed:          c.Fuzz.Seed,
		MaxIterations: c.Fuzz.MaxIterations,
		TimeBudget:    time.Duration(c.Fuzz.TimeBudget),
		InputCount:    c.Fuzz.InputCount,
		Workers:       c.Fuzz.Workers,
	}
}

// ToLogging converts to the logging package's configuration.
func (c LogConfig) ToLogging(service string) logging.Config {
	level := logging.LevelInfo
	switch c.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Dir,
		Service: service,
		JSON:    c.JSON,
		Quiet:   c.Quiet,
	}
}

// ToTelemetry converts to the telemetry package's configuration.
func (c TelemetryConfig) ToTelemetry(version string) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.TraceExporter = c.Traces
	cfg.MetricExporter = c.Metrics
	if c.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = c.OTLPEndpoint
	}
	return cfg
}
