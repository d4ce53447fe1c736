// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package target

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/grammar"
)

// circomTarget drives the zk-regex circom backend: zk-regex generates
// the circuit, circom compiles it to R1CS plus a wasm witness
// calculator, and snarkjs computes and reads out witnesses. The match
// bit is witness signal 1 of the exported witness.
type circomTarget struct {
	cfg Config

	zkRegexPath string
	circomPath  string
	snarkjsPath string
}

func newCircom(ctx context.Context, cfg Config) (*circomTarget, error) {
	tcs := cfg.Toolchains
	if tcs == nil {
		var err error
		tcs, err = NewToolchains(nil)
		if err != nil {
			return nil, err
		}
	}
	t := &circomTarget{cfg: cfg}
	for _, probe := range []struct {
		name string
		dst  *string
	}{
		{"zk-regex", &t.zkRegexPath},
		{"circom", &t.circomPath},
		{"snarkjs", &t.snarkjsPath},
	} {
		info, err := tcs.Probe(ctx, probe.name)
		if err != nil {
			return nil, fmt.Errorf("circom target: %w", err)
		}
		*probe.dst = info.Path
	}
	if cfg.Prove {
		if cfg.PtauPath == "" {
			return nil, fmt.Errorf("circom target: prove mode needs a powers-of-tau file (--ptau)")
		}
		if _, err := os.Stat(cfg.PtauPath); err != nil {
			return nil, fmt.Errorf("circom target: ptau file: %w", err)
		}
	}
	return t, nil
}

// Name implements Target.
func (t *circomTarget) Name() string { return NameCircom }

// =============================================================================
// Artifact
// =============================================================================

// circomArtifact is a compiled circuit workspace on disk. Per-input
// files carry a fresh UUID so concurrent executions never collide.
type circomArtifact struct {
	pattern string
	dir     string

	closeOnce sync.Once
	closeErr  error
}

func (a *circomArtifact) TargetName() string { return NameCircom }
func (a *circomArtifact) Pattern() string    { return a.pattern }

func (a *circomArtifact) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = os.RemoveAll(a.dir)
	})
	return a.closeErr
}

func (a *circomArtifact) wasmPath() string {
	return filepath.Join(a.dir, "circuit_js", "circuit.wasm")
}

// decomposedPart is one entry of zk-regex's decomposed input format.
type decomposedPart struct {
	IsPublic bool   `json:"is_public"`
	RegexDef string `json:"regex_def"`
}

// decomposedJSON renders the pattern in zk-regex's decomposed format.
// A leading anchor goes into its own private part so the generator
// treats it as structure rather than payload.
func decomposedJSON(pattern string) ([]byte, error) {
	var parts []decomposedPart
	if rest, ok := strings.CutPrefix(pattern, "^"); ok {
		parts = append(parts, decomposedPart{IsPublic: false, RegexDef: "^"})
		parts = append(parts, decomposedPart{IsPublic: true, RegexDef: rest})
	} else {
		parts = append(parts, decomposedPart{IsPublic: true, RegexDef: pattern})
	}
	return json.Marshal(map[string]any{"parts": parts})
}

// Compile implements Target.
func (t *circomTarget) Compile(ctx context.Context, pattern string) (Artifact, error) {
	dir := filepath.Join(t.workRoot(), "circom-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ToolchainError{Target: NameCircom, Stage: StageCompile, Err: err}
	}
	art := &circomArtifact{pattern: pattern, dir: dir}
	keep := false
	defer func() {
		if !keep {
			_ = art.Close()
		}
	}()

	decomposed, err := decomposedJSON(pattern)
	if err != nil {
		return nil, &ToolchainError{Target: NameCircom, Stage: StageCompile, Err: err}
	}
	decomposedPath := filepath.Join(dir, "decomposed.json")
	if err := os.WriteFile(decomposedPath, decomposed, 0o644); err != nil {
		return nil, &ToolchainError{Target: NameCircom, Stage: StageCompile, Err: err}
	}

	circuitPath := filepath.Join(dir, "circuit.circom")
	if err := t.compileStep(ctx, "zk-regex", t.zkRegexPath, dir,
		"decomposed",
		"--decomposed-regex-path", decomposedPath,
		"--output-file-path", circuitPath,
		"--template-name", "TestRegex",
		"--proving-framework", "circom",
	); err != nil {
		return nil, err
	}

	// zk-regex emits the template only; the main component fixing the
	// input window is appended here.
	main := fmt.Sprintf("\ncomponent main { public [msg] } = TestRegex(%d);\n", t.cfg.MaxInputLen)
	f, err := os.OpenFile(circuitPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &ToolchainError{Target: NameCircom, Stage: StageCompile, Err: err}
	}
	_, werr := f.WriteString(main)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, &ToolchainError{Target: NameCircom, Stage: StageCompile, Err: werr}
	}

	circomArgs := []string{circuitPath, "--r1cs", "--wasm", "-o", dir}
	for _, lib := range t.cfg.CircomLibs {
		circomArgs = append(circomArgs, "-l", lib)
	}
	if err := t.compileStep(ctx, "circom", t.circomPath, dir, circomArgs...); err != nil {
		return nil, err
	}

	if t.cfg.Prove {
		if err := t.compileStep(ctx, "snarkjs", t.snarkjsPath, dir,
			"groth16", "setup",
			filepath.Join(dir, "circuit.r1cs"), t.cfg.PtauPath,
			filepath.Join(dir, "circuit.zkey"),
		); err != nil {
			return nil, err
		}
		if err := t.compileStep(ctx, "snarkjs", t.snarkjsPath, dir,
			"zkey", "export", "verificationkey",
			filepath.Join(dir, "circuit.zkey"),
			filepath.Join(dir, "vkey.json"),
		); err != nil {
			return nil, err
		}
	}

	keep = true
	return art, nil
}

func (t *circomTarget) workRoot() string {
	if t.cfg.WorkDir != "" {
		return t.cfg.WorkDir
	}
	return os.TempDir()
}

// compileStep runs one compilation subprocess, folding timeout and
// non-zero exit into a stage-tagged ToolchainError.
func (t *circomTarget) compileStep(ctx context.Context, tool, path, dir string, args ...string) error {
	cap, err := run(ctx, command{
		Tool:    tool,
		Path:    path,
		Args:    args,
		Dir:     dir,
		Timeout: t.cfg.CompileTimeout,
	})
	if err != nil {
		return &ToolchainError{Target: NameCircom, Stage: StageCompile, Tool: tool, Err: err}
	}
	if cap.ExitCode != 0 {
		return &ToolchainError{
			Target: NameCircom,
			Stage:  StageCompile,
			Tool:   tool,
			Err:    fmt.Errorf("exit %d: %s", cap.ExitCode, strings.TrimSpace(cap.Stderr)),
		}
	}
	return nil
}

// =============================================================================
// Execution
// =============================================================================

// Execute implements Target. The circuit reports a match bit only;
// no substring or span is available.
func (t *circomTarget) Execute(ctx context.Context, artifact Artifact, input string) MatchResult {
	start := time.Now()
	art, ok := artifact.(*circomArtifact)
	if !ok {
		return errorResult(NameCircom, StageWitness, start,
			fmt.Errorf("artifact from %s handed to the circom target", artifact.TargetName()))
	}

	codes, err := encodeWindow(t.cfg.Alphabet, t.cfg.MaxInputLen, input)
	if err != nil {
		return errorResult(NameCircom, StageInput, start, err)
	}

	id := uuid.NewString()
	inputPath := filepath.Join(art.dir, "input-"+id+".json")
	wtnsPath := filepath.Join(art.dir, "witness-"+id+".wtns")
	wtnsJSONPath := filepath.Join(art.dir, "witness-"+id+".json")
	defer func() {
		for _, p := range []string{inputPath, wtnsPath, wtnsJSONPath} {
			_ = os.Remove(p)
		}
	}()

	inputJSON, err := json.Marshal(map[string][]int{"msg": codes})
	if err != nil {
		return errorResult(NameCircom, StageInput, start, err)
	}
	if err := os.WriteFile(inputPath, inputJSON, 0o644); err != nil {
		return errorResult(NameCircom, StageInput, start, err)
	}

	if res, ok := t.executeStep(ctx, start, StageWitness, art.dir,
		"wtns", "calculate", art.wasmPath(), inputPath, wtnsPath); !ok {
		return res
	}
	if res, ok := t.executeStep(ctx, start, StageWitness, art.dir,
		"wtns", "export", "json", wtnsPath, wtnsJSONPath); !ok {
		return res
	}

	raw, err := os.ReadFile(wtnsJSONPath)
	if err != nil {
		return errorResult(NameCircom, StageWitness, start, err)
	}
	var signals []string
	if err := json.Unmarshal(raw, &signals); err != nil {
		return errorResult(NameCircom, StageWitness, start,
			fmt.Errorf("witness export: %w", err))
	}
	if len(signals) < 2 {
		return errorResult(NameCircom, StageWitness, start,
			fmt.Errorf("witness export: %d signals, match bit missing", len(signals)))
	}
	matched := signals[1] == "1"

	if matched && t.cfg.Prove {
		if res := t.proveRound(ctx, start, art, id, wtnsPath); res != nil {
			return *res
		}
	}

	outcome := OutcomeNotMatched
	if matched {
		outcome = OutcomeMatched
	}
	return MatchResult{
		Target:   NameCircom,
		Outcome:  outcome,
		Duration: time.Since(start),
	}
}

// executeStep runs one snarkjs execution subprocess. The second
// return is false when the step failed and the MatchResult carries
// the folded error.
func (t *circomTarget) executeStep(ctx context.Context, start time.Time, stage Stage, dir string, args ...string) (MatchResult, bool) {
	cap, err := run(ctx, command{
		Tool:    "snarkjs",
		Path:    t.snarkjsPath,
		Args:    args,
		Dir:     dir,
		Timeout: t.cfg.ExecuteTimeout,
	})
	if err != nil {
		return errorResult(NameCircom, stage, start, err), false
	}
	if cap.ExitCode != 0 {
		return errorResult(NameCircom, stage, start,
			fmt.Errorf("snarkjs exit %d: %s", cap.ExitCode, strings.TrimSpace(cap.Stderr))), false
	}
	return MatchResult{}, true
}

// proveRound runs groth16 prove and verify on a computed witness.
// Returns nil on success.
func (t *circomTarget) proveRound(ctx context.Context, start time.Time, art *circomArtifact, id, wtnsPath string) *MatchResult {
	proofPath := filepath.Join(art.dir, "proof-"+id+".json")
	publicPath := filepath.Join(art.dir, "public-"+id+".json")
	defer func() {
		_ = os.Remove(proofPath)
		_ = os.Remove(publicPath)
	}()

	if res, ok := t.executeStep(ctx, start, StageProve, art.dir,
		"groth16", "prove",
		filepath.Join(art.dir, "circuit.zkey"), wtnsPath, proofPath, publicPath); !ok {
		return &res
	}
	cap, err := run(ctx, command{
		Tool:    "snarkjs",
		Path:    t.snarkjsPath,
		Args:    []string{"groth16", "verify", filepath.Join(art.dir, "vkey.json"), publicPath, proofPath},
		Dir:     art.dir,
		Timeout: t.cfg.ExecuteTimeout,
	})
	if err != nil {
		res := errorResult(NameCircom, StageProve, start, err)
		return &res
	}
	if cap.ExitCode != 0 || !strings.Contains(cap.Stdout, "OK") {
		res := errorResult(NameCircom, StageProve, start,
			fmt.Errorf("verification rejected: %s", strings.TrimSpace(firstLine(cap.Stdout))))
		return &res
	}
	return nil
}

// encodeWindow turns input into rune ordinals zero-padded to the
// window, the layout both subprocess circuits consume.
func encodeWindow(alphabet grammar.Alphabet, window int, input string) ([]int, error) {
	runes := []rune(input)
	if len(runes) > window {
		return nil, fmt.Errorf("input length %d exceeds circuit window %d", len(runes), window)
	}
	codes := make([]int, window)
	for i, r := range runes {
		if !alphabet.Contains(r) {
			return nil, fmt.Errorf("rune %q outside circuit alphabet", r)
		}
		codes[i] = int(r)
	}
	return codes, nil
}
