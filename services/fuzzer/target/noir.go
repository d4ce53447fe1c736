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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// noirMainTemplate is the entry point wrapping the generated regex
// module. The circuit reveals the matched bytes as a public field
// array, zero-padded to the window.
const noirMainTemplate = `mod regex;

global MAX_INPUT_SIZE: u32 = %d;

fn main(input: [u8; MAX_INPUT_SIZE]) -> pub [Field; MAX_INPUT_SIZE] {
    let matches = regex::regex_match(input);
    let substring = regex::extract_substring::<MAX_INPUT_SIZE, MAX_INPUT_SIZE>(matches.get(0), input);
    let mut result: [Field; MAX_INPUT_SIZE] = [0; MAX_INPUT_SIZE];
    for i in 0..MAX_INPUT_SIZE {
        let r = substring.get_unchecked(i);
        result[i] = Field::from(r);
    }
    print("output: ");
    println(result);
    result
}
`

const nargoManifest = "[package]\nname = \"test_regex\"\ntype = \"bin\"\nauthors = [\"\"]\n\n[dependencies]\n"

// outputPattern extracts the revealed field array from nargo's
// stdout. nargo has no flag to dump public outputs alone, so the
// circuit prints them.
var outputPattern = regexp.MustCompile(`output: \[([^\]]+)\]`)

// noirTarget drives the zk-regex noir backend: zk-regex generates
// src/regex.nr, nargo compiles and executes the package, and the
// constraint system's accept/reject is nargo's exit status. A failed
// execution is a rejection, not an error: in this stack
// failure-to-solve IS the non-match verdict.
type noirTarget struct {
	cfg Config

	zkRegexPath string
	nargoPath   string
	bbPath      string
}

func newNoir(ctx context.Context, cfg Config) (*noirTarget, error) {
	tcs := cfg.Toolchains
	if tcs == nil {
		var err error
		tcs, err = NewToolchains(nil)
		if err != nil {
			return nil, err
		}
	}
	t := &noirTarget{cfg: cfg}
	names := []struct {
		name string
		dst  *string
	}{
		{"zk-regex", &t.zkRegexPath},
		{"nargo", &t.nargoPath},
	}
	if cfg.Prove {
		names = append(names, struct {
			name string
			dst  *string
		}{"bb", &t.bbPath})
	}
	for _, probe := range names {
		info, err := tcs.Probe(ctx, probe.name)
		if err != nil {
			return nil, fmt.Errorf("noir target: %w", err)
		}
		*probe.dst = info.Path
	}
	return t, nil
}

// Name implements Target.
func (t *noirTarget) Name() string { return NameNoir }

// =============================================================================
// Artifact
// =============================================================================

// noirArtifact is a compiled nargo package on disk. Prover files and
// witnesses carry a per-execution UUID.
type noirArtifact struct {
	pattern string
	dir     string

	closeOnce sync.Once
	closeErr  error
}

func (a *noirArtifact) TargetName() string { return NameNoir }
func (a *noirArtifact) Pattern() string    { return a.pattern }

func (a *noirArtifact) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = os.RemoveAll(a.dir)
	})
	return a.closeErr
}

// Compile implements Target.
func (t *noirTarget) Compile(ctx context.Context, pattern string) (Artifact, error) {
	dir := filepath.Join(t.workRoot(), "noir-"+uuid.NewString())
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return nil, &ToolchainError{Target: NameNoir, Stage: StageCompile, Err: err}
	}
	art := &noirArtifact{pattern: pattern, dir: dir}
	keep := false
	defer func() {
		if !keep {
			_ = art.Close()
		}
	}()

	decomposed, err := decomposedJSON(pattern)
	if err != nil {
		return nil, &ToolchainError{Target: NameNoir, Stage: StageCompile, Err: err}
	}
	files := map[string]string{
		filepath.Join(dir, "Nargo.toml"): nargoManifest,
		filepath.Join(srcDir, "main.nr"): fmt.Sprintf(noirMainTemplate, t.cfg.MaxInputLen),
		filepath.Join(dir, "regex.json"): string(decomposed),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, &ToolchainError{Target: NameNoir, Stage: StageCompile, Err: err}
		}
	}

	if err := t.compileStep(ctx, "zk-regex", t.zkRegexPath, dir,
		"decomposed",
		"--decomposed-regex-path", filepath.Join(dir, "regex.json"),
		"--output-file-path", filepath.Join(srcDir, "regex.nr"),
		"--template-name", "TestRegex",
		"--proving-framework", "noir",
	); err != nil {
		return nil, err
	}

	if err := t.compileStep(ctx, "nargo", t.nargoPath, dir,
		"compile", "--silence-warnings", "--skip-underconstrained-check",
	); err != nil {
		return nil, err
	}

	if t.cfg.Prove {
		if err := t.compileStep(ctx, "bb", t.bbPath, dir,
			"write_vk",
			"-b", filepath.Join(dir, "target", "test_regex.json"),
			"-o", filepath.Join(dir, "target", "vk"),
		); err != nil {
			return nil, err
		}
	}

	keep = true
	return art, nil
}

func (t *noirTarget) workRoot() string {
	if t.cfg.WorkDir != "" {
		return t.cfg.WorkDir
	}
	return os.TempDir()
}

func (t *noirTarget) compileStep(ctx context.Context, tool, path, dir string, args ...string) error {
	cap, err := run(ctx, command{
		Tool:    tool,
		Path:    path,
		Args:    args,
		Dir:     dir,
		Timeout: t.cfg.CompileTimeout,
	})
	if err != nil {
		return &ToolchainError{Target: NameNoir, Stage: StageCompile, Tool: tool, Err: err}
	}
	if cap.ExitCode != 0 {
		return &ToolchainError{
			Target: NameNoir,
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

// Execute implements Target.
func (t *noirTarget) Execute(ctx context.Context, artifact Artifact, input string) MatchResult {
	start := time.Now()
	art, ok := artifact.(*noirArtifact)
	if !ok {
		return errorResult(NameNoir, StageWitness, start,
			fmt.Errorf("artifact from %s handed to the noir target", artifact.TargetName()))
	}

	codes, err := encodeWindow(t.cfg.Alphabet, t.cfg.MaxInputLen, input)
	if err != nil {
		return errorResult(NameNoir, StageInput, start, err)
	}

	id := uuid.NewString()
	proverName := "Prover-" + id
	witnessName := "witness-" + id
	proverPath := filepath.Join(art.dir, proverName+".toml")
	witnessPath := filepath.Join(art.dir, "target", witnessName+".gz")
	defer func() {
		_ = os.Remove(proverPath)
		_ = os.Remove(witnessPath)
	}()

	if err := os.WriteFile(proverPath, []byte(proverTOML(codes)), 0o644); err != nil {
		return errorResult(NameNoir, StageInput, start, err)
	}

	cap, err := run(ctx, command{
		Tool: "nargo",
		Path: t.nargoPath,
		Args: []string{
			"execute", "--silence-warnings",
			"-p", proverName,
			witnessName,
		},
		Dir:     art.dir,
		Timeout: t.cfg.ExecuteTimeout,
	})
	if err != nil {
		return errorResult(NameNoir, StageWitness, start, err)
	}
	if cap.ExitCode != 0 {
		// Unsatisfiable constraints are this stack's "no match".
		return MatchResult{
			Target:   NameNoir,
			Outcome:  OutcomeNotMatched,
			Duration: time.Since(start),
		}
	}

	substring, err := parseRevealedOutput(cap.Stdout)
	if err != nil {
		return errorResult(NameNoir, StageMatch, start, err)
	}

	if t.cfg.Prove {
		if res := t.proveRound(ctx, start, art, witnessName); res != nil {
			return *res
		}
	}
	return MatchResult{
		Target:    NameNoir,
		Outcome:   OutcomeMatched,
		Substring: substring,
		Duration:  time.Since(start),
	}
}

// proveRound runs bb prove and verify on the execution's witness.
// Returns nil on success.
func (t *noirTarget) proveRound(ctx context.Context, start time.Time, art *noirArtifact, witnessName string) *MatchResult {
	targetDir := filepath.Join(art.dir, "target")
	proofPath := filepath.Join(targetDir, "proof-"+witnessName)
	defer func() { _ = os.Remove(proofPath) }()

	steps := [][]string{
		{"prove",
			"-b", filepath.Join(targetDir, "test_regex.json"),
			"-w", filepath.Join(targetDir, witnessName+".gz"),
			"-o", proofPath},
		{"verify",
			"-k", filepath.Join(targetDir, "vk"),
			"-p", proofPath},
	}
	for _, args := range steps {
		cap, err := run(ctx, command{
			Tool:    "bb",
			Path:    t.bbPath,
			Args:    args,
			Dir:     art.dir,
			Timeout: t.cfg.ExecuteTimeout,
		})
		if err != nil {
			res := errorResult(NameNoir, StageProve, start, err)
			return &res
		}
		if cap.ExitCode != 0 {
			res := errorResult(NameNoir, StageProve, start,
				fmt.Errorf("bb %s exit %d: %s", args[0], cap.ExitCode, strings.TrimSpace(cap.Stderr)))
			return &res
		}
	}
	return nil
}

// proverTOML renders the padded input as a Prover file.
func proverTOML(codes []int) string {
	var b strings.Builder
	b.WriteString("input = [")
	for i, c := range codes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(c))
	}
	b.WriteString("]\n")
	return b.String()
}

// parseRevealedOutput decodes the circuit's printed field array into
// the matched substring, stripping the zero padding.
func parseRevealedOutput(stdout string) (string, error) {
	m := outputPattern.FindStringSubmatch(stdout)
	if m == nil {
		return "", fmt.Errorf("revealed output missing from execution stdout")
	}
	var runes []rune
	for _, tok := range strings.Split(m[1], ",") {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseUint(strings.TrimPrefix(tok, "0x"), 16, 32)
		if err != nil {
			return "", fmt.Errorf("revealed output field %q: %w", tok, err)
		}
		if v != 0 {
			runes = append(runes, rune(v))
		}
	}
	return string(runes), nil
}
