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
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// probeTimeout bounds one version probe. Version flags that hang are
// treated as missing tools.
const probeTimeout = 10 * time.Second

//go:embed toolchains.yaml
var defaultManifestYAML []byte

var (
	toolProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfuzz_toolchain_probes_total",
		Help: "Toolchain version probes partitioned by tool and result.",
	}, []string{"tool", "result"})

	subprocessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfuzz_target_subprocess_total",
		Help: "External tool invocations partitioned by tool and result.",
	}, []string{"tool", "result"})

	subprocessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zkfuzz_target_subprocess_duration_seconds",
		Help:    "Wall time of external tool invocations.",
		Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 180, 600},
	}, []string{"tool"})
)

// versionPattern extracts the first semver-shaped token from probe
// output. Prerelease suffixes (nargo ships 1.x.y-beta.z) are part of
// the token.
var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?`)

// =============================================================================
// Manifest Types
// =============================================================================

// ToolSpec is one manifest entry.
type ToolSpec struct {
	// Name is the registry key, also the --toolchain-path override
	// key.
	Name string `yaml:"name"`

	// Binary is the executable resolved on PATH when no override is
	// set.
	Binary string `yaml:"binary"`

	// VersionArgs print the tool's version on stdout.
	VersionArgs []string `yaml:"version_args"`

	// MinVersion gates the probe. Empty accepts any version.
	MinVersion string `yaml:"min_version,omitempty"`

	// Description is the one-line human label for the targets table.
	Description string `yaml:"description,omitempty"`
}

type manifestYAML struct {
	Tools []ToolSpec `yaml:"tools"`
}

// ToolInfo is a successful probe.
type ToolInfo struct {
	// Name is the manifest name.
	Name string

	// Path is the resolved binary path.
	Path string

	// Version is the semver token parsed from the probe output, or
	// the raw first line when no token was found.
	Version string
}

// =============================================================================
// Registry
// =============================================================================

// Toolchains resolves and probes the external tool binaries the
// subprocess targets shell out to.
//
// Description:
//
//	Built from the embedded manifest plus optional per-tool binary
//	overrides. Probes run the tool's version command once and memoize
//	the result, success or failure, so a campaign constructing five
//	targets does not re-run five version commands per target.
//
// Thread Safety: safe for concurrent use.
type Toolchains struct {
	specs map[string]ToolSpec

	mu     sync.Mutex
	probes map[string]probeResult
}

type probeResult struct {
	info ToolInfo
	err  error
}

// NewToolchains builds the registry from the embedded manifest.
//
// Inputs:
//
//	overrides - Tool name to binary path. Overridden tools skip PATH
//	    resolution but are still probed and version-gated. Nil or
//	    empty is the plain manifest.
//
// Outputs:
//
//	*Toolchains - The registry.
//	error - ErrBadManifest for an invalid embedded manifest, or
//	    ErrUnknownTool for an override naming a tool outside it.
func NewToolchains(overrides map[string]string) (*Toolchains, error) {
	var m manifestYAML
	if err := yaml.Unmarshal(defaultManifestYAML, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if len(m.Tools) == 0 {
		return nil, fmt.Errorf("%w: no tools", ErrBadManifest)
	}

	specs := make(map[string]ToolSpec, len(m.Tools))
	for _, spec := range m.Tools {
		if spec.Name == "" || spec.Binary == "" || len(spec.VersionArgs) == 0 {
			return nil, fmt.Errorf("%w: tool %+v missing name, binary, or version_args", ErrBadManifest, spec)
		}
		if spec.MinVersion != "" && !semver.IsValid("v"+spec.MinVersion) {
			return nil, fmt.Errorf("%w: tool %s min_version %q", ErrBadManifest, spec.Name, spec.MinVersion)
		}
		if _, dup := specs[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %s", ErrBadManifest, spec.Name)
		}
		specs[spec.Name] = spec
	}

	for name, path := range overrides {
		spec, ok := specs[name]
		if !ok {
			return nil, fmt.Errorf("%w: override for %q (known: %s)", ErrUnknownTool, name, strings.Join(specNames(specs), ", "))
		}
		if path == "" {
			return nil, fmt.Errorf("empty override path for tool %q", name)
		}
		spec.Binary = path
		specs[name] = spec
	}

	return &Toolchains{
		specs:  specs,
		probes: make(map[string]probeResult),
	}, nil
}

// Specs returns the manifest entries sorted by name.
func (t *Toolchains) Specs() []ToolSpec {
	out := make([]ToolSpec, 0, len(t.specs))
	for _, spec := range t.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Probe resolves and version-checks one tool.
//
// Description:
//
//	Resolves the binary (overrides bypass PATH lookup), runs the
//	version command under a short deadline, parses the first
//	semver-shaped token from its output, and gates it against the
//	manifest minimum. Results are memoized for the registry's
//	lifetime; repeated probes, including failed ones, are free.
//
// Inputs:
//
//	ctx - Bounds the version command.
//	name - Manifest tool name.
//
// Outputs:
//
//	ToolInfo - Resolved path and parsed version.
//	error - ErrUnknownTool, ErrToolNotFound, ErrToolTooOld, or a
//	    probe execution failure.
func (t *Toolchains) Probe(ctx context.Context, name string) (ToolInfo, error) {
	spec, ok := t.specs[name]
	if !ok {
		return ToolInfo{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	t.mu.Lock()
	if res, done := t.probes[name]; done {
		t.mu.Unlock()
		return res.info, res.err
	}
	t.mu.Unlock()

	info, err := t.probe(ctx, spec)
	if err != nil {
		toolProbesTotal.WithLabelValues(name, "error").Inc()
	} else {
		toolProbesTotal.WithLabelValues(name, "ok").Inc()
	}

	t.mu.Lock()
	t.probes[name] = probeResult{info: info, err: err}
	t.mu.Unlock()
	return info, err
}

// Versions probes every manifest tool and returns name to version.
// Unresolvable tools map to the empty string, so the returned map
// always carries the full manifest key set; corpus metadata records
// it verbatim and reproduce diffs it for drift.
func (t *Toolchains) Versions(ctx context.Context) map[string]string {
	out := make(map[string]string, len(t.specs))
	for name := range t.specs {
		info, err := t.Probe(ctx, name)
		if err != nil {
			out[name] = ""
			continue
		}
		out[name] = info.Version
	}
	return out
}

// Path returns the resolved binary path for a successfully probed
// tool.
func (t *Toolchains) Path(ctx context.Context, name string) (string, error) {
	info, err := t.Probe(ctx, name)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

// probe does the actual resolution and version check.
func (t *Toolchains) probe(ctx context.Context, spec ToolSpec) (ToolInfo, error) {
	path := spec.Binary
	if !strings.ContainsRune(path, os.PathSeparator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return ToolInfo{}, fmt.Errorf("%w: %s (%q not on PATH)", ErrToolNotFound, spec.Name, spec.Binary)
		}
		path = resolved
	} else if _, err := os.Stat(path); err != nil {
		return ToolInfo{}, fmt.Errorf("%w: %s: %v", ErrToolNotFound, spec.Name, err)
	}

	cap, err := run(ctx, command{
		Tool:    spec.Name,
		Path:    path,
		Args:    spec.VersionArgs,
		Timeout: probeTimeout,
	})
	if err != nil {
		return ToolInfo{}, fmt.Errorf("probe %s: %w", spec.Name, err)
	}
	if cap.ExitCode != 0 {
		return ToolInfo{}, fmt.Errorf("probe %s: %s %s exited %d: %s",
			spec.Name, path, strings.Join(spec.VersionArgs, " "), cap.ExitCode, cap.Stderr)
	}

	version := versionPattern.FindString(cap.Stdout)
	if version == "" {
		version = versionPattern.FindString(cap.Stderr)
	}
	if version == "" {
		// snarkjs prints a banner, not a bare version; keep the first
		// line so drift detection still has something to compare.
		version = firstLine(cap.Stdout)
	}

	if spec.MinVersion != "" {
		if !semver.IsValid("v" + version) {
			return ToolInfo{}, fmt.Errorf("%w: %s reported unparsable version %q (need >= %s)",
				ErrToolTooOld, spec.Name, version, spec.MinVersion)
		}
		if semver.Compare("v"+version, "v"+spec.MinVersion) < 0 {
			return ToolInfo{}, fmt.Errorf("%w: %s %s (need >= %s)",
				ErrToolTooOld, spec.Name, version, spec.MinVersion)
		}
	}

	return ToolInfo{Name: spec.Name, Path: path, Version: version}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func specNames(specs map[string]ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
