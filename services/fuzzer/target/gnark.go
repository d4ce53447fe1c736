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
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/automata"
)

// gnarkTarget arithmetizes the pattern's DFA as an in-process R1CS
// circuit over BN254.
//
// Description:
//
//	Compile determinizes the pattern over the configured alphabet and
//	lays the automaton out as a fixed-window circuit: per step a
//	one-hot symbol vector plus a padding flag, a one-hot state vector
//	advanced by the transition table, and a public match bit equal to
//	the accepting-state mass after the last step. Execute hands the
//	solver both match-bit assignments; the one that solves is the
//	circuit's verdict. Zero or two solving assignments means the
//	circuit itself is broken for this input, which is exactly the
//	class of bug the campaign hunts.
type gnarkTarget struct {
	cfg Config
}

func newGnark(cfg Config) (*gnarkTarget, error) {
	return &gnarkTarget{cfg: cfg}, nil
}

// Name implements Target.
func (t *gnarkTarget) Name() string { return NameGnark }

// =============================================================================
// Circuit
// =============================================================================

// dfaCircuit is one pattern's DFA unrolled over a fixed input window.
// Sym is window stripes of numSymbols one-hot flags; Pad marks the
// steps past the input's end. Match is the only public input.
type dfaCircuit struct {
	Sym   []frontend.Variable
	Pad   []frontend.Variable
	Match frontend.Variable `gnark:",public"`

	window     int
	numSymbols int
	start      int
	trans      [][]int
	accept     []int
}

// Define implements frontend.Circuit.
func (c *dfaCircuit) Define(api frontend.API) error {
	numStates := len(c.trans)

	// Step inputs are booleans and each step is exactly one symbol
	// or padding.
	for i := 0; i < c.window; i++ {
		step := make([]frontend.Variable, 0, c.numSymbols+1)
		for k := 0; k < c.numSymbols; k++ {
			v := c.Sym[i*c.numSymbols+k]
			api.AssertIsBoolean(v)
			step = append(step, v)
		}
		api.AssertIsBoolean(c.Pad[i])
		step = append(step, c.Pad[i])
		api.AssertIsEqual(sumTerms(api, step), 1)
	}

	// Padding is a suffix: once a step pads, every later step pads.
	for i := 1; i < c.window; i++ {
		api.AssertIsEqual(api.Mul(c.Pad[i-1], api.Sub(1, c.Pad[i])), 0)
	}

	// One-hot state vector advanced through the transition table.
	// Padding steps hold the state.
	cur := make([]frontend.Variable, numStates)
	for s := 0; s < numStates; s++ {
		cur[s] = 0
	}
	cur[c.start] = 1

	for i := 0; i < c.window; i++ {
		next := make([][]frontend.Variable, numStates)
		for s := 0; s < numStates; s++ {
			next[s] = append(next[s], api.Mul(c.Pad[i], cur[s]))
		}
		for s := 0; s < numStates; s++ {
			for k := 0; k < c.numSymbols; k++ {
				dst := c.trans[s][k]
				next[dst] = append(next[dst], api.Mul(cur[s], c.Sym[i*c.numSymbols+k]))
			}
		}
		for s := 0; s < numStates; s++ {
			cur[s] = sumTerms(api, next[s])
		}
	}

	acceptMass := make([]frontend.Variable, 0, len(c.accept))
	for _, s := range c.accept {
		acceptMass = append(acceptMass, cur[s])
	}
	if len(acceptMass) == 0 {
		acceptMass = append(acceptMass, frontend.Variable(0))
	}
	api.AssertIsEqual(sumTerms(api, acceptMass), c.Match)
	return nil
}

func sumTerms(api frontend.API, terms []frontend.Variable) frontend.Variable {
	switch len(terms) {
	case 0:
		return 0
	case 1:
		return terms[0]
	default:
		return api.Add(terms[0], terms[1], terms[2:]...)
	}
}

// =============================================================================
// Artifact
// =============================================================================

type gnarkArtifact struct {
	pattern    string
	dfa        *automata.DFA
	ccs        constraint.ConstraintSystem
	window     int
	numSymbols int

	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

func (a *gnarkArtifact) TargetName() string { return NameGnark }
func (a *gnarkArtifact) Pattern() string    { return a.pattern }
func (a *gnarkArtifact) Close() error       { return nil }

// Compile implements Target.
func (t *gnarkTarget) Compile(_ context.Context, pattern string) (Artifact, error) {
	dfa, err := automata.CompileFind(pattern, t.cfg.Alphabet)
	if err != nil {
		return nil, &ToolchainError{
			Target: NameGnark,
			Stage:  StageCompile,
			Tool:   "gnark",
			Err:    err,
		}
	}

	window := t.cfg.MaxInputLen
	numSymbols := len(dfa.Alphabet())
	circuit := &dfaCircuit{
		Sym:        make([]frontend.Variable, window*numSymbols),
		Pad:        make([]frontend.Variable, window),
		window:     window,
		numSymbols: numSymbols,
		start:      dfa.Start(),
		trans:      dfa.TransitionTable(),
		accept:     dfa.AcceptingStates(),
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, &ToolchainError{
			Target: NameGnark,
			Stage:  StageCompile,
			Tool:   "gnark",
			Err:    fmt.Errorf("circuit synthesis: %w", err),
		}
	}

	art := &gnarkArtifact{
		pattern:    pattern,
		dfa:        dfa,
		ccs:        ccs,
		window:     window,
		numSymbols: numSymbols,
	}
	if t.cfg.Prove {
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			return nil, &ToolchainError{
				Target: NameGnark,
				Stage:  StageCompile,
				Tool:   "gnark",
				Err:    fmt.Errorf("groth16 setup: %w", err),
			}
		}
		art.pk, art.vk = pk, vk
	}
	return art, nil
}

// =============================================================================
// Execution
// =============================================================================

// Execute implements Target. The solver is consulted for both match
// verdicts; the circuit's answer is whichever assignment solves.
func (t *gnarkTarget) Execute(_ context.Context, artifact Artifact, input string) MatchResult {
	start := time.Now()
	art, ok := artifact.(*gnarkArtifact)
	if !ok {
		return errorResult(NameGnark, StageMatch, start,
			fmt.Errorf("artifact from %s handed to the gnark target", artifact.TargetName()))
	}

	runes := []rune(input)
	if len(runes) > art.window {
		return errorResult(NameGnark, StageInput, start,
			fmt.Errorf("input length %d exceeds circuit window %d", len(runes), art.window))
	}
	symbols := make([]int, len(runes))
	for i, r := range runes {
		k, ok := art.dfa.SymbolIndex(r)
		if !ok {
			return errorResult(NameGnark, StageInput, start,
				fmt.Errorf("rune %q outside circuit alphabet", r))
		}
		symbols[i] = k
	}

	matchedWitness, errYes := t.solve(art, symbols, 1)
	_, errNo := t.solve(art, symbols, 0)

	switch {
	case errYes == nil && errNo != nil:
		// Matched.
	case errYes != nil && errNo == nil:
		return MatchResult{
			Target:   NameGnark,
			Outcome:  OutcomeNotMatched,
			Duration: time.Since(start),
		}
	case errYes != nil && errNo != nil:
		return errorResult(NameGnark, StageWitness, start,
			fmt.Errorf("no match bit satisfies the circuit: %w", errYes))
	default:
		return errorResult(NameGnark, StageWitness, start,
			fmt.Errorf("both match bits satisfy the circuit"))
	}

	if t.cfg.Prove {
		if err := t.prove(art, matchedWitness); err != nil {
			return errorResult(NameGnark, StageProve, start, err)
		}
	}
	return MatchResult{
		Target:   NameGnark,
		Outcome:  OutcomeMatched,
		Duration: time.Since(start),
	}
}

// solve builds the full assignment for one match-bit value and asks
// the constraint system whether it is satisfiable.
func (t *gnarkTarget) solve(art *gnarkArtifact, symbols []int, match int) (witness.Witness, error) {
	assignment := &dfaCircuit{
		Sym:   make([]frontend.Variable, art.window*art.numSymbols),
		Pad:   make([]frontend.Variable, art.window),
		Match: match,
	}
	for i := range assignment.Sym {
		assignment.Sym[i] = 0
	}
	for i := 0; i < art.window; i++ {
		if i < len(symbols) {
			assignment.Sym[i*art.numSymbols+symbols[i]] = 1
			assignment.Pad[i] = 0
		} else {
			assignment.Pad[i] = 1
		}
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness build: %w", err)
	}
	if err := art.ccs.IsSolved(w); err != nil {
		return nil, err
	}
	return w, nil
}

// prove runs the full Groth16 round on an already-solving witness.
func (t *gnarkTarget) prove(art *gnarkArtifact, w witness.Witness) error {
	proof, err := groth16.Prove(art.ccs, art.pk, w)
	if err != nil {
		return fmt.Errorf("groth16 prove: %w", err)
	}
	public, err := w.Public()
	if err != nil {
		return fmt.Errorf("public witness: %w", err)
	}
	if err := groth16.Verify(proof, art.vk, public); err != nil {
		return fmt.Errorf("groth16 verify: %w", err)
	}
	return nil
}
