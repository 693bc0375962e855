// Package wirestate implements the central datatype of the simulator: the
// per-wire symbolic state tuple, its consistency invariants, and the
// Boolean-gate / mux symbolic evaluation rules.
package wirestate

import (
	"fmt"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/shareset"
)

// RandomPortID identifies one top-level random input port for the life of a
// simulation run.
type RandomPortID int

// NSPGIID identifies one non-share-wise pipeline-gadget instance for the
// life of a simulation run.
type NSPGIID int

// RandomRef names the fresh random a wire carries: the port it came from,
// and the cycle at which that random was born.
type RandomRef struct {
	Port  RandomPortID
	Birth int
}

// State is the symbolic state of one wire in one cycle.
type State struct {
	Sensitivity       shareset.Set
	GlitchSensitivity shareset.Set
	Value             boolval.V
	Random            *RandomRef
	Deterministic     bool
	NSPGI             NSPGIDeps
}

// Validate checks the three consistency invariants every constructed wire
// state must satisfy.
func (s State) Validate() error {
	if !s.Sensitivity.Subset(s.GlitchSensitivity) {
		return fmt.Errorf("wirestate: sensitivity %v is not a subset of glitch_sensitivity %v", s.Sensitivity, s.GlitchSensitivity)
	}
	if s.Deterministic && (!s.Sensitivity.IsEmpty() || s.Random != nil) {
		return fmt.Errorf("wirestate: deterministic wire must have empty sensitivity and no random source")
	}
	if s.Deterministic && s.GlitchSensitivity.IsEmpty() && !s.NSPGI.IsEmpty() {
		return fmt.Errorf("wirestate: fully deterministic wire (glitch-insensitive too) must have empty nspgi_dep")
	}
	return nil
}

// mustValid panics on an invariant violation: every caller in this package
// constructs states purely from the per-gate evaluation rules, so a
// violation here means a bug in this package, not bad input.
func mustValid(s State) State {
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

// DeterministicConst builds the wire state of a value that is the same
// across all secret values and all random samplings: empty sensitivity,
// empty glitch sensitivity, no random, empty NSPGI deps.
func DeterministicConst(v boolval.V) State {
	return mustValid(State{Value: v, Deterministic: true})
}

// IsGlitchDeterministic reports whether a wire is stable even under
// glitches: deterministic and glitch-insensitive. Gate evaluation uses this
// to decide whether a control input can gate a binary op to its neutral
// element, or a mux selector can be resolved statically.
func (s State) IsGlitchDeterministic() bool {
	return s.Deterministic && s.GlitchSensitivity.IsEmpty()
}
