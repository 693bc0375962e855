// Package checks implements the five per-cycle safety checks: per-wire
// sensitivity, gate transition leakage, pipeline-gadget input
// preconditions, randomness single-use, and output port discipline.
// Run is called once per simulated cycle, after the evaluator sweep
// completes; it returns the first violation encountered and the caller
// aborts the run. There is no issue-accumulation list.
package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cassiersg/matchi-go/eval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/shareset"
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/vfyerr"
	"github.com/cassiersg/matchi-go/wirestate"
)

// Config toggles the two checks a caller may disable via
// --no-check-state-cleared / --no-check-transitions. The other three
// checks are never optional.
type Config struct {
	CheckStateCleared bool
	CheckTransitions  bool
}

// DefaultConfig enables every check.
func DefaultConfig() Config {
	return Config{CheckStateCleared: true, CheckTransitions: true}
}

// Run executes every enabled safety check against the current cycle's
// evaluated state of the top-level evaluator ev and the global simulation
// state sim, cheapest structural scans first.
func Run(cfg Config, ev *eval.Evaluator, sim *simstate.State) error {
	if cfg.CheckStateCleared {
		if err := checkWireSensitivity(ev); err != nil {
			return err
		}
	}
	if cfg.CheckTransitions {
		if err := checkTransitionLeakage(ev); err != nil {
			return err
		}
	}
	if err := checkPipelineInputs(ev, sim); err != nil {
		return err
	}
	if err := checkRandomnessSingleUse(sim); err != nil {
		return err
	}
	if err := checkOutputDiscipline(ev, sim); err != nil {
		return err
	}
	return nil
}

// checkWireSensitivity requires every wire's sensitivity and
// glitch_sensitivity to have cardinality <= 1. It walks every plain
// (non-gadget-wrapped) evaluator in the hierarchy; a pipeline gadget's
// internal wires are outside its externally-checked contract, so they are
// not scanned here.
func checkWireSensitivity(ev *eval.Evaluator) error {
	var offender error
	walkPlain(ev, func(e *eval.Evaluator) bool {
		e.EachWire(func(w netlist.WireID, s wirestate.State) {
			if offender != nil {
				return
			}
			if s.Sensitivity.Cardinality() > 1 {
				offender = vfyerr.Security(frameFor(e, w), "wire is sensitive for multiple shares %s", s.Sensitivity)
			} else if s.GlitchSensitivity.Cardinality() > 1 {
				offender = vfyerr.Security(frameFor(e, w), "wire is glitch-sensitive for multiple shares %s", s.GlitchSensitivity)
			}
		})
		return offender == nil
	})
	return offender
}

// checkTransitionLeakage forbids a primitive gate from having an input
// sensitive for one share this cycle while any operand was sensitive for a
// different share the previous cycle.
func checkTransitionLeakage(ev *eval.Evaluator) error {
	var offender error
	walkPlain(ev, func(e *eval.Evaluator) bool {
		mod := e.Module()
		for i := range mod.Instances {
			inst := &mod.Instances[i]
			if inst.Kind != netlist.InstGate || inst.Gate == netlist.GateDFF {
				continue
			}
			cur, prev := e.GateOperands(inst.ID)
			if cur == nil {
				continue
			}
			sensCur := shareset.Empty()
			for _, op := range cur {
				sensCur = sensCur.Union(op.Sensitivity)
			}
			if sensCur.Cardinality() > 1 {
				offender = vfyerr.Security(vfyerr.Frame{ModulePath: e.Path(), Wire: inst.Name, Cycle: -1},
					"gate %q has input sensitive in multiple shares %s this cycle (causes glitch leakage)", inst.Name, sensCur)
				return false
			}
			sensTrans := sensCur
			for _, op := range prev {
				sensTrans = sensTrans.Union(op.Sensitivity)
			}
			if sensTrans.Cardinality() > 1 {
				offender = vfyerr.Security(vfyerr.Frame{ModulePath: e.Path(), Wire: inst.Name, Cycle: -1},
					"gate %q has input sensitive in multiple shares %s over consecutive cycles (transition leakage)", inst.Name, sensTrans)
				return false
			}
		}
		return true
	})
	return offender
}

// checkPipelineInputs requires that every pipeline gadget's
// current-cycle inputs must satisfy its role precondition and (for
// bubble-requiring properties) the pipeline-bubble precondition, and its
// finishing randomness must be fresh whenever the execution is sensitive.
func checkPipelineInputs(ev *eval.Evaluator, sim *simstate.State) error {
	var offender error
	walkAll(ev, func(p *eval.PipelineEval) bool {
		mod := p.Module()
		for _, decl := range mod.Inputs {
			if mod.Clock != nil && decl.Name == mod.Clock.Name {
				continue
			}
			for _, w := range decl.Bits {
				if err := p.CheckInput(w); err != nil {
					offender = err
					return false
				}
			}
		}
		if err := p.CheckFinish(); err != nil {
			offender = err
			return false
		}
		return true
	})
	return offender
}

// checkRandomnessSingleUse requires that every (port, birth-cycle) random
// with at least one fresh use has at most one leak event. Violations are
// reported deterministically: ties are broken by (port, birth-cycle) so a
// re-run reports byte-for-byte the same violation first.
func checkRandomnessSingleUse(sim *simstate.State) error {
	type entry struct {
		port wirestate.RandomPortID
		birth int
		st   *simstate.RandomStatus
	}
	var viols []entry
	sim.EachRandomStatus(func(port wirestate.RandomPortID, birth int, st *simstate.RandomStatus) {
		if len(st.FreshUses) >= 1 && len(st.Leaks) > 1 {
			viols = append(viols, entry{port, birth, st})
		}
	})
	if len(viols) == 0 {
		return nil
	}
	sort.Slice(viols, func(i, j int) bool {
		if viols[i].port != viols[j].port {
			return viols[i].port < viols[j].port
		}
		return viols[i].birth < viols[j].birth
	})
	v := viols[0]

	var b strings.Builder
	fmt.Fprintf(&b, "random port %d born at cycle %d is used in multiple places:\n", v.port, v.birth)
	for _, u := range v.st.FreshUses {
		fmt.Fprintf(&b, "\tfresh use by %s at cycle %d\n", u.Instance, u.Cycle)
	}
	for _, l := range v.st.Leaks {
		fmt.Fprintf(&b, "\tleaked by %s at cycle %d\n", l.Instance, l.Cycle)
	}
	return vfyerr.Security(vfyerr.Frame{Cycle: v.birth}, "%s", b.String())
}

// checkOutputDiscipline requires that every top-level output
// whose latency condition is false this cycle must be (glitch-)
// insensitive; when true, a Share(i) output must be sensitive only for
// share i and a Control output must be deterministic and glitch-
// insensitive.
func checkOutputDiscipline(ev *eval.Evaluator, sim *simstate.State) error {
	mod := ev.Module()
	gadget := mod.Gadget
	if gadget == nil {
		return nil
	}
	relCycle := sim.CurrentCycle - sim.ExecStart

	for _, decl := range mod.Outputs {
		if mod.Clock != nil && decl.Name == mod.Clock.Name {
			continue
		}
		for _, w := range decl.Bits {
			ann, ok := gadget.Ports[w]
			if !ok {
				continue
			}
			st, ok := ev.CurrentState(w)
			if !ok {
				continue
			}
			frame := vfyerr.Frame{ModulePath: ev.Path(), Wire: mod.WireLabel(w), Cycle: sim.CurrentCycle}

			witnessActive := false
			if ann.Latency.Kind == netlist.LatOnActive {
				witnessActive = witnessValue(mod, ev, ann.Latency.Witness)
			}
			if !ann.Latency.Holds(relCycle, witnessActive) {
				if !st.Sensitivity.IsEmpty() || !st.GlitchSensitivity.IsEmpty() {
					return vfyerr.Security(frame, "output %q is (glitch-)sensitive for shares %s while its latency condition does not hold", decl.Name, st.GlitchSensitivity)
				}
				continue
			}
			switch ann.Role.Kind {
			case netlist.RoleShare:
				want := shareset.Singleton(ann.Role.ShareID)
				if !st.Sensitivity.Subset(want) {
					return vfyerr.Security(frame, "output share `%s[%d]` is (glitch-)sensitive for shares %s", decl.Name, ann.Bit, st.Sensitivity)
				}
			case netlist.RoleControl:
				if !st.Deterministic {
					return vfyerr.Security(frame, "control output %q is not deterministic", decl.Name)
				}
				if !st.GlitchSensitivity.IsEmpty() {
					return vfyerr.Security(frame, "control output %q depends on share glitches", decl.Name)
				}
			}
		}
	}
	return nil
}

func witnessValue(mod *netlist.Module, ev *eval.Evaluator, name string) bool {
	w, ok := mod.WireByName(name)
	if !ok {
		return false
	}
	st, ok := ev.CurrentState(w)
	if !ok {
		return false
	}
	b, _ := st.Value.Bool()
	return b
}

func frameFor(e *eval.Evaluator, w netlist.WireID) vfyerr.Frame {
	return vfyerr.Frame{ModulePath: e.Path(), Wire: e.Module().WireLabel(w), Cycle: -1}
}

// walkPlain visits ev and every plain (non-pipeline-wrapped) sub-evaluator
// reachable from it, depth-first. visit returns false to stop the walk
// early (a violation was already found).
func walkPlain(ev *eval.Evaluator, visit func(*eval.Evaluator) bool) bool {
	if !visit(ev) {
		return false
	}
	for _, sub := range ev.SubEvaluators() {
		if plain := sub.Plain(); plain != nil {
			if !walkPlain(plain, visit) {
				return false
			}
		}
		// Pipeline sub-evaluators' internal wires are intentionally not
		// walked here; see checkWireSensitivity's doc comment.
	}
	return true
}

// walkAll visits every PipelineEval reachable from ev, at any depth,
// including those nested inside other pipeline gadgets' own plain
// sub-hierarchy.
func walkAll(ev *eval.Evaluator, visit func(*eval.PipelineEval) bool) bool {
	for _, sub := range ev.SubEvaluators() {
		if plain := sub.Plain(); plain != nil {
			if !walkAll(plain, visit) {
				return false
			}
		}
		if pipe := sub.Pipeline(); pipe != nil {
			if !visit(pipe) {
				return false
			}
			if !walkAll(pipe.Inner(), visit) {
				return false
			}
		}
	}
	return true
}
