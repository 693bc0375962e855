// Package eval implements the recursive per-module evaluator: a walk over
// the netlist hierarchy computing a symbolic wirestate.State for every
// wire each cycle, switching to an annotation-derived gadget abstraction
// at pipeline-gadget boundaries.
//
// Evaluation is demand-driven and memoized rather than pre-planned: since
// the combinational DAG is acyclic by construction (netlist.Build rejects
// cycles), memoized recursion visits every wire exactly once per cycle in
// a valid dependency order.
package eval

import (
	"fmt"
	"sort"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/wirestate"
)

// subKind tags which of the two sub-evaluator variants a sub-module
// instance resolves to.
type subKind uint8

const (
	subPlain subKind = iota
	subPipeline
)

type subEval struct {
	kind  subKind
	plain *Evaluator
	pipe  *PipelineEval
}

// Evaluator computes one module instantiation's symbolic wire states each
// cycle, recursively owning one sub-evaluator per sub-module instance.
type Evaluator struct {
	nl   *netlist.Netlist
	mod  *netlist.Module
	path string
	sim  *simstate.State

	subs   map[netlist.InstanceID]*subEval
	subIDs []netlist.InstanceID // ascending, for deterministic hierarchy walks

	wires map[netlist.WireID]wirestate.State

	dffPrevD map[netlist.InstanceID]wirestate.State

	curOperands  map[netlist.InstanceID][]wirestate.State
	prevOperands map[netlist.InstanceID][]wirestate.State
}

// NewTop builds the Evaluator for the top-level DUT module, allocating a
// fresh IDGen so every pipeline-gadget instance in the hierarchy gets a
// stable NSPGI id.
func NewTop(nl *netlist.Netlist, mod *netlist.Module, path string, sim *simstate.State) *Evaluator {
	return New(nl, mod, path, sim, NewIDGen())
}

// New builds an Evaluator for mod, recursively constructing sub-evaluators
// for every sub-module instance. path is the dotted instance path used to
// attribute leak/use events and diagnostics.
func New(nl *netlist.Netlist, mod *netlist.Module, path string, sim *simstate.State, idGen *IDGen) *Evaluator {
	e := &Evaluator{
		nl:           nl,
		mod:          mod,
		path:         path,
		sim:          sim,
		subs:         make(map[netlist.InstanceID]*subEval),
		wires:        make(map[netlist.WireID]wirestate.State),
		dffPrevD:     make(map[netlist.InstanceID]wirestate.State),
		curOperands:  make(map[netlist.InstanceID][]wirestate.State),
		prevOperands: make(map[netlist.InstanceID][]wirestate.State),
	}
	for i := range mod.Instances {
		inst := &mod.Instances[i]
		if inst.Kind != netlist.InstModule {
			continue
		}
		subMod := nl.Module(inst.SubModule)
		subPath := path + "." + inst.Name
		if subMod.Gadget != nil && subMod.Gadget.Architecture == netlist.ArchPipeline {
			e.subs[inst.ID] = &subEval{kind: subPipeline, pipe: NewPipeline(nl, subMod, subPath, sim, idGen)}
		} else {
			e.subs[inst.ID] = &subEval{kind: subPlain, plain: New(nl, subMod, subPath, sim, idGen)}
		}
		e.subIDs = append(e.subIDs, inst.ID)
	}
	return e
}

// Module returns the netlist module this evaluator instantiates.
func (e *Evaluator) Module() *netlist.Module { return e.mod }

// Path returns this evaluator's dotted instance path.
func (e *Evaluator) Path() string { return e.path }

// InitNext advances every sub-instance to the next cycle: DFFs capture
// their D input as the new prev state (marking any random it carries as
// register-stored), wire states reset to unset, and every sub-evaluator
// recurses.
func (e *Evaluator) InitNext() {
	e.prevOperands = e.curOperands
	e.curOperands = make(map[netlist.InstanceID][]wirestate.State)

	for i := range e.mod.Instances {
		inst := &e.mod.Instances[i]
		if inst.Kind != netlist.InstGate || inst.Gate != netlist.GateDFF {
			continue
		}
		dWire, ok := inst.InputPin("D")
		if !ok {
			continue
		}
		if d, ok := e.wires[dWire]; ok {
			e.dffPrevD[inst.ID] = wirestate.EvalDFFCapture(d)
			if d.Random != nil {
				e.sim.StoreRandom(*d.Random)
			}
		}
	}

	e.wires = make(map[netlist.WireID]wirestate.State)

	for _, id := range e.subIDs {
		sub := e.subs[id]
		if sub.kind == subPlain {
			sub.plain.InitNext()
		} else {
			sub.pipe.InitNext()
		}
	}
}

// SetInput stamps wire w (a module input or the clock wire) with s.
func (e *Evaluator) SetInput(w netlist.WireID, s wirestate.State) {
	e.wires[w] = s
}

// CurrentState returns wire w's state for the current cycle, if evaluated.
func (e *Evaluator) CurrentState(w netlist.WireID) (wirestate.State, bool) {
	s, ok := e.wires[w]
	return s, ok
}

// EvalAll forces every wire of this module, and of every plain sub-module
// reachable from it, to be evaluated this cycle, bringing the whole
// hierarchy to a complete symbolic state. Call it only after every module
// input (and the clock) has been stamped via SetInput.
func (e *Evaluator) EvalAll() {
	for _, w := range e.mod.TopoOrder {
		e.EvalWire(w)
	}
	for _, id := range e.subIDs {
		if sub := e.subs[id]; sub.kind == subPlain {
			sub.plain.EvalAll()
		}
	}
}

// EachPipeline calls f once for every pipeline-gadget instance reachable
// from this evaluator, at any depth (including a pipeline gadget nested
// inside another pipeline gadget's own sub-hierarchy). Before calling f it
// forces the gadget's internal evaluator to a complete symbolic state via
// EvalAll, so that any further-nested pipeline gadget's inputs for this
// cycle are set before its own EvalFinish runs.
func (e *Evaluator) EachPipeline(f func(*PipelineEval)) {
	for _, id := range e.subIDs {
		sub := e.subs[id]
		if sub.kind == subPlain {
			sub.plain.EachPipeline(f)
			continue
		}
		sub.pipe.inner.EvalAll()
		f(sub.pipe)
		sub.pipe.inner.EachPipeline(f)
	}
}

// EachWire calls f once per wire that has been evaluated so far this cycle,
// in ascending wire order, for safety checks that scan every wire's symbolic
// state. The ordering keeps violation reports byte-for-byte reproducible
// across runs.
func (e *Evaluator) EachWire(f func(w netlist.WireID, s wirestate.State)) {
	ws := make([]netlist.WireID, 0, len(e.wires))
	for w := range e.wires {
		ws = append(ws, w)
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i] < ws[j] })
	for _, w := range ws {
		f(w, e.wires[w])
	}
}

// GateOperands returns this cycle's and the previous cycle's operand
// states for gate instance id, in pin order, for the transition-leakage
// safety check.
func (e *Evaluator) GateOperands(id netlist.InstanceID) (cur, prev []wirestate.State) {
	return e.curOperands[id], e.prevOperands[id]
}

// SubEvaluators returns every sub-module instance's evaluator (either
// variant) in ascending instance order, for safety checks that walk the
// whole hierarchy deterministically.
func (e *Evaluator) SubEvaluators() []*subEval {
	out := make([]*subEval, 0, len(e.subIDs))
	for _, id := range e.subIDs {
		out = append(out, e.subs[id])
	}
	return out
}

// Plain returns the plain Evaluator wrapped by this subEval, or nil.
func (s *subEval) Plain() *Evaluator { return s.plain }

// Pipeline returns the PipelineEval wrapped by this subEval, or nil.
func (s *subEval) Pipeline() *PipelineEval { return s.pipe }

// EvalWire computes (or returns the memoized) symbolic state of wire w,
// recursing into whatever instance drives it.
func (e *Evaluator) EvalWire(w netlist.WireID) wirestate.State {
	if s, ok := e.wires[w]; ok {
		return s
	}
	src := e.mod.Source(w)
	inst := e.mod.Instance(src.Instance)

	var s wirestate.State
	switch inst.Kind {
	case netlist.InstTie:
		if w == netlist.TieLo {
			s = wirestate.DeterministicConst(boolval.Zero)
		} else {
			s = wirestate.DeterministicConst(boolval.One)
		}
	case netlist.InstInput, netlist.InstClock:
		panic(fmt.Sprintf("eval: %s: wire %s read before being set via SetInput", e.path, e.mod.WireLabel(w)))
	case netlist.InstGate:
		if inst.Gate == netlist.GateDFF {
			s = e.evalDFFOutput(inst)
		} else {
			s = e.evalGate(inst)
		}
	case netlist.InstModule:
		s = e.evalSubOutput(inst, src.Output)
	default:
		panic(fmt.Sprintf("eval: %s: unhandled instance kind %v", e.path, inst.Kind))
	}
	e.wires[w] = s
	return s
}

func (e *Evaluator) evalDFFOutput(inst *netlist.Instance) wirestate.State {
	if s, ok := e.dffPrevD[inst.ID]; ok {
		return s
	}
	return wirestate.DeterministicConst(boolval.Undefined)
}

func (e *Evaluator) evalGate(inst *netlist.Instance) wirestate.State {
	sink := instanceLeakSink{sim: e.sim, path: e.path + "." + inst.Name}
	switch inst.Gate {
	case netlist.GateBuf:
		a := e.pin(inst, "A")
		e.curOperands[inst.ID] = []wirestate.State{a}
		return wirestate.EvalBuf(a)
	case netlist.GateNot:
		a := e.pin(inst, "A")
		e.curOperands[inst.ID] = []wirestate.State{a}
		return wirestate.EvalNot(a, sink)
	case netlist.GateAnd, netlist.GateOr, netlist.GateXor:
		a := e.pin(inst, "A")
		b := e.pin(inst, "B")
		e.curOperands[inst.ID] = []wirestate.State{a, b}
		return wirestate.EvalBin(binOpFor(inst.Gate), a, b, sink)
	case netlist.GateMux:
		a := e.pin(inst, "A")
		b := e.pin(inst, "B")
		sel := e.pin(inst, "S")
		e.curOperands[inst.ID] = []wirestate.State{a, b, sel}
		return wirestate.EvalMux(a, b, sel, sink)
	default:
		panic(fmt.Sprintf("eval: gate kind %v has no combinational rule", inst.Gate))
	}
}

func (e *Evaluator) pin(inst *netlist.Instance, name string) wirestate.State {
	w, ok := inst.InputPin(name)
	if !ok {
		panic(fmt.Sprintf("eval: instance %q missing pin %q", inst.Name, name))
	}
	return e.EvalWire(w)
}

func binOpFor(g netlist.GateKind) boolval.BinOp {
	switch g {
	case netlist.GateAnd:
		return boolval.OpAnd
	case netlist.GateOr:
		return boolval.OpOr
	case netlist.GateXor:
		return boolval.OpXor
	default:
		panic(fmt.Sprintf("eval: gate kind %v is not a binary op", g))
	}
}

// evalSubOutput feeds a sub-instance's inputs from the parent's already
// (or now) evaluated wires, then asks the sub-evaluator for its output
// wire, so a sub-evaluator always sees its inputs before its outputs are
// demanded.
func (e *Evaluator) evalSubOutput(inst *netlist.Instance, outputPinName string) wirestate.State {
	sub := e.subs[inst.ID]
	for _, p := range inst.Inputs {
		parentState := e.EvalWire(p.Wire)
		if sub.kind == subPlain {
			if subWire, ok := sub.plain.mod.InputWire(p.Name); ok {
				sub.plain.SetInput(subWire, parentState)
			}
		} else {
			if subWire, ok := sub.pipe.inner.mod.InputWire(p.Name); ok {
				sub.pipe.SetInput(subWire, parentState)
			}
		}
	}
	if sub.kind == subPlain {
		outWire, ok := sub.plain.mod.OutputWire(outputPinName)
		if !ok {
			panic(fmt.Sprintf("eval: %s: sub-module has no output pin %q", e.path, outputPinName))
		}
		return sub.plain.EvalWire(outWire)
	}
	outWire, ok := sub.pipe.inner.mod.OutputWire(outputPinName)
	if !ok {
		panic(fmt.Sprintf("eval: %s: pipeline gadget has no output pin %q", e.path, outputPinName))
	}
	return sub.pipe.EvalOutput(outWire)
}
