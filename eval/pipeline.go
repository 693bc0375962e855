package eval

import (
	"fmt"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/shareset"
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/vfyerr"
	"github.com/cassiersg/matchi-go/wirestate"
)

// pipelineInput names one tracked connection point of a pipeline gadget:
// its wire, its annotated role, and its declared latency.
type pipelineInput struct {
	wire    netlist.WireID
	role    netlist.PortRole
	latency int
}

// pipelineStage is the combined status of every input considered at one
// output latency.
type pipelineStage struct {
	deterministic   bool
	sensitive       bool
	glitchSensitive bool
	nspgiDep        wirestate.NSPGIDeps
}

// PipelineEval is the gadget-boundary evaluator. Rather
// than recursing into a pipeline gadget's internal wires to decide
// sensitivity, it derives every output's symbolic state purely from the
// gadget's port annotations and a sliding, latency-indexed window of past
// input states. It still runs a plain Evaluator internally to compute the
// gadget's actual Boolean value, but against a private scratch
// simstate.State: the internal gates' leak/use/store bookkeeping never
// reaches the real run. Only the explicit boundary accounting in
// EvalFinish does, mirroring the gadget's externally-visible contract
// rather than its implementation.
type PipelineEval struct {
	nl      *netlist.Netlist
	mod     *netlist.Module
	gadget  *netlist.GadgetInfo
	path    string
	sim     *simstate.State
	nspgiID wirestate.NSPGIID

	inner *Evaluator

	inputs []pipelineInput
	// window[lat][i] is the state of inputs[i] lat cycles ago, for
	// lat in 0..=gadget.MaxLatency. window[0] is the current cycle.
	window [][]*wirestate.State

	// stage[lat] memoizes the combined input status computed for output
	// latency lat, reset every cycle.
	stage []*pipelineStage
}

// NewPipeline builds the gadget-boundary evaluator for a pipeline-gadget
// sub-module instance. idGen is shared with the enclosing hierarchy so
// every NSPGI (including ones nested inside this gadget's own sub-modules)
// gets a unique id.
func NewPipeline(nl *netlist.Netlist, mod *netlist.Module, path string, sim *simstate.State, idGen *IDGen) *PipelineEval {
	gadget := mod.Gadget
	if gadget == nil || gadget.Architecture != netlist.ArchPipeline {
		panic(fmt.Sprintf("eval: %s: NewPipeline called on non-pipeline module %q", path, mod.Name))
	}

	p := &PipelineEval{
		nl:      nl,
		mod:     mod,
		gadget:  gadget,
		path:    path,
		sim:     sim,
		nspgiID: idGen.Next(),
		inner:   New(nl, mod, path, simstate.New(), idGen),
	}

	for _, decl := range mod.Inputs {
		if mod.Clock != nil && decl.Name == mod.Clock.Name {
			continue
		}
		for _, w := range decl.Bits {
			ann, ok := gadget.Ports[w]
			if !ok {
				continue // unannotated plain control wiring
			}
			p.inputs = append(p.inputs, pipelineInput{wire: w, role: ann.Role, latency: gadget.WireLatency[w]})
		}
	}

	windowSize := gadget.MaxLatency + 1
	p.window = make([][]*wirestate.State, windowSize)
	for lat := range p.window {
		p.window[lat] = make([]*wirestate.State, len(p.inputs))
	}
	p.stage = make([]*pipelineStage, windowSize)

	return p
}

// Module returns the pipeline gadget's module.
func (p *PipelineEval) Module() *netlist.Module { return p.mod }

// Path returns the gadget instance's dotted path.
func (p *PipelineEval) Path() string { return p.path }

// Inner exposes the internal plain evaluator, so that a hierarchy walk can
// reach pipeline gadgets nested inside this one.
func (p *PipelineEval) Inner() *Evaluator { return p.inner }

// NSPGIID returns this pipeline-gadget instance's unique identity.
func (p *PipelineEval) NSPGIID() wirestate.NSPGIID { return p.nspgiID }

// InitNext advances the gadget's latency window by one cycle: this cycle's
// inputs become "one cycle ago" and the oldest slot past MaxLatency drops
// off.
func (p *PipelineEval) InitNext() {
	next := make([][]*wirestate.State, len(p.window))
	next[0] = make([]*wirestate.State, len(p.inputs))
	for lat := 1; lat < len(p.window); lat++ {
		next[lat] = p.window[lat-1]
	}
	p.window = next
	p.stage = make([]*pipelineStage, len(p.stage))
	p.inner.InitNext()
}

// SetInput stamps wire w with s both in this cycle's window slot (for the
// boundary accounting below) and in the internal evaluator (for the
// gadget's actual value).
func (p *PipelineEval) SetInput(w netlist.WireID, s wirestate.State) {
	if idx := p.indexOf(w); idx >= 0 {
		cp := s
		p.window[0][idx] = &cp
	}
	p.inner.SetInput(w, s)
}

func (p *PipelineEval) indexOf(w netlist.WireID) int {
	for i, in := range p.inputs {
		if in.wire == w {
			return i
		}
	}
	return -1
}

// EvalOutput computes output wire w's symbolic state from the gadget's
// annotations alone: the Boolean value still comes
// from the internal evaluator, but sensitivity, determinism and nspgi
// dependency are derived from the combined status of the inputs at this
// output's declared latency.
func (p *PipelineEval) EvalOutput(w netlist.WireID) wirestate.State {
	val := p.inner.EvalWire(w)

	outLat := p.gadget.WireLatency[w]
	status := p.stageAt(outLat)

	ann := p.gadget.Ports[w]
	shareID := ann.Role.ShareID

	sens := shareset.Empty()
	if status.sensitive {
		sens = shareset.Singleton(shareID)
	}
	gsens := shareset.Empty()
	if status.glitchSensitive {
		gsens = shareset.Singleton(shareID)
	}

	return wirestate.State{
		Sensitivity:       sens,
		GlitchSensitivity: gsens,
		Value:             val.Value,
		Random:            nil,
		Deterministic:     status.deterministic,
		NSPGI:             status.nspgiDep,
	}
}

// stageAt folds every tracked input whose own latency does not exceed
// outLat into a single combined status, memoized per cycle.
func (p *PipelineEval) stageAt(outLat int) *pipelineStage {
	if outLat >= 0 && outLat < len(p.stage) && p.stage[outLat] != nil {
		return p.stage[outLat]
	}

	st := &pipelineStage{deterministic: true}
	for i, in := range p.inputs {
		latDiff := outLat - in.latency
		if latDiff < 0 || latDiff >= len(p.window) {
			continue
		}
		s := p.stateAt(latDiff, i)
		sameCycle := latDiff == 0

		st.deterministic = st.deterministic && s.Deterministic
		wireSensitive := !s.Sensitivity.IsEmpty()
		wireGlitchSensitive := !s.GlitchSensitivity.IsEmpty()
		st.glitchSensitive = st.glitchSensitive || wireSensitive || (sameCycle && wireGlitchSensitive)
		st.sensitive = st.sensitive || wireSensitive
		st.nspgiDep = wirestate.MergeMax(st.nspgiDep, s.NSPGI)
	}

	// Self-tag the dependency on this gadget instance's own execution, so a
	// later bubble check can see "this wire carries forward a sensitive (or
	// still glitchy) execution of this NSPGI". A fully clean, deterministic
	// and glitch-insensitive stage carries no such dependency, keeping it
	// consistent with wirestate.State's invariant that a fully deterministic
	// wire has an empty nspgi_dep.
	if !st.deterministic || st.glitchSensitive {
		seed := p.sim.CurrentCycle + p.gadget.MaxInputLatency - outLat
		st.nspgiDep = wirestate.MergeMax(st.nspgiDep, wirestate.Single(p.nspgiID, seed))
	}

	if outLat >= 0 && outLat < len(p.stage) {
		p.stage[outLat] = st
	}
	return st
}

// stateAt returns the window state of tracked input i, lat cycles ago, or
// an undefined-control default if that slot hasn't been set yet (the
// gadget hasn't run long enough to have lat cycles of history).
func (p *PipelineEval) stateAt(lat, i int) wirestate.State {
	if ws := p.window[lat][i]; ws != nil {
		return *ws
	}
	return wirestate.DeterministicConst(boolval.Undefined)
}

// CheckInput validates input wire w's current state against its declared
// role, and -- for gadgets whose property composition requires it -- the
// pipeline-bubble precondition.
func (p *PipelineEval) CheckInput(w netlist.WireID) error {
	idx := p.indexOf(w)
	if idx < 0 {
		return nil
	}
	in := p.inputs[idx]
	ws := p.window[0][idx]
	if ws == nil {
		return nil
	}
	frame := vfyerr.Frame{ModulePath: p.path, Wire: p.mod.WireLabel(w), Cycle: p.sim.CurrentCycle}

	switch in.role.Kind {
	case netlist.RoleShare:
		want := shareset.Singleton(in.role.ShareID)
		if !ws.Sensitivity.Subset(want) {
			return vfyerr.Security(frame, "input share index %d is sensitive for shares %s", in.role.ShareID, ws.Sensitivity)
		}
		if !ws.GlitchSensitivity.Subset(want) {
			return vfyerr.Security(frame, "input share index %d is glitch-sensitive for shares %s", in.role.ShareID, ws.GlitchSensitivity)
		}
	case netlist.RoleRandom:
		if !ws.GlitchSensitivity.IsEmpty() {
			return vfyerr.Security(frame, "randomness input is (glitch-)sensitive for shares %s", ws.GlitchSensitivity)
		}
	case netlist.RoleControl:
		if !ws.Deterministic {
			return vfyerr.Security(frame, "control input is not a deterministic value (it is share- or random-dependent)")
		}
		if !ws.GlitchSensitivity.IsEmpty() {
			return vfyerr.Security(frame, "control input depends on share glitches")
		}
	}

	if p.gadget.Property.RequiresBubble() {
		if dep, ok := ws.NSPGI.Get(p.nspgiID); ok {
			if p.sim.ExecutedSinceBubble(p.nspgiID, dep) {
				return vfyerr.Security(frame, "input %s depends on a previous execution of this gadget, there was no pipeline bubble since then", p.mod.WireLabel(w))
			}
		}
	}
	return nil
}

// CheckFinish validates that, if this cycle's combined execution touched
// any sensitive input, every randomness input carried a fresh random
// value.
func (p *PipelineEval) CheckFinish() error {
	status := p.stageAt(p.gadget.MaxInputLatency)
	if !status.sensitive {
		return nil
	}
	for i, in := range p.inputs {
		if in.role.Kind != netlist.RoleRandom {
			continue
		}
		lat := p.gadget.MaxInputLatency - in.latency
		if lat < 0 || lat >= len(p.window) {
			continue
		}
		ws := p.window[lat][i]
		if ws == nil || ws.Random == nil {
			frame := vfyerr.Frame{ModulePath: p.path, Wire: p.mod.WireLabel(in.wire), Cycle: p.sim.CurrentCycle}
			return vfyerr.Security(frame, "gadget execution has at least one sensitive input but randomness wire is not a fresh random")
		}
	}
	return nil
}

// EvalFinish performs the gadget-boundary randomness bookkeeping at the
// end of a cycle: it declares a bubble when this cycle's combined
// input status is glitch-insensitive, and charges every randomness input's
// fresh-use/leak/store events against the real simulation state (the
// internal evaluator's own gate-level leaks never escape its private
// scratch state, since they were evaluated against a throwaway
// simstate.State).
func (p *PipelineEval) EvalFinish() {
	status := p.stageAt(p.gadget.MaxInputLatency)
	if !status.glitchSensitive {
		p.sim.DeclareBubble(p.nspgiID)
	}

	for i, in := range p.inputs {
		if in.role.Kind != netlist.RoleRandom {
			continue
		}
		lat := p.gadget.MaxInputLatency - in.latency
		if lat < 0 || lat >= len(p.window) {
			continue
		}
		ws := p.window[lat][i]
		if ws == nil {
			continue
		}
		if status.sensitive && ws.Random != nil {
			p.sim.UseRandom(*ws.Random, p.path, lat)
		}
		if ws.Random != nil {
			p.sim.LeakRandom(*ws.Random, p.path)
		}
		// The random is still alive as it flows through the pipeline: keep
		// it protected from pruning at every window position up to the one
		// just charged above.
		for storeLat := 0; storeLat < lat; storeLat++ {
			if sw := p.window[storeLat][i]; sw != nil && sw.Random != nil {
				p.sim.StoreRandom(*sw.Random)
			}
		}
	}
}
