// Package simulator implements the top-level cycle-by-cycle driver: it
// registers the DUT's top-level input ports and every active-witness wire
// with a vcdsrc.Provider, then replays the resulting cycle-indexed value
// table through an eval.Evaluator, running the safety checks after every
// cycle and pruning the randomness trackers at each cycle boundary.
package simulator

import (
	"sort"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/checks"
	"github.com/cassiersg/matchi-go/eval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/shareset"
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/vcdsrc"
	"github.com/cassiersg/matchi-go/vfyerr"
	"github.com/cassiersg/matchi-go/vlog"
	"github.com/cassiersg/matchi-go/wirestate"
)

// TraceSink receives the evaluator's complete state after every simulated
// cycle, for an optional debug VCD writer.
type TraceSink interface {
	WriteCycle(cycle int, ev *eval.Evaluator, sim *simstate.State) error
	Close() error
}

type inputBinding struct {
	portName string
	bit      int
	wire     netlist.WireID
	varID    vcdsrc.VarID
	ann      netlist.PortAnnotation
	hasAnn   bool
}

type witnessBinding struct {
	wire  netlist.WireID
	varID vcdsrc.VarID
}

// Simulator drives one DUT module instance through a VCD-sourced cycle
// trace, one eval.Evaluator sweep and one safety-check pass per cycle.
type Simulator struct {
	nl   *netlist.Netlist
	dut  *netlist.Module
	path string // dotted signal-path prefix of the DUT inside the VCD dump

	provider vcdsrc.Provider
	table    *vcdsrc.Table

	inputs    []inputBinding
	witnesses map[string]witnessBinding

	checkCfg checks.Config
	sink     TraceSink

	sim *simstate.State
	ev  *eval.Evaluator

	warnings []vfyerr.Warning
}

// New constructs a Simulator for the module named gname, instantiated at
// dotted path dutPath inside the VCD scope rooted at the testbench tbName.
// It registers every signal the run will need with provider and loads the
// resulting cycle table.
func New(nl *netlist.Netlist, tbName, dutPath, gname string, provider vcdsrc.Provider, checkCfg checks.Config) (*Simulator, error) {
	dut, ok := nl.ModuleByName(gname)
	if !ok {
		return nil, vfyerr.Config(vfyerr.Frame{}, "top gadget module %q not found in netlist", gname)
	}
	path := dutPath
	if tbName != "" {
		path = tbName + "." + dutPath
	}
	if dut.Clock == nil {
		return nil, vfyerr.Config(vfyerr.Frame{ModulePath: path}, "module %q has no clock port", dut.Name)
	}
	if err := provider.SetClockPath(path + "." + dut.Clock.Name); err != nil {
		return nil, vfyerr.Wrap(vfyerr.KindConfig, vfyerr.Frame{ModulePath: path}, err, "registering clock path")
	}

	s := &Simulator{
		nl:        nl,
		dut:       dut,
		path:      path,
		provider:  provider,
		checkCfg:  checkCfg,
		witnesses: make(map[string]witnessBinding),
	}

	for _, decl := range dut.Inputs {
		if decl.Name == dut.Clock.Name {
			continue
		}
		varID, err := provider.Register(path+"."+decl.Name, len(decl.Bits))
		if err != nil {
			return nil, vfyerr.Wrap(vfyerr.KindConfig, vfyerr.Frame{ModulePath: path, Wire: decl.Name}, err, "registering input port")
		}
		for bit, w := range decl.Bits {
			ib := inputBinding{portName: decl.Name, bit: bit, wire: w, varID: varID}
			if dut.Gadget != nil {
				if ann, ok := dut.Gadget.Ports[w]; ok {
					ib.ann, ib.hasAnn = ann, true
				}
			}
			s.inputs = append(s.inputs, ib)
		}
	}

	if dut.Gadget != nil {
		names := map[string]struct{}{}
		for _, ann := range dut.Gadget.Ports {
			if ann.Latency.Kind == netlist.LatOnActive {
				names[ann.Latency.Witness] = struct{}{}
			}
		}
		if dut.Gadget.ActiveWitness != "" {
			names[dut.Gadget.ActiveWitness] = struct{}{}
		}
		sorted := make([]string, 0, len(names))
		for n := range names {
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)
		for _, name := range sorted {
			w, ok := dut.WireByName(name)
			if !ok {
				return nil, vfyerr.Config(vfyerr.Frame{ModulePath: path}, "unknown witness wire %q", name)
			}
			varID, err := provider.Register(path+"."+name, 1)
			if err != nil {
				return nil, vfyerr.Wrap(vfyerr.KindConfig, vfyerr.Frame{ModulePath: path, Wire: name}, err, "registering witness wire")
			}
			s.witnesses[name] = witnessBinding{wire: w, varID: varID}
		}
	}

	table, err := provider.Load()
	if err != nil {
		return nil, vfyerr.Wrap(vfyerr.KindConfig, vfyerr.Frame{ModulePath: path}, err, "loading VCD trace")
	}
	s.table = table

	s.sim = simstate.New()
	s.ev = eval.NewTop(nl, dut, path, s.sim)

	return s, nil
}

// SetSink attaches an optional debug-trace writer, invoked once per cycle
// after safety checks pass.
func (s *Simulator) SetSink(sink TraceSink) { s.sink = sink }

// Warnings returns every non-fatal diagnostic accumulated so far.
func (s *Simulator) Warnings() []vfyerr.Warning { return s.warnings }

// Evaluator exposes the underlying top-level evaluator, for callers that
// need to inspect state after Run returns (e.g. a report of the final
// cycle).
func (s *Simulator) Evaluator() *eval.Evaluator { return s.ev }

// State exposes the underlying global simulation state.
func (s *Simulator) State() *simstate.State { return s.sim }

// Run replays up to maxCycles cycles of the loaded trace (or the whole
// trace if maxCycles < 0): each cycle it advances time, stamps the inputs,
// sweeps the evaluator, runs the safety checks and prunes the randomness
// trackers. It returns the first safety-check or configuration failure
// encountered; nothing is retried.
func (s *Simulator) Run(maxCycles int) error {
	n := s.table.NumCycles()
	if maxCycles >= 0 && maxCycles < n {
		n = maxCycles
	}

	clockWire := s.dut.Clock.Bits[0]
	prevWitness := make(map[string]bool, len(s.witnesses))

	for cycle := 0; cycle < n; cycle++ {
		s.sim.AdvanceCycle()

		witnessNow := make(map[string]bool, len(s.witnesses))
		for name, wb := range s.witnesses {
			v := s.table.Bit(wb.varID, 0, cycle)
			b, _ := v.Bool()
			witnessNow[name] = b
		}
		if s.dut.Gadget != nil && s.dut.Gadget.ActiveWitness != "" {
			if witnessNow[s.dut.Gadget.ActiveWitness] && !prevWitness[s.dut.Gadget.ActiveWitness] {
				s.sim.MarkExecActiveRise()
			}
		}

		s.ev.InitNext()

		relCycle := s.sim.CurrentCycle - s.sim.ExecStart
		for _, ib := range s.inputs {
			v := s.table.Bit(ib.varID, ib.bit, cycle)
			st, err := s.buildInputState(ib, v, relCycle, witnessNow)
			if err != nil {
				return err
			}
			s.ev.SetInput(ib.wire, st)
		}
		s.ev.SetInput(clockWire, wirestate.DeterministicConst(boolval.One))
		for name, wb := range s.witnesses {
			s.ev.SetInput(wb.wire, wirestate.DeterministicConst(boolval.FromBit(witnessNow[name])))
		}

		s.ev.EvalAll()
		s.ev.EachPipeline(func(p *eval.PipelineEval) { p.EvalFinish() })

		if err := checks.Run(s.checkCfg, s.ev, s.sim); err != nil {
			vlog.Violation(err)
			return err
		}
		s.collectOutputWarnings(relCycle, witnessNow)

		if s.sink != nil {
			if err := s.sink.WriteCycle(cycle, s.ev, s.sim); err != nil {
				return err
			}
		}

		vlog.Trace("cycle simulated", "cycle", cycle)

		s.sim.Prune()
		prevWitness = witnessNow
	}

	if s.sink != nil {
		return s.sink.Close()
	}
	return nil
}

// buildInputState folds VCD value v into the symbolic state appropriate
// for input connection point ib, per its declared role and latency
// condition.
func (s *Simulator) buildInputState(ib inputBinding, v boolval.V, relCycle int, witnessNow map[string]bool) (wirestate.State, error) {
	if !ib.hasAnn {
		return s.deterministicInput(ib.portName, v)
	}
	switch ib.ann.Role.Kind {
	case netlist.RoleShare:
		if !s.latencyHolds(ib.ann.Latency, relCycle, witnessNow) {
			return s.deterministicInput(ib.portName, v)
		}
		sens := shareset.Singleton(ib.ann.Role.ShareID)
		return wirestate.State{Sensitivity: sens, GlitchSensitivity: sens, Value: v}, nil
	case netlist.RoleRandom:
		if !s.latencyHolds(ib.ann.Latency, relCycle, witnessNow) {
			return s.deterministicInput(ib.portName, v)
		}
		ref := wirestate.RandomRef{Port: wirestate.RandomPortID(ib.ann.Role.RndPortID), Birth: s.sim.CurrentCycle}
		return wirestate.State{Value: v, Random: &ref}, nil
	default: // Control, Clock
		return s.deterministicInput(ib.portName, v)
	}
}

func (s *Simulator) deterministicInput(portName string, v boolval.V) (wirestate.State, error) {
	if v == boolval.Undefined {
		return wirestate.State{}, vfyerr.Config(vfyerr.Frame{ModulePath: s.path, Wire: portName, Cycle: s.sim.CurrentCycle},
			"control input is undefined ('x') in the trace at a cycle requiring a deterministic value")
	}
	return wirestate.DeterministicConst(v), nil
}

func (s *Simulator) latencyHolds(lc netlist.LatencyCond, relCycle int, witnessNow map[string]bool) bool {
	witnessActive := false
	if lc.Kind == netlist.LatOnActive {
		witnessActive = witnessNow[lc.Witness]
	}
	return lc.Holds(relCycle, witnessActive)
}

// collectOutputWarnings surfaces the non-fatal case of an output port
// flagged valid while its symbolic state is insensitive: the latency
// condition holds for a Share output but its computed sensitivity is
// empty. This is not unsafe (the output-discipline check only rejects the
// opposite direction) but is worth surfacing to a user debugging a gadget.
func (s *Simulator) collectOutputWarnings(relCycle int, witnessNow map[string]bool) {
	gadget := s.dut.Gadget
	if gadget == nil {
		return
	}
	for _, decl := range s.dut.Outputs {
		if s.dut.Clock != nil && decl.Name == s.dut.Clock.Name {
			continue
		}
		for _, w := range decl.Bits {
			ann, ok := gadget.Ports[w]
			if !ok || ann.Role.Kind != netlist.RoleShare {
				continue
			}
			if !s.latencyHolds(ann.Latency, relCycle, witnessNow) {
				continue
			}
			st, ok := s.ev.CurrentState(w)
			if !ok {
				continue
			}
			if st.Sensitivity.IsEmpty() {
				warning := vfyerr.NewWarning(
					vfyerr.Frame{ModulePath: s.path, Wire: s.dut.WireLabel(w), Cycle: s.sim.CurrentCycle},
					"output %q is flagged valid for share %d but is not sensitive this cycle", decl.Name, ann.Role.ShareID)
				s.warnings = append(s.warnings, warning)
				vlog.Warn(warning)
			}
		}
	}
}
