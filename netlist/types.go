// Package netlist implements the hierarchical gate-level netlist model:
// modules built from primitive gates and sub-module instances, their
// per-module combinational dependency DAG, and the gadget annotations
// layered on top of modules and wires.
//
// The netlist is constructed once by Build and is immutable afterwards; its
// handles (WireID, InstanceID, ModuleID, PortBitID) are small integers
// indexing into per-module slices, never pointers, so the whole structure
// can be aliased freely by every evaluator without locks.
package netlist

// WireID indexes a wire within its owning Module. 0 and 1 are reserved for
// the TIE-LO and TIE-HI constants; ordinary wires start at 2.
type WireID int

const (
	TieLo WireID = 0
	TieHi WireID = 1
)

// InstanceID indexes an instance within its owning Module.
type InstanceID int

// ModuleID indexes a module within a Netlist, in construction (topological,
// leaves-first) order.
type ModuleID int

// PortBitID indexes a single-bit connection point within a module's flat
// connection-point list, one entry per bit of every port.
type PortBitID int

// InstanceKind tags the variant of an Instance; evaluators dispatch on it
// with exhaustive switches rather than interface dynamic dispatch.
type InstanceKind uint8

const (
	InstGate InstanceKind = iota
	InstModule
	InstInput // module-input pseudo-instance: synthesizes the wire's unique driver
	InstTie   // TIELO / TIEHI synthetic driver
	InstClock // clock pseudo-instance
)

func (k InstanceKind) String() string {
	switch k {
	case InstGate:
		return "gate"
	case InstModule:
		return "module"
	case InstInput:
		return "input"
	case InstTie:
		return "tie"
	case InstClock:
		return "clock"
	default:
		return "?"
	}
}

// GateKind tags which primitive gate an InstGate instance realizes.
type GateKind uint8

const (
	GateBuf GateKind = iota
	GateNot
	GateAnd
	GateOr
	GateXor
	GateMux
	GateDFF
)

func (g GateKind) String() string {
	switch g {
	case GateBuf:
		return "BUF"
	case GateNot:
		return "NOT"
	case GateAnd:
		return "AND"
	case GateOr:
		return "OR"
	case GateXor:
		return "XOR"
	case GateMux:
		return "MUX"
	case GateDFF:
		return "DFF"
	default:
		return "?"
	}
}

// IsCombinational reports whether the gate's output combinationally depends
// on its inputs this cycle. Only DFF is not: its data-input edge is
// excluded from the combinational DAG, which is what breaks sequential
// feedback loops and keeps the DAG acyclic.
func (g GateKind) IsCombinational() bool { return g != GateDFF }

// Pin is a named connection on an instance, bound to one wire.
type Pin struct {
	Name string
	Wire WireID
}

// Instance is one cell of a module: a primitive gate, a sub-module, a
// port-input pseudo-instance, a constant tie, or a clock pseudo-instance.
type Instance struct {
	ID   InstanceID
	Name string
	Kind InstanceKind

	Gate      GateKind // valid iff Kind == InstGate
	SubModule ModuleID // valid iff Kind == InstModule

	Inputs  []Pin
	Outputs []Pin
}

// InputPin returns the wire bound to the named input pin, or (-1, false).
func (in *Instance) InputPin(name string) (WireID, bool) {
	for _, p := range in.Inputs {
		if p.Name == name {
			return p.Wire, true
		}
	}
	return -1, false
}

// OutputPin returns the wire bound to the named output pin, or (-1, false).
func (in *Instance) OutputPin(name string) (WireID, bool) {
	for _, p := range in.Outputs {
		if p.Name == name {
			return p.Wire, true
		}
	}
	return -1, false
}

// Source is a wire's unique driver: the instance and the name of the output
// pin that produces it. Every wire has exactly one.
type Source struct {
	Instance InstanceID
	Output   string
}

// Sink is one reader of a wire: the instance and the name of the input pin
// that consumes it.
type Sink struct {
	Instance InstanceID
	Input    string
}

// PortDecl is a module-level port: a name and its ordered per-bit wires,
// little-endian (bit 0 first), matching VCD vector indexing.
type PortDecl struct {
	Name  string
	Bits  []WireID
	Clock bool
}

// Module is a named collection of wires, instances, and ports, together
// with its combinational dependency structure.
type Module struct {
	ID   ModuleID
	Name string

	NumWires int // wires are numbered 0..NumWires-1; 0/1 reserved

	Instances []Instance
	Inputs    []PortDecl
	Outputs   []PortDecl
	Clock     *PortDecl // optional

	// Gadget is nil for a plain (non-gadget) module.
	Gadget *GadgetInfo

	wireSource []Source          // indexed by WireID
	wireSinks  [][]Sink          // indexed by WireID
	fwdEdges   [][]WireID        // indexed by WireID: u -> v combinational edges
	revEdges   [][]WireID        // indexed by WireID: v -> u (reverse of fwdEdges)
	wireNames  map[WireID]string // symbolic names recovered from netnames, for diagnostics

	// inputPortBit maps a module-input wire to the (port, bit) it realizes,
	// used to seed InputDeps.
	inputPortBit map[WireID]PortBit

	// TopoOrder lists every wire in an order such that every wire appears
	// after all wires it combinationally depends on.
	TopoOrder []WireID

	// InputDeps[w] is the set of module-input connection points w
	// transitively (combinationally) depends on, keyed by the owning
	// input port's name and bit index.
	InputDeps []map[PortBit]struct{}
}

// PortBit identifies one bit of one named port.
type PortBit struct {
	Port string
	Bit  int
}

// Source returns wire w's unique driver.
func (m *Module) Source(w WireID) Source { return m.wireSource[w] }

// Sinks returns wire w's readers.
func (m *Module) Sinks(w WireID) []Sink { return m.wireSinks[w] }

// Instance returns the instance by id.
func (m *Module) Instance(id InstanceID) *Instance { return &m.Instances[id] }

// FanoutEdges returns the wires that w combinationally drives.
func (m *Module) FanoutEdges(w WireID) []WireID { return m.fwdEdges[w] }

// FaninEdges returns the wires that combinationally drive w.
func (m *Module) FaninEdges(w WireID) []WireID { return m.revEdges[w] }

// Netlist is the immutable, fully linked collection of modules produced by
// Build. Modules are stored leaves-first: a module may only instantiate
// modules that appear earlier in Modules.
type Netlist struct {
	Modules   []Module
	nameIndex map[string]ModuleID
}

// ModuleByName looks up a module by name.
func (n *Netlist) ModuleByName(name string) (*Module, bool) {
	id, ok := n.nameIndex[name]
	if !ok {
		return nil, false
	}
	return &n.Modules[id], true
}

// Module returns the module by id.
func (n *Netlist) Module(id ModuleID) *Module { return &n.Modules[id] }
