package netlist

import "fmt"

// Property is a module's annotated masking-gadget property (matchi_prop).
type Property uint8

const (
	PropPINI Property = iota
	PropAffine
	PropSNI
	PropNI
	PropMux
)

func ParseProperty(s string) (Property, error) {
	switch s {
	case "PINI":
		return PropPINI, nil
	case "affine":
		return PropAffine, nil
	case "SNI":
		return PropSNI, nil
	case "NI":
		return PropNI, nil
	case "_mux":
		return PropMux, nil
	default:
		return 0, fmt.Errorf("netlist: unknown matchi_prop %q", s)
	}
}

// RequiresBubble reports whether this property's composition argument
// depends on pipeline bubbles between sensitive executions of the same
// gadget instance.
func (p Property) RequiresBubble() bool {
	return p == PropPINI || p == PropSNI
}

func (p Property) String() string {
	switch p {
	case PropPINI:
		return "PINI"
	case PropAffine:
		return "affine"
	case PropSNI:
		return "SNI"
	case PropNI:
		return "NI"
	case PropMux:
		return "_mux"
	default:
		return "?"
	}
}

// Strategy is matchi_strat: how a gadget's property is to be established.
type Strategy uint8

const (
	StratAssumed Strategy = iota
	StratCompositeTop
	StratIsolate
	StratDeepVerif
)

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "assumed":
		return StratAssumed, nil
	case "composite_top":
		return StratCompositeTop, nil
	case "isolate":
		return StratIsolate, nil
	case "deep_verif":
		// Rejected explicitly rather than silently treated as "assumed",
		// which would change what gets checked.
		return 0, fmt.Errorf("netlist: matchi_strat \"deep_verif\" is not implemented")
	default:
		return 0, fmt.Errorf("netlist: unknown matchi_strat %q", s)
	}
}

func (s Strategy) String() string {
	switch s {
	case StratAssumed:
		return "assumed"
	case StratCompositeTop:
		return "composite_top"
	case StratIsolate:
		return "isolate"
	case StratDeepVerif:
		return "deep_verif"
	default:
		return "?"
	}
}

// Architecture is matchi_arch: the gadget's internal structure.
type Architecture uint8

const (
	ArchPipeline Architecture = iota
	ArchLoopy
)

func ParseArchitecture(s string) (Architecture, error) {
	switch s {
	case "pipeline":
		return ArchPipeline, nil
	case "loopy":
		return ArchLoopy, nil
	default:
		return 0, fmt.Errorf("netlist: unknown matchi_arch %q", s)
	}
}

func (a Architecture) String() string {
	if a == ArchPipeline {
		return "pipeline"
	}
	return "loopy"
}

// RoleKind tags a port's security role.
type RoleKind uint8

const (
	RoleShare RoleKind = iota
	RoleRandom
	RoleControl
	RoleClock
)

func (k RoleKind) String() string {
	switch k {
	case RoleShare:
		return "share"
	case RoleRandom:
		return "random"
	case RoleControl:
		return "control"
	case RoleClock:
		return "clock"
	default:
		return "?"
	}
}

// PortRole is a per-port annotation: Share(share-id), Random(rnd-port-id),
// Control, or Clock.
type PortRole struct {
	Kind      RoleKind
	ShareID   int // valid iff Kind == RoleShare
	RndPortID int // valid iff Kind == RoleRandom
}

// RequiresLatency reports whether this role must carry a latency condition:
// every Share or Random port needs one, Control and Clock do not.
func (r PortRole) RequiresLatency() bool {
	return r.Kind == RoleShare || r.Kind == RoleRandom
}

// LatKind tags a port's latency-condition variant.
type LatKind uint8

const (
	LatAlways LatKind = iota
	LatNever
	LatList
	LatOnActive
)

// LatencyCond is a predicate over the simulation cycle telling, for a given
// gadget port, the cycles at which a valid share or random is delivered.
type LatencyCond struct {
	Kind    LatKind
	Lats    []int  // valid iff Kind == LatList: non-negative cycle offsets from exec-start
	Witness string // valid iff Kind == LatOnActive: name of the witness wire
}

// Holds evaluates the latency condition at the given relative cycle
// (current cycle minus the gadget's execution-start cycle) and witness
// value.
func (lc LatencyCond) Holds(relCycle int, witnessActive bool) bool {
	switch lc.Kind {
	case LatAlways:
		return true
	case LatNever:
		return false
	case LatList:
		for _, l := range lc.Lats {
			if l == relCycle {
				return true
			}
		}
		return false
	case LatOnActive:
		return witnessActive
	default:
		return false
	}
}

// PortAnnotation is the full annotation of one gadget port bit, keyed by
// the wire that realizes it (a multi-bit sharings_dense/sharings_strided
// port expands to one PortAnnotation per constituent wire).
type PortAnnotation struct {
	PortName string // the declared port name this wire belongs to
	Bit      int    // bit index within that port
	Role     PortRole
	Latency  LatencyCond // zero value (LatAlways) if Role doesn't require one
}

// GadgetInfo enriches a Module with the annotations that make it a gadget.
type GadgetInfo struct {
	Property      Property
	Strategy      Strategy
	Architecture  Architecture
	Order         int    // matchi_order: number of shares (d+1)
	ActiveWitness string // matchi_active on the module: name of the "currently executing" witness wire, "" if none

	Ports map[WireID]PortAnnotation

	// WireLatency/MaxLatency/MaxInputLatency are populated only for
	// pipeline gadgets (Architecture == ArchPipeline): every wire carries
	// a single integer latency, and MaxInputLatency is the largest
	// latency among inputs.
	WireLatency     map[WireID]int
	MaxLatency      int
	MaxInputLatency int
}

// PortRoleFor returns the role of the port wire w, or the zero role and
// false if w carries no annotation (plain control wiring).
func (g *GadgetInfo) PortRoleFor(w WireID) (PortRole, bool) {
	a, ok := g.Ports[w]
	if !ok {
		return PortRole{}, false
	}
	return a.Role, true
}
