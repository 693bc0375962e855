package netlist

import "fmt"

// primitiveGateKind maps a Yosys-style cell type name to our GateKind, or
// reports it is not a primitive (it must then refer to a sub-module).
func primitiveGateKind(cellType string) (GateKind, bool) {
	switch cellType {
	case "BUF":
		return GateBuf, true
	case "NOT":
		return GateNot, true
	case "AND":
		return GateAnd, true
	case "OR":
		return GateOr, true
	case "XOR":
		return GateXor, true
	case "MUX":
		return GateMux, true
	case "DFF":
		return GateDFF, true
	default:
		return 0, false
	}
}

// gatePinNames returns a gate kind's (inputs, outputs) pin name lists, in
// the fixed order the evaluator's per-primitive rules expect.
func gatePinNames(g GateKind) (inputs, outputs []string) {
	switch g {
	case GateBuf, GateNot:
		return []string{"A"}, []string{"Y"}
	case GateAnd, GateOr, GateXor:
		return []string{"A", "B"}, []string{"Y"}
	case GateMux:
		return []string{"A", "B", "S"}, []string{"Y"}
	case GateDFF:
		return []string{"D", "CLK"}, []string{"Q"}
	default:
		panic(fmt.Sprintf("netlist: unknown gate kind %v", g))
	}
}

// IsBinOp reports whether the gate is one of the binary Boolean gates
// AND, OR or XOR.
func (g GateKind) IsBinOp() bool { return g == GateAnd || g == GateOr || g == GateXor }
