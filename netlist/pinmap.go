package netlist

import "fmt"

// PinName is the per-bit connection-point naming convention used on
// sub-module instances: "<port>[<bit>]" (see addModuleInstance). Package
// eval uses it to translate between a parent instance's connection points
// and the sub-module's own wires.
func PinName(port string, bit int) string { return fmt.Sprintf("%s[%d]", port, bit) }

// InputWire resolves a "<port>[<bit>]" pin name against this module's own
// input ports.
func (m *Module) InputWire(pinName string) (WireID, bool) {
	return findPinWire(m.Inputs, pinName)
}

// OutputWire resolves a "<port>[<bit>]" pin name against this module's own
// output ports.
func (m *Module) OutputWire(pinName string) (WireID, bool) {
	return findPinWire(m.Outputs, pinName)
}

// WireByName resolves a netlist wire by its symbolic netname, for witness
// wires referenced by name in matchi_active annotations.
func (m *Module) WireByName(name string) (WireID, bool) {
	for w, n := range m.wireNames {
		if n == name {
			return w, true
		}
	}
	return 0, false
}

func findPinWire(decls []PortDecl, pinName string) (WireID, bool) {
	for _, d := range decls {
		for i, w := range d.Bits {
			if PinName(d.Name, i) == pinName {
				return w, true
			}
		}
	}
	return -1, false
}
