package netlist

import (
	"fmt"
	"sort"
)

// Build constructs an immutable Netlist from a RawNetlist: modules are
// ordered leaves-first, then each one is expanded, linked, cycle-checked
// and annotated.
func Build(raw *RawNetlist) (*Netlist, error) {
	order, err := orderModules(raw)
	if err != nil {
		return nil, err
	}

	nl := &Netlist{nameIndex: make(map[string]ModuleID)}
	for _, name := range order {
		m, err := buildModule(raw, name, nl)
		if err != nil {
			return nil, err
		}
		m.ID = ModuleID(len(nl.Modules))
		nl.nameIndex[name] = m.ID
		nl.Modules = append(nl.Modules, *m)
	}
	return nl, nil
}

// orderModules topologically sorts module names by cell-type reference: a
// module may only instantiate modules that appear earlier. A cycle among
// modules is a fatal structural error.
func orderModules(raw *RawNetlist) ([]string, error) {
	names := make([]string, 0, len(raw.Modules))
	for name := range raw.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	state := make(map[string]int) // 0=unvisited,1=visiting,2=done
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("module instantiation cycle involving module %q", name)
		}
		state[name] = 1
		mod, ok := raw.Modules[name]
		if !ok {
			return fmt.Errorf("reference to unknown module %q", name)
		}
		cellNames := make([]string, 0, len(mod.Cells))
		for cn := range mod.Cells {
			cellNames = append(cellNames, cn)
		}
		sort.Strings(cellNames)
		for _, cn := range cellNames {
			cell := mod.Cells[cn]
			if _, isPrim := primitiveGateKind(cell.Type); isPrim {
				continue
			}
			if _, ok := raw.Modules[cell.Type]; !ok {
				return fmt.Errorf("cell %q in module %q references unknown cell type %q", cn, name, cell.Type)
			}
			if err := visit(cell.Type); err != nil {
				return err
			}
		}
		state[name] = 2
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// buildModule expands, links, cycle-checks and annotates one module. nl
// must already contain every module this one instantiates (leaves-first
// order).
func buildModule(raw *RawNetlist, name string, nl *Netlist) (*Module, error) {
	rm := raw.Modules[name]

	m := &Module{Name: name, wireNames: make(map[WireID]string), inputPortBit: make(map[WireID]PortBit)}

	maxWire := 1
	noteWire := func(w int) {
		if w > maxWire {
			maxWire = w
		}
	}
	for _, nn := range rm.Netnames {
		for _, b := range nn.Bits {
			noteWire(b)
		}
	}
	for _, p := range rm.Ports {
		for _, b := range p.Bits {
			noteWire(b)
		}
	}
	for _, c := range rm.Cells {
		for _, bits := range c.Connections {
			for _, b := range bits {
				noteWire(b)
			}
		}
	}
	m.NumWires = maxWire + 1
	m.wireSource = make([]Source, m.NumWires)
	for i := range m.wireSource {
		m.wireSource[i] = Source{Instance: -1}
	}
	m.wireSinks = make([][]Sink, m.NumWires)
	m.fwdEdges = make([][]WireID, m.NumWires)
	m.revEdges = make([][]WireID, m.NumWires)

	for name, nn := range rm.Netnames {
		for i, b := range nn.Bits {
			if len(nn.Bits) == 1 {
				m.wireNames[WireID(b)] = name
			} else {
				m.wireNames[WireID(b)] = fmt.Sprintf("%s[%d]", name, i)
			}
		}
	}

	// --- ports: sort lexicographically, expand to per-bit points, reject inout ---
	portNames := make([]string, 0, len(rm.Ports))
	for pn := range rm.Ports {
		portNames = append(portNames, pn)
	}
	sort.Strings(portNames)

	for _, pn := range portNames {
		rp := rm.Ports[pn]
		switch rp.Direction {
		case "input":
			decl := PortDecl{Name: pn, Clock: rp.IsClock}
			for i, b := range rp.Bits {
				decl.Bits = append(decl.Bits, WireID(b))
				m.inputPortBit[WireID(b)] = PortBit{Port: pn, Bit: i}
			}
			m.Inputs = append(m.Inputs, decl)
			if rp.IsClock {
				if m.Clock != nil {
					return nil, fmt.Errorf("module %q declares more than one clock port", name)
				}
				d := decl
				m.Clock = &d
			}
		case "output":
			decl := PortDecl{Name: pn}
			for _, b := range rp.Bits {
				decl.Bits = append(decl.Bits, WireID(b))
			}
			m.Outputs = append(m.Outputs, decl)
		case "inout":
			return nil, fmt.Errorf("module %q port %q is inout, which is not supported", name, pn)
		default:
			return nil, fmt.Errorf("module %q port %q has unknown direction %q", name, pn, rp.Direction)
		}
	}

	if err := addSyntheticInstances(m); err != nil {
		return nil, err
	}
	if err := addCellInstances(m, rm, nl); err != nil {
		return nil, err
	}
	if err := validateDriversAndSinks(m); err != nil {
		return nil, err
	}

	order, err := topoSort(m)
	if err != nil {
		return nil, err
	}
	m.TopoOrder = order
	computeInputDeps(m)

	gi, err := parseGadgetInfo(m, rm)
	if err != nil {
		return nil, err
	}
	m.Gadget = gi
	if gi != nil && gi.Architecture == ArchPipeline {
		augmentPipelineInputDeps(m, gi)
	}

	return m, nil
}

// addSyntheticInstances adds the TIELO/TIEHI drivers, one clock
// pseudo-instance, and one module-input pseudo-instance per input port, so
// that every wire ends up with a unique source.
func addSyntheticInstances(m *Module) error {
	newInst := func(kind InstanceKind, name string) *Instance {
		inst := Instance{ID: InstanceID(len(m.Instances)), Name: name, Kind: kind}
		m.Instances = append(m.Instances, inst)
		return &m.Instances[len(m.Instances)-1]
	}

	tieLo := newInst(InstTie, "$tielo")
	tieLo.Outputs = []Pin{{Name: "Y", Wire: TieLo}}
	setSource(m, TieLo, Source{Instance: tieLo.ID, Output: "Y"})

	tieHi := newInst(InstTie, "$tiehi")
	tieHi.Outputs = []Pin{{Name: "Y", Wire: TieHi}}
	setSource(m, TieHi, Source{Instance: tieHi.ID, Output: "Y"})

	if m.Clock != nil {
		clk := newInst(InstClock, "$clock."+m.Clock.Name)
		clk.Outputs = []Pin{{Name: "Y", Wire: m.Clock.Bits[0]}}
		setSource(m, m.Clock.Bits[0], Source{Instance: clk.ID, Output: "Y"})
	}

	for _, in := range m.Inputs {
		if m.Clock != nil && in.Name == m.Clock.Name {
			continue
		}
		pin := newInst(InstInput, "$input."+in.Name)
		for i, w := range in.Bits {
			outName := fmt.Sprintf("Y%d", i)
			pin.Outputs = append(pin.Outputs, Pin{Name: outName, Wire: w})
			setSource(m, w, Source{Instance: pin.ID, Output: outName})
		}
	}
	return nil
}

func setSource(m *Module, w WireID, src Source) {
	m.wireSource[w] = src
}

// addCellInstances builds one Instance per RawCell, either a primitive gate
// or a sub-module instantiation, and records sinks for every input pin.
func addCellInstances(m *Module, rm RawModule, nl *Netlist) error {
	cellNames := make([]string, 0, len(rm.Cells))
	for cn := range rm.Cells {
		cellNames = append(cellNames, cn)
	}
	sort.Strings(cellNames)

	for _, cn := range cellNames {
		rc := rm.Cells[cn]

		if gk, ok := primitiveGateKind(rc.Type); ok {
			if err := addGateInstance(m, cn, gk, rc); err != nil {
				return err
			}
			continue
		}

		subID, ok := nl.nameIndex[rc.Type]
		if !ok {
			return fmt.Errorf("module %q cell %q references unbuilt module %q", m.Name, cn, rc.Type)
		}
		if err := addModuleInstance(m, cn, subID, rc, nl); err != nil {
			return err
		}
	}
	return nil
}

func addGateInstance(m *Module, cellName string, gk GateKind, rc RawCell) error {
	inNames, outNames := gatePinNames(gk)
	inst := Instance{ID: InstanceID(len(m.Instances)), Name: cellName, Kind: InstGate, Gate: gk}

	for _, pn := range inNames {
		bits, ok := rc.Connections[pn]
		if !ok || len(bits) != 1 {
			return fmt.Errorf("gate %q (%v) missing single-bit connection %q", cellName, gk, pn)
		}
		w := WireID(bits[0])
		inst.Inputs = append(inst.Inputs, Pin{Name: pn, Wire: w})
	}
	for _, pn := range outNames {
		bits, ok := rc.Connections[pn]
		if !ok || len(bits) != 1 {
			return fmt.Errorf("gate %q (%v) missing single-bit connection %q", cellName, gk, pn)
		}
		w := WireID(bits[0])
		inst.Outputs = append(inst.Outputs, Pin{Name: pn, Wire: w})
	}

	m.Instances = append(m.Instances, inst)
	id := inst.ID

	for _, out := range inst.Outputs {
		if m.wireSource[out.Wire].Instance >= 0 {
			return fmt.Errorf("wire %s driven by more than one source (conflict at gate %q)", wireLabel(m, out.Wire), cellName)
		}
		setSource(m, out.Wire, Source{Instance: id, Output: out.Name})
	}
	for _, in := range inst.Inputs {
		m.wireSinks[in.Wire] = append(m.wireSinks[in.Wire], Sink{Instance: id, Input: in.Name})
	}

	if gk.IsCombinational() {
		for _, in := range inst.Inputs {
			for _, out := range inst.Outputs {
				addEdge(m.fwdEdges, m.revEdges, in.Wire, out.Wire)
			}
		}
	}
	return nil
}

func addModuleInstance(m *Module, cellName string, subID ModuleID, rc RawCell, nl *Netlist) error {
	sub := nl.Module(subID)
	inst := Instance{ID: InstanceID(len(m.Instances)), Name: cellName, Kind: InstModule, SubModule: subID}

	wireOfPort := func(decl PortDecl) ([]WireID, error) {
		bits, ok := rc.Connections[decl.Name]
		if !ok || len(bits) != len(decl.Bits) {
			return nil, fmt.Errorf("cell %q missing or mismatched connection for port %q", cellName, decl.Name)
		}
		ws := make([]WireID, len(bits))
		for i, b := range bits {
			ws[i] = WireID(b)
		}
		return ws, nil
	}

	inputWires := make(map[string][]WireID)
	for _, decl := range sub.Inputs {
		ws, err := wireOfPort(decl)
		if err != nil {
			return err
		}
		inputWires[decl.Name] = ws
		for i, w := range ws {
			name := fmt.Sprintf("%s[%d]", decl.Name, i)
			inst.Inputs = append(inst.Inputs, Pin{Name: name, Wire: w})
		}
	}
	outputWires := make(map[string][]WireID)
	for _, decl := range sub.Outputs {
		ws, err := wireOfPort(decl)
		if err != nil {
			return err
		}
		outputWires[decl.Name] = ws
		for i, w := range ws {
			name := fmt.Sprintf("%s[%d]", decl.Name, i)
			inst.Outputs = append(inst.Outputs, Pin{Name: name, Wire: w})
		}
	}

	m.Instances = append(m.Instances, inst)
	id := inst.ID

	for _, out := range m.Instances[id].Outputs {
		if m.wireSource[out.Wire].Instance >= 0 {
			return fmt.Errorf("wire %s driven by more than one source (conflict at instance %q)", wireLabel(m, out.Wire), cellName)
		}
		setSource(m, out.Wire, Source{Instance: id, Output: out.Name})
	}
	for _, in := range m.Instances[id].Inputs {
		m.wireSinks[in.Wire] = append(m.wireSinks[in.Wire], Sink{Instance: id, Input: in.Name})
	}

	// Edges: for each output bit v, connect from every input bit u whose
	// port/bit the sub-module's own InputDeps says v combinationally
	// depends on.
	for _, decl := range sub.Outputs {
		for i, subWire := range decl.Bits {
			v := outputWires[decl.Name][i]
			for pb := range sub.InputDeps[subWire] {
				u := inputWires[pb.Port][pb.Bit]
				addEdge(m.fwdEdges, m.revEdges, u, v)
			}
		}
	}
	return nil
}

func validateDriversAndSinks(m *Module) error {
	for w := 2; w < m.NumWires; w++ {
		if m.wireSource[w].Instance < 0 {
			return fmt.Errorf("module %q wire %s has no driver", m.Name, wireLabel(m, WireID(w)))
		}
	}
	return nil
}
