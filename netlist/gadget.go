package netlist

import "fmt"

// parseGadgetInfo extracts a GadgetInfo from a module's and its wires'
// matchi_* annotations. A module with no matchi_prop attribute is a plain
// module: parseGadgetInfo returns (nil, nil).
func parseGadgetInfo(m *Module, rm RawModule) (*GadgetInfo, error) {
	propStr, ok := attrString(rm.Attributes, "matchi_prop")
	if !ok {
		return nil, nil
	}
	prop, err := ParseProperty(propStr)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", m.Name, err)
	}

	archStr, ok := attrString(rm.Attributes, "matchi_arch")
	if !ok {
		return nil, fmt.Errorf("module %q: gadget missing required matchi_arch annotation", m.Name)
	}
	arch, err := ParseArchitecture(archStr)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", m.Name, err)
	}

	stratStr, ok := attrString(rm.Attributes, "matchi_strat")
	if !ok {
		return nil, fmt.Errorf("module %q: gadget missing required matchi_strat annotation", m.Name)
	}
	strat, err := ParseStrategy(stratStr)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", m.Name, err)
	}

	order, _ := attrInt(rm.Attributes, "matchi_order")
	activeWitness, _ := attrString(rm.Attributes, "matchi_active")

	gi := &GadgetInfo{
		Property:      prop,
		Strategy:      strat,
		Architecture:  arch,
		Order:         order,
		ActiveWitness: activeWitness,
		Ports:         make(map[WireID]PortAnnotation),
	}

	allPorts := append(append([]PortDecl{}, m.Inputs...), m.Outputs...)
	for _, decl := range allPorts {
		if m.Clock != nil && decl.Name == m.Clock.Name {
			continue
		}
		if err := annotatePort(m, rm, gi, decl); err != nil {
			return nil, err
		}
	}

	if arch == ArchPipeline {
		if err := parsePipelineLatencies(m, rm, gi); err != nil {
			return nil, err
		}
	}

	return gi, nil
}

// annotatePort resolves every constituent wire of one port's matchi_type /
// matchi_share / matchi_active (latency) annotations, expanding
// sharings_dense and sharings_strided into one Share(i) role per bit so
// every downstream consumer only ever sees scalar share ports.
func annotatePort(m *Module, rm RawModule, gi *GadgetInfo, decl PortDecl) error {
	for bit, w := range decl.Bits {
		nn, ok := findNetname(rm, w)
		if !ok {
			continue // unannotated wire: plain control wiring inside a gadget
		}
		typeStr, ok := attrString(nn.Attributes, "matchi_type")
		if !ok {
			continue
		}

		var role PortRole
		switch typeStr {
		case "share":
			shareID, ok := attrInt(nn.Attributes, "matchi_share")
			if !ok {
				return fmt.Errorf("module %q port %q bit %d: matchi_type=share requires matchi_share", m.Name, decl.Name, bit)
			}
			role = PortRole{Kind: RoleShare, ShareID: shareID}
		case "sharings_dense":
			role = PortRole{Kind: RoleShare, ShareID: bit}
		case "sharings_strided":
			order := gi.Order
			if order <= 0 {
				order = len(decl.Bits)
			}
			role = PortRole{Kind: RoleShare, ShareID: bit % order}
		case "random":
			rndID, ok := attrInt(nn.Attributes, "matchi_share")
			if !ok {
				rndID = bit
			}
			role = PortRole{Kind: RoleRandom, RndPortID: rndID}
		case "control":
			role = PortRole{Kind: RoleControl}
		case "clock":
			role = PortRole{Kind: RoleClock}
		default:
			return fmt.Errorf("module %q port %q bit %d: unknown matchi_type %q", m.Name, decl.Name, bit, typeStr)
		}

		var lat LatencyCond
		if role.RequiresLatency() {
			activeStr, ok := attrString(nn.Attributes, "matchi_active")
			if !ok {
				return fmt.Errorf("module %q port %q bit %d: role %v requires a matchi_active latency annotation", m.Name, decl.Name, bit, role.Kind)
			}
			parsed, err := parseLatency(activeStr)
			if err != nil {
				return fmt.Errorf("module %q port %q bit %d: %w", m.Name, decl.Name, bit, err)
			}
			lat = parsed
		}

		gi.Ports[w] = PortAnnotation{PortName: decl.Name, Bit: bit, Role: role, Latency: lat}
	}
	return nil
}

// parseLatency parses a matchi_active wire annotation: "1" (Always),
// "0" (Never), or a witness wire name (OnActive). A comma-separated list
// of integers denotes the explicit-cycle-list form (Lats).
func parseLatency(s string) (LatencyCond, error) {
	switch s {
	case "1":
		return LatencyCond{Kind: LatAlways}, nil
	case "0":
		return LatencyCond{Kind: LatNever}, nil
	}
	if lats, ok := parseIntList(s); ok {
		return LatencyCond{Kind: LatList, Lats: lats}, nil
	}
	return LatencyCond{Kind: LatOnActive, Witness: s}, nil
}

func parseIntList(s string) ([]int, bool) {
	if s == "" {
		return nil, false
	}
	var out []int
	cur := 0
	started := false
	any := false
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			cur = cur*10 + int(s[i]-'0')
			started = true
			any = true
			continue
		}
		if i < len(s) && s[i] != ',' {
			return nil, false
		}
		if started {
			out = append(out, cur)
		}
		cur = 0
		started = false
	}
	return out, any
}

func findNetname(rm RawModule, w WireID) (RawNetname, bool) {
	for _, nn := range rm.Netnames {
		for _, b := range nn.Bits {
			if WireID(b) == w {
				return nn, true
			}
		}
	}
	return RawNetname{}, false
}

// parsePipelineLatencies fills WireLatency/MaxLatency/MaxInputLatency for a
// pipeline gadget from each wire's matchi_lat netname attribute. A pipeline
// wire without a latency annotation gets no WireLatency entry: a lookup of
// it reads latency 0, and augmentPipelineInputDeps leaves it out.
func parsePipelineLatencies(m *Module, rm RawModule, gi *GadgetInfo) error {
	gi.WireLatency = make(map[WireID]int)
	for _, nn := range rm.Netnames {
		lat, ok := attrInt(nn.Attributes, "matchi_lat")
		if !ok {
			continue
		}
		for _, b := range nn.Bits {
			gi.WireLatency[WireID(b)] = lat
			if lat > gi.MaxLatency {
				gi.MaxLatency = lat
			}
		}
	}
	for _, in := range m.Inputs {
		for _, w := range in.Bits {
			if lat, ok := gi.WireLatency[w]; ok && lat > gi.MaxInputLatency {
				gi.MaxInputLatency = lat
			}
		}
	}
	return nil
}

// augmentPipelineInputDeps applies the worst-case annotation-consistent
// over-approximation for pipeline gadgets: every output wire is made to
// combinationally depend on every module-input wire sharing its latency.
func augmentPipelineInputDeps(m *Module, gi *GadgetInfo) {
	byLatency := make(map[int][]PortBit)
	for _, in := range m.Inputs {
		for i, w := range in.Bits {
			lat, ok := gi.WireLatency[w]
			if !ok {
				continue
			}
			byLatency[lat] = append(byLatency[lat], PortBit{Port: in.Name, Bit: i})
		}
	}
	for _, out := range m.Outputs {
		for _, w := range out.Bits {
			lat, ok := gi.WireLatency[w]
			if !ok {
				continue
			}
			if m.InputDeps[w] == nil {
				m.InputDeps[w] = make(map[PortBit]struct{})
			}
			for _, pb := range byLatency[lat] {
				m.InputDeps[w][pb] = struct{}{}
			}
		}
	}
}
