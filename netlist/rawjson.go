package netlist

import (
	"encoding/json"
	"strconv"
)

// RawNetlist is the simplified Yosys-JSON-equivalent wire format this
// verifier accepts: a map of module name to its ports, cells, and
// per-wire netnames, each possibly annotated with matchi_* attributes.
// It carries only the data the construction pipeline needs, not the full
// schema a real Yosys `write_json` pass emits.
type RawNetlist struct {
	Modules map[string]RawModule `json:"modules"`
}

// RawModule mirrors one module's worth of Yosys JSON.
type RawModule struct {
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
	Ports      map[string]RawPort         `json:"ports"`
	Cells      map[string]RawCell         `json:"cells"`
	Netnames   map[string]RawNetname      `json:"netnames"`
}

// RawPort is one module-level port.
type RawPort struct {
	Direction string `json:"direction"` // "input" | "output" | "inout"
	Bits      []int  `json:"bits"`      // one numeric wire id per bit, little-endian
	IsClock   bool   `json:"is_clock,omitempty"`
}

// RawCell is one instance: either a primitive gate (Type is one of
// BUF/NOT/AND/OR/XOR/MUX/DFF) or a reference to another module in the same
// RawNetlist.
type RawCell struct {
	Type        string                     `json:"type"`
	Connections map[string][]int           `json:"connections"`
	Attributes  map[string]json.RawMessage `json:"attributes,omitempty"`
}

// RawNetname associates a symbolic wire name with its numeric bits and any
// per-wire matchi_* attributes.
type RawNetname struct {
	Bits       []int                      `json:"bits"`
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
}

func attrString(attrs map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := attrs[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func attrInt(attrs map[string]json.RawMessage, key string) (int, bool) {
	s, ok := attrString(attrs, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
