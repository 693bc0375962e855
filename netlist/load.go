package netlist

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a netlist JSON file and builds the Netlist it describes.
// The on-disk JSON schema is the simplified Yosys-JSON-equivalent described
// by RawNetlist.
func LoadFile(path string) (*Netlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netlist: reading %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes builds a Netlist from raw netlist JSON bytes.
func LoadBytes(data []byte) (*Netlist, error) {
	var raw RawNetlist
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("netlist: parsing JSON: %w", err)
	}
	return Build(&raw)
}

// ApplyOverlay merges a YAML annotation overlay (module/wire name -> matchi_*
// attribute overrides) into raw, before Build is called. This backs the CLI's
// --annotations-overlay flag: a way to patch in annotations Yosys dropped on
// opaque black-boxed cells, without hand-editing the JSON.
func ApplyOverlay(raw *RawNetlist, overlay Overlay) {
	for moduleName, modOverlay := range overlay.Modules {
		rm, ok := raw.Modules[moduleName]
		if !ok {
			continue
		}
		if rm.Attributes == nil {
			rm.Attributes = make(map[string]json.RawMessage)
		}
		mergeAttrs(rm.Attributes, modOverlay.Attributes)

		for wireName, wireAttrs := range modOverlay.Wires {
			nn, ok := rm.Netnames[wireName]
			if !ok {
				nn = RawNetname{}
			}
			if nn.Attributes == nil {
				nn.Attributes = make(map[string]json.RawMessage)
			}
			mergeAttrs(nn.Attributes, wireAttrs)
			rm.Netnames[wireName] = nn
		}

		raw.Modules[moduleName] = rm
	}
}

func mergeAttrs(dst map[string]json.RawMessage, src map[string]string) {
	for k, v := range src {
		b, _ := json.Marshal(v)
		dst[k] = b
	}
}

// Overlay is the YAML shape accepted by --annotations-overlay.
type Overlay struct {
	Modules map[string]ModuleOverlay `yaml:"modules"`
}

// ModuleOverlay carries module-level attribute overrides plus per-wire ones.
type ModuleOverlay struct {
	Attributes map[string]string            `yaml:"attributes"`
	Wires      map[string]map[string]string `yaml:"wires"`
}
