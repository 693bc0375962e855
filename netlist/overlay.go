package netlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverlayFile reads a YAML annotation-overlay file: the whole file is
// read up front, then yaml.Unmarshal fills a typed struct.
func LoadOverlayFile(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overlay{}, fmt.Errorf("netlist: reading annotations overlay %s: %w", path, err)
	}
	var ov Overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return Overlay{}, fmt.Errorf("netlist: parsing annotations overlay %s: %w", path, err)
	}
	return ov, nil
}
