// Package vcdsrc supplies the simulator with a cycle-indexed table of
// sampled wire values read from a VCD simulation trace. The tokenizer
// (parser.go) is kept strictly separate from the sampling logic (table.go)
// that decides where cycle boundaries fall and what each registered signal
// held there.
package vcdsrc

import "github.com/cassiersg/matchi-go/boolval"

// VarID is a handle to one registered VCD signal, valid for the lifetime of
// the Provider that issued it.
type VarID int

// Provider is what package simulator and package cmd depend on;
// FileProvider is the production implementation, and tests substitute a
// golang/mock-generated mock.
//
//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_provider.go -source=provider.go Provider
type Provider interface {
	// Register declares that the dot-separated hierarchical signal at path
	// must be sampled, with its declared bit width (1 for scalars). Every
	// Register call must happen before Load.
	Register(path string, width int) (VarID, error)
	// SetClockPath declares the single-bit signal whose 0->1 transitions
	// delimit cycles.
	SetClockPath(path string) error
	// Load parses the underlying trace and materialises the cycle-indexed
	// Table every registered VarID can be sampled from.
	Load() (*Table, error)
}

// Table is the materialised result of a Load call: one row per cycle, one
// bit vector per registered VarID.
type Table struct {
	numCycles int
	bits      map[VarID][][]boolval.V // bits[id][cycle] is a little-endian bit vector
	widths    map[VarID]int
}

// NewTable builds a Table directly from already-sampled per-cycle bit
// vectors, for a Provider whose Load does not parse a trace file itself (a
// golang/mock-generated mock standing in for one in a test, or any other
// caller that already holds the sampled data).
func NewTable(numCycles int, bits map[VarID][][]boolval.V, widths map[VarID]int) *Table {
	return &Table{numCycles: numCycles, bits: bits, widths: widths}
}

// NumCycles reports how many cycles were sampled.
func (t *Table) NumCycles() int { return t.numCycles }

// Bit returns the value of bit bitIndex (0 = LSB) of id at cycle.
func (t *Table) Bit(id VarID, bitIndex, cycle int) boolval.V {
	rows := t.bits[id]
	if cycle < 0 || cycle >= len(rows) {
		return boolval.Undefined
	}
	vec := rows[cycle]
	if bitIndex < 0 || bitIndex >= len(vec) {
		return boolval.Undefined
	}
	return vec[bitIndex]
}

// Width reports the declared width a VarID was registered with.
func (t *Table) Width(id VarID) int { return t.widths[id] }
