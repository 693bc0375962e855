package vcdsrc

import (
	"fmt"
	"io"
	"os"

	"github.com/cassiersg/matchi-go/boolval"
)

// FileProvider is the production Provider: it reads a VCD trace file whole
// and builds a cycle-indexed Table up front, so sampling during simulation
// never touches the file again.
type FileProvider struct {
	path      string
	nextID    VarID
	paths     map[VarID]string
	widths    map[VarID]int
	clockPath string
}

// Open prepares a FileProvider reading the trace at path. Nothing is read
// until Load is called.
func Open(path string) *FileProvider {
	return &FileProvider{path: path, paths: map[VarID]string{}, widths: map[VarID]int{}}
}

func (p *FileProvider) Register(path string, width int) (VarID, error) {
	if width <= 0 {
		return 0, fmt.Errorf("vcdsrc: signal %q: width must be positive, got %d", path, width)
	}
	id := p.nextID
	p.nextID++
	p.paths[id] = path
	p.widths[id] = width
	return id, nil
}

func (p *FileProvider) SetClockPath(path string) error {
	p.clockPath = path
	return nil
}

func (p *FileProvider) Load() (*Table, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("vcdsrc: opening trace %s: %w", p.path, err)
	}
	defer f.Close()
	return p.sample(f)
}

// sample owns the cycle-boundary logic: the parser only yields a raw
// change stream, and sampling decides when a cycle boundary has occurred
// (a clock 0->1 transition) and what each registered signal's value was at
// that boundary.
func (p *FileProvider) sample(r io.Reader) (*Table, error) {
	h, changes, err := scanVCD(r)
	if err != nil {
		return nil, err
	}

	if p.clockPath == "" {
		return nil, fmt.Errorf("vcdsrc: no clock signal registered")
	}
	clockCode, ok := h.pathCode[p.clockPath]
	if !ok {
		return nil, fmt.Errorf("vcdsrc: clock signal %q not found in trace", p.clockPath)
	}

	codes := make(map[VarID]string, len(p.paths))
	for id, path := range p.paths {
		code, ok := h.pathCode[path]
		if !ok {
			return nil, fmt.Errorf("vcdsrc: signal %q not found in trace", path)
		}
		codes[id] = code
	}

	current := make(map[string][]boolval.V)
	initVec := func(code string, width int) []boolval.V {
		vec := make([]boolval.V, width)
		for i := range vec {
			vec[i] = boolval.Undefined
		}
		return vec
	}
	for id, code := range codes {
		current[code] = initVec(code, p.widths[id])
	}
	current[clockCode] = initVec(clockCode, 1)

	t := &Table{bits: make(map[VarID][][]boolval.V, len(p.paths)), widths: map[VarID]int{}}
	for id, w := range p.widths {
		t.widths[id] = w
	}

	snapshot := func() {
		for id, code := range codes {
			vec := current[code]
			row := make([]boolval.V, len(vec))
			copy(row, vec)
			t.bits[id] = append(t.bits[id], row)
		}
		t.numCycles++
	}

	// cycle 0: the trace's initial dumpvars values (every change at time 0),
	// before any clock edge
	i := 0
	for i < len(changes) && changes[i].time == 0 {
		if vec, ok := current[changes[i].code]; ok {
			applyChange(vec, changes[i].value)
		}
		i++
	}
	prevClock := bitAt(current[clockCode], 0)
	snapshot()

	for i < len(changes) {
		cur := changes[i].time
		j := i
		for j < len(changes) && changes[j].time == cur {
			c := changes[j]
			if vec, ok := current[c.code]; ok {
				applyChange(vec, c.value)
			}
			j++
		}
		i = j

		newClock := bitAt(current[clockCode], 0)
		if prevClock == boolval.Zero && newClock == boolval.One {
			snapshot()
		}
		prevClock = newClock
	}

	return t, nil
}

func bitAt(vec []boolval.V, i int) boolval.V {
	if i < 0 || i >= len(vec) {
		return boolval.Undefined
	}
	return vec[i]
}

// applyChange updates vec in place from a scalar ("0"/"1"/"x"/"z") or binary
// ("b...") value-change string. Vector values are right-aligned (the VCD
// grammar emits them MSB-first); a shorter-than-declared vector is
// zero-extended, not sign-extended, since these are control/data wires,
// not arithmetic operands.
func applyChange(vec []boolval.V, value string) {
	if len(value) == 1 {
		v, err := boolval.FromVCDChar(value[0])
		if err != nil {
			v = boolval.Undefined
		}
		if len(vec) > 0 {
			for i := range vec {
				vec[i] = boolval.Zero
			}
			vec[0] = v
		}
		return
	}
	n := len(value)
	for i := range vec {
		srcIdx := n - 1 - i // little-endian bit i <- character from the right
		if srcIdx < 0 {
			vec[i] = boolval.Zero
			continue
		}
		v, err := boolval.FromVCDChar(value[srcIdx])
		if err != nil {
			v = boolval.Undefined
		}
		vec[i] = v
	}
}
