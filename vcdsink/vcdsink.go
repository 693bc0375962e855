// Package vcdsink writes the debug VCD trace of the symbolic state: three
// parallel top-scope hierarchies mirroring the DUT ("value", "random",
// "deterministic"), one hierarchy per share id ("share_i"), plus a
// top-level "clock" and a 32-bit "cycle_count". It is the write-side
// mirror of package vcdsrc, emitting the same VCD grammar
// vcdsrc/parser.go reads.
package vcdsink

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/cassiersg/matchi-go/eval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/simstate"
)

// Writer implements simulator.TraceSink, emitting one debug VCD file.
type Writer struct {
	w     *bufio.Writer
	close func() error

	order     int
	wires     []netlist.WireID
	mod       *netlist.Module
	valueID   map[netlist.WireID]string
	randID    map[netlist.WireID]string
	detID     map[netlist.WireID]string
	shareID   map[int]map[netlist.WireID]string
	clockID   string
	cycleID   string

	nextCode int
	started  bool
}

// New builds a debug VCD writer over w for the given top module, rendering
// one signal per wire of mod for each of the three hierarchies plus one
// share_i hierarchy per share index 0..order-1.
func New(w io.Writer, mod *netlist.Module, order int) (*Writer, error) {
	bw := bufio.NewWriter(w)
	vw := &Writer{
		w:       bw,
		mod:     mod,
		order:   order,
		valueID: make(map[netlist.WireID]string),
		randID:  make(map[netlist.WireID]string),
		detID:   make(map[netlist.WireID]string),
		shareID: make(map[int]map[netlist.WireID]string),
	}
	for i := 0; i < order; i++ {
		vw.shareID[i] = make(map[netlist.WireID]string)
	}

	for w := 0; w < mod.NumWires; w++ {
		vw.wires = append(vw.wires, netlist.WireID(w))
	}
	sort.Slice(vw.wires, func(i, j int) bool {
		return mod.WireLabel(vw.wires[i]) < mod.WireLabel(vw.wires[j])
	})

	fmt.Fprintln(bw, "$date\n\tgenerated\n$end")
	fmt.Fprintln(bw, "$timescale 1ns $end")

	fmt.Fprintln(bw, "$scope module clock $end")
	vw.clockID = vw.alloc()
	fmt.Fprintf(bw, "$var wire 1 %s clock $end\n", vw.clockID)
	vw.cycleID = vw.alloc()
	fmt.Fprintf(bw, "$var wire 32 %s cycle_count $end\n", vw.cycleID)
	fmt.Fprintln(bw, "$upscope $end")

	declareHier := func(scope string, ids map[netlist.WireID]string) {
		fmt.Fprintf(bw, "$scope module %s $end\n", scope)
		for _, wid := range vw.wires {
			code := vw.alloc()
			ids[wid] = code
			fmt.Fprintf(bw, "$var wire 1 %s %s $end\n", code, mod.WireLabel(wid))
		}
		fmt.Fprintln(bw, "$upscope $end")
	}
	declareHier("value", vw.valueID)
	declareHier("random", vw.randID)
	declareHier("deterministic", vw.detID)
	for i := 0; i < order; i++ {
		declareHier(fmt.Sprintf("share_%d", i), vw.shareID[i])
	}

	fmt.Fprintln(bw, "$enddefinitions $end")

	vw.close = func() error {
		if err := bw.Flush(); err != nil {
			return err
		}
		if c, ok := w.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	return vw, nil
}

// alloc hands out the next single-character-preferring VCD identifier code.
func (vw *Writer) alloc() string {
	code := vcdCode(vw.nextCode)
	vw.nextCode++
	return code
}

// vcdCode renders n in the printable-ASCII base-94 alphabet VCD identifier
// codes conventionally use (! through ~).
func vcdCode(n int) string {
	const base = 94
	const first = '!'
	var b []byte
	for {
		b = append([]byte{byte(first + n%base)}, b...)
		n /= base
		if n == 0 {
			break
		}
		n--
	}
	return string(b)
}

// WriteCycle renders every wire's symbolic state at cycle, plus the clock
// and cycle_count pseudo-signals, as one VCD time step.
func (vw *Writer) WriteCycle(cycle int, ev *eval.Evaluator, sim *simstate.State) error {
	fmt.Fprintf(vw.w, "#%d\n", cycle)
	if !vw.started {
		vw.started = true
	}
	fmt.Fprintf(vw.w, "1%s\n", vw.clockID)
	fmt.Fprintf(vw.w, "b%032b %s\n", uint32(cycle), vw.cycleID)

	for _, wid := range vw.wires {
		st, ok := ev.CurrentState(wid)
		if !ok {
			fmt.Fprintf(vw.w, "x%s\n", vw.valueID[wid])
			fmt.Fprintf(vw.w, "x%s\n", vw.randID[wid])
			fmt.Fprintf(vw.w, "x%s\n", vw.detID[wid])
			for i := 0; i < vw.order; i++ {
				fmt.Fprintf(vw.w, "0%s\n", vw.shareID[i][wid])
			}
			continue
		}
		fmt.Fprintf(vw.w, "%s%s\n", st.Value.String(), vw.valueID[wid])
		if st.Random != nil {
			fmt.Fprintf(vw.w, "1%s\n", vw.randID[wid])
		} else {
			fmt.Fprintf(vw.w, "x%s\n", vw.randID[wid])
		}
		if st.Deterministic {
			fmt.Fprintf(vw.w, "1%s\n", vw.detID[wid])
		} else {
			fmt.Fprintf(vw.w, "x%s\n", vw.detID[wid])
		}
		for i := 0; i < vw.order; i++ {
			if st.Sensitivity.Contains(i) {
				fmt.Fprintf(vw.w, "1%s\n", vw.shareID[i][wid])
			} else {
				fmt.Fprintf(vw.w, "0%s\n", vw.shareID[i][wid])
			}
		}
	}
	return nil
}

// Close flushes and closes the underlying writer, if it is an io.Closer.
func (vw *Writer) Close() error {
	return vw.close()
}
