package simulator_test

import (
	"encoding/json"
	"fmt"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/checks"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/shareset"
	"github.com/cassiersg/matchi-go/simulator"
	"github.com/cassiersg/matchi-go/vcdsrc"
)

func attr(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return b
}

// sigData maps a dotted VCD signal path to its per-cycle little-endian bit
// vectors.
type sigData map[string][][]boolval.V

// rows renders a single-bit signal's per-cycle values from a "0"/"1"/"x"
// character string, one character per cycle.
func rows(s string) [][]boolval.V {
	out := make([][]boolval.V, len(s))
	for i := 0; i < len(s); i++ {
		v, err := boolval.FromVCDChar(s[i])
		Expect(err).NotTo(HaveOccurred())
		out[i] = []boolval.V{v}
	}
	return out
}

// mockProvider wires a golang/mock Provider whose Load returns a table built
// from data, assigning VarIDs in registration order, the way the real
// FileProvider does.
func mockProvider(ctrl *gomock.Controller, numCycles int, data sigData) *vcdsrc.MockProvider {
	prov := vcdsrc.NewMockProvider(ctrl)
	prov.EXPECT().SetClockPath(gomock.Any()).Return(nil).AnyTimes()

	bits := map[vcdsrc.VarID][][]boolval.V{}
	widths := map[vcdsrc.VarID]int{}
	var next vcdsrc.VarID
	prov.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(path string, width int) (vcdsrc.VarID, error) {
			cycles, ok := data[path]
			if !ok {
				return 0, fmt.Errorf("no trace data for signal %q", path)
			}
			id := next
			next++
			bits[id] = cycles
			widths[id] = width
			return id, nil
		}).AnyTimes()
	prov.EXPECT().Load().DoAndReturn(func() (*vcdsrc.Table, error) {
		return vcdsrc.NewTable(numCycles, bits, widths), nil
	}).AnyTimes()
	return prov
}

// refreshModule is a one-share register-refresh pipeline gadget: y <= x xor
// r, with the register output one latency step after the inputs. Wire ids:
// x=2, r=3, clk=4, y=5, t=6 (internal).
func refreshModule() netlist.RawModule {
	return netlist.RawModule{
		Attributes: map[string]json.RawMessage{
			"matchi_prop":  attr("PINI"),
			"matchi_arch":  attr("pipeline"),
			"matchi_strat": attr("assumed"),
			"matchi_order": attr(1),
		},
		Ports: map[string]netlist.RawPort{
			"x":   {Direction: "input", Bits: []int{2}},
			"r":   {Direction: "input", Bits: []int{3}},
			"clk": {Direction: "input", Bits: []int{4}, IsClock: true},
			"y":   {Direction: "output", Bits: []int{5}},
		},
		Cells: map[string]netlist.RawCell{
			"xor1": {Type: "XOR", Connections: map[string][]int{"A": {2}, "B": {3}, "Y": {6}}},
			"dff1": {Type: "DFF", Connections: map[string][]int{"D": {6}, "CLK": {4}, "Q": {5}}},
		},
		Netnames: map[string]netlist.RawNetname{
			"x": {Bits: []int{2}, Attributes: map[string]json.RawMessage{
				"matchi_type": attr("share"), "matchi_share": attr(0), "matchi_active": attr("1"), "matchi_lat": attr(0),
			}},
			"r": {Bits: []int{3}, Attributes: map[string]json.RawMessage{
				"matchi_type": attr("random"), "matchi_share": attr(0), "matchi_active": attr("1"), "matchi_lat": attr(0),
			}},
			"clk": {Bits: []int{4}},
			"y": {Bits: []int{5}, Attributes: map[string]json.RawMessage{
				"matchi_type": attr("share"), "matchi_share": attr(0), "matchi_active": attr("1"), "matchi_lat": attr(1),
			}},
			"t": {Bits: []int{6}},
		},
	}
}

func topAttrs() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"matchi_prop":  attr("PINI"),
		"matchi_arch":  attr("pipeline"),
		"matchi_strat": attr("composite_top"),
		"matchi_order": attr(1),
	}
}

func shareNetname(bits []int, share int) netlist.RawNetname {
	return netlist.RawNetname{Bits: bits, Attributes: map[string]json.RawMessage{
		"matchi_type": attr("share"), "matchi_share": attr(share), "matchi_active": attr("1"),
	}}
}

func randomNetname(bits []int) netlist.RawNetname {
	return netlist.RawNetname{Bits: bits, Attributes: map[string]json.RawMessage{
		"matchi_type": attr("random"), "matchi_share": attr(0), "matchi_active": attr("1"),
	}}
}

// cleanTopRaw is a top gadget wrapping one refresh instance
// fed a fresh random every cycle. Top wire ids: clk=2, rnd=3, x0=4, y0=5.
func cleanTopRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"refresh": refreshModule(),
			"top": {
				Attributes: topAttrs(),
				Ports: map[string]netlist.RawPort{
					"clk": {Direction: "input", Bits: []int{2}, IsClock: true},
					"rnd": {Direction: "input", Bits: []int{3}},
					"x0":  {Direction: "input", Bits: []int{4}},
					"y0":  {Direction: "output", Bits: []int{5}},
				},
				Cells: map[string]netlist.RawCell{
					"g1": {Type: "refresh", Connections: map[string][]int{"x": {4}, "r": {3}, "clk": {2}, "y": {5}}},
				},
				Netnames: map[string]netlist.RawNetname{
					"clk": {Bits: []int{2}},
					"rnd": randomNetname([]int{3}),
					"x0":  shareNetname([]int{4}, 0),
					"y0":  shareNetname([]int{5}, 0),
				},
			},
		},
	}
}

// reuseTopRaw is a top gadget where the same random port feeds two refresh
// instances, so every sensitive cycle consumes one fresh random twice. Top
// wire ids: clk=2, rnd=3, x0=4, y0=5, y1=6.
func reuseTopRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"refresh": refreshModule(),
			"top": {
				Attributes: topAttrs(),
				Ports: map[string]netlist.RawPort{
					"clk": {Direction: "input", Bits: []int{2}, IsClock: true},
					"rnd": {Direction: "input", Bits: []int{3}},
					"x0":  {Direction: "input", Bits: []int{4}},
					"y0":  {Direction: "output", Bits: []int{5}},
					"y1":  {Direction: "output", Bits: []int{6}},
				},
				Cells: map[string]netlist.RawCell{
					"g1": {Type: "refresh", Connections: map[string][]int{"x": {4}, "r": {3}, "clk": {2}, "y": {5}}},
					"g2": {Type: "refresh", Connections: map[string][]int{"x": {4}, "r": {3}, "clk": {2}, "y": {6}}},
				},
				Netnames: map[string]netlist.RawNetname{
					"clk": {Bits: []int{2}},
					"rnd": randomNetname([]int{3}),
					"x0":  shareNetname([]int{4}, 0),
					"y0":  shareNetname([]int{5}, 0),
					"y1":  shareNetname([]int{6}, 0),
				},
			},
		},
	}
}

// mismatchTopRaw is a top gadget whose output is annotated as share 1 but is
// wired straight from the share-0 input. Wire ids: clk=2, x=3, y=4.
func mismatchTopRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"buftop": {
				Attributes: map[string]json.RawMessage{
					"matchi_prop":  attr("PINI"),
					"matchi_arch":  attr("pipeline"),
					"matchi_strat": attr("composite_top"),
					"matchi_order": attr(2),
				},
				Ports: map[string]netlist.RawPort{
					"clk": {Direction: "input", Bits: []int{2}, IsClock: true},
					"x":   {Direction: "input", Bits: []int{3}},
					"y":   {Direction: "output", Bits: []int{4}},
				},
				Cells: map[string]netlist.RawCell{
					"b1": {Type: "BUF", Connections: map[string][]int{"A": {3}, "Y": {4}}},
				},
				Netnames: map[string]netlist.RawNetname{
					"clk": {Bits: []int{2}},
					"x":   shareNetname([]int{3}, 0),
					"y":   shareNetname([]int{4}, 1),
				},
			},
		},
	}
}

// xorTopRaw is a plain (non-gadget) module with one XOR gate.
// Wire ids: clk=2, a=3, b=4, y=5.
func xorTopRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"xortop": {
				Ports: map[string]netlist.RawPort{
					"clk": {Direction: "input", Bits: []int{2}, IsClock: true},
					"a":   {Direction: "input", Bits: []int{3}},
					"b":   {Direction: "input", Bits: []int{4}},
					"y":   {Direction: "output", Bits: []int{5}},
				},
				Cells: map[string]netlist.RawCell{
					"g1": {Type: "XOR", Connections: map[string][]int{"A": {3}, "B": {4}, "Y": {5}}},
				},
				Netnames: map[string]netlist.RawNetname{
					"clk": {Bits: []int{2}},
					"a":   {Bits: []int{3}},
					"b":   {Bits: []int{4}},
					"y":   {Bits: []int{5}},
				},
			},
		},
	}
}

func newSim(raw *netlist.RawNetlist, gname string, prov vcdsrc.Provider) *simulator.Simulator {
	nl, err := netlist.Build(raw)
	Expect(err).NotTo(HaveOccurred())
	sim, err := simulator.New(nl, "tb", "dut", gname, prov, checks.DefaultConfig())
	Expect(err).NotTo(HaveOccurred())
	return sim
}

var _ = Describe("Simulator", func() {
	var ctrl *gomock.Controller

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	// A correctly refreshed gadget with a fresh random every cycle
	// passes every check for the whole trace, and the output share carries
	// exactly its declared sensitivity once the pipeline has filled.
	It("passes a clean run with a fresh random every cycle", func() {
		prov := mockProvider(ctrl, 4, sigData{
			"tb.dut.rnd": rows("1010"),
			"tb.dut.x0":  rows("1101"),
		})
		sim := newSim(cleanTopRaw(), "top", prov)

		Expect(sim.Run(-1)).To(Succeed())

		out, ok := sim.Evaluator().CurrentState(5)
		Expect(ok).To(BeTrue())
		Expect(out.Sensitivity.Equal(shareset.Singleton(0))).To(BeTrue())
	})

	// After a full sweep every wire of the top module has a
	// symbolic state.
	It("evaluates every top-level wire each cycle", func() {
		prov := mockProvider(ctrl, 2, sigData{
			"tb.dut.rnd": rows("10"),
			"tb.dut.x0":  rows("11"),
		})
		sim := newSim(cleanTopRaw(), "top", prov)

		Expect(sim.Run(-1)).To(Succeed())

		mod := sim.Evaluator().Module()
		for w := 0; w < mod.NumWires; w++ {
			_, ok := sim.Evaluator().CurrentState(netlist.WireID(w))
			Expect(ok).To(BeTrue(), "wire %s should be evaluated", mod.WireLabel(netlist.WireID(w)))
		}
	})

	// One random port feeding two gadget executions in the same cycle is
	// a single-use violation, enumerating both fresh-use sites.
	It("rejects a random consumed by two gadget executions", func() {
		prov := mockProvider(ctrl, 2, sigData{
			"tb.dut.rnd": rows("10"),
			"tb.dut.x0":  rows("11"),
		})
		sim := newSim(reuseTopRaw(), "top", prov)

		err := sim.Run(-1)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("used in multiple places"))
		Expect(err.Error()).To(ContainSubstring("tb.dut.g1"))
		Expect(err.Error()).To(ContainSubstring("tb.dut.g2"))
	})

	// The same trace replayed twice yields the same
	// violation report byte-for-byte.
	It("reports the same violation byte-for-byte across identical runs", func() {
		data := sigData{
			"tb.dut.rnd": rows("10"),
			"tb.dut.x0":  rows("11"),
		}
		sim1 := newSim(reuseTopRaw(), "top", mockProvider(ctrl, 2, data))
		sim2 := newSim(reuseTopRaw(), "top", mockProvider(ctrl, 2, data))

		err1 := sim1.Run(-1)
		err2 := sim2.Run(-1)
		Expect(err1).To(HaveOccurred())
		Expect(err2).To(HaveOccurred())
		Expect(err1.Error()).To(Equal(err2.Error()))
	})

	// A top output annotated Share(1) whose symbolic sensitivity is {0}
	// fails the output-port discipline check.
	It("rejects an output carrying the wrong share", func() {
		prov := mockProvider(ctrl, 1, sigData{
			"tb.dut.x": rows("1"),
		})
		sim := newSim(mismatchTopRaw(), "buftop", prov)

		err := sim.Run(-1)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("output share"))
		Expect(err.Error()).To(ContainSubstring("{0}"))
	})

	// An XOR of two deterministic neutral constants stays deterministic,
	// insensitive and random-free through a full simulator cycle.
	It("keeps an XOR of neutral constants deterministic end to end", func() {
		prov := mockProvider(ctrl, 1, sigData{
			"tb.dut.a": rows("0"),
			"tb.dut.b": rows("0"),
		})
		sim := newSim(xorTopRaw(), "xortop", prov)

		Expect(sim.Run(-1)).To(Succeed())

		out, ok := sim.Evaluator().CurrentState(5)
		Expect(ok).To(BeTrue())
		Expect(out.Value).To(Equal(boolval.Zero))
		Expect(out.Sensitivity.IsEmpty()).To(BeTrue())
		Expect(out.Deterministic).To(BeTrue())
		Expect(out.Random).To(BeNil())
	})

	It("warns when a valid-flagged share output is insensitive", func() {
		prov := mockProvider(ctrl, 1, sigData{
			"tb.dut.rnd": rows("1"),
			"tb.dut.x0":  rows("1"),
		})
		sim := newSim(cleanTopRaw(), "top", prov)

		Expect(sim.Run(-1)).To(Succeed())

		// The pipeline has not filled on the first cycle, so the
		// always-valid y0 output is insensitive there.
		Expect(sim.Warnings()).NotTo(BeEmpty())
	})

	It("fails construction when the trace cannot supply a registered signal", func() {
		prov := mockProvider(ctrl, 1, sigData{
			"tb.dut.rnd": rows("1"),
			// x0 intentionally missing
		})
		nl, err := netlist.Build(cleanTopRaw())
		Expect(err).NotTo(HaveOccurred())
		_, err = simulator.New(nl, "tb", "dut", "top", prov, checks.DefaultConfig())
		Expect(err).To(HaveOccurred())
	})
})
