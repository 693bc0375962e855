package eval_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/eval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/shareset"
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/wirestate"
)

// dffRegRaw is a single register: q <= x. Wire ids: clk=2, x=3, q=4.
func dffRegRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"reg1": {
				Ports: map[string]netlist.RawPort{
					"clk": {Direction: "input", Bits: []int{2}, IsClock: true},
					"x":   {Direction: "input", Bits: []int{3}},
					"q":   {Direction: "output", Bits: []int{4}},
				},
				Cells: map[string]netlist.RawCell{
					"dff1": {Type: "DFF", Connections: map[string][]int{"D": {3}, "CLK": {2}, "Q": {4}}},
				},
				Netnames: map[string]netlist.RawNetname{
					"clk": {Bits: []int{2}},
					"x":   {Bits: []int{3}},
					"q":   {Bits: []int{4}},
				},
			},
		},
	}
}

// xorGateRaw is a bare two-input XOR. Wire ids: clk=2, a=3, b=4, y=5.
func xorGateRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"xor2": {
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

func buildTop(raw *netlist.RawNetlist, name string, sim *simstate.State) *eval.Evaluator {
	nl, err := netlist.Build(raw)
	Expect(err).NotTo(HaveOccurred())
	mod, ok := nl.ModuleByName(name)
	Expect(ok).To(BeTrue())
	return eval.NewTop(nl, mod, "top", sim)
}

var _ = Describe("Evaluator", func() {
	// An XOR fed with two deterministic wires holding its neutral value
	// yields a deterministic, insensitive, random-free zero.
	It("propagates a deterministic XOR of two neutral constants", func() {
		sim := simstate.New()
		sim.AdvanceCycle()
		e := buildTop(xorGateRaw(), "xor2", sim)
		e.InitNext()

		e.SetInput(2, wirestate.DeterministicConst(boolval.One)) // clk
		e.SetInput(3, wirestate.DeterministicConst(boolval.Zero))
		e.SetInput(4, wirestate.DeterministicConst(boolval.Zero))
		e.EvalAll()

		out, ok := e.CurrentState(5)
		Expect(ok).To(BeTrue())
		Expect(out.Value).To(Equal(boolval.Zero))
		Expect(out.Sensitivity.IsEmpty()).To(BeTrue())
		Expect(out.Deterministic).To(BeTrue())
		Expect(out.Random).To(BeNil())
	})

	// After EvalAll every wire of the module has a state.
	It("leaves no wire unevaluated after a full sweep", func() {
		sim := simstate.New()
		sim.AdvanceCycle()
		e := buildTop(xorGateRaw(), "xor2", sim)
		e.InitNext()

		e.SetInput(2, wirestate.DeterministicConst(boolval.One))
		e.SetInput(3, wirestate.DeterministicConst(boolval.Zero))
		e.SetInput(4, wirestate.DeterministicConst(boolval.One))
		e.EvalAll()

		for w := 0; w < e.Module().NumWires; w++ {
			_, ok := e.CurrentState(netlist.WireID(w))
			Expect(ok).To(BeTrue(), "wire %d should be evaluated", w)
		}
	})

	It("shifts a DFF's captured state into the next cycle with glitches collapsed", func() {
		sim := simstate.New()
		sim.AdvanceCycle()
		e := buildTop(dffRegRaw(), "reg1", sim)
		e.InitNext()

		sens := shareset.Singleton(0)
		glitchy := wirestate.State{
			Sensitivity:       sens,
			GlitchSensitivity: sens.Union(shareset.Singleton(1)),
			Value:             boolval.One,
		}
		e.SetInput(2, wirestate.DeterministicConst(boolval.One))
		e.SetInput(3, glitchy)
		e.EvalAll()

		// Same cycle: the register still holds its power-up value.
		q, ok := e.CurrentState(4)
		Expect(ok).To(BeTrue())
		Expect(q.Value).To(Equal(boolval.Undefined))
		Expect(q.Deterministic).To(BeTrue())

		sim.AdvanceCycle()
		e.InitNext()
		e.SetInput(2, wirestate.DeterministicConst(boolval.One))
		e.SetInput(3, wirestate.DeterministicConst(boolval.Zero))
		e.EvalAll()

		q, ok = e.CurrentState(4)
		Expect(ok).To(BeTrue())
		Expect(q.Value).To(Equal(boolval.One))
		Expect(q.Sensitivity.Equal(sens)).To(BeTrue())
		Expect(q.GlitchSensitivity.Equal(sens)).To(BeTrue(), "a register stops glitch propagation")
	})

	It("records a DFF-captured random as stored in the global state", func() {
		sim := simstate.New()
		sim.AdvanceCycle()
		e := buildTop(dffRegRaw(), "reg1", sim)
		e.InitNext()

		ref := wirestate.RandomRef{Port: 0, Birth: sim.CurrentCycle}
		e.SetInput(2, wirestate.DeterministicConst(boolval.One))
		e.SetInput(3, wirestate.State{Value: boolval.One, Random: &ref})
		e.EvalAll()

		sim.AdvanceCycle()
		e.InitNext() // captures x into the DFF, storing its random

		stored := false
		sim.EachRandomStatus(func(port wirestate.RandomPortID, birth int, st *simstate.RandomStatus) {
			if port == ref.Port && birth == ref.Birth && st.LastStored == sim.CurrentCycle {
				stored = true
			}
		})
		Expect(stored).To(BeTrue(), "the DFF capture should refresh the random's last-stored cycle")
	})
})
