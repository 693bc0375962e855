package eval_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cassiersg/matchi-go/boolval"
	"github.com/cassiersg/matchi-go/eval"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/shareset"
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/wirestate"
)

func attr(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return b
}

// refreshGadgetRaw builds a one-share-register refresh gadget: y <= x xor r,
// a pipeline-architecture PINI gadget with its register output one latency
// step after its inputs. Wire ids: x=2, r=3, clk=4, y=5, t=6 (internal).
func refreshGadgetRaw() *netlist.RawNetlist {
	return &netlist.RawNetlist{
		Modules: map[string]netlist.RawModule{
			"refresh": {
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
			},
		},
	}
}

const (
	refreshX   netlist.WireID = 2
	refreshR   netlist.WireID = 3
	refreshY   netlist.WireID = 5
)

func buildRefreshPipeline(sim *simstate.State) *eval.PipelineEval {
	nl, err := netlist.Build(refreshGadgetRaw())
	Expect(err).NotTo(HaveOccurred())
	mod, ok := nl.ModuleByName("refresh")
	Expect(ok).To(BeTrue())
	return eval.NewPipeline(nl, mod, "dut0", sim, eval.NewIDGen())
}

var _ = Describe("PipelineEval", func() {
	// A clean pipeline-gadget run, fed directly from outside every
	// cycle (never through its own feedback path), never raises a
	// precondition error and produces the expected one-cycle-delayed
	// output sensitivity.
	It("accepts a freshly-fed share and random input every cycle with no violation", func() {
		global := simstate.New()
		p := buildRefreshPipeline(global)

		xBits := []boolval.V{boolval.One, boolval.Zero, boolval.One, boolval.One}
		rBits := []boolval.V{boolval.Zero, boolval.One, boolval.One, boolval.Zero}

		for cycle := range xBits {
			global.AdvanceCycle()
			p.InitNext()

			shareShare := shareset.Singleton(0)
			xState := wirestate.State{Sensitivity: shareShare, GlitchSensitivity: shareShare, Value: xBits[cycle], Deterministic: false}
			ref := wirestate.RandomRef{Port: 0, Birth: global.CurrentCycle}
			rState := wirestate.State{Value: rBits[cycle], Random: &ref}

			p.SetInput(refreshX, xState)
			p.SetInput(refreshR, rState)

			Expect(p.CheckInput(refreshX)).To(Succeed())
			Expect(p.CheckInput(refreshR)).To(Succeed())

			out := p.EvalOutput(refreshY)

			Expect(p.CheckFinish()).To(Succeed())
			p.EvalFinish()

			if cycle == 0 {
				Expect(out.Sensitivity.IsEmpty()).To(BeTrue(), "first cycle has no one-cycle-old input yet")
			} else {
				Expect(out.Sensitivity.Equal(shareset.Singleton(0))).To(BeTrue())
			}
		}
	})

	// A wire carrying forward this same gadget instance's own NSPGI tag
	// (as if it had looped back through a register without an intervening
	// pipeline bubble) is rejected by CheckInput.
	It("rejects an input that depends on its own un-bubbled execution", func() {
		global := simstate.New()
		p := buildRefreshPipeline(global)

		global.AdvanceCycle()
		p.InitNext()

		tagged := wirestate.State{
			NSPGI: wirestate.Single(p.NSPGIID(), global.CurrentCycle),
		}
		p.SetInput(refreshX, tagged)
		p.SetInput(refreshR, wirestate.DeterministicConst(boolval.Zero))

		err := p.CheckInput(refreshX)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("there was no pipeline bubble since then"))
	})
})
