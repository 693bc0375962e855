package wirestate

import "github.com/cassiersg/matchi-go/boolval"

// LeakSink records that a wire's randomness provenance has been consumed by
// a combinational gate, feeding the per-random-port fresh-use/leak
// accounting. Evaluation stays a pure function of its operand states; the
// caller (package eval) threads the mutable global state through this
// interface instead of this package touching any package-level state.
type LeakSink interface {
	LeakRandom(ref RandomRef)
}

func leak(sink LeakSink, s State) {
	if s.Random != nil {
		sink.LeakRandom(*s.Random)
	}
}

// EvalBuf implements the BUF gate: the output state is the input state,
// unchanged.
func EvalBuf(a State) State {
	return a
}

// EvalNot implements the NOT gate: same sensitivity, glitch sensitivity,
// randomness provenance and NSPGI deps as the input; the value is inverted.
// Inversion does not clear randomness provenance: a freshly sampled random
// bit, inverted, is still that same fresh random.
func EvalNot(a State, sink LeakSink) State {
	leak(sink, a)
	out := a
	out.Value = boolval.Not(a.Value)
	return mustValid(out)
}

// EvalBin implements the AND/OR/XOR gates. When one operand is
// glitch-deterministic and held at the gate's neutral element, the
// output copies the other operand verbatim, including its randomness
// provenance and NSPGI deps; symmetrically, when one operand is
// glitch-deterministic and held at the gate's absorbing element (AND's is
// 0, OR's is 1; XOR has none), the output copies that operand verbatim --
// the other operand cannot influence the settled value. Neither shortcut
// marks its operands as leaked: a stably gated-off gate does not mix its
// operands, so no randomness is consumed there. Otherwise
// sensitivities union, the value takes the bivalent extension, randomness
// provenance is cleared (two operands combining into one wire is never "the
// same fresh random" downstream), NSPGI deps take the pointwise maximum, and
// both operands are marked leaked. glitch_sensitivity is always the union of
// the two operands' glitch_sensitivity regardless of which path is taken:
// glitches propagate through any gate.
func EvalBin(op boolval.BinOp, a, b State, sink LeakSink) State {
	glitchSens := a.GlitchSensitivity.Union(b.GlitchSensitivity)

	if n, ok := op.Neutral(); ok {
		if a.IsGlitchDeterministic() && a.Value == n {
			out := b
			out.GlitchSensitivity = glitchSens
			return mustValid(out)
		}
		if b.IsGlitchDeterministic() && b.Value == n {
			out := a
			out.GlitchSensitivity = glitchSens
			return mustValid(out)
		}
	}
	if av, ok := op.Absorb(); ok {
		if a.IsGlitchDeterministic() && a.Value == av {
			out := a
			out.GlitchSensitivity = glitchSens
			return mustValid(out)
		}
		if b.IsGlitchDeterministic() && b.Value == av {
			out := b
			out.GlitchSensitivity = glitchSens
			return mustValid(out)
		}
	}

	leak(sink, a)
	leak(sink, b)

	out := State{
		Sensitivity:       a.Sensitivity.Union(b.Sensitivity),
		GlitchSensitivity: glitchSens,
		Value:             op.Apply(a.Value, b.Value),
		Random:            nil,
		Deterministic:     a.Deterministic && b.Deterministic,
		NSPGI:             MergeMax(a.NSPGI, b.NSPGI),
	}
	return mustValid(out)
}

// EvalMux implements the MUX gate. When the selector is
// glitch-deterministic, the output is a verbatim copy of whichever data
// input it statically selects, with glitch_sensitivity widened to the union
// of both data inputs' glitch_sensitivity (the unselected branch could still
// glitch the output wire's physical net, even though it never determines
// its settled value); this shortcut does not mark any operand as leaked,
// only the full-combination path consumes randomness.
// Otherwise every field unions/combines across all three
// operands; randomness provenance survives only if both data inputs happen
// to carry the identical RandomRef; all three operands are marked leaked.
func EvalMux(a, b, sel State, sink LeakSink) State {
	dataGlitch := a.GlitchSensitivity.Union(b.GlitchSensitivity)

	if sel.IsGlitchDeterministic() {
		switch sel.Value {
		case boolval.Zero:
			out := a
			out.GlitchSensitivity = dataGlitch
			return mustValid(out)
		case boolval.One:
			out := b
			out.GlitchSensitivity = dataGlitch
			return mustValid(out)
		}
	}

	leak(sink, a)
	leak(sink, b)
	leak(sink, sel)

	var random *RandomRef
	if a.Random != nil && b.Random != nil && *a.Random == *b.Random {
		random = a.Random
	}

	out := State{
		Sensitivity:       a.Sensitivity.Union(b.Sensitivity).Union(sel.Sensitivity),
		GlitchSensitivity: dataGlitch.Union(sel.GlitchSensitivity),
		Value:             boolval.Mux(a.Value, b.Value, sel.Value),
		Random:            random,
		Deterministic:     a.Deterministic && b.Deterministic && sel.Deterministic,
		NSPGI:             MergeMax(MergeMax(a.NSPGI, b.NSPGI), sel.NSPGI),
	}
	return mustValid(out)
}

// EvalDFFCapture implements what a DFF register stage does to the symbolic
// state it captures on a clock edge: glitch_sensitivity collapses to the
// settled sensitivity, because a register's output cannot glitch from a
// transient on its D input once it has latched. Randomness provenance,
// value and NSPGI deps pass through unchanged; the caller (package eval)
// is responsible for recording the capture in the random tracker's
// last-stored-cycle bookkeeping.
func EvalDFFCapture(d State) State {
	out := d
	out.GlitchSensitivity = d.Sensitivity
	return mustValid(out)
}
