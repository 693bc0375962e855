// Package boolval implements the three-valued constant domain used to carry
// concrete gate values through the symbolic simulator: 0, 1, and undefined
// ('x', the VCD value for an unknown bit).
package boolval

import "fmt"

// V is a three-valued Boolean constant.
type V uint8

const (
	Zero V = iota
	One
	Undefined
)

// FromBit converts a concrete Go bool to a defined V.
func FromBit(b bool) V {
	if b {
		return One
	}
	return Zero
}

// FromVCDChar parses a single VCD value character ('0', '1', 'x', 'X', 'z',
// 'Z'). 'z' is treated as Undefined: this verifier does not model
// tristate buses.
func FromVCDChar(c byte) (V, error) {
	switch c {
	case '0':
		return Zero, nil
	case '1':
		return One, nil
	case 'x', 'X', 'z', 'Z':
		return Undefined, nil
	default:
		return Undefined, fmt.Errorf("boolval: invalid VCD value character %q", c)
	}
}

// IsDefined reports whether v is 0 or 1.
func (v V) IsDefined() bool { return v == Zero || v == One }

// Bool returns the concrete bit and true, or (false, false) if v is undefined.
func (v V) Bool() (bool, bool) {
	switch v {
	case Zero:
		return false, true
	case One:
		return true, true
	default:
		return false, false
	}
}

func (v V) String() string {
	switch v {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "x"
	}
}

// Not is the bivalent extension of Boolean negation.
func Not(a V) V {
	switch a {
	case Zero:
		return One
	case One:
		return Zero
	default:
		return Undefined
	}
}

// And is the bivalent extension of AND: a defined 0 on either side forces
// the result to 0, regardless of the other operand.
func And(a, b V) V {
	if a == Zero || b == Zero {
		return Zero
	}
	if a == Undefined || b == Undefined {
		return Undefined
	}
	return One
}

// Or is the bivalent extension of OR: a defined 1 on either side forces
// the result to 1, regardless of the other operand.
func Or(a, b V) V {
	if a == One || b == One {
		return One
	}
	if a == Undefined || b == Undefined {
		return Undefined
	}
	return Zero
}

// Xor is the bivalent extension of XOR: undefined propagates unconditionally,
// since XOR has no absorbing element.
func Xor(a, b V) V {
	if a == Undefined || b == Undefined {
		return Undefined
	}
	if a == b {
		return Zero
	}
	return One
}

// Mux implements output = sel ? b : a, with Undefined selector yielding
// Undefined unless a == b.
func Mux(a, b, sel V) V {
	switch sel {
	case Zero:
		return a
	case One:
		return b
	default:
		if a == b {
			return a
		}
		return Undefined
	}
}

// BinOp identifies a two-input Boolean gate kind.
type BinOp uint8

const (
	OpAnd BinOp = iota
	OpOr
	OpXor
)

// Apply evaluates the two-valued extension of op.
func (op BinOp) Apply(a, b V) V {
	switch op {
	case OpAnd:
		return And(a, b)
	case OpOr:
		return Or(a, b)
	case OpXor:
		return Xor(a, b)
	default:
		panic(fmt.Sprintf("boolval: unknown BinOp %d", op))
	}
}

// Neutral returns the gate's identity element and true, or (_, false) if
// none exists. AND's neutral element is 1, OR's and XOR's are 0 (XOR has no
// absorbing element, though -- see Absorb).
func (op BinOp) Neutral() (V, bool) {
	switch op {
	case OpAnd:
		return One, true
	case OpOr:
		return Zero, true
	case OpXor:
		return Zero, true
	default:
		panic(fmt.Sprintf("boolval: unknown BinOp %d", op))
	}
}

// Absorb returns the gate's absorbing element and true, or (_, false) if
// the gate has none. XOR has no absorbing element: no constant value
// determines its output irrespective of the other operand.
func (op BinOp) Absorb() (V, bool) {
	switch op {
	case OpAnd:
		return Zero, true
	case OpOr:
		return One, true
	case OpXor:
		return Zero, false
	default:
		panic(fmt.Sprintf("boolval: unknown BinOp %d", op))
	}
}

func (op BinOp) String() string {
	switch op {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpXor:
		return "XOR"
	default:
		return "?"
	}
}
