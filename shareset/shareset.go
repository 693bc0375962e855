// Package shareset implements a fixed-width bitset over share indices.
//
// A masking order d yields d+1 distinct share indices, numbered 0..d.
// The verifier never needs more than 64 shares in a single set, so the
// set is represented as a single uint64 with no heap allocation.
package shareset

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxShares is the number of share indices this package can represent:
// indices run from 0 to MaxShares-1 (exclusive upper bound on the index).
const MaxShares = 64

// Set is a compact bitset of share indices in [0, MaxShares).
type Set uint64

// Empty returns the empty set.
func Empty() Set { return 0 }

// Singleton returns the set containing only share i.
//
// Panics if i is out of range; callers only ever construct singletons from
// annotation-derived share indices, which are validated at parse time.
func Singleton(i int) Set {
	mustInRange(i)
	return Set(1) << uint(i)
}

func mustInRange(i int) {
	if i < 0 || i >= MaxShares {
		panic(fmt.Sprintf("shareset: share index %d out of range [0, %d)", i, MaxShares))
	}
}

// Union returns a | b.
func (a Set) Union(b Set) Set { return a | b }

// Intersect returns a & b.
func (a Set) Intersect(b Set) Set { return a & b }

// Diff returns the shares in a but not in b.
func (a Set) Diff(b Set) Set { return a &^ b }

// Contains reports whether share i is a member of the set.
func (a Set) Contains(i int) bool {
	mustInRange(i)
	return a&(Set(1)<<uint(i)) != 0
}

// Subset reports whether every share of a is also in b.
func (a Set) Subset(b Set) bool { return a&^b == 0 }

// Equal reports whether a and b contain exactly the same shares.
func (a Set) Equal(b Set) bool { return a == b }

// IsEmpty reports whether the set has no members.
func (a Set) IsEmpty() bool { return a == 0 }

// Cardinality returns the number of shares in the set.
func (a Set) Cardinality() int { return bits.OnesCount64(uint64(a)) }

// Single returns the set's sole member and true, or (0, false) if the
// set's cardinality is not exactly one.
func (a Set) Single() (int, bool) {
	if a.Cardinality() != 1 {
		return 0, false
	}
	return bits.TrailingZeros64(uint64(a)), true
}

// Bits returns the members of the set in ascending order.
func (a Set) Bits() []int {
	out := make([]int, 0, a.Cardinality())
	rem := uint64(a)
	for rem != 0 {
		i := bits.TrailingZeros64(rem)
		out = append(out, i)
		rem &^= 1 << uint(i)
	}
	return out
}

// String renders the set as "{0,2,3}".
func (a Set) String() string {
	bs := a.Bits()
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = strconv.Itoa(b)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
