package shareset_test

import (
	"testing"

	"github.com/cassiersg/matchi-go/shareset"
)

func TestSingletonAndContains(t *testing.T) {
	s := shareset.Singleton(3)
	if !s.Contains(3) {
		t.Fatalf("expected set to contain 3")
	}
	if s.Contains(2) {
		t.Fatalf("expected set not to contain 2")
	}
	if s.Cardinality() != 1 {
		t.Fatalf("expected cardinality 1, got %d", s.Cardinality())
	}
}

func TestUnionIntersectDiff(t *testing.T) {
	a := shareset.Singleton(0).Union(shareset.Singleton(1))
	b := shareset.Singleton(1).Union(shareset.Singleton(2))

	if got := a.Union(b).Bits(); len(got) != 3 {
		t.Fatalf("union: expected 3 members, got %v", got)
	}
	if got := a.Intersect(b); got.Cardinality() != 1 || !got.Contains(1) {
		t.Fatalf("intersect: expected {1}, got %v", got)
	}
	if got := a.Diff(b); got.Cardinality() != 1 || !got.Contains(0) {
		t.Fatalf("diff: expected {0}, got %v", got)
	}
}

func TestSubset(t *testing.T) {
	a := shareset.Singleton(1)
	b := shareset.Singleton(1).Union(shareset.Singleton(2))

	if !a.Subset(b) {
		t.Fatalf("expected a subset of b")
	}
	if b.Subset(a) {
		t.Fatalf("expected b not a subset of a")
	}
}

func TestEmptyAndIsEmpty(t *testing.T) {
	if !shareset.Empty().IsEmpty() {
		t.Fatalf("expected empty set to be empty")
	}
	if shareset.Singleton(0).IsEmpty() {
		t.Fatalf("expected non-empty singleton")
	}
}

func TestSingle(t *testing.T) {
	if i, ok := shareset.Singleton(5).Single(); !ok || i != 5 {
		t.Fatalf("expected Single() = (5, true), got (%d, %v)", i, ok)
	}
	multi := shareset.Singleton(0).Union(shareset.Singleton(1))
	if _, ok := multi.Single(); ok {
		t.Fatalf("expected Single() to fail on multi-share set")
	}
	if _, ok := shareset.Empty().Single(); ok {
		t.Fatalf("expected Single() to fail on empty set")
	}
}

func TestString(t *testing.T) {
	s := shareset.Singleton(0).Union(shareset.Singleton(2))
	if got, want := s.String(), "{0,2}"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range share index")
		}
	}()
	shareset.Singleton(64)
}

func TestMaskingOrderYieldsDPlusOneShares(t *testing.T) {
	const d = 3
	var s shareset.Set
	for i := 0; i <= d; i++ {
		s = s.Union(shareset.Singleton(i))
	}
	if s.Cardinality() != d+1 {
		t.Fatalf("order %d masking: expected %d shares, got %d", d, d+1, s.Cardinality())
	}
}
