package vcdsrc

import (
	"strings"
	"testing"

	"github.com/cassiersg/matchi-go/boolval"
)

const sampleVCD = `$timescale 1ns $end
$scope module tb $end
$var wire 1 ! clk $end
$var wire 1 " a $end
$var wire 2 # b $end
$upscope $end
$enddefinitions $end
$dumpvars
0!
0"
b00 #
$end
#5
1!
1"
b01 #
#10
0!
#15
1!
0"
b10 #
`

func TestSampleCycleCounting(t *testing.T) {
	p := Open("unused")
	clk, err := p.Register("tb.clk", 1)
	if err != nil {
		t.Fatalf("register clk: %v", err)
	}
	a, err := p.Register("tb.a", 1)
	if err != nil {
		t.Fatalf("register a: %v", err)
	}
	b, err := p.Register("tb.b", 2)
	if err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := p.SetClockPath("tb.clk"); err != nil {
		t.Fatalf("set clock: %v", err)
	}

	table, err := p.sample(strings.NewReader(sampleVCD))
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	// cycle 0: initial dumpvars (clk=0,a=0,b=0); cycle 1: after the #5
	// rising edge (a=1,b=01); cycle 2: after the #15 rising edge (a=0,b=10).
	if table.NumCycles() != 3 {
		t.Fatalf("expected 3 cycles, got %d", table.NumCycles())
	}

	if v := table.Bit(a, 0, 0); v != boolval.Zero {
		t.Fatalf("cycle 0 a: expected 0, got %v", v)
	}
	if v := table.Bit(a, 0, 1); v != boolval.One {
		t.Fatalf("cycle 1 a: expected 1, got %v", v)
	}
	if v := table.Bit(b, 0, 1); v != boolval.One {
		t.Fatalf("cycle 1 b[0]: expected 1, got %v", v)
	}
	if v := table.Bit(b, 1, 1); v != boolval.Zero {
		t.Fatalf("cycle 1 b[1]: expected 0, got %v", v)
	}
	if v := table.Bit(b, 1, 2); v != boolval.One {
		t.Fatalf("cycle 2 b[1]: expected 1 (b=10 -> bit1=1), got %v", v)
	}
	_ = clk
}

func TestRegisterRejectsNonPositiveWidth(t *testing.T) {
	p := Open("unused")
	if _, err := p.Register("x", 0); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestLoadUnresolvedVariableErrors(t *testing.T) {
	p := Open("unused")
	if _, err := p.Register("tb.nonexistent", 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.SetClockPath("tb.clk"); err != nil {
		t.Fatalf("set clock: %v", err)
	}
	_, err := p.sample(strings.NewReader(sampleVCD))
	if err == nil {
		t.Fatalf("expected an unresolved-variable error")
	}
}
