package metrics

import (
	"math"
	"testing"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
)

func TestJilb(t *testing.T) {
	sum := &flow.Summary{LOC: 5, Conditions: 1, Calls: 1}
	if got := Jilb(sum); !almostEqual(got, 0.4) {
		t.Errorf("Jilb = %v, want 0.4", got)
	}
	if got := Jilb(&flow.Summary{}); got != 0 {
		t.Errorf("Jilb of empty routine = %v, want 0", got)
	}
}

func TestABC(t *testing.T) {
	sum := &flow.Summary{Assignments: 1, Calls: 1, Conditions: 1}
	if got := ABC(sum); !almostEqual(got, math.Sqrt(3)) {
		t.Errorf("ABC = %v, want sqrt(3)", got)
	}
	sum = &flow.Summary{Assignments: 3, Calls: 4}
	if got := ABC(sum); !almostEqual(got, 5) {
		t.Errorf("ABC = %v, want 5", got)
	}
}

func TestHalstead(t *testing.T) {
	sum := &flow.Summary{
		LOC:       4,
		Mnemonics: map[string]int{"mov": 3, "ret": 1},
		Operands:  map[string]int{"eax": 2, "0x1": 1},
	}
	h := Halstead(sum)
	if h.DistinctOperators != 2 || h.DistinctOperands != 2 {
		t.Errorf("distinct counts = %d/%d, want 2/2", h.DistinctOperators, h.DistinctOperands)
	}
	if h.TotalOperators != 4 || h.TotalOperands != 3 {
		t.Errorf("total counts = %d/%d, want 4/3", h.TotalOperators, h.TotalOperands)
	}
	// V = (4+3) * log2(4) = 14, D = (2/2) * (3/2) = 1.5, E = 21.
	if !almostEqual(h.Volume, 14) {
		t.Errorf("Volume = %v, want 14", h.Volume)
	}
	if !almostEqual(h.Difficulty, 1.5) {
		t.Errorf("Difficulty = %v, want 1.5", h.Difficulty)
	}
	if !almostEqual(h.Effort, 21) {
		t.Errorf("Effort = %v, want 21", h.Effort)
	}
	if h.Bugs <= 0 {
		t.Errorf("Bugs = %v, want > 0", h.Bugs)
	}
}

func TestHalsteadNoOperands(t *testing.T) {
	sum := &flow.Summary{
		LOC:       2,
		Mnemonics: map[string]int{"nop": 1, "ret": 1},
		Operands:  map[string]int{},
	}
	h := Halstead(sum)
	if h.DistinctOperators != 2 || h.TotalOperators != 2 {
		t.Errorf("operator counts = %d/%d, want 2/2", h.DistinctOperators, h.TotalOperators)
	}
	if h.DistinctOperands != 0 || h.TotalOperands != 0 {
		t.Errorf("operand counts = %d/%d, want 0/0", h.DistinctOperands, h.TotalOperands)
	}
	if h.Volume != 0 || h.Difficulty != 0 || h.Effort != 0 || h.Bugs != 0 {
		t.Errorf("derived quantities must stay zero, got %+v", h)
	}
}
