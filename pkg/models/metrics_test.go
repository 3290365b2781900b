package models

import (
	"math"
	"testing"
)

func TestHalsteadCalculate(t *testing.T) {
	h := HalsteadMetrics{
		DistinctOperators: 2,
		DistinctOperands:  2,
		TotalOperators:    4,
		TotalOperands:     4,
	}
	h.Calculate()

	if h.Vocabulary != 4 {
		t.Errorf("Vocabulary = %v, want 4", h.Vocabulary)
	}
	if h.Volume != 16 {
		t.Errorf("Volume = %v, want 16", h.Volume)
	}
	if h.Difficulty != 2 {
		t.Errorf("Difficulty = %v, want 2", h.Difficulty)
	}
	if h.Effort != 32 {
		t.Errorf("Effort = %v, want 32", h.Effort)
	}
	want := math.Pow(32, 2.0/3.0) / 3000.0
	if math.Abs(h.Bugs-want) > 1e-12 {
		t.Errorf("Bugs = %v, want %v", h.Bugs, want)
	}
}

func TestHalsteadCalculateDegenerate(t *testing.T) {
	var h HalsteadMetrics
	h.Calculate()
	if h.Vocabulary != 0 || h.Volume != 0 || h.Difficulty != 0 || h.Effort != 0 || h.Bugs != 0 {
		t.Errorf("zero counts must stay zero, got %+v", h)
	}

	h = HalsteadMetrics{DistinctOperators: 3, TotalOperators: 3}
	h.Calculate()
	if h.Difficulty != 0 {
		t.Errorf("Difficulty without operands = %v, want 0", h.Difficulty)
	}
	if math.IsNaN(h.Volume) || math.IsNaN(h.Bugs) {
		t.Error("degenerate inputs must not produce NaN")
	}
}

func TestHalsteadAdd(t *testing.T) {
	a := HalsteadMetrics{DistinctOperators: 2, DistinctOperands: 3, TotalOperators: 5, TotalOperands: 7}
	b := HalsteadMetrics{DistinctOperators: 1, DistinctOperands: 1, TotalOperators: 2, TotalOperands: 2}
	a.Add(b)
	if a.DistinctOperators != 3 || a.DistinctOperands != 4 || a.TotalOperators != 7 || a.TotalOperands != 9 {
		t.Errorf("Add = %+v", a)
	}
	// Derived values are untouched until the caller recomputes.
	if a.Volume != 0 {
		t.Errorf("Add must not derive, Volume = %v", a.Volume)
	}
}
