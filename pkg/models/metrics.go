// Package models holds the metric result records produced per routine and
// per module, plus the derived Halstead arithmetic.
package models

import "math"

// HalsteadMetrics carries the Halstead base counts and derived values for a
// routine (or, summed, for a module). Base counts come from instruction
// mnemonics (operators) and operand spellings (operands).
type HalsteadMetrics struct {
	DistinctOperators uint32  `json:"n1"`         // n1
	DistinctOperands  uint32  `json:"n2"`         // n2
	TotalOperators    uint32  `json:"N1"`         // N1, equals LOC
	TotalOperands     uint32  `json:"N2"`         // N2
	Vocabulary        float64 `json:"vocabulary"` // n1*log2(n1) + n2*log2(n2)
	Volume            float64 `json:"volume"`     // (N1+N2) * log2(n1+n2)
	Difficulty        float64 `json:"difficulty"` // (n1/2) * (N2/n2)
	Effort            float64 `json:"effort"`     // D * V
	Bugs              float64 `json:"bugs"`       // E^(2/3) / 3000
}

// Calculate fills the derived values from the base counts. Degenerate inputs
// (zero distinct operators or operands) leave the affected derived values at
// zero rather than producing NaN or an error.
func (h *HalsteadMetrics) Calculate() {
	n := float64(h.DistinctOperators + h.DistinctOperands)
	total := float64(h.TotalOperators + h.TotalOperands)

	h.Vocabulary = float64(h.DistinctOperators)*log2(float64(h.DistinctOperators)) +
		float64(h.DistinctOperands)*log2(float64(h.DistinctOperands))
	h.Volume = total * log2(n)
	if h.DistinctOperands != 0 {
		h.Difficulty = (float64(h.DistinctOperators) / 2.0) *
			(float64(h.TotalOperands) / float64(h.DistinctOperands))
	}
	h.Effort = h.Difficulty * h.Volume
	h.Bugs = pow(h.Effort, 2.0/3.0) / 3000.0
}

// Add folds another routine's base counts into a running module total.
// Derived values are recomputed once, after all routines are folded.
func (h *HalsteadMetrics) Add(other HalsteadMetrics) {
	h.DistinctOperators += other.DistinctOperators
	h.DistinctOperands += other.DistinctOperands
	h.TotalOperators += other.TotalOperators
	h.TotalOperands += other.TotalOperands
}

func log2(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log2(x)
}

func pow(x, y float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Pow(x, y)
}

// RoutineMetrics is the full per-routine result record.
type RoutineMetrics struct {
	Name  string `json:"name"`
	Entry uint64 `json:"entry"`

	LOC         int `json:"loc"`
	Blocks      int `json:"bbls"`
	Conditions  int `json:"condit"`
	Calls       int `json:"calls"`
	Assignments int `json:"assign"`

	CC    int     `json:"cc"`
	CCMod int     `json:"cc_mod"`
	Jilb  float64 `json:"jilb"`
	ABC   float64 `json:"abc"`
	R     float64 `json:"r"`

	Halstead HalsteadMetrics `json:"halstead"`

	Pivovarsky    float64 `json:"pivovarsky"`
	Harrison      float64 `json:"harrison"`
	BoundaryValue float64 `json:"boundary"`
	Span          int     `json:"span"`

	GlobalAccess int     `json:"global_access"`
	GlobalRatio  float64 `json:"global_ratio"`
	Oviedo       int     `json:"oviedo"`
	Chepin       int     `json:"chepin"`
	HenryCafura  float64 `json:"henry_cafura"`
	CardGlass    float64 `json:"card_glass"`
	Cocol        float64 `json:"cocol"`
}

// Distribution summarizes how a per-routine value spreads across the module.
type Distribution struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P95  float64 `json:"p95"`
	Max  float64 `json:"max"`
}

// ModuleMetrics aggregates every analyzed routine of one module.
type ModuleMetrics struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint,omitempty"`

	Routines map[string]*RoutineMetrics `json:"routines"`
	Skipped  []SkippedRoutine           `json:"skipped,omitempty"`

	RoutineCount int     `json:"routine_count"`
	TotalLOC     int     `json:"total_loc"`
	AverageLOC   float64 `json:"average_loc"`
	TotalBlocks  int     `json:"total_bbls"`
	Conditions   int     `json:"total_condit"`
	Calls        int     `json:"total_calls"`
	Assignments  int     `json:"total_assign"`

	RTotal     float64 `json:"r_total"`
	CCTotal    int     `json:"cc_total"`
	CCModTotal int     `json:"cc_mod_total"`
	JilbTotal  float64 `json:"jilb_total"`
	ABCTotal   float64 `json:"abc_total"`

	HalsteadTotal HalsteadMetrics `json:"halstead_total"`

	PivovarskyTotal  float64 `json:"pivovarsky_total"`
	HarrisonTotal    float64 `json:"harrison_total"`
	BoundaryTotal    float64 `json:"boundary_total"`
	SpanTotal        int     `json:"span_total"`
	GlobalTotal      float64 `json:"global_total"`
	OviedoTotal      int     `json:"oviedo_total"`
	ChepinTotal      int     `json:"chepin_total"`
	HenryCafuraTotal float64 `json:"henry_cafura_total"`
	CardGlassTotal   float64 `json:"card_glass_total"`
	CocolTotal       float64 `json:"cocol_total"`

	CCSpread  Distribution `json:"cc_spread"`
	LOCSpread Distribution `json:"loc_spread"`
}

// SkippedRoutine records a routine abandoned by a fatal analysis error.
type SkippedRoutine struct {
	Name   string `json:"name"`
	Entry  uint64 `json:"entry"`
	Reason string `json:"reason"`
}
