package metrics

import (
	"math"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/models"
)

// Jilb relates transfer instructions (conditions and calls) to routine size.
func Jilb(sum *flow.Summary) float64 {
	if sum.LOC == 0 {
		return 0
	}
	return float64(sum.Conditions+sum.Calls) / float64(sum.LOC)
}

// ABC is the euclidean magnitude of the assignment, branch and condition
// counts.
func ABC(sum *flow.Summary) float64 {
	a := float64(sum.Assignments)
	b := float64(sum.Calls)
	c := float64(sum.Conditions)
	return math.Sqrt(a*a + b*b + c*c)
}

// Halstead derives the full Halstead record from the summary's mnemonic and
// operand tallies. Routines without operands keep their operator counts but
// skip the derived quantities.
func Halstead(sum *flow.Summary) models.HalsteadMetrics {
	h := models.HalsteadMetrics{
		DistinctOperators: uint32(len(sum.Mnemonics)),
		DistinctOperands:  uint32(len(sum.Operands)),
		TotalOperators:    uint32(sum.LOC),
	}
	if h.DistinctOperands == 0 {
		return h
	}
	for _, n := range sum.Operands {
		h.TotalOperands += uint32(n)
	}
	h.Calculate()
	return h
}
