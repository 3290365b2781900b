package analyzer

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/models"
)

// aggregate folds the per-routine records into the module totals. Halstead
// derived values are recomputed once from the summed base counts rather than
// summed themselves. The module Cocol is built from the ungated loc, cc and
// Halstead values each outcome carries, so it survives selections that
// deselect its inputs.
func aggregate(mod *models.ModuleMetrics, routines []routineOutcome, sel config.MetricSet) {
	mod.RoutineCount = len(routines)
	if len(routines) == 0 {
		return
	}

	ccs := make([]float64, 0, len(routines))
	locs := make([]float64, 0, len(routines))

	var cocolLOC, cocolCC int
	var cocolHalstead models.HalsteadMetrics

	for _, rc := range routines {
		rm := rc.rm
		cocolLOC += rc.loc
		cocolCC += rc.cc
		cocolHalstead.Add(rc.halstead)

		mod.TotalLOC += rm.LOC
		mod.TotalBlocks += rm.Blocks
		mod.Conditions += rm.Conditions
		mod.Calls += rm.Calls
		mod.Assignments += rm.Assignments

		mod.RTotal += rm.R
		mod.CCTotal += rm.CC
		mod.CCModTotal += rm.CCMod
		mod.JilbTotal += rm.Jilb
		mod.ABCTotal += rm.ABC

		mod.HalsteadTotal.Add(rm.Halstead)

		mod.PivovarskyTotal += rm.Pivovarsky
		mod.HarrisonTotal += rm.Harrison
		mod.BoundaryTotal += rm.BoundaryValue
		mod.SpanTotal += rm.Span
		mod.GlobalTotal += rm.GlobalRatio
		mod.OviedoTotal += rm.Oviedo
		mod.ChepinTotal += rm.Chepin
		mod.HenryCafuraTotal += rm.HenryCafura
		mod.CardGlassTotal += rm.CardGlass

		ccs = append(ccs, float64(rm.CC))
		locs = append(locs, float64(rm.LOC))
	}

	mod.AverageLOC = float64(mod.TotalLOC) / float64(mod.RoutineCount)
	mod.HalsteadTotal.Calculate()
	if sel.Cocol {
		cocolHalstead.Calculate()
		mod.CocolTotal = cocolHalstead.Bugs + float64(cocolCC) + float64(cocolLOC)
	}

	mod.CCSpread = distribution(ccs)
	mod.LOCSpread = distribution(locs)
}

func distribution(values []float64) models.Distribution {
	sort.Float64s(values)
	return models.Distribution{
		Mean: stat.Mean(values, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, values, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, values, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, values, nil),
		Max:  values[len(values)-1],
	}
}
