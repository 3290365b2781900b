// Package analyzer orchestrates the per-routine metric pipeline and the
// module-level aggregation over a disassembly listing.
package analyzer

import (
	"context"
	"errors"
	"sort"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/analyzer/metrics"
	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/disasm"
	"github.com/arcusfield/haruspex/pkg/models"
)

// Analyzer computes the configured metric set for every routine of a module.
type Analyzer struct {
	cfg *config.Config
}

// New creates an analyzer with the given configuration.
func New(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Analyzer{cfg: cfg}
}

// AnalyzeListing analyzes one loaded listing as a module.
func (a *Analyzer) AnalyzeListing(ctx context.Context, lst *disasm.Listing) (*models.ModuleMetrics, error) {
	mod, err := a.AnalyzeModule(ctx, lst, lst, lst.Path)
	if err != nil {
		return nil, err
	}
	mod.Fingerprint = lst.Fingerprint
	return mod, nil
}

// AnalyzeModule walks every routine the symbol provider knows, in program
// order, and aggregates the results. A routine that fails analysis is
// recorded as skipped and does not contribute to module totals; the module
// itself only fails when the context is canceled.
func (a *Analyzer) AnalyzeModule(ctx context.Context, cls disasm.Classifier, sym disasm.Symbols, path string) (*models.ModuleMetrics, error) {
	mod := &models.ModuleMetrics{
		Path:     path,
		Routines: make(map[string]*models.RoutineMetrics),
	}
	tracker := TrackerFromContext(ctx)
	entries := sym.Routines()
	if tracker != nil {
		tracker.Add(len(entries))
	}

	moduleGlobals := make(map[string]struct{})
	var done []routineOutcome

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := sym.RoutineName(entry)
		rc, sum, err := a.analyzeRoutine(cls, sym, entry)
		if tracker != nil {
			tracker.Tick(name)
		}
		if err != nil {
			mod.Skipped = append(mod.Skipped, models.SkippedRoutine{
				Name:   name,
				Entry:  uint64(entry),
				Reason: err.Error(),
			})
			continue
		}
		// Globals join the module-wide table only once the routine has
		// fully succeeded.
		for g := range sum.Globals {
			moduleGlobals[g] = struct{}{}
		}
		mod.Routines[name] = rc.rm
		done = append(done, rc)
	}

	if a.cfg.Metrics.Global {
		for _, rc := range done {
			if len(moduleGlobals) > 0 {
				rc.rm.GlobalRatio = float64(rc.rm.GlobalAccess) / float64(len(moduleGlobals))
			}
		}
	}

	aggregate(mod, done, a.cfg.Metrics)
	return mod, nil
}

// routineOutcome pairs a routine's gated record with the ungated values
// feeding the module composites. Deselecting cc or loc zeroes the record
// fields only; the module Cocol still sums the underlying values.
type routineOutcome struct {
	rm       *models.RoutineMetrics
	loc      int
	cc       int
	halstead models.HalsteadMetrics
}

// analyzeRoutine runs the flow, partition, graph and metric stages for one
// routine. Any stage error aborts the routine.
func (a *Analyzer) analyzeRoutine(cls disasm.Classifier, sym disasm.Symbols, entry disasm.Address) (routineOutcome, *flow.Summary, error) {
	sum, err := flow.NewBuilder(cls, sym).Build(entry)
	if err != nil {
		return routineOutcome{}, nil, err
	}
	blocks, err := flow.Partition(sum, cls, sym)
	if err != nil {
		return routineOutcome{}, nil, err
	}
	graph, err := flow.BuildGraph(sum, blocks)
	if err != nil {
		return routineOutcome{}, nil, err
	}
	sizes := flow.BlockSizes(blocks)

	sel := a.cfg.Metrics
	rm := &models.RoutineMetrics{
		Name:  sym.RoutineName(entry),
		Entry: uint64(entry),
		R:     metrics.RatioR(sum),
	}

	if sel.LOC {
		rm.LOC = sum.LOC
	}
	if sel.Blocks {
		rm.Blocks = int(sum.Boundaries.GetCardinality())
	}
	if sel.Calls {
		rm.Calls = sum.Calls
	}
	if sel.Conditions {
		rm.Conditions = sum.Conditions
	}
	if sel.Assignments {
		rm.Assignments = sum.Assignments
	}
	if sel.Jilb {
		rm.Jilb = metrics.Jilb(sum)
	}
	if sel.ABC {
		rm.ABC = metrics.ABC(sum)
	}

	var cc int
	if sel.NeedCC() {
		cc = metrics.Cyclomatic(sum)
	}
	if sel.CC {
		rm.CC = cc
	}
	if sel.CCMod {
		rm.CCMod = metrics.CyclomaticModified(sum)
	}

	var halstead models.HalsteadMetrics
	if sel.NeedHalstead() {
		halstead = metrics.Halstead(sum)
	}
	if sel.Halstead {
		rm.Halstead = halstead
	}

	if sel.Pivovarsky {
		rm.Pivovarsky = float64(metrics.CyclomaticModified(sum)) + metrics.PivovarskyPi(graph)
	}
	if sel.Harrison {
		rm.Harrison = metrics.Harrison(graph, sizes)
	}
	if sel.Boundary {
		rm.BoundaryValue = metrics.BoundaryValue(graph)
	}
	if sel.Span {
		rm.Span = metrics.Span(blocks, cls)
	}
	if sel.Global {
		rm.GlobalAccess = sum.GlobalAccess
	}
	if sel.Oviedo {
		rm.Oviedo = metrics.Oviedo(sum, cls)
	}

	var args []string
	var argCount int
	if sel.Chepin || sel.NeedFan() {
		args, argCount = metrics.ArgumentVars(sum, cls, sym, entry, a.argSize())
	}
	if sel.Chepin {
		rm.Chepin = metrics.Chepin(sum, cls, args, argCount)
	}
	if sel.NeedFan() {
		fan := metrics.Fan(sum, cls, sym, entry, args)
		if sel.HenryCafura {
			rm.HenryCafura = metrics.HenryCafura(cc, fan)
		}
		if sel.CardGlass {
			rm.CardGlass = metrics.CardGlass(fan, argCount)
		}
	}
	if sel.Cocol {
		rm.Cocol = halstead.Bugs + float64(cc) + float64(sum.LOC)
	}
	return routineOutcome{rm: rm, loc: sum.LOC, cc: cc, halstead: halstead}, sum, nil
}

func (a *Analyzer) argSize() int {
	if a.cfg.Analysis.ArgSize > 0 {
		return a.cfg.Analysis.ArgSize
	}
	return 4
}

// RoutineGraph rebuilds the node graph for a single named routine. Used by
// the graph command and the MCP surface.
func (a *Analyzer) RoutineGraph(cls disasm.Classifier, sym disasm.Symbols, name string) (flow.Graph, error) {
	for _, entry := range sym.Routines() {
		if sym.RoutineName(entry) != name {
			continue
		}
		sum, err := flow.NewBuilder(cls, sym).Build(entry)
		if err != nil {
			return nil, err
		}
		blocks, err := flow.Partition(sum, cls, sym)
		if err != nil {
			return nil, err
		}
		return flow.BuildGraph(sum, blocks)
	}
	return nil, errors.New("no such routine: " + name)
}

// RoutineNames returns every routine name in program order.
func RoutineNames(sym disasm.Symbols) []string {
	entries := sym.Routines()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, sym.RoutineName(e))
	}
	return names
}

// SortedRoutines returns the module's routines ordered by entry address.
func SortedRoutines(mod *models.ModuleMetrics) []*models.RoutineMetrics {
	out := make([]*models.RoutineMetrics, 0, len(mod.Routines))
	for _, rm := range mod.Routines {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry < out[j].Entry })
	return out
}
