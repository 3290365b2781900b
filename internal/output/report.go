package output

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/models"
)

// column describes one selectable routine-table column.
type column struct {
	key    string
	header string
	value  func(*models.RoutineMetrics) string
}

func d(n int) string      { return fmt.Sprintf("%d", n) }
func f2(v float64) string { return fmt.Sprintf("%.2f", v) }

var columns = []column{
	{"loc", "LOC", func(r *models.RoutineMetrics) string { return d(r.LOC) }},
	{"bbls", "BBLS", func(r *models.RoutineMetrics) string { return d(r.Blocks) }},
	{"calls", "CALLS", func(r *models.RoutineMetrics) string { return d(r.Calls) }},
	{"condit", "CONDIT", func(r *models.RoutineMetrics) string { return d(r.Conditions) }},
	{"assign", "ASSIGN", func(r *models.RoutineMetrics) string { return d(r.Assignments) }},
	{"cc", "CC", func(r *models.RoutineMetrics) string { return d(r.CC) }},
	{"cc_mod", "CC'", func(r *models.RoutineMetrics) string { return d(r.CCMod) }},
	{"jilb", "JILB", func(r *models.RoutineMetrics) string { return f2(r.Jilb) }},
	{"abc", "ABC", func(r *models.RoutineMetrics) string { return f2(r.ABC) }},
	{"pivovarsky", "PIVOVARSKY", func(r *models.RoutineMetrics) string { return f2(r.Pivovarsky) }},
	{"halstead", "HALSTEAD.B", func(r *models.RoutineMetrics) string { return f2(r.Halstead.Bugs) }},
	{"harrison", "HARRISON", func(r *models.RoutineMetrics) string { return f2(r.Harrison) }},
	{"boundary", "BOUNDARY", func(r *models.RoutineMetrics) string { return f2(r.BoundaryValue) }},
	{"span", "SPAN", func(r *models.RoutineMetrics) string { return d(r.Span) }},
	{"global", "GLOBAL", func(r *models.RoutineMetrics) string { return f2(r.GlobalRatio) }},
	{"oviedo", "OVIEDO", func(r *models.RoutineMetrics) string { return d(r.Oviedo) }},
	{"chepin", "CHEPIN", func(r *models.RoutineMetrics) string { return d(r.Chepin) }},
	{"card_glass", "C&G", func(r *models.RoutineMetrics) string { return f2(r.CardGlass) }},
	{"henry_cafura", "H&C", func(r *models.RoutineMetrics) string { return f2(r.HenryCafura) }},
	{"cocol", "COCOL", func(r *models.RoutineMetrics) string { return f2(r.Cocol) }},
}

// sortedRoutines orders a module's routines by entry address.
func sortedRoutines(mod *models.ModuleMetrics) []*models.RoutineMetrics {
	out := make([]*models.RoutineMetrics, 0, len(mod.Routines))
	for _, rm := range mod.Routines {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry < out[j].Entry })
	return out
}

// BuildModuleReport assembles the renderable report for one module: the
// per-routine table restricted to the selected metrics, followed by the
// module summary.
func BuildModuleReport(mod *models.ModuleMetrics, sel config.MetricSet) *Report {
	active := make([]column, 0, len(columns))
	for _, c := range columns {
		if sel.Enabled(c.key) {
			active = append(active, c)
		}
	}

	headers := make([]string, 0, len(active)+1)
	headers = append(headers, "ROUTINE")
	for _, c := range active {
		headers = append(headers, c.header)
	}

	routines := sortedRoutines(mod)
	rows := make([][]string, 0, len(routines))
	for _, rm := range routines {
		row := make([]string, 0, len(active)+1)
		row = append(row, rm.Name)
		for _, c := range active {
			row = append(row, c.value(rm))
		}
		rows = append(rows, row)
	}

	return &Report{
		Title: "Module " + mod.Path,
		Sections: []Renderable{
			NewTable("Routines", headers, rows, nil, routines),
			moduleSummary(mod, sel),
		},
		Data: mod,
	}
}

func moduleSummary(mod *models.ModuleMetrics, sel config.MetricSet) *Section {
	var b strings.Builder
	line := func(enabled bool, name, value string) {
		if enabled {
			fmt.Fprintf(&b, "%-22s %s\n", name+":", value)
		}
	}

	line(true, "routines", d(mod.RoutineCount))
	line(sel.LOC, "total LOC", d(mod.TotalLOC))
	line(sel.LOC, "average LOC", f2(mod.AverageLOC))
	line(sel.Blocks, "total basic blocks", d(mod.TotalBlocks))
	line(sel.Conditions, "total conditions", d(mod.Conditions))
	line(sel.Calls, "total calls", d(mod.Calls))
	line(sel.Assignments, "total assignments", d(mod.Assignments))
	line(sel.CC, "total CC", d(mod.CCTotal))
	line(sel.CCMod, "total CC'", d(mod.CCModTotal))
	line(sel.Jilb, "total Jilb", f2(mod.JilbTotal))
	line(sel.ABC, "total ABC", f2(mod.ABCTotal))
	line(sel.Halstead, "Halstead volume", f2(mod.HalsteadTotal.Volume))
	line(sel.Halstead, "Halstead bugs", f2(mod.HalsteadTotal.Bugs))
	line(sel.Pivovarsky, "total Pivovarsky", f2(mod.PivovarskyTotal))
	line(sel.Harrison, "total Harrison", f2(mod.HarrisonTotal))
	line(sel.Boundary, "total boundary value", f2(mod.BoundaryTotal))
	line(sel.Span, "total span", d(mod.SpanTotal))
	line(sel.Global, "total global ratio", f2(mod.GlobalTotal))
	line(sel.Oviedo, "total Oviedo", d(mod.OviedoTotal))
	line(sel.Chepin, "total Chepin", d(mod.ChepinTotal))
	line(sel.HenryCafura, "total Henry&Cafura", f2(mod.HenryCafuraTotal))
	line(sel.CardGlass, "total Card&Glass", f2(mod.CardGlassTotal))
	line(sel.Cocol, "total Cocol", f2(mod.CocolTotal))
	line(sel.CC, "CC mean/p90", fmt.Sprintf("%.2f / %.2f", mod.CCSpread.Mean, mod.CCSpread.P90))
	line(sel.LOC, "LOC mean/p90", fmt.Sprintf("%.2f / %.2f", mod.LOCSpread.Mean, mod.LOCSpread.P90))

	for _, sk := range mod.Skipped {
		fmt.Fprintf(&b, "skipped %s @0x%x: %s\n", sk.Name, sk.Entry, sk.Reason)
	}

	return &Section{Title: "Summary", Content: strings.TrimRight(b.String(), "\n"), Data: mod}
}

// csvHeader is the classic flat column set, one row per routine.
var csvHeader = []string{
	"function name",
	"lines of code",
	"basic blocks (#)",
	"condition count (#)",
	"calls count (#)",
	"assignments count (#)",
	"cyclomatic complexity",
	"cyclomatic complexity modified",
	"jilb's metric",
	"abc",
	"r count",
	"halstead.b",
	"halstead.e",
	"halstead.d",
	"halstead.n*",
	"halstead.v",
	"halstead.N1",
	"halstead.N2",
	"halstead.n1",
	"halstead.n2",
	"pivovarsky",
	"harrison",
	"cocol metric",
	"boundary value",
	"span metric",
	"global vars metric",
	"oviedo metric",
	"chepin metric",
	"cardnglass metric",
	"henryncafura metric",
}

// ModuleCSV renders one or more modules as flat per-routine rows.
type ModuleCSV []*models.ModuleMetrics

func (m ModuleCSV) RenderCSV(w *csv.Writer) error {
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, mod := range m {
		for _, rm := range sortedRoutines(mod) {
			if err := w.Write(csvRow(rm)); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvRow(r *models.RoutineMetrics) []string {
	return []string{
		r.Name,
		f2(float64(r.LOC)),
		f2(float64(r.Blocks)),
		f2(float64(r.Conditions)),
		f2(float64(r.Calls)),
		f2(float64(r.Assignments)),
		f2(float64(r.CC)),
		f2(float64(r.CCMod)),
		f2(r.Jilb),
		f2(r.ABC),
		f2(r.R),
		f2(r.Halstead.Bugs),
		f2(r.Halstead.Effort),
		f2(r.Halstead.Difficulty),
		f2(r.Halstead.Vocabulary),
		f2(r.Halstead.Volume),
		f2(float64(r.Halstead.TotalOperators)),
		f2(float64(r.Halstead.TotalOperands)),
		f2(float64(r.Halstead.DistinctOperators)),
		f2(float64(r.Halstead.DistinctOperands)),
		f2(r.Pivovarsky),
		f2(r.Harrison),
		f2(r.Cocol),
		f2(r.BoundaryValue),
		f2(float64(r.Span)),
		f2(r.GlobalRatio),
		f2(float64(r.Oviedo)),
		f2(float64(r.Chepin)),
		f2(r.CardGlass),
		f2(r.HenryCafura),
	}
}

// BuildGraphSection renders a routine's node graph as an adjacency list.
func BuildGraphSection(name string, g flow.Graph) *Section {
	var b strings.Builder
	for _, node := range g.Nodes() {
		succs := g[node]
		if len(succs) == 0 {
			fmt.Fprintf(&b, "%s -> .\n", node)
			continue
		}
		parts := make([]string, len(succs))
		for i, s := range succs {
			parts[i] = s.String()
		}
		fmt.Fprintf(&b, "%s -> %s\n", node, strings.Join(parts, ", "))
	}
	return &Section{
		Title:   "Graph " + name,
		Content: strings.TrimRight(b.String(), "\n"),
		Data:    g,
	}
}
