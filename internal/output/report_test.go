package output

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/models"
)

func sampleModule() *models.ModuleMetrics {
	return &models.ModuleMetrics{
		Path:         "hello.lst",
		RoutineCount: 2,
		TotalLOC:     12,
		CCTotal:      3,
		Routines: map[string]*models.RoutineMetrics{
			"main":   {Name: "main", Entry: 0x401000, LOC: 9, CC: 2, Jilb: 0.22},
			"helper": {Name: "helper", Entry: 0x401030, LOC: 3, CC: 1},
		},
		Skipped: []models.SkippedRoutine{
			{Name: "broken", Entry: 0x500, Reason: "unreadable instruction"},
		},
	}
}

func TestBuildModuleReport(t *testing.T) {
	rep := BuildModuleReport(sampleModule(), config.AllMetrics())
	if len(rep.Sections) != 2 {
		t.Fatalf("sections = %d, want routine table and summary", len(rep.Sections))
	}
	table, ok := rep.Sections[0].(*Table)
	if !ok {
		t.Fatalf("first section is %T, want table", rep.Sections[0])
	}
	if len(table.Headers) != len(config.MetricKeys)+1 {
		t.Errorf("headers = %d, want %d", len(table.Headers), len(config.MetricKeys)+1)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	// Entry-address order puts main first.
	if table.Rows[0][0] != "main" || table.Rows[1][0] != "helper" {
		t.Errorf("row order = %q, %q", table.Rows[0][0], table.Rows[1][0])
	}
}

func TestBuildModuleReportRestricted(t *testing.T) {
	sel, err := config.ParseMetricSet("loc,cc")
	if err != nil {
		t.Fatal(err)
	}
	rep := BuildModuleReport(sampleModule(), sel)
	table := rep.Sections[0].(*Table)
	want := []string{"ROUTINE", "LOC", "CC"}
	if len(table.Headers) != len(want) {
		t.Fatalf("headers = %v, want %v", table.Headers, want)
	}
	for i := range want {
		if table.Headers[i] != want[i] {
			t.Errorf("headers = %v, want %v", table.Headers, want)
			break
		}
	}
}

func TestModuleSummarySkipped(t *testing.T) {
	sec := moduleSummary(sampleModule(), config.AllMetrics())
	if !strings.Contains(sec.Content, "skipped broken @0x500: unreadable instruction") {
		t.Errorf("summary missing skipped note:\n%s", sec.Content)
	}
	if !strings.Contains(sec.Content, "routines:") {
		t.Errorf("summary missing routine count:\n%s", sec.Content)
	}
}

func TestModuleCSV(t *testing.T) {
	if len(csvHeader) != 30 {
		t.Fatalf("csv header has %d columns, want 30", len(csvHeader))
	}
	rm := &models.RoutineMetrics{Name: "main"}
	if got := len(csvRow(rm)); got != len(csvHeader) {
		t.Fatalf("csv row has %d columns, want %d", got, len(csvHeader))
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := (ModuleCSV{sampleModule()}).RenderCSV(w); err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}
	w.Flush()

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header plus 2 routines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "function name,lines of code") {
		t.Errorf("header = %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "main,9.00") {
		t.Errorf("first row = %s", lines[1])
	}
}

func TestBuildGraphSection(t *testing.T) {
	g := flow.Graph{
		0x100: {0x102, 0x104},
		0x102: {0x105},
		0x104: {0x105},
		0x105: nil,
	}
	sec := BuildGraphSection("main", g)
	if !strings.Contains(sec.Title, "main") {
		t.Errorf("title = %q", sec.Title)
	}
	if !strings.Contains(sec.Content, "-> .") {
		t.Errorf("terminal node missing from:\n%s", sec.Content)
	}
	if !strings.Contains(sec.Content, "0x102, 0x104") {
		t.Errorf("successor list missing from:\n%s", sec.Content)
	}
}
