package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/disasm"
	"github.com/arcusfield/haruspex/pkg/disasm/disasmtest"
)

func reg(name string) disasm.Operand {
	return disasm.Operand{Text: name, Kind: disasm.OpReg, Base: name}
}

func imm(text string, v uint64) disasm.Operand {
	return disasm.Operand{Text: text, Kind: disasm.OpImm, Value: v}
}

// moduleFake scripts two routines: a diamond-shaped one touching a global,
// and a straight-line leaf.
func moduleFake() *disasmtest.Fake {
	counter := disasm.Operand{Text: "ds:0x404040", Kind: disasm.OpMem, Value: 0x404040, Symbol: "counter"}
	f := disasmtest.New(
		[]disasmtest.Routine{
			{Name: "diamond", Chunks: []disasm.Chunk{{Start: 0x100, End: 0x106}}},
			{Name: "leaf", Chunks: []disasm.Chunk{{Start: 0x200, End: 0x202}}},
		},
		[]disasmtest.Insn{
			{Addr: 0x100, Mnemonic: "cmp", Kind: disasm.KindCompare, Operands: []disasm.Operand{reg("eax"), imm("0x1", 1)}},
			{Addr: 0x101, Mnemonic: "jne", Kind: disasm.KindCondBranch, Refs: []disasm.Address{0x104}},
			{Addr: 0x102, Mnemonic: "mov", Kind: disasm.KindAssign, Operands: []disasm.Operand{reg("eax"), imm("0x1", 1)}},
			{Addr: 0x103, Mnemonic: "jmp", Kind: disasm.KindUncondBranch, Refs: []disasm.Address{0x105}, NoFlow: true},
			{Addr: 0x104, Mnemonic: "mov", Kind: disasm.KindAssign, Operands: []disasm.Operand{reg("eax"), counter}},
			{Addr: 0x105, Mnemonic: "ret", Kind: disasm.KindOther, NoFlow: true},

			{Addr: 0x200, Mnemonic: "mov", Kind: disasm.KindAssign, Operands: []disasm.Operand{reg("eax"), imm("0x0", 0)}},
			{Addr: 0x201, Mnemonic: "ret", Kind: disasm.KindOther, NoFlow: true},
		},
	)
	// Two referencing sites make the datum module-global.
	f.AddDataRef(0x404040, 0x104)
	f.AddDataRef(0x404040, 0x9999)
	return f
}

func TestAnalyzeModuleAllMetrics(t *testing.T) {
	f := moduleFake()
	a := New(config.DefaultConfig())
	mod, err := a.AnalyzeModule(context.Background(), f, f, "fake")
	if err != nil {
		t.Fatalf("AnalyzeModule failed: %v", err)
	}

	if mod.RoutineCount != 2 {
		t.Fatalf("RoutineCount = %d, want 2", mod.RoutineCount)
	}
	d, ok := mod.Routines["diamond"]
	if !ok {
		t.Fatal("missing diamond routine")
	}
	if d.LOC != 6 || d.Blocks != 4 || d.Conditions != 1 || d.Assignments != 2 {
		t.Errorf("diamond counts = LOC %d bbls %d cond %d assign %d, want 6/4/1/2",
			d.LOC, d.Blocks, d.Conditions, d.Assignments)
	}
	if d.CC != 2 || d.CCMod != 2 {
		t.Errorf("diamond CC/CCMod = %d/%d, want 2/2", d.CC, d.CCMod)
	}
	if d.R != 1.0 {
		t.Errorf("diamond R = %v, want 1.0", d.R)
	}
	if d.Harrison != 10 {
		t.Errorf("diamond Harrison = %v, want 10", d.Harrison)
	}
	if d.BoundaryValue != 4 {
		t.Errorf("diamond BoundaryValue = %v, want 4", d.BoundaryValue)
	}
	// CCMod plus the branch node's subgraph.
	if d.Pivovarsky != 5 {
		t.Errorf("diamond Pivovarsky = %v, want 5", d.Pivovarsky)
	}
	if d.Span != 1 {
		t.Errorf("diamond Span = %v, want 1", d.Span)
	}
	if d.GlobalAccess != 1 {
		t.Errorf("diamond GlobalAccess = %d, want 1", d.GlobalAccess)
	}
	if d.GlobalRatio != 1.0 {
		t.Errorf("diamond GlobalRatio = %v, want 1.0", d.GlobalRatio)
	}
	if d.Oviedo != 4 {
		t.Errorf("diamond Oviedo = %d, want 4", d.Oviedo)
	}
	if want := d.Halstead.Bugs + float64(d.CC+d.LOC); d.Cocol != want {
		t.Errorf("diamond Cocol = %v, want %v", d.Cocol, want)
	}

	l := mod.Routines["leaf"]
	if l == nil || l.LOC != 2 || l.CC != 1 {
		t.Errorf("leaf = %+v, want LOC 2 CC 1", l)
	}
	if l.GlobalRatio != 0 {
		t.Errorf("leaf GlobalRatio = %v, want 0", l.GlobalRatio)
	}

	if mod.TotalLOC != 8 || mod.CCTotal != 3 {
		t.Errorf("totals = LOC %d CC %d, want 8/3", mod.TotalLOC, mod.CCTotal)
	}
	if mod.AverageLOC != 4 {
		t.Errorf("AverageLOC = %v, want 4", mod.AverageLOC)
	}
	if mod.CCSpread.Max != 2 {
		t.Errorf("CCSpread.Max = %v, want 2", mod.CCSpread.Max)
	}
	if want := mod.HalsteadTotal.Bugs + float64(mod.CCTotal+mod.TotalLOC); mod.CocolTotal != want {
		t.Errorf("CocolTotal = %v, want %v", mod.CocolTotal, want)
	}
}

func TestAnalyzeModuleGating(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics = config.MetricSet{LOC: true}

	f := moduleFake()
	mod, err := New(cfg).AnalyzeModule(context.Background(), f, f, "fake")
	if err != nil {
		t.Fatalf("AnalyzeModule failed: %v", err)
	}
	d := mod.Routines["diamond"]
	if d.LOC != 6 {
		t.Errorf("LOC = %d, want 6", d.LOC)
	}
	if d.CC != 0 || d.Harrison != 0 || d.Chepin != 0 {
		t.Errorf("unselected metrics leaked: CC %d Harrison %v Chepin %d", d.CC, d.Harrison, d.Chepin)
	}
	// R is the one metric computed unconditionally.
	if d.R != 1.0 {
		t.Errorf("R = %v, want 1.0", d.R)
	}
}

func TestAnalyzeModuleCocolOnly(t *testing.T) {
	// Cocol alone must match what a full run produces, per routine and for
	// the module total, even though cc, loc and Halstead stay gated off.
	f := moduleFake()
	full, err := New(config.DefaultConfig()).AnalyzeModule(context.Background(), f, f, "fake")
	if err != nil {
		t.Fatalf("AnalyzeModule failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Metrics = config.MetricSet{Cocol: true}
	mod, err := New(cfg).AnalyzeModule(context.Background(), f, f, "fake")
	if err != nil {
		t.Fatalf("AnalyzeModule failed: %v", err)
	}

	d := mod.Routines["diamond"]
	if d.CC != 0 || d.LOC != 0 || d.Halstead.TotalOperands != 0 {
		t.Errorf("unselected metrics leaked: CC %d LOC %d operands %d",
			d.CC, d.LOC, d.Halstead.TotalOperands)
	}
	if d.Cocol == 0 || d.Cocol != full.Routines["diamond"].Cocol {
		t.Errorf("diamond Cocol = %v, want %v", d.Cocol, full.Routines["diamond"].Cocol)
	}
	if mod.CocolTotal == 0 || mod.CocolTotal != full.CocolTotal {
		t.Errorf("CocolTotal = %v, want %v", mod.CocolTotal, full.CocolTotal)
	}
}

type failingClassifier struct {
	*disasmtest.Fake
	bad disasm.Address
}

func (f failingClassifier) Classify(addr disasm.Address) (disasm.Kind, error) {
	if addr == f.bad {
		return 0, errors.New("unreadable instruction")
	}
	return f.Fake.Classify(addr)
}

func TestAnalyzeModuleSkipsFailedRoutine(t *testing.T) {
	f := moduleFake()
	cls := failingClassifier{Fake: f, bad: 0x102}

	mod, err := New(nil).AnalyzeModule(context.Background(), cls, f, "fake")
	if err != nil {
		t.Fatalf("AnalyzeModule failed: %v", err)
	}
	if mod.RoutineCount != 1 {
		t.Errorf("RoutineCount = %d, want 1", mod.RoutineCount)
	}
	if _, ok := mod.Routines["leaf"]; !ok {
		t.Error("leaf must survive the diamond's failure")
	}
	if len(mod.Skipped) != 1 || mod.Skipped[0].Name != "diamond" {
		t.Fatalf("Skipped = %+v, want the diamond", mod.Skipped)
	}
}

func TestAnalyzeModuleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := moduleFake()
	if _, err := New(nil).AnalyzeModule(ctx, f, f, "fake"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRoutineGraph(t *testing.T) {
	f := moduleFake()
	a := New(nil)
	g, err := a.RoutineGraph(f, f, "diamond")
	if err != nil {
		t.Fatalf("RoutineGraph failed: %v", err)
	}
	if len(g) != 4 {
		t.Errorf("graph = %v, want 4 nodes", g)
	}
	if _, err := a.RoutineGraph(f, f, "nonesuch"); err == nil {
		t.Error("expected error for unknown routine")
	}
}

func TestRoutineNames(t *testing.T) {
	names := RoutineNames(moduleFake())
	if len(names) != 2 || names[0] != "diamond" || names[1] != "leaf" {
		t.Errorf("RoutineNames = %v, want [diamond leaf]", names)
	}
}

func TestAnalyzeListingSample(t *testing.T) {
	lst, err := disasm.Load("../disasm/testdata/sample.lst")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	mod, err := New(nil).AnalyzeListing(context.Background(), lst)
	if err != nil {
		t.Fatalf("AnalyzeListing failed: %v", err)
	}
	if mod.Fingerprint != lst.Fingerprint {
		t.Errorf("fingerprint not carried over")
	}
	if len(mod.Skipped) != 0 {
		t.Fatalf("Skipped = %+v, want none", mod.Skipped)
	}
	if mod.RoutineCount != 2 {
		t.Fatalf("RoutineCount = %d, want 2", mod.RoutineCount)
	}
	m := mod.Routines["main"]
	if m == nil {
		t.Fatal("missing main")
	}
	if m.LOC != 9 {
		t.Errorf("main LOC = %d, want 9", m.LOC)
	}
	if m.CC < 2 {
		t.Errorf("main CC = %d, want a branch to register", m.CC)
	}
}

func TestTracker(t *testing.T) {
	var ticks, lastTotal int
	tr := NewTracker(func(current, total int, name string) {
		ticks++
		lastTotal = total
	})
	f := moduleFake()
	ctx := WithTracker(context.Background(), tr)
	if _, err := New(nil).AnalyzeModule(ctx, f, f, "fake"); err != nil {
		t.Fatalf("AnalyzeModule failed: %v", err)
	}
	if ticks != 2 {
		t.Errorf("ticks = %d, want 2", ticks)
	}
	if lastTotal != 2 {
		t.Errorf("total = %d, want 2", lastTotal)
	}
}
