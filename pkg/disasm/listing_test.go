package disasm

import (
	"path/filepath"
	"testing"
)

func loadSample(t *testing.T) *Listing {
	t.Helper()
	lst, err := Load(filepath.Join("testdata", "sample.lst"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return lst
}

func TestParseRoutines(t *testing.T) {
	lst := loadSample(t)

	entries := lst.Routines()
	if len(entries) != 2 {
		t.Fatalf("expected 2 routines, got %d", len(entries))
	}
	if entries[0] != 0x401000 || entries[1] != 0x401030 {
		t.Errorf("unexpected entries: %v", entries)
	}
	if name := lst.RoutineName(0x401000); name != "main" {
		t.Errorf("expected main, got %q", name)
	}
	if name := lst.RoutineName(0x999); name != "sub_999" {
		t.Errorf("expected fallback name, got %q", name)
	}

	chunks, err := lst.ChunksOf(0x401000)
	if err != nil {
		t.Fatalf("ChunksOf failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := Chunk{Start: 0x401000, End: 0x40101d}
	if chunks[0] != want {
		t.Errorf("chunk = %+v, want %+v", chunks[0], want)
	}
	if heads := lst.Heads(chunks[0]); len(heads) != 8 {
		t.Errorf("expected 8 instructions in main, got %d", len(heads))
	}

	if len(lst.Fingerprint) != 64 {
		t.Errorf("fingerprint should be a blake3 hex digest, got %q", lst.Fingerprint)
	}
}

func TestParseClassification(t *testing.T) {
	lst := loadSample(t)

	tests := []struct {
		addr Address
		kind Kind
	}{
		{0x401001, KindAssign},
		{0x401004, KindCompare},
		{0x401008, KindCondBranch},
		{0x40100a, KindCall},
		{0x40100f, KindOther},
		{0x401035, KindUncondBranch},
	}
	for _, tt := range tests {
		kind, err := lst.Classify(tt.addr)
		if err != nil {
			t.Fatalf("Classify(%s) failed: %v", tt.addr, err)
		}
		if kind != tt.kind {
			t.Errorf("Classify(%s) = %v, want %v", tt.addr, kind, tt.kind)
		}
	}

	if _, err := lst.Classify(0x500000); err == nil {
		t.Error("expected error for unknown address")
	}
}

func TestParseCodeRefs(t *testing.T) {
	lst := loadSample(t)

	refs, err := lst.CodeRefsFrom(0x401008)
	if err != nil {
		t.Fatalf("CodeRefsFrom failed: %v", err)
	}
	if len(refs) != 1 || refs[0] != 0x401010 {
		t.Errorf("jne refs = %v, want [0x401010]", refs)
	}

	refs, err = lst.CodeRefsFrom(0x40100a)
	if err != nil {
		t.Fatalf("CodeRefsFrom failed: %v", err)
	}
	if len(refs) != 1 || refs[0] != 0x401030 {
		t.Errorf("call refs = %v, want [0x401030]", refs)
	}

	sites := lst.CallRefsTo(0x401030)
	if len(sites) != 1 || sites[0] != 0x40100a {
		t.Errorf("CallRefsTo = %v, want [0x40100a]", sites)
	}
}

func TestParseOperandDecomposition(t *testing.T) {
	lst := loadSample(t)

	ops, err := lst.Operands(0x401004)
	if err != nil {
		t.Fatalf("Operands failed: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("cmp should have 2 operands, got %d", len(ops))
	}
	if ops[0].Kind != OpDispl || ops[0].Base != "rbp" || ops[0].Disp != -4 {
		t.Errorf("frame operand = %+v", ops[0])
	}
	if got := VarName(ops[0]); got != "var_4" {
		t.Errorf("VarName = %q, want var_4", got)
	}
	if ops[1].Kind != OpImm || ops[1].Value != 1 {
		t.Errorf("immediate operand = %+v", ops[1])
	}

	ops, err = lst.Operands(0x401010)
	if err != nil {
		t.Fatalf("Operands failed: %v", err)
	}
	if ops[0].Kind != OpReg || ops[0].Base != "eax" {
		t.Errorf("register operand = %+v", ops[0])
	}
	if ops[1].Kind != OpMem || ops[1].Symbol != "counter" || ops[1].Value != 0x404040 {
		t.Errorf("rip-relative operand = %+v", ops[1])
	}

	// Both rip-relative accesses reference the same datum.
	if refs := lst.DataRefsTo(0x404040); len(refs) != 2 {
		t.Errorf("DataRefsTo = %v, want 2 sites", refs)
	}

	ops, err = lst.Operands(0x401035)
	if err != nil {
		t.Fatalf("Operands failed: %v", err)
	}
	if ops[0].Kind != OpDispl || ops[0].Index != "rax" || ops[0].Scale != 4 || ops[0].Disp != 0x41d1c8 {
		t.Errorf("dispatch operand = %+v", ops[0])
	}
}

func TestParseFlowAndSwitch(t *testing.T) {
	lst := loadSample(t)

	if lst.IsFlow(0x401000) {
		t.Error("routine entry cannot be reached by fallthrough")
	}
	if !lst.IsFlow(0x401010) {
		t.Error("0x401010 follows a nop and should be flow-reachable")
	}
	if lst.IsFlow(0x40103c) {
		t.Error("0x40103c follows an indirect jmp and is not flow-reachable")
	}

	sw := lst.SwitchInfo(0x401035)
	if sw == nil || sw.Cases != 3 || sw.Table != 0x401035 {
		t.Errorf("SwitchInfo = %+v, want 3 cases", sw)
	}
	if lst.SwitchInfo(0x401000) != nil {
		t.Error("push has no switch info")
	}

	next, ok := lst.NextHead(0x401008)
	if !ok || next != 0x40100a {
		t.Errorf("NextHead = %s, %v", next, ok)
	}
	prev, ok := lst.PrevHead(0x401010)
	if !ok || prev != 0x40100f {
		t.Errorf("PrevHead = %s, %v", prev, ok)
	}
	if _, ok := lst.PrevHead(0x401030); ok {
		t.Error("entry has no predecessor")
	}
}
