// Package flow reconstructs routine-level control flow from a classified
// instruction stream: the edge and boundary sets, the basic-block partition,
// and the block-level node graph the complexity metrics traverse.
package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cespare/xxhash/v2"

	"github.com/arcusfield/haruspex/pkg/disasm"
)

// ErrInvalidAddress marks a classifier answer for an address it cannot
// resolve. ErrUnresolvedEdge marks an edge whose source belongs to no known
// basic block. Both are fatal for the routine under analysis only.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrUnresolvedEdge = errors.New("unresolved graph edge")
)

// Edge is one possible control transfer, fallthrough included.
type Edge struct {
	From disasm.Address
	To   disasm.Address
}

// VarUsage maps a variable identifier to the ordered addresses referencing it.
type VarUsage map[string][]disasm.Address

// Summary is the Control-Flow Builder output for one routine. All fields are
// owned by the routine's analysis and discarded with it; nothing here is
// shared across routines.
type Summary struct {
	Entry  disasm.Address
	Chunks []disasm.Chunk

	LOC         int
	Conditions  int
	Calls       int
	Assignments int

	Edges      map[Edge]struct{}
	Boundaries *roaring64.Bitmap

	Mnemonics map[string]int
	Operands  map[string]int

	// CallSites tallies call instructions by hashed addressing-mode key;
	// its size is the structural fan-out proxy.
	CallSites map[uint64]int

	SwitchTables int
	SwitchCases  int

	// Locals and Globals carry per-routine variable usage. Globals are
	// folded into the module-wide table only after the routine completes.
	Locals       VarUsage
	Globals      VarUsage
	GlobalAccess int
}

// Builder walks a routine's chunks through the classifier contract and
// accumulates the Summary.
type Builder struct {
	cls disasm.Classifier
	sym disasm.Symbols
}

// NewBuilder creates a control-flow builder over the given providers.
func NewBuilder(cls disasm.Classifier, sym disasm.Symbols) *Builder {
	return &Builder{cls: cls, sym: sym}
}

// Build reconstructs control flow for the routine at entry.
func (b *Builder) Build(entry disasm.Address) (*Summary, error) {
	chunks, err := b.sym.ChunksOf(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	sum := &Summary{
		Entry:      entry,
		Chunks:     chunks,
		Edges:      make(map[Edge]struct{}),
		Boundaries: roaring64.New(),
		Mnemonics:  make(map[string]int),
		Operands:   make(map[string]int),
		CallSites:  make(map[uint64]int),
		Locals:     make(VarUsage),
		Globals:    make(VarUsage),
	}
	for _, c := range chunks {
		sum.Boundaries.Add(uint64(c.Start))
	}

	switchSeen := make(map[disasm.Address]bool)
	for _, chunk := range chunks {
		for _, head := range b.sym.Heads(chunk) {
			if err := b.visit(sum, chunks, head, switchSeen); err != nil {
				return nil, err
			}
		}
	}
	return sum, nil
}

func (b *Builder) visit(sum *Summary, chunks []disasm.Chunk, head disasm.Address, switchSeen map[disasm.Address]bool) error {
	sum.LOC++

	rawRefs, err := b.cls.CodeRefsFrom(head)
	if err != nil {
		return fmt.Errorf("%w: refs of %s: %v", ErrInvalidAddress, head, err)
	}
	refs := filterRefs(rawRefs, chunks)

	kind, err := b.cls.Classify(head)
	if err != nil {
		return fmt.Errorf("%w: classify %s: %v", ErrInvalidAddress, head, err)
	}
	switch kind {
	case disasm.KindCondBranch:
		sum.Conditions++
	case disasm.KindCall:
		sum.Calls++
		key, err := b.callSiteKey(head)
		if err != nil {
			return err
		}
		sum.CallSites[key]++
	case disasm.KindAssign:
		sum.Assignments++
	}

	mnem, err := b.cls.Mnemonic(head)
	if err != nil {
		return fmt.Errorf("%w: mnemonic of %s: %v", ErrInvalidAddress, head, err)
	}
	sum.Mnemonics[mnem]++

	if sw := b.cls.SwitchInfo(head); sw != nil && !switchSeen[sw.Table] {
		switchSeen[sw.Table] = true
		sum.SwitchTables++
		sum.SwitchCases += sw.Cases
	}

	if kind != disasm.KindCondBranch && kind != disasm.KindCall {
		ops, err := b.cls.Operands(head)
		if err != nil {
			return fmt.Errorf("%w: operands of %s: %v", ErrInvalidAddress, head, err)
		}
		for _, op := range ops {
			sum.Operands[op.Text]++
			b.recordVariable(sum, head, op)
		}
	}

	if len(refs) == 0 {
		return nil
	}

	// A conditional branch also reaches the next instruction when the
	// condition fails, so the fallthrough joins the reference set.
	if next, ok := b.sym.NextHead(head); ok && b.cls.IsFlow(next) {
		refs[next] = struct{}{}
	}

	for r := range refs {
		sum.Boundaries.Add(uint64(r))
		// Anchor the target's boundary at its flow-reachable predecessor
		// as well; when none exists the direct edge stands alone.
		if b.cls.IsFlow(r) {
			if prev, ok := b.sym.PrevHead(r); ok {
				sum.Edges[Edge{From: prev, To: r}] = struct{}{}
			} else {
				sum.Edges[Edge{From: head, To: r}] = struct{}{}
			}
		}
		sum.Edges[Edge{From: head, To: r}] = struct{}{}
	}
	return nil
}

// recordVariable files one operand under its variable namespace. A memory
// datum with more than one incoming data reference is a global; the "__"
// screen drops compiler-internal symbols, as does the absence of any
// identifiable name.
func (b *Builder) recordVariable(sum *Summary, head disasm.Address, op disasm.Operand) {
	switch op.Kind {
	case disasm.OpMem:
		name := op.Symbol
		if name == "" && op.Value != 0 {
			name = fmt.Sprintf("data_%x", op.Value)
		}
		if name == "" || strings.Contains(name, "__") {
			return
		}
		if len(b.sym.DataRefsTo(disasm.Address(op.Value))) > 1 {
			sum.Globals[name] = append(sum.Globals[name], head)
			sum.GlobalAccess++
		} else {
			sum.Locals[name] = append(sum.Locals[name], head)
		}
	case disasm.OpPhrase, disasm.OpDispl:
		if name := disasm.VarName(op); name != "" {
			sum.Locals[name] = append(sum.Locals[name], head)
		}
	}
}

// callSiteKey derives the addressing-mode identity of a call site; distinct
// keys approximate distinct callees for the structural fan-out proxy.
func (b *Builder) callSiteKey(head disasm.Address) (uint64, error) {
	ops, err := b.cls.Operands(head)
	if err != nil {
		return 0, fmt.Errorf("%w: operands of %s: %v", ErrInvalidAddress, head, err)
	}
	if len(ops) == 0 {
		return xxhash.Sum64String("mem_0"), nil
	}
	op := ops[0]
	var key string
	switch op.Kind {
	case disasm.OpReg:
		key = "reg_" + op.Base
	case disasm.OpPhrase:
		key = fmt.Sprintf("phrase_%s_%s_%d", op.Base, op.Index, op.Scale)
	case disasm.OpDispl:
		key = fmt.Sprintf("displ_%s_%d_%s", op.Base, op.Disp, op.Symbol)
	default:
		key = fmt.Sprintf("mem_%x", op.Value)
	}
	return xxhash.Sum64String(key), nil
}

func filterRefs(refs []disasm.Address, chunks []disasm.Chunk) map[disasm.Address]struct{} {
	kept := make(map[disasm.Address]struct{}, len(refs))
	for _, ref := range refs {
		for _, c := range chunks {
			if c.Contains(ref) {
				kept[ref] = struct{}{}
				break
			}
		}
	}
	return kept
}
