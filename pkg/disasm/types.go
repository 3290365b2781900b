// Package disasm defines the instruction-level data model haruspex analyzes
// and the two collaborator contracts (Classifier, Symbols) the core consumes.
// The bundled Listing adapter implements both for objdump-style listings;
// any other disassembler host can be plugged in behind the same interfaces.
package disasm

import "fmt"

// Address identifies a single instruction. Ordering follows program order.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Chunk is one contiguous address range owned by a routine, half-open.
// A routine may own several disjoint chunks.
type Chunk struct {
	Start Address `json:"start"`
	End   Address `json:"end"`
}

// Contains reports whether addr falls inside the chunk.
func (c Chunk) Contains(addr Address) bool {
	return addr >= c.Start && addr < c.End
}

// Kind classifies an instruction for metric counting.
type Kind uint8

const (
	KindOther Kind = iota
	KindCall
	KindCondBranch
	KindUncondBranch
	KindAssign
	KindCompare
)

func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindCondBranch:
		return "conditional branch"
	case KindUncondBranch:
		return "unconditional branch"
	case KindAssign:
		return "assignment"
	case KindCompare:
		return "compare"
	default:
		return "other"
	}
}

// OperandKind mirrors the addressing-mode families the metrics care about.
type OperandKind uint8

const (
	OpVoid  OperandKind = iota
	OpReg               // bare register
	OpMem               // direct memory reference (absolute or rip-relative)
	OpPhrase            // [base] or [base+index*scale], no displacement
	OpDispl             // [base+disp] or [base+index*scale+disp]
	OpImm               // immediate value
	OpNear              // near code address (branch/call target)
	OpFar               // far code address
)

// IsMemory reports whether the operand addresses memory. Span and variable
// tracking only consider these families.
func (k OperandKind) IsMemory() bool {
	return k == OpMem || k == OpPhrase || k == OpDispl
}

// Operand carries the structured decomposition of one instruction operand.
// The adapter produces it once; nothing downstream re-parses operand text.
type Operand struct {
	Text   string      `json:"text"`
	Kind   OperandKind `json:"kind"`
	Base   string      `json:"base,omitempty"`   // base register
	Index  string      `json:"index,omitempty"`  // index register
	Scale  int         `json:"scale,omitempty"`  // index scale factor
	Disp   int64       `json:"disp,omitempty"`   // signed displacement
	Symbol string      `json:"symbol,omitempty"` // resolved symbol, if any
	Value  uint64      `json:"value,omitempty"`  // immediate or target address
}

// SwitchInfo describes one switch dispatch table.
type SwitchInfo struct {
	Table Address // dispatch table identity
	Cases int     // case count, excluding default
}

// Classifier is the instruction-decoder contract. Implementations must
// answer for any address inside a routine's chunks; an address they cannot
// resolve is reported as an error and aborts that routine's analysis.
type Classifier interface {
	// Classify returns the instruction kind at addr.
	Classify(addr Address) (Kind, error)
	// Mnemonic returns the instruction mnemonic at addr.
	Mnemonic(addr Address) (string, error)
	// Operands returns the structured operand list at addr.
	Operands(addr Address) ([]Operand, error)
	// CodeRefsFrom returns possible transfer-of-control targets from addr,
	// excluding ordinary fallthrough.
	CodeRefsFrom(addr Address) ([]Address, error)
	// IsFlow reports whether execution can reach addr by falling through
	// from its physical predecessor.
	IsFlow(addr Address) bool
	// SwitchInfo returns dispatch-table info when addr participates in a
	// switch, or nil.
	SwitchInfo(addr Address) *SwitchInfo
}

// Symbols is the symbol/cross-reference provider contract.
type Symbols interface {
	// Routines returns every routine entry address in program order.
	Routines() []Address
	// RoutineName returns the display name for a routine entry.
	RoutineName(entry Address) string
	// ChunksOf returns the chunk list owned by the routine at entry.
	ChunksOf(entry Address) ([]Chunk, error)
	// Heads returns the instruction addresses inside a chunk, in order.
	Heads(c Chunk) []Address
	// NextHead returns the instruction following addr within the chunk
	// that owns addr. ok is false at a chunk's last instruction.
	NextHead(addr Address) (next Address, ok bool)
	// PrevHead returns the instruction preceding addr within the chunk
	// that owns addr. ok is false at a chunk's first instruction.
	PrevHead(addr Address) (prev Address, ok bool)
	// CallRefsTo returns the call sites targeting addr.
	CallRefsTo(addr Address) []Address
	// DataRefsTo returns the instructions carrying a data reference to addr.
	DataRefsTo(addr Address) []Address
}
