// Package disasmtest provides a scriptable in-memory implementation of the
// disasm provider contracts for tests.
package disasmtest

import (
	"fmt"
	"sort"

	"github.com/arcusfield/haruspex/pkg/disasm"
)

// Insn scripts one instruction.
type Insn struct {
	Addr     disasm.Address
	Mnemonic string
	Kind     disasm.Kind
	Operands []disasm.Operand
	Refs     []disasm.Address // transfer targets, fallthrough excluded
	NoFlow   bool             // execution cannot fall through past this insn
	Switch   *disasm.SwitchInfo
}

// Routine scripts one routine; its entry is the first chunk's start.
type Routine struct {
	Name   string
	Chunks []disasm.Chunk
}

// Fake implements disasm.Classifier and disasm.Symbols over scripted data.
type Fake struct {
	routines []Routine
	insns    map[disasm.Address]Insn
	order    []disasm.Address
	callRefs map[disasm.Address][]disasm.Address
	dataRefs map[disasm.Address][]disasm.Address
}

// New builds a fake from scripted routines and instructions.
func New(routines []Routine, insns []Insn) *Fake {
	f := &Fake{
		routines: routines,
		insns:    make(map[disasm.Address]Insn, len(insns)),
		callRefs: make(map[disasm.Address][]disasm.Address),
		dataRefs: make(map[disasm.Address][]disasm.Address),
	}
	for _, in := range insns {
		f.insns[in.Addr] = in
		f.order = append(f.order, in.Addr)
	}
	sort.Slice(f.order, func(i, j int) bool { return f.order[i] < f.order[j] })
	return f
}

// AddCallRef records a call site targeting addr.
func (f *Fake) AddCallRef(target, site disasm.Address) {
	f.callRefs[target] = append(f.callRefs[target], site)
}

// AddDataRef records an instruction referencing the datum at value.
func (f *Fake) AddDataRef(value, site disasm.Address) {
	f.dataRefs[value] = append(f.dataRefs[value], site)
}

func (f *Fake) insn(addr disasm.Address) (Insn, error) {
	in, ok := f.insns[addr]
	if !ok {
		return Insn{}, fmt.Errorf("no instruction at %s", addr)
	}
	return in, nil
}

// Classifier

func (f *Fake) Classify(addr disasm.Address) (disasm.Kind, error) {
	in, err := f.insn(addr)
	if err != nil {
		return disasm.KindOther, err
	}
	return in.Kind, nil
}

func (f *Fake) Mnemonic(addr disasm.Address) (string, error) {
	in, err := f.insn(addr)
	if err != nil {
		return "", err
	}
	return in.Mnemonic, nil
}

func (f *Fake) Operands(addr disasm.Address) ([]disasm.Operand, error) {
	in, err := f.insn(addr)
	if err != nil {
		return nil, err
	}
	return in.Operands, nil
}

func (f *Fake) CodeRefsFrom(addr disasm.Address) ([]disasm.Address, error) {
	in, err := f.insn(addr)
	if err != nil {
		return nil, err
	}
	return in.Refs, nil
}

func (f *Fake) IsFlow(addr disasm.Address) bool {
	prev, ok := f.prevInChunk(addr)
	if !ok {
		return false
	}
	return !f.insns[prev].NoFlow
}

func (f *Fake) SwitchInfo(addr disasm.Address) *disasm.SwitchInfo {
	if in, ok := f.insns[addr]; ok {
		return in.Switch
	}
	return nil
}

// Symbols

func (f *Fake) Routines() []disasm.Address {
	entries := make([]disasm.Address, 0, len(f.routines))
	for _, r := range f.routines {
		entries = append(entries, r.Chunks[0].Start)
	}
	return entries
}

func (f *Fake) RoutineName(entry disasm.Address) string {
	for _, r := range f.routines {
		if r.Chunks[0].Start == entry {
			return r.Name
		}
	}
	return entry.String()
}

func (f *Fake) ChunksOf(entry disasm.Address) ([]disasm.Chunk, error) {
	for _, r := range f.routines {
		if r.Chunks[0].Start == entry {
			return r.Chunks, nil
		}
	}
	return nil, fmt.Errorf("no routine at %s", entry)
}

func (f *Fake) Heads(c disasm.Chunk) []disasm.Address {
	var heads []disasm.Address
	for _, addr := range f.order {
		if c.Contains(addr) {
			heads = append(heads, addr)
		}
	}
	return heads
}

func (f *Fake) NextHead(addr disasm.Address) (disasm.Address, bool) {
	chunk, ok := f.chunkOf(addr)
	if !ok {
		return 0, false
	}
	for _, a := range f.order {
		if a > addr && chunk.Contains(a) {
			return a, true
		}
	}
	return 0, false
}

func (f *Fake) PrevHead(addr disasm.Address) (disasm.Address, bool) {
	return f.prevInChunk(addr)
}

func (f *Fake) CallRefsTo(addr disasm.Address) []disasm.Address {
	return f.callRefs[addr]
}

func (f *Fake) DataRefsTo(addr disasm.Address) []disasm.Address {
	return f.dataRefs[addr]
}

func (f *Fake) chunkOf(addr disasm.Address) (disasm.Chunk, bool) {
	for _, r := range f.routines {
		for _, c := range r.Chunks {
			if c.Contains(addr) {
				return c, true
			}
		}
	}
	return disasm.Chunk{}, false
}

func (f *Fake) prevInChunk(addr disasm.Address) (disasm.Address, bool) {
	chunk, ok := f.chunkOf(addr)
	if !ok {
		return 0, false
	}
	var prev disasm.Address
	found := false
	for _, a := range f.order {
		if a >= addr {
			break
		}
		if chunk.Contains(a) {
			prev = a
			found = true
		}
	}
	return prev, found
}
