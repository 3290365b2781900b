package flow

import (
	"fmt"

	"github.com/arcusfield/haruspex/pkg/disasm"
)

// Block is one basic block: a maximal straight-line instruction run, in
// program order, contained in a single chunk.
type Block []disasm.Address

// Entry returns the block's first instruction address.
func (b Block) Entry() disasm.Address { return b[0] }

// Last returns the block's final instruction address.
func (b Block) Last() disasm.Address { return b[len(b)-1] }

// Partition splits the routine's instruction stream into basic blocks. A new
// block opens at every boundary address and immediately after a conditional
// branch, so a conditional branch is always the last instruction of its
// block. The result is a disjoint cover of the routine's instructions.
func Partition(sum *Summary, cls disasm.Classifier, sym disasm.Symbols) ([]Block, error) {
	var blocks []Block
	var cur Block
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, cur)
			cur = nil
		}
	}

	prevCond := false
	for _, chunk := range sum.Chunks {
		for _, head := range sym.Heads(chunk) {
			if sum.Boundaries.Contains(uint64(head)) || prevCond {
				flush()
			}
			cur = append(cur, head)
			kind, err := cls.Classify(head)
			if err != nil {
				return nil, fmt.Errorf("%w: classify %s: %v", ErrInvalidAddress, head, err)
			}
			prevCond = kind == disasm.KindCondBranch
		}
	}
	flush()
	return blocks, nil
}
