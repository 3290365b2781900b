package metrics

import (
	"strings"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/disasm"
)

var segmentPrefixes = map[string]struct{}{
	"cs": {}, "ds": {}, "es": {}, "fs": {}, "gs": {}, "ss": {},
}

// stripSegment drops a leading segment override from an operand spelling so
// that "ds:0x404040" and "0x404040" compare equal.
func stripSegment(text string) string {
	if i := strings.IndexByte(text, ':'); i > 0 {
		if _, ok := segmentPrefixes[text[:i]]; ok {
			return text[i+1:]
		}
	}
	return text
}

// Span counts memory operand references per basic block. An operand is not
// counted when the same spelling feeds a call or conditional branch later in
// the block, since that use is already charged to the transfer instruction.
func Span(blocks []flow.Block, cls disasm.Classifier) int {
	span := 0
	for _, block := range blocks {
		span += blockSpan(block, cls)
	}
	return span
}

func blockSpan(block flow.Block, cls disasm.Classifier) int {
	type transferUse struct {
		pos   int
		texts map[string]struct{}
	}
	var transfers []transferUse
	for i, head := range block {
		kind := kindAt(cls, head)
		if kind != disasm.KindCall && kind != disasm.KindCondBranch {
			continue
		}
		texts := make(map[string]struct{})
		for _, op := range operandsAt(cls, head) {
			texts[stripSegment(op.Text)] = struct{}{}
		}
		transfers = append(transfers, transferUse{pos: i, texts: texts})
	}

	usedLater := func(pos int, text string) bool {
		for _, t := range transfers {
			if t.pos <= pos {
				continue
			}
			if _, ok := t.texts[text]; ok {
				return true
			}
		}
		return false
	}

	span := 0
	for i, head := range block {
		kind := kindAt(cls, head)
		if kind == disasm.KindCall || kind == disasm.KindCondBranch {
			continue
		}
		for _, op := range operandsAt(cls, head) {
			text := stripSegment(op.Text)
			if usedLater(i, text) {
				continue
			}
			if op.Kind.IsMemory() {
				span++
			}
		}
	}
	return span
}
