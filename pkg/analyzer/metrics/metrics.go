package metrics

import "github.com/arcusfield/haruspex/pkg/disasm"

// The calculators only probe addresses the flow builder has already visited,
// or cross-routine addresses (caller sites) where an unanswerable probe
// simply means no information. Either way a classifier error degrades to the
// zero answer instead of aborting the routine a second time.

func kindAt(cls disasm.Classifier, addr disasm.Address) disasm.Kind {
	kind, err := cls.Classify(addr)
	if err != nil {
		return disasm.KindOther
	}
	return kind
}

func mnemonicAt(cls disasm.Classifier, addr disasm.Address) string {
	mnem, err := cls.Mnemonic(addr)
	if err != nil {
		return ""
	}
	return mnem
}

func operandsAt(cls disasm.Classifier, addr disasm.Address) []disasm.Operand {
	ops, err := cls.Operands(addr)
	if err != nil {
		return nil
	}
	return ops
}
