package disasm

import (
	"fmt"
	"strings"
)

// Mnemonic families used to classify x86/x86-64 listings. The tables cover
// the instructions that show up in compiler output; anything unknown is
// KindOther, which only affects the assignment/compare counters.

var condBranchMnemonics = makeSet([]string{
	"ja", "jae", "jb", "jbe", "jc", "jcxz", "jecxz", "jrcxz", "je", "jg",
	"jge", "jl", "jle", "jna", "jnae", "jnb", "jnbe", "jnc", "jne", "jng",
	"jnge", "jnl", "jnle", "jno", "jnp", "jns", "jnz", "jo", "jp", "jpe",
	"jpo", "js", "jz", "loop", "loope", "loopne", "loopnz", "loopz",
})

var uncondBranchMnemonics = makeSet([]string{"jmp", "jmpq", "ljmp"})

var callMnemonics = makeSet([]string{"call", "callq", "lcall"})

var returnMnemonics = makeSet([]string{"ret", "retq", "retn", "retf", "iret", "iretq"})

var compareMnemonics = makeSet([]string{"cmp", "test", "cmpxchg", "ucomiss", "ucomisd", "comiss", "comisd"})

// assignMnemonics lists instructions that write their destination operand.
var assignMnemonics = makeSet([]string{
	"mov", "movzx", "movsx", "movsxd", "movabs", "movaps", "movups", "movss",
	"movsd", "movd", "movq", "lea", "add", "adc", "sub", "sbb", "inc", "dec",
	"mul", "imul", "div", "idiv", "neg", "not", "and", "or", "xor", "shl",
	"shr", "sal", "sar", "rol", "ror", "rcl", "rcr", "xchg", "bswap", "pop",
	"cdq", "cdqe", "cqo", "cbw", "cwd", "cwde", "setb", "setbe", "setl",
	"setle", "sete", "setne", "setg", "setge", "seta", "setae", "sets",
	"setns", "setz", "setnz", "cmovb", "cmovbe", "cmovl", "cmovle", "cmove",
	"cmovne", "cmovg", "cmovge", "cmova", "cmovae", "addss", "addsd", "subss",
	"subsd", "mulss", "mulsd", "divss", "divsd", "cvtsi2sd", "cvtsi2ss",
	"cvttsd2si", "cvttss2si", "pxor", "xorps", "xorpd",
})

// Frame-base registers, for local/argument namespace assignment.
var frameRegisters = makeSet([]string{"ebp", "rbp"})

var registers = makeSet([]string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp", "rip",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"eax", "ebx", "ecx", "edx", "esi", "edi", "ebp", "esp",
	"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
	"ax", "bx", "cx", "dx", "si", "di", "bp", "sp",
	"al", "bl", "cl", "dl", "ah", "bh", "ch", "dh",
	"sil", "dil", "bpl", "spl",
	"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
	"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7",
	"xmm8", "xmm9", "xmm10", "xmm11", "xmm12", "xmm13", "xmm14", "xmm15",
})

func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// classifyMnemonic maps a mnemonic to its instruction kind.
func classifyMnemonic(mnem string) Kind {
	switch {
	case callMnemonics[mnem]:
		return KindCall
	case condBranchMnemonics[mnem]:
		return KindCondBranch
	case uncondBranchMnemonics[mnem]:
		return KindUncondBranch
	case compareMnemonics[mnem]:
		return KindCompare
	case assignMnemonics[mnem]:
		return KindAssign
	default:
		return KindOther
	}
}

// endsFlow reports whether execution never falls through past mnem.
func endsFlow(mnem string) bool {
	return uncondBranchMnemonics[mnem] || returnMnemonics[mnem] ||
		mnem == "hlt" || mnem == "ud2"
}

// VarName derives a stable variable identifier from a structured operand,
// or "" when the operand does not name a trackable stack slot or symbol.
// Symbols win; otherwise frame-relative slots get IDA-style names so that
// [rbp-0x8] is the same variable at every use site.
func VarName(op Operand) string {
	if op.Symbol != "" {
		return op.Symbol
	}
	if !op.Kind.IsMemory() || !frameRegisters[op.Base] || op.Disp == 0 {
		return ""
	}
	if op.Disp < 0 {
		return fmt.Sprintf("var_%X", -op.Disp)
	}
	return fmt.Sprintf("arg_%X", op.Disp)
}

// IsArgumentOperand reports whether the operand addresses a routine argument:
// a positive frame-base displacement within the conventional argument window,
// or an arg-prefixed symbol on an indexed access.
func IsArgumentOperand(op Operand, argSize int64) bool {
	if !op.Kind.IsMemory() {
		return false
	}
	if op.Index != "" && strings.Contains(op.Symbol, "arg") {
		return true
	}
	return frameRegisters[op.Base] && op.Disp > 0 && op.Disp < 15*argSize
}
