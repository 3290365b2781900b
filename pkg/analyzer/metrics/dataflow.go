package metrics

import (
	"sort"
	"strings"

	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/disasm"
)

// isWrite reports whether the use of name at head is a store, i.e. the head
// is an assignment and name appears in its destination operand.
func isWrite(cls disasm.Classifier, head disasm.Address, name string) bool {
	if kindAt(cls, head) != disasm.KindAssign {
		return false
	}
	ops := operandsAt(cls, head)
	if len(ops) == 0 {
		return false
	}
	if disasm.VarName(ops[0]) == name {
		return true
	}
	return strings.Contains(ops[0].Text, name)
}

// Oviedo adds a data-flow term to the routine's edge count. Each local
// variable contributes one per recorded use, minus one when its first use is
// a definition rather than a read.
func Oviedo(sum *flow.Summary, cls disasm.Classifier) int {
	df := 0
	for name, usages := range sum.Locals {
		df += len(usages)
		if len(usages) > 0 && isWrite(cls, usages[0], name) {
			df--
		}
	}
	return len(sum.Edges) + df
}

// Chepin partitions the routine's local variables into arguments (P),
// condition-controlling variables (C) and the rest (M), each bucket claiming
// a variable at most once, and weighs them as P + 2M + 3C. When argument
// detection found no named slots, argCount is the calling-convention
// estimate and stands in for P wholesale.
func Chepin(sum *flow.Summary, cls disasm.Classifier, args []string, argCount int) int {
	argSet := make(map[string]struct{}, len(args))
	for _, a := range args {
		argSet[a] = struct{}{}
	}

	p, m, c := 0, 0, 0
	if len(args) == 0 {
		p = argCount
	}
	for name, usages := range sum.Locals {
		if _, ok := argSet[name]; ok {
			p++
			continue
		}
		controlling := false
		for _, head := range usages {
			if kindAt(cls, head) == disasm.KindCompare {
				controlling = true
				break
			}
		}
		if controlling {
			c++
		} else {
			m++
		}
	}
	// Arguments never seen in the body still count toward P.
	for _, a := range args {
		if _, ok := sum.Locals[a]; !ok {
			p++
		}
	}
	return p + 2*m + 3*c
}

// ArgumentVars identifies the routine's arguments. Named detection walks
// every local use looking for argument-shaped operands; when nothing is
// found, calling-convention fallbacks estimate a bare count from the ret
// immediate (stdcall) or the caller's stack cleanup (cdecl).
func ArgumentVars(sum *flow.Summary, cls disasm.Classifier, sym disasm.Symbols, entry disasm.Address, argSize int) ([]string, int) {
	names := make(map[string]struct{})
	for name, usages := range sum.Locals {
		for _, head := range usages {
			for _, op := range operandsAt(cls, head) {
				if disasm.VarName(op) == name && disasm.IsArgumentOperand(op, int64(argSize)) {
					names[name] = struct{}{}
				}
			}
		}
	}
	if len(names) > 0 {
		out := make([]string, 0, len(names))
		for n := range names {
			out = append(out, n)
		}
		sort.Strings(out)
		return out, len(out)
	}
	if n := stdcallArgs(cls, sym, entry, argSize); n > 0 {
		return nil, n
	}
	return nil, cdeclArgs(cls, sym, entry, argSize)
}

// stdcallArgs reads the callee-cleanup byte count off a trailing "ret imm".
func stdcallArgs(cls disasm.Classifier, sym disasm.Symbols, entry disasm.Address, argSize int) int {
	chunks, err := sym.ChunksOf(entry)
	if err != nil || len(chunks) == 0 {
		return 0
	}
	last := chunks[0]
	for _, ch := range chunks[1:] {
		if ch.End > last.End {
			last = ch
		}
	}
	heads := sym.Heads(last)
	if len(heads) == 0 {
		return 0
	}
	tail := heads[len(heads)-1]
	if m := mnemonicAt(cls, tail); m != "ret" && m != "retn" {
		return 0
	}
	ops := operandsAt(cls, tail)
	if len(ops) != 1 || ops[0].Kind != disasm.OpImm {
		return 0
	}
	return int(ops[0].Value) / argSize
}

// cdeclArgs reads the caller-cleanup byte count off an "add esp, imm"
// directly after any call site.
func cdeclArgs(cls disasm.Classifier, sym disasm.Symbols, entry disasm.Address, argSize int) int {
	for _, caller := range sym.CallRefsTo(entry) {
		next, ok := sym.NextHead(caller)
		if !ok || mnemonicAt(cls, next) != "add" {
			continue
		}
		ops := operandsAt(cls, next)
		if len(ops) != 2 || ops[1].Kind != disasm.OpImm {
			continue
		}
		if ops[0].Text != "esp" && ops[0].Text != "rsp" {
			continue
		}
		return int(ops[1].Value) / argSize
	}
	return 0
}

// FanProfile captures structural and informational coupling of a routine.
type FanProfile struct {
	FanInS  int // callers
	FanOutS int // distinct call sites
	FanInI  int // distinct variables read (arguments and globals)
	FanOutI int // distinct variables written (arguments and globals)
}

// Fan builds the routine's fan profile from its call graph position and the
// read/write behavior over its arguments and globals.
func Fan(sum *flow.Summary, cls disasm.Classifier, sym disasm.Symbols, entry disasm.Address, args []string) FanProfile {
	p := FanProfile{
		FanInS:  len(sym.CallRefsTo(entry)),
		FanOutS: len(sum.CallSites),
	}
	r, w := readWriteCounts(args, sum.Locals, cls)
	p.FanInI += r
	p.FanOutI += w

	globals := make([]string, 0, len(sum.Globals))
	for name := range sum.Globals {
		globals = append(globals, name)
	}
	r, w = readWriteCounts(globals, sum.Globals, cls)
	p.FanInI += r
	p.FanOutI += w
	return p
}

// readWriteCounts counts how many of the given variables are read and how
// many are written. A variable that is both read and written counts in both
// tallies.
func readWriteCounts(vars []string, usage flow.VarUsage, cls disasm.Classifier) (reads, writes int) {
	for _, name := range vars {
		var read, written bool
		for _, head := range usage[name] {
			switch {
			case isWrite(cls, head, name):
				written = true
			case kindAt(cls, head) == disasm.KindAssign,
				kindAt(cls, head) == disasm.KindCompare:
				read = true
			}
		}
		if read {
			reads++
		}
		if written {
			writes++
		}
	}
	return reads, writes
}

// HenryCafura combines cyclomatic complexity with the squared total coupling
// of the routine.
func HenryCafura(cc int, fan FanProfile) float64 {
	coupling := float64(fan.FanInS + fan.FanInI + fan.FanOutS + fan.FanOutI)
	return float64(cc) + coupling*coupling
}

// CardGlass relates outbound coupling to the routine's argument count.
func CardGlass(fan FanProfile, argCount int) float64 {
	out := float64(fan.FanOutS + fan.FanOutI)
	return out*out + float64(argCount)/(out+1)
}
