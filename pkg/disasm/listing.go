package disasm

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// Listing is a parsed disassembly listing (objdump -d -M intel style) for a
// single module. It implements both Classifier and Symbols, so the analysis
// core can consume a listing directly.
type Listing struct {
	Path        string
	Fingerprint string // blake3 hex of the raw listing bytes
	WordSize    int64  // argument slot size in bytes (8 on x86-64)

	routines []*routineInfo
	byEntry  map[Address]*routineInfo
	insns    map[Address]*insn
	callRefs map[Address][]Address
	dataRefs map[Address][]Address
}

type routineInfo struct {
	entry Address
	name  string
	chunk Chunk
	heads []Address
}

type insn struct {
	addr     Address
	mnemonic string
	kind     Kind
	operands []Operand
	refs     []Address
	sw       *SwitchInfo
	size     uint64
	index    int // position within its routine's heads
	owner    *routineInfo
}

var (
	routineHeaderRe = regexp.MustCompile(`^([0-9a-fA-F]+)\s+<([^>]+)>:\s*$`)
	insnLineRe      = regexp.MustCompile(`^\s+([0-9a-fA-F]+):\s+((?:[0-9a-fA-F]{2}\s+)*)(\S+)\s*(.*)$`)
	targetOperandRe = regexp.MustCompile(`^([0-9a-fA-F]+)\s+<([^>]+)>$`)
	dataCommentRe   = regexp.MustCompile(`#\s*([0-9a-fA-F]+)\s*<([^>+]+)(?:\+0x[0-9a-fA-F]+)?>`)
	switchCommentRe = regexp.MustCompile(`;\s*switch\s+(\d+)\s+cases?`)
	memTermRe       = regexp.MustCompile(`^([a-z0-9]+)(?:\*([1248]))?$`)
)

// Load parses the listing file at path.
func Load(path string) (*Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(bytes.NewReader(data), path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Parse parses a disassembly listing from r. path is used for diagnostics
// and result labeling only.
func Parse(r io.Reader, path string) (*Listing, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(raw)

	l := &Listing{
		Path:        path,
		Fingerprint: hex.EncodeToString(sum[:]),
		WordSize:    8,
		byEntry:     make(map[Address]*routineInfo),
		insns:       make(map[Address]*insn),
		callRefs:    make(map[Address][]Address),
		dataRefs:    make(map[Address][]Address),
	}

	var current *routineInfo
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.TrimSpace(line) == "..." {
			continue
		}
		if m := routineHeaderRe.FindStringSubmatch(line); m != nil {
			entry, err := strconv.ParseUint(m[1], 16, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad routine address: %w", path, lineno, err)
			}
			current = &routineInfo{entry: Address(entry), name: m[2]}
			l.routines = append(l.routines, current)
			l.byEntry[current.entry] = current
			continue
		}
		m := insnLineRe.FindStringSubmatch(line)
		if m == nil || current == nil {
			continue
		}
		addr, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad instruction address: %w", path, lineno, err)
		}
		mnem := strings.ToLower(m[3])
		// A byte-continuation row for a long instruction parses with a hex
		// pair in the mnemonic slot and nothing after it.
		if len(mnem) == 2 && isHexPair(mnem) && strings.TrimSpace(m[4]) == "" {
			continue
		}
		in := &insn{
			addr:     Address(addr),
			mnemonic: mnem,
			size:     countBytes(m[2]),
			owner:    current,
		}
		if in.size == 0 {
			in.size = 1
		}
		rest := m[4]
		rest = l.takeSwitchComment(in, rest)
		rest, dataTarget, dataSymbol := splitDataComment(rest)
		in.operands = parseOperands(rest, in.mnemonic)
		if dataTarget != 0 {
			attachDataSymbol(in.operands, dataTarget, dataSymbol)
			l.dataRefs[Address(dataTarget)] = append(l.dataRefs[Address(dataTarget)], in.addr)
		}
		l.classify(in)
		l.insns[in.addr] = in
		in.index = len(current.heads)
		current.heads = append(current.heads, in.addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	l.finish()
	return l, nil
}

func (l *Listing) finish() {
	sort.Slice(l.routines, func(i, j int) bool { return l.routines[i].entry < l.routines[j].entry })
	kept := l.routines[:0]
	for _, rt := range l.routines {
		if len(rt.heads) == 0 {
			delete(l.byEntry, rt.entry)
			continue
		}
		last := l.insns[rt.heads[len(rt.heads)-1]]
		rt.chunk = Chunk{Start: rt.heads[0], End: last.addr + Address(last.size)}
		kept = append(kept, rt)
	}
	l.routines = kept

	// Call xrefs and absolute-memory data xrefs need the full instruction
	// table, so both are resolved after the parse walk.
	for _, in := range l.insns {
		if in.kind == KindCall {
			for _, ref := range in.refs {
				l.callRefs[ref] = append(l.callRefs[ref], in.addr)
			}
		}
		if in.kind == KindCall || in.kind == KindCondBranch || in.kind == KindUncondBranch {
			continue
		}
		for _, op := range in.operands {
			if op.Kind == OpMem && op.Value != 0 && op.Symbol == "" {
				l.dataRefs[Address(op.Value)] = append(l.dataRefs[Address(op.Value)], in.addr)
			}
		}
	}
	for _, sites := range l.callRefs {
		sort.Slice(sites, func(i, j int) bool { return sites[i] < sites[j] })
	}
}

func (l *Listing) classify(in *insn) {
	in.kind = classifyMnemonic(in.mnemonic)
	if in.kind != KindCall && in.kind != KindCondBranch && in.kind != KindUncondBranch {
		return
	}
	for _, op := range in.operands {
		if op.Kind == OpNear && op.Value != 0 {
			in.refs = append(in.refs, Address(op.Value))
		}
	}
}

func (l *Listing) takeSwitchComment(in *insn, rest string) string {
	idx := strings.Index(rest, ";")
	if idx < 0 {
		return rest
	}
	comment := rest[idx+1:]
	if m := switchCommentRe.FindStringSubmatch(";" + comment); m != nil {
		cases, _ := strconv.Atoi(m[1])
		in.sw = &SwitchInfo{Table: in.addr, Cases: cases}
	}
	return rest[:idx]
}

func splitDataComment(rest string) (string, uint64, string) {
	idx := strings.Index(rest, "#")
	if idx < 0 {
		return rest, 0, ""
	}
	comment := rest[idx:]
	rest = strings.TrimSpace(rest[:idx])
	if m := dataCommentRe.FindStringSubmatch(comment); m != nil {
		target, err := strconv.ParseUint(m[1], 16, 64)
		if err == nil {
			return rest, target, m[2]
		}
	}
	return rest, 0, ""
}

// attachDataSymbol binds a trailing "# addr <sym>" comment to the memory
// operand it annotates (objdump emits it for rip-relative references).
func attachDataSymbol(ops []Operand, target uint64, symbol string) {
	for i := range ops {
		if ops[i].Kind.IsMemory() {
			ops[i].Symbol = symbol
			ops[i].Value = target
			return
		}
	}
}

func parseOperands(s string, mnem string) []Operand {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ops := make([]Operand, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ops = append(ops, parseOperand(part, mnem))
	}
	return ops
}

func parseOperand(text string, mnem string) Operand {
	op := Operand{Text: text}

	// Branch/call target form: "401030 <helper>".
	if m := targetOperandRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseUint(m[1], 16, 64)
		if err == nil {
			op.Kind = OpNear
			op.Value = v
			op.Symbol = m[2]
			return op
		}
	}

	body := text
	sized := false
	for _, prefix := range []string{"byte ptr ", "word ptr ", "dword ptr ", "qword ptr ", "xmmword ptr ", "tbyte ptr "} {
		lower := strings.ToLower(body)
		if strings.HasPrefix(lower, prefix) {
			body = strings.TrimSpace(body[len(prefix):])
			sized = true
			break
		}
	}
	segmented := false
	for _, seg := range []string{"ds:", "cs:", "ss:", "fs:", "gs:", "es:"} {
		if strings.HasPrefix(body, seg) {
			body = body[len(seg):]
			segmented = true
			break
		}
	}

	if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
		parseMemOperand(&op, body[1:len(body)-1])
		return op
	}

	if v, err := strconv.ParseUint(strings.TrimPrefix(body, "0x"), 16, 64); err == nil && strings.HasPrefix(body, "0x") {
		switch {
		case sized || segmented:
			op.Kind = OpMem
		case classifyMnemonic(mnem) == KindCall || condBranchMnemonics[mnem] || uncondBranchMnemonics[mnem]:
			op.Kind = OpNear
		default:
			op.Kind = OpImm
		}
		op.Value = v
		return op
	}
	if v, err := strconv.ParseInt(body, 10, 64); err == nil {
		op.Kind = OpImm
		op.Value = uint64(v)
		return op
	}

	op.Kind = OpReg
	op.Base = strings.ToLower(body)
	return op
}

// parseMemOperand decomposes "[base+index*scale+disp]" bodies. An absolute
// body with no registers is a direct memory reference.
func parseMemOperand(op *Operand, body string) {
	body = strings.ReplaceAll(strings.ToLower(body), " ", "")
	terms := splitMemTerms(body)
	for _, t := range terms {
		neg := strings.HasPrefix(t, "-")
		t = strings.TrimPrefix(t, "-")
		if t == "" {
			continue
		}
		if v, err := strconv.ParseUint(strings.TrimPrefix(t, "0x"), 16, 64); err == nil && strings.HasPrefix(t, "0x") {
			d := int64(v)
			if neg {
				d = -d
			}
			op.Disp += d
			continue
		}
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			if neg {
				v = -v
			}
			op.Disp += v
			continue
		}
		if m := memTermRe.FindStringSubmatch(t); m != nil && registers[m[1]] {
			if m[2] != "" {
				op.Index = m[1]
				op.Scale, _ = strconv.Atoi(m[2])
			} else if op.Base == "" {
				op.Base = m[1]
			} else {
				op.Index = m[1]
				op.Scale = 1
			}
			continue
		}
		if strings.Contains(t, "*") {
			// Scaled symbol table, e.g. off_41d1c8[eax*4] normalized forms.
			op.Symbol = strings.SplitN(t, "*", 2)[0]
			continue
		}
		op.Symbol = t
	}

	switch {
	case op.Base == "" && op.Index == "":
		op.Kind = OpMem
		if op.Disp > 0 {
			op.Value = uint64(op.Disp)
			op.Disp = 0
		}
	case op.Base == "rip":
		// Target address comes from the trailing objdump comment.
		op.Kind = OpMem
		op.Base = ""
		op.Disp = 0
	case op.Disp != 0 || op.Symbol != "":
		op.Kind = OpDispl
	default:
		op.Kind = OpPhrase
	}
}

func splitMemTerms(body string) []string {
	var terms []string
	start := 0
	for i, r := range body {
		if i > 0 && (r == '+' || r == '-') {
			terms = append(terms, body[start:i])
			start = i
			if r == '+' {
				start = i + 1
			}
		}
	}
	terms = append(terms, body[start:])
	return terms
}

func countBytes(field string) uint64 {
	return uint64(len(strings.Fields(field)))
}

func isHexPair(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return len(s) == 2
}

// --- Classifier ---

func (l *Listing) insnAt(addr Address) (*insn, error) {
	in, ok := l.insns[addr]
	if !ok {
		return nil, fmt.Errorf("no instruction at %s", addr)
	}
	return in, nil
}

func (l *Listing) Classify(addr Address) (Kind, error) {
	in, err := l.insnAt(addr)
	if err != nil {
		return KindOther, err
	}
	return in.kind, nil
}

func (l *Listing) Mnemonic(addr Address) (string, error) {
	in, err := l.insnAt(addr)
	if err != nil {
		return "", err
	}
	return in.mnemonic, nil
}

func (l *Listing) Operands(addr Address) ([]Operand, error) {
	in, err := l.insnAt(addr)
	if err != nil {
		return nil, err
	}
	return in.operands, nil
}

func (l *Listing) CodeRefsFrom(addr Address) ([]Address, error) {
	in, err := l.insnAt(addr)
	if err != nil {
		return nil, err
	}
	return in.refs, nil
}

func (l *Listing) IsFlow(addr Address) bool {
	in, ok := l.insns[addr]
	if !ok {
		return false
	}
	if in.index == 0 {
		return false
	}
	prev, ok := l.insns[in.owner.heads[in.index-1]]
	if !ok {
		return false
	}
	return !endsFlow(prev.mnemonic)
}

func (l *Listing) SwitchInfo(addr Address) *SwitchInfo {
	in, ok := l.insns[addr]
	if !ok {
		return nil
	}
	return in.sw
}

// --- Symbols ---

func (l *Listing) Routines() []Address {
	entries := make([]Address, len(l.routines))
	for i, rt := range l.routines {
		entries[i] = rt.entry
	}
	return entries
}

func (l *Listing) RoutineName(entry Address) string {
	if rt, ok := l.byEntry[entry]; ok {
		return rt.name
	}
	return fmt.Sprintf("sub_%x", uint64(entry))
}

func (l *Listing) ChunksOf(entry Address) ([]Chunk, error) {
	rt, ok := l.byEntry[entry]
	if !ok {
		return nil, fmt.Errorf("no routine at %s", entry)
	}
	return []Chunk{rt.chunk}, nil
}

func (l *Listing) Heads(c Chunk) []Address {
	var heads []Address
	for _, rt := range l.routines {
		for _, h := range rt.heads {
			if c.Contains(h) {
				heads = append(heads, h)
			}
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i] < heads[j] })
	return heads
}

func (l *Listing) NextHead(addr Address) (Address, bool) {
	in, ok := l.insns[addr]
	if !ok || in.index+1 >= len(in.owner.heads) {
		return 0, false
	}
	return in.owner.heads[in.index+1], true
}

func (l *Listing) PrevHead(addr Address) (Address, bool) {
	in, ok := l.insns[addr]
	if !ok || in.index == 0 {
		return 0, false
	}
	return in.owner.heads[in.index-1], true
}

func (l *Listing) CallRefsTo(addr Address) []Address {
	return l.callRefs[addr]
}

func (l *Listing) DataRefsTo(addr Address) []Address {
	return l.dataRefs[addr]
}
