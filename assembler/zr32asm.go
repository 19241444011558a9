/*
zr32asm.go - ZR32 two-pass assembler

Assembler Syntax (RISC-V flavoured, case-insensitive mnemonics/registers):

  Directives:
    .org addr             - set origin (default 0x00010000, the ROM base)
    NAME equ value        - define constant (case-sensitive name)
    .equ NAME, value      - same as above
    .word val,...         - 32-bit LE data
    .half val,...         - 16-bit LE data
    .byte val,...         - byte data
    .space n              - reserve n zero bytes
    .align n              - align to n-byte boundary

  Labels:
    name:                 - label at the current address

  Comments:
    # or ; to end of line

  Pseudo-instructions:
    nop, mv rd,rs, not rd,rs, neg rd,rs, li rd,imm, la rd,sym,
    j off, jr rs, call sym, ret, beqz/bnez rs,off,
    bgt/ble/bgtu/bleu rs,rt,off

Values accept decimal, 0x hex, 0b binary, 'c' character literals, symbols,
'.' for the address of the current line, and +/- chains of those.

Branch and jump targets are absolute addresses; the assembler converts them
to PC-relative offsets. "j ." is a self-loop and "beq a0, a1, .+8" skips the
next instruction. A bare number is an address, so "jal x0, 0" jumps to 0.
*/

package assembler

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const DEFAULT_ORIGIN = 0x00010000

// ZR32Assembler turns source text into a flat ROM image.
type ZR32Assembler struct {
	labels   map[string]uint32
	equates  map[string]uint32
	baseAddr uint32
	origin   uint32

	listingMode bool
	listing     []string

	pass    int
	offset  uint32
	line    int
	liShort map[int]bool // li sizing decided in pass 1, keyed by line
}

func NewZR32Assembler() *ZR32Assembler {
	return &ZR32Assembler{
		labels:  make(map[string]uint32),
		equates: make(map[string]uint32),
		origin:  DEFAULT_ORIGIN,
	}
}

// SetOrigin changes the address the image is assembled for.
func (a *ZR32Assembler) SetOrigin(addr uint32) {
	a.origin = addr
}

func (a *ZR32Assembler) SetListingMode(enabled bool) {
	a.listingMode = enabled
}

func (a *ZR32Assembler) GetListing() []string {
	return a.listing
}

// Labels returns the resolved label table after a successful Assemble.
func (a *ZR32Assembler) Labels() map[string]uint32 {
	return a.labels
}

// Assemble is a convenience wrapper around a fresh ZR32Assembler.
func Assemble(source string) ([]byte, error) {
	return NewZR32Assembler().Assemble(source)
}

func (a *ZR32Assembler) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", a.line, fmt.Sprintf(format, args...))
}

// stripComment removes # and ; comments, respecting character literals.
func stripComment(line string) string {
	inChar := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\'':
			inChar = !inChar
		case (c == '#' || c == ';') && !inChar:
			return line[:i]
		}
	}
	return line
}

// ---------------------------------------------------------------------
// Driver
// ---------------------------------------------------------------------

func (a *ZR32Assembler) Assemble(source string) ([]byte, error) {
	lines := strings.Split(source, "\n")
	a.listing = nil
	clear(a.labels)
	clear(a.equates)
	a.liShort = make(map[int]bool)

	// Pass 1: sizes and label addresses
	a.pass = 1
	a.baseAddr = a.origin
	a.offset = 0
	var size uint32
	for i, raw := range lines {
		a.line = i + 1
		if _, err := a.processLine(raw, nil); err != nil {
			return nil, err
		}
		if a.offset > size {
			size = a.offset
		}
	}

	// Pass 2: emit
	a.pass = 2
	a.baseAddr = a.origin
	a.offset = 0
	program := make([]byte, size)
	for i, raw := range lines {
		a.line = i + 1
		start := a.offset
		n, err := a.processLine(raw, program)
		if err != nil {
			return nil, err
		}
		a.addListing(a.baseAddr+start, program[start:start+n], strings.TrimRight(raw, " \t\r"))
	}
	return program, nil
}

func (a *ZR32Assembler) addListing(addr uint32, data []byte, source string) {
	if !a.listingMode {
		return
	}
	if len(data) == 0 {
		a.listing = append(a.listing, fmt.Sprintf("                   %s", source))
		return
	}
	var hex strings.Builder
	for i := 0; i+4 <= len(data) && i < 8; i += 4 {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%08X", binary.LittleEndian.Uint32(data[i:]))
	}
	a.listing = append(a.listing, fmt.Sprintf("%08X  %-17s %s", addr, hex.String(), source))
}

// processLine handles one source line. program is nil during pass 1.
// It returns the number of bytes the line occupies.
func (a *ZR32Assembler) processLine(raw string, program []byte) (uint32, error) {
	text := strings.TrimSpace(stripComment(raw))
	if text == "" {
		return 0, nil
	}

	// Labels, possibly several on one line
	for {
		idx := strings.Index(text, ":")
		if idx <= 0 || strings.ContainsAny(text[:idx], " \t,'") {
			break
		}
		name := text[:idx]
		if a.pass == 1 {
			if _, dup := a.labels[name]; dup {
				return 0, a.errorf("label '%s' redefined", name)
			}
			a.labels[name] = a.baseAddr + a.offset
		}
		text = strings.TrimSpace(text[idx+1:])
		if text == "" {
			return 0, nil
		}
	}

	fields := strings.Fields(text)
	if len(fields) >= 3 && strings.EqualFold(fields[1], "equ") {
		return 0, a.defineEquate(fields[0], strings.TrimSpace(text[len(fields[0]):])[3:])
	}

	mnemonic := strings.ToLower(fields[0])
	rest := strings.TrimSpace(text[len(fields[0]):])
	ops := splitOperands(rest)

	if strings.HasPrefix(mnemonic, ".") {
		return a.directive(mnemonic, ops, program)
	}

	words, err := a.instruction(mnemonic, ops)
	if err != nil {
		return 0, err
	}
	start := a.offset
	for _, w := range words {
		if program != nil {
			binary.LittleEndian.PutUint32(program[a.offset:], w)
		}
		a.offset += 4
	}
	return a.offset - start, nil
}

func (a *ZR32Assembler) defineEquate(name, expr string) error {
	if a.pass == 2 {
		return nil
	}
	if _, exists := a.equates[name]; exists {
		return a.errorf("symbol '%s' already defined with equ", name)
	}
	v, err := a.evalConst(strings.TrimSpace(expr))
	if err != nil {
		return a.errorf("equ '%s': %v", name, err)
	}
	a.equates[name] = v
	return nil
}

func splitOperands(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ---------------------------------------------------------------------
// Directives
// ---------------------------------------------------------------------

func (a *ZR32Assembler) directive(name string, ops []string, program []byte) (uint32, error) {
	start := a.offset
	switch name {
	case ".org":
		if len(ops) != 1 {
			return 0, a.errorf(".org requires an address")
		}
		addr, err := a.evalConst(ops[0])
		if err != nil {
			return 0, a.errorf(".org: %v", err)
		}
		if addr < a.baseAddr+a.offset {
			return 0, a.errorf(".org 0x%08X moves backwards", addr)
		}
		a.offset = addr - a.baseAddr
		return 0, nil

	case ".equ", ".set":
		if len(ops) != 2 {
			return 0, a.errorf("%s requires NAME, value", name)
		}
		return 0, a.defineEquate(ops[0], ops[1])

	case ".word", ".half", ".byte":
		width := map[string]uint32{".word": 4, ".half": 2, ".byte": 1}[name]
		if len(ops) == 0 {
			return 0, a.errorf("%s requires at least one value", name)
		}
		for _, op := range ops {
			v, err := a.evalValue(op)
			if err != nil {
				return 0, a.errorf("%s: %v", name, err)
			}
			if program != nil {
				switch width {
				case 4:
					binary.LittleEndian.PutUint32(program[a.offset:], v)
				case 2:
					binary.LittleEndian.PutUint16(program[a.offset:], uint16(v))
				default:
					program[a.offset] = byte(v)
				}
			}
			a.offset += width
		}

	case ".space", ".zero":
		if len(ops) != 1 {
			return 0, a.errorf("%s requires a size", name)
		}
		n, err := a.evalConst(ops[0])
		if err != nil {
			return 0, a.errorf("%s: %v", name, err)
		}
		a.offset += n

	case ".align":
		if len(ops) != 1 {
			return 0, a.errorf(".align requires a boundary")
		}
		n, err := a.evalConst(ops[0])
		if err != nil || n == 0 || n&(n-1) != 0 {
			return 0, a.errorf(".align boundary must be a power of two")
		}
		addr := a.baseAddr + a.offset
		a.offset += (n - addr%n) % n

	default:
		return 0, a.errorf("unknown directive %s", name)
	}
	return a.offset - start, nil
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

// evalConst evaluates using literals and equates only. Its result is
// identical in both passes, so it can drive instruction sizing.
func (a *ZR32Assembler) evalConst(s string) (uint32, error) {
	return a.eval(s, false)
}

// evalValue also resolves labels. Forward labels read as 0 in pass 1.
func (a *ZR32Assembler) evalValue(s string) (uint32, error) {
	return a.eval(s, true)
}

func (a *ZR32Assembler) eval(s string, allowLabels bool) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty expression")
	}
	var total uint32
	sign := uint32(1)
	i := 0
	expectTerm := true
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case (c == '+' || c == '-') && !expectTerm:
			if c == '-' {
				sign = ^uint32(0)
			} else {
				sign = 1
			}
			expectTerm = true
			i++
		case c == '-' && expectTerm:
			sign = -sign
			i++
		case expectTerm:
			j := i
			if c == '\'' {
				end := strings.IndexByte(s[i+1:], '\'')
				if end < 0 {
					return 0, fmt.Errorf("unterminated character literal")
				}
				j = i + end + 2
			} else {
				for j < len(s) && s[j] != '+' && s[j] != '-' && s[j] != ' ' && s[j] != '\t' {
					j++
				}
			}
			if j == i {
				return 0, fmt.Errorf("missing operand in %q", s)
			}
			v, err := a.term(s[i:j], allowLabels)
			if err != nil {
				return 0, err
			}
			total += sign * v
			sign = 1
			expectTerm = false
			i = j
		default:
			return 0, fmt.Errorf("unexpected '%c' in %q", c, s)
		}
	}
	if expectTerm {
		return 0, fmt.Errorf("dangling operator in %q", s)
	}
	return total, nil
}

func (a *ZR32Assembler) term(t string, allowLabels bool) (uint32, error) {
	if len(t) >= 3 && t[0] == '\'' && t[len(t)-1] == '\'' {
		body := t[1 : len(t)-1]
		switch body {
		case `\n`:
			return '\n', nil
		case `\0`:
			return 0, nil
		case `\t`:
			return '\t', nil
		}
		if len(body) != 1 {
			return 0, fmt.Errorf("bad character literal %s", t)
		}
		return uint32(body[0]), nil
	}
	if t == "." {
		return a.baseAddr + a.offset, nil
	}
	if t[0] >= '0' && t[0] <= '9' {
		v, err := strconv.ParseUint(strings.ReplaceAll(t, "_", ""), 0, 32)
		if err != nil {
			return 0, fmt.Errorf("bad number %q", t)
		}
		return uint32(v), nil
	}
	if v, ok := a.equates[t]; ok {
		return v, nil
	}
	if allowLabels {
		if v, ok := a.labels[t]; ok {
			return v, nil
		}
		if a.pass == 1 {
			return 0, nil
		}
		return 0, fmt.Errorf("undefined symbol: %s", t)
	}
	return 0, fmt.Errorf("symbol %s is not a constant", t)
}

func fitsSigned(v int32, bits uint) bool {
	lim := int32(1) << (bits - 1)
	return v >= -lim && v < lim
}

// ---------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------

func (a *ZR32Assembler) reg(op string) (uint32, error) {
	r, ok := ParseRegister(op)
	if !ok {
		return 0, a.errorf("bad register '%s'", op)
	}
	return r, nil
}

func (a *ZR32Assembler) regs(ops []string, n int, mnemonic string) ([]uint32, error) {
	if len(ops) < n {
		return nil, a.errorf("%s expects %d operands", mnemonic, n)
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		r, err := a.reg(ops[i])
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (a *ZR32Assembler) imm12(op string) (int32, error) {
	v, err := a.evalValue(op)
	if err != nil {
		return 0, a.errorf("%v", err)
	}
	iv := int32(v)
	if a.pass == 2 && !fitsSigned(iv, 12) {
		return 0, a.errorf("immediate %d out of range", iv)
	}
	return iv, nil
}

// pcRel returns target - pc for branch and jump operands.
func (a *ZR32Assembler) pcRel(op string, bits uint) (int32, error) {
	target, err := a.evalValue(op)
	if err != nil {
		return 0, a.errorf("%v", err)
	}
	if a.pass == 1 {
		return 0, nil
	}
	off := int32(target - (a.baseAddr + a.offset))
	if off&1 != 0 || !fitsSigned(off, bits) {
		return 0, a.errorf("target %s out of range (offset %d)", op, off)
	}
	return off, nil
}

// memOperand parses "imm(reg)" or "(reg)".
func (a *ZR32Assembler) memOperand(op string) (uint32, int32, error) {
	open := strings.IndexByte(op, '(')
	if open < 0 || !strings.HasSuffix(op, ")") {
		return 0, 0, a.errorf("expected offset(reg), got '%s'", op)
	}
	base, err := a.reg(op[open+1 : len(op)-1])
	if err != nil {
		return 0, 0, err
	}
	if strings.TrimSpace(op[:open]) == "" {
		return base, 0, nil
	}
	off, err := a.imm12(op[:open])
	return base, off, err
}

var branchOps = map[string]uint32{
	"beq": F3_BEQ, "bne": F3_BNE, "blt": F3_BLT, "bge": F3_BGE, "bltu": F3_BLTU, "bgeu": F3_BGEU,
}

var swappedBranchOps = map[string]uint32{
	"bgt": F3_BLT, "ble": F3_BGE, "bgtu": F3_BLTU, "bleu": F3_BGEU,
}

var loadOps = map[string]uint32{"lb": F3_LB, "lh": F3_LH, "lw": F3_LW, "lbu": F3_LBU, "lhu": F3_LHU}

var storeOps = map[string]uint32{"sb": F3_SB, "sh": F3_SH, "sw": F3_SW}

var immOps = map[string]uint32{
	"addi": F3_ADD, "slti": F3_SLT, "sltiu": F3_SLTU, "xori": F3_XOR, "ori": F3_OR, "andi": F3_AND,
}

var shiftImmOps = map[string][2]uint32{
	"slli": {F3_SLL, F7_BASE}, "srli": {F3_SR, F7_BASE}, "srai": {F3_SR, F7_ALT},
}

var regOps = map[string][2]uint32{
	"add": {F3_ADD, F7_BASE}, "sub": {F3_ADD, F7_ALT}, "sll": {F3_SLL, F7_BASE},
	"slt": {F3_SLT, F7_BASE}, "sltu": {F3_SLTU, F7_BASE}, "xor": {F3_XOR, F7_BASE},
	"srl": {F3_SR, F7_BASE}, "sra": {F3_SR, F7_ALT}, "or": {F3_OR, F7_BASE}, "and": {F3_AND, F7_BASE},
	"mul": {F3_MUL, F7_MULD}, "div": {F3_DIV, F7_MULD}, "divu": {F3_DIVU, F7_MULD},
	"rem": {F3_REM, F7_MULD}, "remu": {F3_REMU, F7_MULD},
}

func (a *ZR32Assembler) instruction(m string, ops []string) ([]uint32, error) {
	if f3, ok := branchOps[m]; ok {
		r, err := a.regs(ops, 2, m)
		if err != nil {
			return nil, err
		}
		if len(ops) != 3 {
			return nil, a.errorf("%s expects rs1, rs2, target", m)
		}
		off, err := a.pcRel(ops[2], 13)
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeB(f3, r[0], r[1], off)}, nil
	}
	if f3, ok := swappedBranchOps[m]; ok {
		r, err := a.regs(ops, 2, m)
		if err != nil {
			return nil, err
		}
		if len(ops) != 3 {
			return nil, a.errorf("%s expects rs1, rs2, target", m)
		}
		off, err := a.pcRel(ops[2], 13)
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeB(f3, r[1], r[0], off)}, nil
	}
	if f3, ok := loadOps[m]; ok {
		if len(ops) != 2 {
			return nil, a.errorf("%s expects rd, offset(rs1)", m)
		}
		rd, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		base, off, err := a.memOperand(ops[1])
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeI(OP_LOAD, rd, f3, base, off)}, nil
	}
	if f3, ok := storeOps[m]; ok {
		if len(ops) != 2 {
			return nil, a.errorf("%s expects rs2, offset(rs1)", m)
		}
		src, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		base, off, err := a.memOperand(ops[1])
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeS(OP_STORE, f3, base, src, off)}, nil
	}
	if f3, ok := immOps[m]; ok {
		r, err := a.regs(ops, 2, m)
		if err != nil {
			return nil, err
		}
		if len(ops) != 3 {
			return nil, a.errorf("%s expects rd, rs1, imm", m)
		}
		imm, err := a.imm12(ops[2])
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeI(OP_IMM, r[0], f3, r[1], imm)}, nil
	}
	if f, ok := shiftImmOps[m]; ok {
		r, err := a.regs(ops, 2, m)
		if err != nil {
			return nil, err
		}
		if len(ops) != 3 {
			return nil, a.errorf("%s expects rd, rs1, shamt", m)
		}
		sh, err := a.evalConst(ops[2])
		if err != nil || sh > 31 {
			return nil, a.errorf("%s shift amount must be 0-31", m)
		}
		return []uint32{EncodeR(OP_IMM, r[0], f[0], r[1], sh, f[1])}, nil
	}
	if f, ok := regOps[m]; ok {
		if len(ops) != 3 {
			return nil, a.errorf("%s expects rd, rs1, rs2", m)
		}
		r, err := a.regs(ops, 3, m)
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeR(OP_REG, r[0], f[0], r[1], r[2], f[1])}, nil
	}

	switch m {
	case "lui", "auipc":
		if len(ops) != 2 {
			return nil, a.errorf("%s expects rd, imm20", m)
		}
		rd, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		v, err := a.evalValue(ops[1])
		if err != nil {
			return nil, a.errorf("%v", err)
		}
		if a.pass == 2 && v > 0xFFFFF {
			return nil, a.errorf("%s immediate 0x%X exceeds 20 bits", m, v)
		}
		op := uint32(OP_LUI)
		if m == "auipc" {
			op = OP_AUIPC
		}
		return []uint32{EncodeU(op, rd, v)}, nil

	case "jal":
		rd := uint32(RA)
		target := ""
		switch len(ops) {
		case 1:
			target = ops[0]
		case 2:
			r, err := a.reg(ops[0])
			if err != nil {
				return nil, err
			}
			rd, target = r, ops[1]
		default:
			return nil, a.errorf("jal expects [rd,] target")
		}
		off, err := a.pcRel(target, 21)
		if err != nil {
			return nil, err
		}
		return []uint32{EncodeJ(rd, off)}, nil

	case "jalr":
		switch len(ops) {
		case 1:
			rs, err := a.reg(ops[0])
			if err != nil {
				return nil, err
			}
			return []uint32{JALR(RA, rs, 0)}, nil
		case 2:
			rd, err := a.reg(ops[0])
			if err != nil {
				return nil, err
			}
			base, off, err := a.memOperand(ops[1])
			if err != nil {
				return nil, err
			}
			return []uint32{JALR(rd, base, off)}, nil
		case 3:
			r, err := a.regs(ops, 2, m)
			if err != nil {
				return nil, err
			}
			imm, err := a.imm12(ops[2])
			if err != nil {
				return nil, err
			}
			return []uint32{JALR(r[0], r[1], imm)}, nil
		}
		return nil, a.errorf("jalr expects rd, rs1, imm")

	// Pseudo-instructions
	case "nop":
		return []uint32{NOP()}, nil
	case "ret":
		return []uint32{JALR(ZERO, RA, 0)}, nil
	case "mv", "not", "neg":
		if len(ops) != 2 {
			return nil, a.errorf("%s expects rd, rs", m)
		}
		r, err := a.regs(ops, 2, m)
		if err != nil {
			return nil, err
		}
		switch m {
		case "mv":
			return []uint32{ADDI(r[0], r[1], 0)}, nil
		case "not":
			return []uint32{XORI(r[0], r[1], -1)}, nil
		}
		return []uint32{SUB(r[0], ZERO, r[1])}, nil
	case "j", "call":
		if len(ops) != 1 {
			return nil, a.errorf("%s expects a target", m)
		}
		off, err := a.pcRel(ops[0], 21)
		if err != nil {
			return nil, err
		}
		rd := uint32(ZERO)
		if m == "call" {
			rd = RA
		}
		return []uint32{EncodeJ(rd, off)}, nil
	case "jr":
		if len(ops) != 1 {
			return nil, a.errorf("jr expects a register")
		}
		rs, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		return []uint32{JALR(ZERO, rs, 0)}, nil
	case "beqz", "bnez":
		if len(ops) != 2 {
			return nil, a.errorf("%s expects rs, target", m)
		}
		rs, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		off, err := a.pcRel(ops[1], 13)
		if err != nil {
			return nil, err
		}
		if m == "beqz" {
			return []uint32{BEQ(rs, ZERO, off)}, nil
		}
		return []uint32{BNE(rs, ZERO, off)}, nil
	case "li":
		if len(ops) != 2 {
			return nil, a.errorf("li expects rd, imm")
		}
		rd, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		// Constants known in pass 1 that fit in 12 bits take one word;
		// everything else, including labels, takes LUI+ADDI.
		if a.pass == 1 {
			v, err := a.evalConst(ops[1])
			a.liShort[a.line] = err == nil && fitsSigned(int32(v), 12)
		}
		if a.liShort[a.line] {
			v, _ := a.evalConst(ops[1])
			return []uint32{ADDI(rd, ZERO, int32(v))}, nil
		}
		return a.loadAddress(rd, ops[1])
	case "la":
		if len(ops) != 2 {
			return nil, a.errorf("la expects rd, symbol")
		}
		rd, err := a.reg(ops[0])
		if err != nil {
			return nil, err
		}
		return a.loadAddress(rd, ops[1])
	}

	return nil, a.errorf("unknown instruction '%s'", m)
}

func (a *ZR32Assembler) loadAddress(rd uint32, op string) ([]uint32, error) {
	v, err := a.evalValue(op)
	if err != nil {
		return nil, a.errorf("%v", err)
	}
	hi, lo := HiLo(v)
	return []uint32{LUI(rd, hi), ADDI(rd, rd, lo)}, nil
}
