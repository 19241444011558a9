package main

import (
	"strings"
	"testing"

	asm "github.com/StrayKOficial/zenu-virtualconsole/assembler"
)

// ===========================================================================
// Test Rig
// ===========================================================================

type zr32TestRig struct {
	bus *MachineBus
	cpu *CPUZR32
}

func newZR32TestRig() *zr32TestRig {
	bus := NewMachineBus()
	return &zr32TestRig{bus: bus, cpu: NewCPUZR32(bus)}
}

func (r *zr32TestRig) load(words ...uint32) {
	r.bus.LoadROM(asm.Words(words...))
	r.cpu.PC = ROM_START
}

// exec loads the words and steps once per word.
func (r *zr32TestRig) exec(words ...uint32) {
	r.load(words...)
	for range words {
		r.cpu.Step()
	}
}

// ===========================================================================
// Reset and register file
// ===========================================================================

func TestZR32_Reset(t *testing.T) {
	r := newZR32TestRig()
	r.cpu.SetReg(5, 99)
	r.cpu.PC = 0x1234
	r.cpu.Reset()

	if r.cpu.PC != ROM_START {
		t.Fatalf("PC = 0x%X, want 0x%X", r.cpu.PC, ROM_START)
	}
	for i := 0; i < 32; i++ {
		if r.cpu.Reg(i) != 0 {
			t.Fatalf("x%d = 0x%X after reset, want 0", i, r.cpu.Reg(i))
		}
	}
}

func TestZR32_X0AlwaysZero(t *testing.T) {
	r := newZR32TestRig()
	r.exec(
		asm.ADDI(0, 0, 5),
		asm.LUI(0, 0xFFFFF),
		asm.ADD(1, 0, 0),
	)
	if r.cpu.Reg(0) != 0 {
		t.Fatalf("x0 = 0x%X, want 0", r.cpu.Reg(0))
	}
	if r.cpu.Reg(1) != 0 {
		t.Fatalf("x1 = 0x%X, want 0 (read x0 after writes)", r.cpu.Reg(1))
	}
	r.cpu.SetReg(0, 7)
	if r.cpu.Reg(0) != 0 {
		t.Fatal("SetReg wrote x0")
	}
}

func TestZR32_X0SurvivesEveryEncoding(t *testing.T) {
	opcodes := []uint32{
		ZR32_OP_LUI, ZR32_OP_AUIPC, ZR32_OP_JAL, ZR32_OP_JALR, ZR32_OP_BRANCH,
		ZR32_OP_LOAD, ZR32_OP_STORE, ZR32_OP_IMM, ZR32_OP_REG,
		0x00, 0x0F, 0x73, 0x7F, // not implemented
	}
	funct7s := []uint32{0x00, 0x01, 0x20, 0x7F}

	r := newZR32TestRig()
	for _, op := range opcodes {
		for f3 := uint32(0); f3 < 8; f3++ {
			for _, f7 := range funct7s {
				word := f7<<25 | 2<<20 | 1<<15 | f3<<12 | op
				r.load(word)
				r.cpu.SetReg(1, RAM_START+0x40)
				r.cpu.SetReg(2, 0xDEADBEEF)
				r.cpu.Step()
				if got := r.cpu.Reg(0); got != 0 {
					t.Fatalf("word 0x%08X (%s): x0 = 0x%X, want 0", word, Disassemble(word), got)
				}
			}
		}
	}
}

func TestZR32_LUIThenSelfJump(t *testing.T) {
	r := newZR32TestRig()
	r.load(asm.LUI(1, 0x12345), asm.JAL(0, 0))

	r.cpu.Step()
	if r.cpu.Reg(1) != 0x12345000 {
		t.Fatalf("x1 = 0x%08X, want 0x12345000", r.cpu.Reg(1))
	}
	for i := 0; i < 3; i++ {
		r.cpu.Step()
		if r.cpu.PC != ROM_START+4 {
			t.Fatalf("step %d: PC = 0x%08X, want 0x%08X", i, r.cpu.PC, ROM_START+4)
		}
	}
}

// ===========================================================================
// Arithmetic
// ===========================================================================

func TestZR32_ArithmeticWraps(t *testing.T) {
	tests := []struct {
		name string
		a, b uint32
		op   func(rd, rs1, rs2 uint32) uint32
		want uint32
	}{
		{"add overflow", 0x7FFFFFFF, 1, asm.ADD, 0x80000000},
		{"add carry out", 0xFFFFFFFF, 2, asm.ADD, 1},
		{"sub underflow", 0, 1, asm.SUB, 0xFFFFFFFF},
		{"mul wraps", 0x10000, 0x10000, asm.MUL, 0},
		{"mul signed", 0xFFFFFFFF, 7, asm.MUL, 0xFFFFFFF9},
		{"and", 0xF0F0F0F0, 0x0FF00FF0, asm.AND, 0x00F000F0},
		{"or", 0xF0000000, 0x0000000F, asm.OR, 0xF000000F},
		{"xor", 0xFFFF0000, 0xFF00FF00, asm.XOR, 0x00FFFF00},
		{"slt signed", 0xFFFFFFFF, 1, asm.SLT, 1},
		{"sltu unsigned", 0xFFFFFFFF, 1, asm.SLTU, 0},
		{"sll masks shift", 1, 33, asm.SLL, 2},
		{"srl masks shift", 0x80000000, 63, asm.SRL, 1},
		{"sra sign fills", 0x80000000, 4, asm.SRA, 0xF8000000},
		{"sra masks shift", 0x80000000, 32, asm.SRA, 0x80000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newZR32TestRig()
			r.cpu.SetReg(1, tt.a)
			r.cpu.SetReg(2, tt.b)
			r.exec(tt.op(3, 1, 2))
			if got := r.cpu.Reg(3); got != tt.want {
				t.Fatalf("x3 = 0x%08X, want 0x%08X", got, tt.want)
			}
		})
	}
}

func TestZR32_Immediates(t *testing.T) {
	tests := []struct {
		name string
		a    uint32
		in   uint32
		want uint32
	}{
		{"addi negative", 5, asm.ADDI(3, 1, -6), 0xFFFFFFFF},
		{"addi wraps", 0x7FFFFFFF, asm.ADDI(3, 1, 1), 0x80000000},
		{"slti", 0xFFFFFFFE, asm.SLTI(3, 1, -1), 1},
		{"sltiu sign-extended imm", 5, asm.SLTIU(3, 1, -1), 1},
		{"xori -1 is not", 0x0000FFFF, asm.XORI(3, 1, -1), 0xFFFF0000},
		{"ori", 0x100, asm.ORI(3, 1, 0x0F), 0x10F},
		{"andi sign-extended", 0x12345678, asm.ANDI(3, 1, -16), 0x12345670},
		{"slli", 3, asm.SLLI(3, 1, 31), 0x80000000},
		{"srli", 0x80000000, asm.SRLI(3, 1, 31), 1},
		{"srai", 0x80000000, asm.SRAI(3, 1, 31), 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newZR32TestRig()
			r.cpu.SetReg(1, tt.a)
			r.exec(tt.in)
			if got := r.cpu.Reg(3); got != tt.want {
				t.Fatalf("x3 = 0x%08X, want 0x%08X", got, tt.want)
			}
		})
	}
}

func TestZR32_DivisionPolicy(t *testing.T) {
	tests := []struct {
		name string
		a, b uint32
		op   func(rd, rs1, rs2 uint32) uint32
		want uint32
	}{
		{"div", 0xFFFFFFF9, 2, asm.DIV, 0xFFFFFFFD}, // -7/2 = -3
		{"divu", 0xFFFFFFF9, 2, asm.DIVU, 0x7FFFFFFC},
		{"rem", 0xFFFFFFF9, 2, asm.REM, 0xFFFFFFFF}, // -7%2 = -1
		{"remu", 7, 2, asm.REMU, 1},
		{"div by zero", 42, 0, asm.DIV, 0xFFFFFFFF},
		{"divu by zero", 42, 0, asm.DIVU, 0xFFFFFFFF},
		{"rem by zero", 42, 0, asm.REM, 42},
		{"remu by zero", 0xFFFFFFF0, 0, asm.REMU, 0xFFFFFFF0},
		{"div overflow", 0x80000000, 0xFFFFFFFF, asm.DIV, 0x80000000},
		{"rem overflow", 0x80000000, 0xFFFFFFFF, asm.REM, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newZR32TestRig()
			r.cpu.SetReg(1, tt.a)
			r.cpu.SetReg(2, tt.b)
			r.exec(tt.op(3, 1, 2))
			if got := r.cpu.Reg(3); got != tt.want {
				t.Fatalf("x3 = 0x%08X, want 0x%08X", got, tt.want)
			}
		})
	}
}

func TestZR32_AUIPC(t *testing.T) {
	r := newZR32TestRig()
	r.exec(asm.NOP(), asm.AUIPC(5, 0x00010))
	if want := uint32(ROM_START + 4 + 0x10000); r.cpu.Reg(5) != want {
		t.Fatalf("x5 = 0x%08X, want 0x%08X", r.cpu.Reg(5), want)
	}
}

// ===========================================================================
// Control flow
// ===========================================================================

func TestZR32_BranchesSignedVsUnsigned(t *testing.T) {
	neg1 := uint32(0xFFFFFFFF)
	tests := []struct {
		name  string
		op    func(rs1, rs2 uint32, off int32) uint32
		a, b  uint32
		taken bool
	}{
		{"beq equal", asm.BEQ, 5, 5, true},
		{"beq differ", asm.BEQ, 5, 6, false},
		{"bne differ", asm.BNE, 5, 6, true},
		{"bne equal", asm.BNE, 5, 5, false},
		{"blt -1<1", asm.BLT, neg1, 1, true},
		{"bltu 0xFFFFFFFF<1", asm.BLTU, neg1, 1, false},
		{"bge -1>=1", asm.BGE, neg1, 1, false},
		{"bgeu 0xFFFFFFFF>=1", asm.BGEU, neg1, 1, true},
		{"blt 1<-1", asm.BLT, 1, neg1, false},
		{"bltu 1<0xFFFFFFFF", asm.BLTU, 1, neg1, true},
		{"bge equal", asm.BGE, neg1, neg1, true},
		{"bgeu equal", asm.BGEU, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newZR32TestRig()
			r.cpu.SetReg(1, tt.a)
			r.cpu.SetReg(2, tt.b)
			r.exec(tt.op(1, 2, 16))
			want := uint32(ROM_START + 4)
			if tt.taken {
				want = ROM_START + 16
			}
			if r.cpu.PC != want {
				t.Fatalf("PC = 0x%08X, want 0x%08X", r.cpu.PC, want)
			}
		})
	}
}

func TestZR32_BackwardBranch(t *testing.T) {
	r := newZR32TestRig()
	// x1 counts down from 3; loop body is the ADDI
	r.cpu.SetReg(1, 3)
	r.load(asm.ADDI(1, 1, -1), asm.BNE(1, 0, -4), asm.ADDI(2, 0, 1))
	for iter := 0; iter < 7; iter++ {
		r.cpu.Step()
	}
	if r.cpu.Reg(1) != 0 || r.cpu.Reg(2) != 1 {
		t.Fatalf("x1=%d x2=%d, want 0 and 1", r.cpu.Reg(1), r.cpu.Reg(2))
	}
}

func TestZR32_JALLinksAndJumps(t *testing.T) {
	r := newZR32TestRig()
	r.exec(asm.JAL(1, 0x100))
	if r.cpu.Reg(1) != ROM_START+4 {
		t.Fatalf("ra = 0x%08X, want 0x%08X", r.cpu.Reg(1), ROM_START+4)
	}
	if r.cpu.PC != ROM_START+0x100 {
		t.Fatalf("PC = 0x%08X, want 0x%08X", r.cpu.PC, ROM_START+0x100)
	}

	r = newZR32TestRig()
	r.load(asm.NOP(), asm.NOP(), asm.JAL(0, -8))
	for iter := 0; iter < 3; iter++ {
		r.cpu.Step()
	}
	if r.cpu.PC != ROM_START {
		t.Fatalf("negative JAL: PC = 0x%08X, want 0x%08X", r.cpu.PC, ROM_START)
	}
}

func TestZR32_JALRClearsBitZero(t *testing.T) {
	r := newZR32TestRig()
	r.cpu.SetReg(2, RAM_START+0x21)
	r.exec(asm.JALR(1, 2, 2))
	if r.cpu.PC != RAM_START+0x22 {
		t.Fatalf("PC = 0x%08X, want 0x%08X", r.cpu.PC, RAM_START+0x22)
	}
	if r.cpu.Reg(1) != ROM_START+4 {
		t.Fatalf("link = 0x%08X, want 0x%08X", r.cpu.Reg(1), ROM_START+4)
	}
}

func TestZR32_JALRSameRegister(t *testing.T) {
	r := newZR32TestRig()
	r.cpu.SetReg(1, RAM_START)
	r.exec(asm.JALR(1, 1, 0))
	if r.cpu.PC != RAM_START {
		t.Fatalf("PC = 0x%08X, want target computed before link", r.cpu.PC)
	}
}

// ===========================================================================
// Memory access
// ===========================================================================

func TestZR32_LoadsAndStores(t *testing.T) {
	r := newZR32TestRig()
	r.cpu.SetReg(1, RAM_START+0x100)
	r.cpu.SetReg(2, 0x8081FF7F)
	r.exec(
		asm.SW(2, 1, 0),
		asm.LB(3, 1, 0),  // 0x7F
		asm.LB(4, 1, 1),  // 0xFF
		asm.LBU(5, 1, 1), // 0xFF
		asm.LH(6, 1, 2),  // 0x8081
		asm.LHU(7, 1, 2), // 0x8081
		asm.LW(8, 1, 0),
		asm.SB(2, 1, 8),
		asm.SH(2, 1, 12),
		asm.LW(9, 1, 8),
		asm.LW(10, 1, 12),
	)
	checks := []struct {
		reg  int
		want uint32
	}{
		{3, 0x0000007F},
		{4, 0xFFFFFFFF},
		{5, 0x000000FF},
		{6, 0xFFFF8081},
		{7, 0x00008081},
		{8, 0x8081FF7F},
		{9, 0x0000007F},
		{10, 0x0000FF7F},
	}
	for _, c := range checks {
		if got := r.cpu.Reg(c.reg); got != c.want {
			t.Errorf("x%d = 0x%08X, want 0x%08X", c.reg, got, c.want)
		}
	}
}

func TestZR32_NegativeStoreOffset(t *testing.T) {
	r := newZR32TestRig()
	r.cpu.SetReg(1, RAM_START+0x40)
	r.cpu.SetReg(2, 0xCAFEF00D)
	r.exec(asm.SW(2, 1, -8))
	if got := r.bus.Read32(RAM_START + 0x38); got != 0xCAFEF00D {
		t.Fatalf("mem = 0x%08X, want 0xCAFEF00D", got)
	}
}

func TestZR32_HalfwordLoadReadsTwoBytes(t *testing.T) {
	r := newZR32TestRig()
	var reads []uint32
	r.bus.MapIO(APU_START, APU_START+APU_SIZE-1,
		func(off uint32) uint8 { reads = append(reads, off); return 0 },
		nil)
	r.cpu.SetReg(1, APU_START)
	r.exec(asm.LHU(2, 1, 4))
	if len(reads) != 2 || reads[0] != 4 || reads[1] != 5 {
		t.Fatalf("LHU touched offsets %v, want [4 5]", reads)
	}
}

func TestZR32_StoreToROMIgnored(t *testing.T) {
	r := newZR32TestRig()
	r.cpu.SetReg(1, ROM_START)
	r.cpu.SetReg(2, 0)
	r.exec(asm.SW(2, 1, 0))
	if got := r.bus.Read32(ROM_START); got != asm.SW(2, 1, 0) {
		t.Fatalf("ROM overwritten: 0x%08X", got)
	}
}

// ===========================================================================
// Unknown encodings
// ===========================================================================

func TestZR32_UnknownEncodingsAreNoOps(t *testing.T) {
	words := []uint32{
		0x00000000, // opcode 0
		0xFFFFFFFF, // opcode 0x7F
		0x0000007B, // unused major opcode
		asm.EncodeR(asm.OP_REG, 3, 1, 1, 2, 0x01), // MULH is not implemented
		asm.EncodeR(asm.OP_REG, 3, 2, 1, 2, 0x20), // SLT with alt funct7
		asm.EncodeB(2, 1, 2, 8),                   // branch funct3 2
		asm.EncodeI(asm.OP_LOAD, 3, 3, 1, 0),      // load funct3 3
		asm.EncodeS(asm.OP_STORE, 3, 1, 2, 0),     // store funct3 3
	}
	for _, w := range words {
		r := newZR32TestRig()
		r.cpu.SetReg(1, RAM_START)
		r.cpu.SetReg(2, 0x55)
		before := r.cpu.regs
		r.exec(w)
		if r.cpu.regs != before {
			t.Errorf("0x%08X changed registers", w)
		}
		if r.cpu.PC != ROM_START+4 {
			t.Errorf("0x%08X: PC = 0x%08X, want 0x%08X", w, r.cpu.PC, ROM_START+4)
		}
		if r.bus.Read32(RAM_START) != 0 {
			t.Errorf("0x%08X wrote memory", w)
		}
	}
}

// ===========================================================================
// Run loop and diagnostics
// ===========================================================================

func TestZR32_RunBudget(t *testing.T) {
	r := newZR32TestRig()
	r.load(asm.ADDI(1, 1, 1), asm.JAL(0, -4))
	if n := r.cpu.Run(1000); n != 1000 {
		t.Fatalf("Run returned %d, want 1000", n)
	}
	if r.cpu.Reg(1) != 500 {
		t.Fatalf("x1 = %d, want 500", r.cpu.Reg(1))
	}
	if r.cpu.InstructionCount != 1000 {
		t.Fatalf("InstructionCount = %d, want 1000", r.cpu.InstructionCount)
	}
}

func TestZR32_ProgramFromSource(t *testing.T) {
	src := `
        li    a0, 10
        li    a1, 0
loop:   add   a1, a1, a0
        addi  a0, a0, -1
        bnez  a0, loop
        li    t0, 0x01000000
        sw    a1, 0(t0)
done:   j     done
`
	img, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	r := newZR32TestRig()
	r.bus.LoadROM(img)
	r.cpu.Run(200)
	if got := r.bus.Read32(RAM_START); got != 55 {
		t.Fatalf("sum = %d, want 55", got)
	}
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		word uint32
		want string
	}{
		{asm.LUI(1, 0x12345), "lui x1, 0x12345"},
		{asm.ADDI(2, 1, -3), "addi x2, x1, -3"},
		{asm.SW(5, 2, 8), "sw x5, 8(x2)"},
		{asm.LBU(4, 3, -1), "lbu x4, -1(x3)"},
		{asm.BEQ(1, 2, -8), "beq x1, x2, -8"},
		{asm.JAL(0, 0), "jal x0, +0"},
		{asm.REMU(3, 1, 2), "remu x3, x1, x2"},
		{asm.SRAI(3, 1, 7), "srai x3, x1, 7"},
		{0xFFFFFFFF, ".word 0xFFFFFFFF"},
	}
	for _, tt := range tests {
		if got := Disassemble(tt.word); got != tt.want {
			t.Errorf("Disassemble(0x%08X) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestDisassembleRange(t *testing.T) {
	r := newZR32TestRig()
	r.load(asm.NOP(), asm.JAL(0, -4))
	lines := DisassembleRange(r.bus, ROM_START, 2, ROM_START+4)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].HexBytes != "13 00 00 00" || lines[0].IsPC {
		t.Fatalf("line 0 = %+v", lines[0])
	}
	if !lines[1].IsPC || !strings.HasSuffix(lines[1].Mnemonic, "0x00010000") {
		t.Fatalf("line 1 = %+v, want absolute target 0x00010000", lines[1])
	}
}
