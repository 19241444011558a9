/*
zr32enc.go - ZR32 instruction encoders

ZR32 Instruction Encoding (32 bits, little-endian in memory):

  R-type:  funct7[31:25] rs2[24:20] rs1[19:15] funct3[14:12] rd[11:7] opcode[6:0]
  I-type:  imm[11:0]              rs1[19:15] funct3[14:12] rd[11:7] opcode[6:0]
  S-type:  imm[11:5]  rs2[24:20]  rs1[19:15] funct3[14:12] imm[4:0] opcode[6:0]
  B-type:  imm[12|10:5] rs2 rs1 funct3 imm[4:1|11] opcode
  U-type:  imm[31:12]                                     rd[11:7] opcode[6:0]
  J-type:  imm[20|10:1|11|19:12]                          rd[11:7] opcode[6:0]

Immediate shifts carry the shift amount in the rs2 field. SRAI sets funct7
to 0x20. The multiply/divide group uses funct7 = 0x01 under the OP opcode.

Registers: x0-x31, with the usual ABI aliases (zero, ra, sp, gp, tp,
t0-t6, s0-s11, fp, a0-a7).
*/

package assembler

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// Major opcodes
const (
	OP_LUI    = 0x37
	OP_AUIPC  = 0x17
	OP_JAL    = 0x6F
	OP_JALR   = 0x67
	OP_BRANCH = 0x63
	OP_LOAD   = 0x03
	OP_STORE  = 0x23
	OP_IMM    = 0x13
	OP_REG    = 0x33
)

// funct3 values
const (
	F3_BEQ  = 0
	F3_BNE  = 1
	F3_BLT  = 4
	F3_BGE  = 5
	F3_BLTU = 6
	F3_BGEU = 7

	F3_LB  = 0
	F3_LH  = 1
	F3_LW  = 2
	F3_LBU = 4
	F3_LHU = 5

	F3_SB = 0
	F3_SH = 1
	F3_SW = 2

	F3_ADD  = 0
	F3_SLL  = 1
	F3_SLT  = 2
	F3_SLTU = 3
	F3_XOR  = 4
	F3_SR   = 5
	F3_OR   = 6
	F3_AND  = 7

	F3_MUL  = 0
	F3_DIV  = 4
	F3_DIVU = 5
	F3_REM  = 6
	F3_REMU = 7
)

const (
	F7_BASE = 0x00
	F7_MULD = 0x01
	F7_ALT  = 0x20
)

// ABI register numbers
const (
	ZERO = 0
	RA   = 1
	SP   = 2
	GP   = 3
	TP   = 4
	T0   = 5
	T1   = 6
	T2   = 7
	S0   = 8
	S1   = 9
	A0   = 10
	A1   = 11
	A2   = 12
	A3   = 13
	A4   = 14
	A5   = 15
	A6   = 16
	A7   = 17
	T3   = 28
	T4   = 29
	T5   = 30
	T6   = 31
)

var abiNames = map[string]uint32{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// ParseRegister accepts xN or an ABI alias, case-insensitive.
func ParseRegister(name string) (uint32, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if r, ok := abiNames[name]; ok {
		return r, true
	}
	if strings.HasPrefix(name, "x") {
		n, err := strconv.Atoi(name[1:])
		if err == nil && n >= 0 && n <= 31 {
			return uint32(n), true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------
// Format encoders
// ---------------------------------------------------------------------

func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7&0x7F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 | (funct3&7)<<12 | (rd&0x1F)<<7 | opcode&0x7F
}

func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | (rs1&0x1F)<<15 | (funct3&7)<<12 | (rd&0x1F)<<7 | opcode&0x7F
}

func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>5)&0x7F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 | (funct3&7)<<12 | (u&0x1F)<<7 | opcode&0x7F
}

// EncodeB takes a byte offset relative to the branch instruction.
func EncodeB(funct3, rs1, rs2 uint32, offset int32) uint32 {
	u := uint32(offset)
	return ((u>>12)&1)<<31 | ((u>>5)&0x3F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 |
		(funct3&7)<<12 | ((u>>1)&0xF)<<8 | ((u>>11)&1)<<7 | OP_BRANCH
}

// EncodeU places a 20-bit value in bits 31:12.
func EncodeU(opcode, rd, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | (rd&0x1F)<<7 | opcode&0x7F
}

// EncodeJ takes a byte offset relative to the jump instruction.
func EncodeJ(rd uint32, offset int32) uint32 {
	u := uint32(offset)
	return ((u>>20)&1)<<31 | ((u>>1)&0x3FF)<<21 | ((u>>11)&1)<<20 | ((u>>12)&0xFF)<<12 | (rd&0x1F)<<7 | OP_JAL
}

// ---------------------------------------------------------------------
// Named instruction helpers
// ---------------------------------------------------------------------

func LUI(rd, imm20 uint32) uint32   { return EncodeU(OP_LUI, rd, imm20) }
func AUIPC(rd, imm20 uint32) uint32 { return EncodeU(OP_AUIPC, rd, imm20) }

func JAL(rd uint32, offset int32) uint32       { return EncodeJ(rd, offset) }
func JALR(rd, rs1 uint32, offset int32) uint32 { return EncodeI(OP_JALR, rd, 0, rs1, offset) }

func BEQ(rs1, rs2 uint32, offset int32) uint32  { return EncodeB(F3_BEQ, rs1, rs2, offset) }
func BNE(rs1, rs2 uint32, offset int32) uint32  { return EncodeB(F3_BNE, rs1, rs2, offset) }
func BLT(rs1, rs2 uint32, offset int32) uint32  { return EncodeB(F3_BLT, rs1, rs2, offset) }
func BGE(rs1, rs2 uint32, offset int32) uint32  { return EncodeB(F3_BGE, rs1, rs2, offset) }
func BLTU(rs1, rs2 uint32, offset int32) uint32 { return EncodeB(F3_BLTU, rs1, rs2, offset) }
func BGEU(rs1, rs2 uint32, offset int32) uint32 { return EncodeB(F3_BGEU, rs1, rs2, offset) }

func LB(rd, rs1 uint32, offset int32) uint32  { return EncodeI(OP_LOAD, rd, F3_LB, rs1, offset) }
func LH(rd, rs1 uint32, offset int32) uint32  { return EncodeI(OP_LOAD, rd, F3_LH, rs1, offset) }
func LW(rd, rs1 uint32, offset int32) uint32  { return EncodeI(OP_LOAD, rd, F3_LW, rs1, offset) }
func LBU(rd, rs1 uint32, offset int32) uint32 { return EncodeI(OP_LOAD, rd, F3_LBU, rs1, offset) }
func LHU(rd, rs1 uint32, offset int32) uint32 { return EncodeI(OP_LOAD, rd, F3_LHU, rs1, offset) }

func SB(rs2, rs1 uint32, offset int32) uint32 { return EncodeS(OP_STORE, F3_SB, rs1, rs2, offset) }
func SH(rs2, rs1 uint32, offset int32) uint32 { return EncodeS(OP_STORE, F3_SH, rs1, rs2, offset) }
func SW(rs2, rs1 uint32, offset int32) uint32 { return EncodeS(OP_STORE, F3_SW, rs1, rs2, offset) }

func ADDI(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OP_IMM, rd, F3_ADD, rs1, imm) }
func SLTI(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OP_IMM, rd, F3_SLT, rs1, imm) }
func SLTIU(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OP_IMM, rd, F3_SLTU, rs1, imm) }
func XORI(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OP_IMM, rd, F3_XOR, rs1, imm) }
func ORI(rd, rs1 uint32, imm int32) uint32   { return EncodeI(OP_IMM, rd, F3_OR, rs1, imm) }
func ANDI(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OP_IMM, rd, F3_AND, rs1, imm) }

func SLLI(rd, rs1, shamt uint32) uint32 { return EncodeR(OP_IMM, rd, F3_SLL, rs1, shamt, F7_BASE) }
func SRLI(rd, rs1, shamt uint32) uint32 { return EncodeR(OP_IMM, rd, F3_SR, rs1, shamt, F7_BASE) }
func SRAI(rd, rs1, shamt uint32) uint32 { return EncodeR(OP_IMM, rd, F3_SR, rs1, shamt, F7_ALT) }

func ADD(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_ADD, rs1, rs2, F7_BASE) }
func SUB(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_ADD, rs1, rs2, F7_ALT) }
func SLL(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_SLL, rs1, rs2, F7_BASE) }
func SLT(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_SLT, rs1, rs2, F7_BASE) }
func SLTU(rd, rs1, rs2 uint32) uint32 { return EncodeR(OP_REG, rd, F3_SLTU, rs1, rs2, F7_BASE) }
func XOR(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_XOR, rs1, rs2, F7_BASE) }
func SRL(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_SR, rs1, rs2, F7_BASE) }
func SRA(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_SR, rs1, rs2, F7_ALT) }
func OR(rd, rs1, rs2 uint32) uint32   { return EncodeR(OP_REG, rd, F3_OR, rs1, rs2, F7_BASE) }
func AND(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_AND, rs1, rs2, F7_BASE) }

func MUL(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_MUL, rs1, rs2, F7_MULD) }
func DIV(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_DIV, rs1, rs2, F7_MULD) }
func DIVU(rd, rs1, rs2 uint32) uint32 { return EncodeR(OP_REG, rd, F3_DIVU, rs1, rs2, F7_MULD) }
func REM(rd, rs1, rs2 uint32) uint32  { return EncodeR(OP_REG, rd, F3_REM, rs1, rs2, F7_MULD) }
func REMU(rd, rs1, rs2 uint32) uint32 { return EncodeR(OP_REG, rd, F3_REMU, rs1, rs2, F7_MULD) }

// NOP is ADDI x0, x0, 0.
func NOP() uint32 { return ADDI(ZERO, ZERO, 0) }

// HiLo splits a 32-bit constant into a LUI value and an ADDI immediate
// whose sign-extended sum reproduces it.
func HiLo(value uint32) (hi uint32, lo int32) {
	lo = int32(value<<20) >> 20
	hi = (value - uint32(lo)) >> 12
	return hi, lo
}

// Words packs instruction words into a little-endian byte image.
func Words(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
