// cpu_zr32.go - ZR32 integer CPU core

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
cpu_zr32.go - ZR32 integer CPU for the Zenu Pocket

This module implements the cartridge CPU: a 32-bit load-store machine that
runs the RV32I base integer encodings plus the multiply/divide group. It
has a single running state. There are no traps, interrupts or privilege
levels; anything the decoder does not recognise executes as a no-op.

Core Features:
- 32 general-purpose 32-bit registers (x0 reads as zero after every step)
- Fixed 4-byte little-endian instructions fetched through the bus
- PC advances before execution; PC-relative targets use the fetch address
- All arithmetic wraps; no overflow detection
- Division by zero and INT32_MIN / -1 follow a fixed result policy

Instruction Encoding (32 bits):
  opcode  = bits 0-6
  rd      = bits 7-11
  funct3  = bits 12-14
  rs1     = bits 15-19
  rs2     = bits 20-24
  funct7  = bits 25-31
  imm_i   = bits 20-31, sign-extended

Thread Safety:
- The CPU is owned by the simulation goroutine and is not safe for
  concurrent use
*/

package main

import (
	"fmt"
	"time"
)

// ------------------------------------------------------------------------------
// Major Opcodes
// ------------------------------------------------------------------------------
const (
	ZR32_OP_LUI    = 0x37
	ZR32_OP_AUIPC  = 0x17
	ZR32_OP_JAL    = 0x6F
	ZR32_OP_JALR   = 0x67
	ZR32_OP_BRANCH = 0x63
	ZR32_OP_LOAD   = 0x03
	ZR32_OP_STORE  = 0x23
	ZR32_OP_IMM    = 0x13
	ZR32_OP_REG    = 0x33
)

const (
	ZR32_INSTR_SIZE   = 4
	ZR32_RESET_VECTOR = ROM_START
	ZR32_FUNCT7_ALT   = 0x20
	ZR32_FUNCT7_MULD  = 0x01
)

// ------------------------------------------------------------------------------
// Decoded Instruction
// ------------------------------------------------------------------------------

type zr32Kind uint8

const (
	kindInvalid zr32Kind = iota
	kindLUI
	kindAUIPC
	kindJAL
	kindJALR

	kindBEQ
	kindBNE
	kindBLT
	kindBGE
	kindBLTU
	kindBGEU

	kindLB
	kindLH
	kindLW
	kindLBU
	kindLHU

	kindSB
	kindSH
	kindSW

	kindADDI
	kindSLTI
	kindSLTIU
	kindXORI
	kindORI
	kindANDI
	kindSLLI
	kindSRLI
	kindSRAI

	kindADD
	kindSUB
	kindSLL
	kindSLT
	kindSLTU
	kindXOR
	kindSRL
	kindSRA
	kindOR
	kindAND

	kindMUL
	kindDIV
	kindDIVU
	kindREM
	kindREMU
)

var zr32KindNames = [...]string{
	kindInvalid: "???",
	kindLUI:     "lui", kindAUIPC: "auipc", kindJAL: "jal", kindJALR: "jalr",
	kindBEQ: "beq", kindBNE: "bne", kindBLT: "blt", kindBGE: "bge", kindBLTU: "bltu", kindBGEU: "bgeu",
	kindLB: "lb", kindLH: "lh", kindLW: "lw", kindLBU: "lbu", kindLHU: "lhu",
	kindSB: "sb", kindSH: "sh", kindSW: "sw",
	kindADDI: "addi", kindSLTI: "slti", kindSLTIU: "sltiu", kindXORI: "xori", kindORI: "ori", kindANDI: "andi",
	kindSLLI: "slli", kindSRLI: "srli", kindSRAI: "srai",
	kindADD: "add", kindSUB: "sub", kindSLL: "sll", kindSLT: "slt", kindSLTU: "sltu",
	kindXOR: "xor", kindSRL: "srl", kindSRA: "sra", kindOR: "or", kindAND: "and",
	kindMUL: "mul", kindDIV: "div", kindDIVU: "divu", kindREM: "rem", kindREMU: "remu",
}

func (k zr32Kind) String() string {
	if int(k) < len(zr32KindNames) {
		return zr32KindNames[k]
	}
	return "???"
}

// zr32Instr is a fully decoded instruction. imm already carries the
// sign-extended immediate for the instruction's format; for immediate
// shifts it holds the 5-bit shift amount.
type zr32Instr struct {
	kind zr32Kind
	rd   uint8
	rs1  uint8
	rs2  uint8
	imm  int32
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func immJ(word uint32) int32 {
	v := (word>>31)&1<<20 | (word>>21)&0x3FF<<1 | (word>>20)&1<<11 | (word>>12)&0xFF<<12
	return signExtend(v, 21)
}

func immB(word uint32) int32 {
	v := (word>>31)&1<<12 | (word>>25)&0x3F<<5 | (word>>8)&0xF<<1 | (word>>7)&1<<11
	return signExtend(v, 13)
}

func immS(word uint32) int32 {
	v := (word>>25)&0x7F<<5 | (word>>7)&0x1F
	return signExtend(v, 12)
}

var (
	branchKinds = [8]zr32Kind{kindBEQ, kindBNE, kindInvalid, kindInvalid, kindBLT, kindBGE, kindBLTU, kindBGEU}
	loadKinds   = [8]zr32Kind{kindLB, kindLH, kindLW, kindInvalid, kindLBU, kindLHU, kindInvalid, kindInvalid}
	storeKinds  = [8]zr32Kind{kindSB, kindSH, kindSW, kindInvalid, kindInvalid, kindInvalid, kindInvalid, kindInvalid}
	immKinds    = [8]zr32Kind{kindADDI, kindSLLI, kindSLTI, kindSLTIU, kindXORI, kindSRLI, kindORI, kindANDI}
	regKinds    = [8]zr32Kind{kindADD, kindSLL, kindSLT, kindSLTU, kindXOR, kindSRL, kindOR, kindAND}
	mulDivKinds = [8]zr32Kind{kindMUL, kindInvalid, kindInvalid, kindInvalid, kindDIV, kindDIVU, kindREM, kindREMU}
)

// decodeZR32 splits a raw word into a zr32Instr. Encodings outside the
// supported set decode to kindInvalid.
func decodeZR32(word uint32) zr32Instr {
	opcode := word & 0x7F
	funct3 := (word >> 12) & 7
	funct7 := word >> 25
	in := zr32Instr{
		rd:  uint8((word >> 7) & 0x1F),
		rs1: uint8((word >> 15) & 0x1F),
		rs2: uint8((word >> 20) & 0x1F),
		imm: int32(word) >> 20,
	}

	switch opcode {
	case ZR32_OP_LUI:
		in.kind = kindLUI
		in.imm = int32(word & 0xFFFFF000)
	case ZR32_OP_AUIPC:
		in.kind = kindAUIPC
		in.imm = int32(word & 0xFFFFF000)
	case ZR32_OP_JAL:
		in.kind = kindJAL
		in.imm = immJ(word)
	case ZR32_OP_JALR:
		in.kind = kindJALR
	case ZR32_OP_BRANCH:
		in.kind = branchKinds[funct3]
		in.imm = immB(word)
	case ZR32_OP_LOAD:
		in.kind = loadKinds[funct3]
	case ZR32_OP_STORE:
		in.kind = storeKinds[funct3]
		in.imm = immS(word)
	case ZR32_OP_IMM:
		in.kind = immKinds[funct3]
		switch funct3 {
		case 1:
			in.imm = int32(in.rs2)
		case 5:
			in.imm = int32(in.rs2)
			if funct7 != 0 {
				in.kind = kindSRAI
			}
		}
	case ZR32_OP_REG:
		switch funct7 {
		case 0:
			in.kind = regKinds[funct3]
		case ZR32_FUNCT7_MULD:
			in.kind = mulDivKinds[funct3]
		case ZR32_FUNCT7_ALT:
			switch funct3 {
			case 0:
				in.kind = kindSUB
			case 5:
				in.kind = kindSRA
			}
		}
	}
	return in
}

// ------------------------------------------------------------------------------
// CPUZR32
// ------------------------------------------------------------------------------

type CPUZR32 struct {
	regs [32]uint32
	PC   uint32
	bus  Bus32

	// Diagnostics
	TraceEnabled     bool
	PerfEnabled      bool
	InstructionCount uint64
	perfStartTime    time.Time
	lastPerfReport   time.Time
}

func NewCPUZR32(bus Bus32) *CPUZR32 {
	cpu := &CPUZR32{bus: bus}
	cpu.Reset()
	return cpu
}

// Reset clears the register file and points PC at the ROM entry.
func (cpu *CPUZR32) Reset() {
	cpu.regs = [32]uint32{}
	cpu.PC = ZR32_RESET_VECTOR
	cpu.InstructionCount = 0
}

// Reg returns register x[idx&31].
func (cpu *CPUZR32) Reg(idx int) uint32 {
	return cpu.regs[idx&31]
}

// SetReg writes register x[idx&31]. Writes to x0 are dropped.
func (cpu *CPUZR32) SetReg(idx int, value uint32) {
	if idx&31 == 0 {
		return
	}
	cpu.regs[idx&31] = value
}

// ------------------------------------------------------------------------------
// Execution
// ------------------------------------------------------------------------------

// Step executes exactly one instruction.
func (cpu *CPUZR32) Step() {
	word := cpu.bus.Read32(cpu.PC)
	if cpu.TraceEnabled {
		fmt.Printf("0x%08X: %s\n", cpu.PC, Disassemble(word))
	}
	cpu.PC += ZR32_INSTR_SIZE
	cpu.execute(decodeZR32(word))
	cpu.regs[0] = 0
}

// Run executes budget instructions and returns how many ran.
func (cpu *CPUZR32) Run(budget int) int {
	if cpu.PerfEnabled && cpu.perfStartTime.IsZero() {
		cpu.perfStartTime = time.Now()
		cpu.lastPerfReport = cpu.perfStartTime
	}
	for i := 0; i < budget; i++ {
		cpu.Step()
	}
	cpu.InstructionCount += uint64(budget)

	if cpu.PerfEnabled {
		now := time.Now()
		if now.Sub(cpu.lastPerfReport) >= time.Second {
			elapsed := now.Sub(cpu.perfStartTime).Seconds()
			fmt.Printf("ZR32: %.2f MIPS (%.0f instructions in %.1fs)\n", cpu.MIPS(), float64(cpu.InstructionCount), elapsed)
			cpu.lastPerfReport = now
		}
	}
	return budget
}

// MIPS reports average throughput since perf measurement started.
func (cpu *CPUZR32) MIPS() float64 {
	if cpu.perfStartTime.IsZero() {
		return 0
	}
	elapsed := time.Since(cpu.perfStartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(cpu.InstructionCount) / elapsed / 1_000_000
}

func (cpu *CPUZR32) execute(in zr32Instr) {
	r := &cpu.regs
	pc := cpu.PC - ZR32_INSTR_SIZE // address of this instruction
	a, b := r[in.rs1], r[in.rs2]
	imm := uint32(in.imm)

	switch in.kind {
	case kindLUI:
		r[in.rd] = imm
	case kindAUIPC:
		r[in.rd] = pc + imm
	case kindJAL:
		r[in.rd] = cpu.PC
		cpu.PC = pc + imm
	case kindJALR:
		target := (a + imm) &^ 1
		r[in.rd] = cpu.PC
		cpu.PC = target

	case kindBEQ, kindBNE, kindBLT, kindBGE, kindBLTU, kindBGEU:
		if branchTaken(in.kind, a, b) {
			cpu.PC = pc + imm
		}

	case kindLB:
		r[in.rd] = uint32(int32(int8(cpu.bus.Read8(a + imm))))
	case kindLH:
		r[in.rd] = uint32(int32(int16(cpu.bus.Read16(a + imm))))
	case kindLW:
		r[in.rd] = cpu.bus.Read32(a + imm)
	case kindLBU:
		r[in.rd] = uint32(cpu.bus.Read8(a + imm))
	case kindLHU:
		r[in.rd] = uint32(cpu.bus.Read16(a + imm))

	case kindSB:
		cpu.bus.Write8(a+imm, uint8(b))
	case kindSH:
		cpu.bus.Write16(a+imm, uint16(b))
	case kindSW:
		cpu.bus.Write32(a+imm, b)

	case kindADDI:
		r[in.rd] = a + imm
	case kindSLTI:
		r[in.rd] = boolToU32(int32(a) < in.imm)
	case kindSLTIU:
		r[in.rd] = boolToU32(a < imm)
	case kindXORI:
		r[in.rd] = a ^ imm
	case kindORI:
		r[in.rd] = a | imm
	case kindANDI:
		r[in.rd] = a & imm
	case kindSLLI:
		r[in.rd] = a << (imm & 0x1F)
	case kindSRLI:
		r[in.rd] = a >> (imm & 0x1F)
	case kindSRAI:
		r[in.rd] = uint32(int32(a) >> (imm & 0x1F))

	case kindADD:
		r[in.rd] = a + b
	case kindSUB:
		r[in.rd] = a - b
	case kindSLL:
		r[in.rd] = a << (b & 0x1F)
	case kindSLT:
		r[in.rd] = boolToU32(int32(a) < int32(b))
	case kindSLTU:
		r[in.rd] = boolToU32(a < b)
	case kindXOR:
		r[in.rd] = a ^ b
	case kindSRL:
		r[in.rd] = a >> (b & 0x1F)
	case kindSRA:
		r[in.rd] = uint32(int32(a) >> (b & 0x1F))
	case kindOR:
		r[in.rd] = a | b
	case kindAND:
		r[in.rd] = a & b

	case kindMUL:
		r[in.rd] = uint32(int32(a) * int32(b))
	case kindDIV:
		r[in.rd] = divSigned(a, b)
	case kindDIVU:
		r[in.rd] = divUnsigned(a, b)
	case kindREM:
		r[in.rd] = remSigned(a, b)
	case kindREMU:
		r[in.rd] = remUnsigned(a, b)

	case kindInvalid:
		// no-op
	}
}

func branchTaken(kind zr32Kind, a, b uint32) bool {
	switch kind {
	case kindBEQ:
		return a == b
	case kindBNE:
		return a != b
	case kindBLT:
		return int32(a) < int32(b)
	case kindBGE:
		return int32(a) >= int32(b)
	case kindBLTU:
		return a < b
	case kindBGEU:
		return a >= b
	}
	return false
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ------------------------------------------------------------------------------
// Division policy
//
//   x / 0           = 0xFFFFFFFF (signed and unsigned)
//   x % 0           = x
//   INT32_MIN / -1  = INT32_MIN
//   INT32_MIN % -1  = 0
// ------------------------------------------------------------------------------

func divSigned(a, b uint32) uint32 {
	switch {
	case b == 0:
		return 0xFFFFFFFF
	case a == 0x80000000 && b == 0xFFFFFFFF:
		return a
	}
	return uint32(int32(a) / int32(b))
}

func divUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func remSigned(a, b uint32) uint32 {
	switch {
	case b == 0:
		return a
	case a == 0x80000000 && b == 0xFFFFFFFF:
		return 0
	}
	return uint32(int32(a) % int32(b))
}

func remUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
