// debug_disasm_zr32.go - ZR32 disassembler for trace output

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

package main

import "fmt"

// DisassembledLine is one row of a disassembly listing.
type DisassembledLine struct {
	Address  uint32
	HexBytes string
	Mnemonic string
	Size     int
	IsPC     bool
}

// Disassemble renders a single instruction word. PC-relative targets are
// shown as signed offsets.
func Disassemble(word uint32) string {
	return formatZR32(decodeZR32(word), word, 0, false)
}

// DisassembleRange decodes count words starting at addr, resolving
// PC-relative targets to absolute addresses.
func DisassembleRange(bus Bus32, addr uint32, count int, pc uint32) []DisassembledLine {
	lines := make([]DisassembledLine, 0, count)
	for i := 0; i < count; i++ {
		word := bus.Read32(addr)
		lines = append(lines, DisassembledLine{
			Address:  addr,
			HexBytes: fmt.Sprintf("%02X %02X %02X %02X", byte(word), byte(word>>8), byte(word>>16), byte(word>>24)),
			Mnemonic: formatZR32(decodeZR32(word), word, addr, true),
			Size:     ZR32_INSTR_SIZE,
			IsPC:     addr == pc,
		})
		addr += ZR32_INSTR_SIZE
	}
	return lines
}

func formatZR32(in zr32Instr, word, addr uint32, absolute bool) string {
	name := in.kind.String()
	target := func() string {
		if absolute {
			return fmt.Sprintf("0x%08X", addr+uint32(in.imm))
		}
		return fmt.Sprintf("%+d", in.imm)
	}

	switch in.kind {
	case kindInvalid:
		return fmt.Sprintf(".word 0x%08X", word)
	case kindLUI, kindAUIPC:
		return fmt.Sprintf("%s x%d, 0x%05X", name, in.rd, uint32(in.imm)>>12)
	case kindJAL:
		return fmt.Sprintf("%s x%d, %s", name, in.rd, target())
	case kindJALR:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, in.rd, in.imm, in.rs1)
	case kindBEQ, kindBNE, kindBLT, kindBGE, kindBLTU, kindBGEU:
		return fmt.Sprintf("%s x%d, x%d, %s", name, in.rs1, in.rs2, target())
	case kindLB, kindLH, kindLW, kindLBU, kindLHU:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, in.rd, in.imm, in.rs1)
	case kindSB, kindSH, kindSW:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, in.rs2, in.imm, in.rs1)
	case kindADDI, kindSLTI, kindSLTIU, kindXORI, kindORI, kindANDI, kindSLLI, kindSRLI, kindSRAI:
		return fmt.Sprintf("%s x%d, x%d, %d", name, in.rd, in.rs1, in.imm)
	}
	return fmt.Sprintf("%s x%d, x%d, x%d", name, in.rd, in.rs1, in.rs2)
}
