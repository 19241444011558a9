package assembler

import (
	"encoding/binary"
	"strings"
	"testing"
)

func wordsOf(t *testing.T, b []byte) []uint32 {
	t.Helper()
	if len(b)%4 != 0 {
		t.Fatalf("image length %d is not word aligned", len(b))
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

// ===========================================================================
// Encoders
// ===========================================================================

func TestEncode_KnownWords(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"addi x1,x0,5", ADDI(1, 0, 5), 0x00500093},
		{"addi x2,x1,-1", ADDI(2, 1, -1), 0xFFF08113},
		{"lui x1,0x12345", LUI(1, 0x12345), 0x123450B7},
		{"jal x0,0", JAL(0, 0), 0x0000006F},
		{"add x3,x1,x2", ADD(3, 1, 2), 0x002081B3},
		{"sub x3,x1,x2", SUB(3, 1, 2), 0x402081B3},
		{"mul x3,x1,x2", MUL(3, 1, 2), 0x022081B3},
		{"srai x5,x6,3", SRAI(5, 6, 3), 0x40335293},
		{"sw x2,8(x1)", SW(2, 1, 8), 0x0020A423},
		{"lw x2,8(x1)", LW(2, 1, 8), 0x0080A103},
		{"beq x1,x2,+8", BEQ(1, 2, 8), 0x00208463},
		{"bne x1,x2,-4", BNE(1, 2, -4), 0xFE209EE3},
		{"jalr x0,x1,0", JALR(0, 1, 0), 0x00008067},
		{"nop", NOP(), 0x00000013},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = 0x%08X, want 0x%08X", tt.name, tt.got, tt.want)
		}
	}
}

func TestHiLo_ReconstructsValue(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x7FF, 0x800, 0xFFF, 0x12345678, 0x12345FFF, 0x80000000, 0xFFFFFFFF, 0x03FF0020} {
		hi, lo := HiLo(v)
		if hi > 0xFFFFF {
			t.Fatalf("HiLo(0x%08X) hi 0x%X exceeds 20 bits", v, hi)
		}
		if lo < -2048 || lo > 2047 {
			t.Fatalf("HiLo(0x%08X) lo %d out of range", v, lo)
		}
		if got := hi<<12 + uint32(lo); got != v {
			t.Fatalf("HiLo(0x%08X) reconstructs 0x%08X", v, got)
		}
	}
}

func TestParseRegister(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"x0", 0, true}, {"X31", 31, true}, {"zero", 0, true}, {"ra", 1, true},
		{"sp", 2, true}, {"fp", 8, true}, {"a0", 10, true}, {"s11", 27, true},
		{"t6", 31, true}, {"x32", 0, false}, {"r1", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRegister(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseRegister(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// ===========================================================================
// Text assembler
// ===========================================================================

func TestAssemble_MatchesEncoders(t *testing.T) {
	src := `
        # comment line
start:  lui   x1, 0x12345       ; trailing comment
        addi  a0, zero, 5
        add   x3, x1, x2
        sw    a0, 4(sp)
        lw    a1, (sp)
        srai  t0, t1, 3
        rem   a2, a0, a1
        jal   x0, .
`
	img, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []uint32{
		LUI(1, 0x12345),
		ADDI(A0, ZERO, 5),
		ADD(3, 1, 2),
		SW(A0, SP, 4),
		LW(A1, SP, 0),
		SRAI(T0, T1, 3),
		REM(A2, A0, A1),
		JAL(0, 0),
	}
	got := wordsOf(t, img)
	if len(got) != len(want) {
		t.Fatalf("assembled %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, got[i], want[i])
		}
	}
}

func TestAssemble_CurrentAddressTargets(t *testing.T) {
	src := `
        beq   a0, a1, .+8
        j     .
        .word .
`
	img, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []uint32{BEQ(A0, A1, 8), JAL(0, 0), DEFAULT_ORIGIN + 8}
	got := wordsOf(t, img)
	if len(got) != len(want) {
		t.Fatalf("assembled %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, got[i], want[i])
		}
	}
}

func TestAssemble_LabelsBackwardAndForward(t *testing.T) {
	src := `
loop:   addi  a0, a0, -1
        bnez  a0, loop
        j     done
        nop
done:   ret
`
	img, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got := wordsOf(t, img)
	want := []uint32{
		ADDI(A0, A0, -1),
		BNE(A0, ZERO, -4),
		JAL(ZERO, 8),
		NOP(),
		JALR(ZERO, RA, 0),
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, got[i], want[i])
		}
	}
}

func TestAssemble_LiAndLa(t *testing.T) {
	src := `
SCREEN equ 0x03000000
        li    a0, 42
        li    a1, SCREEN
        li    a2, -2048
        la    a3, data
data:   .word 0xDEADBEEF, 7
`
	asm := NewZR32Assembler()
	img, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got := wordsOf(t, img)
	dataAddr := asm.Labels()["data"]
	if dataAddr != DEFAULT_ORIGIN+6*4 {
		t.Fatalf("data label = 0x%08X, want 0x%08X", dataAddr, DEFAULT_ORIGIN+6*4)
	}
	hi, lo := HiLo(dataAddr)
	want := []uint32{
		ADDI(A0, ZERO, 42),
		LUI(A1, 0x03000), ADDI(A1, A1, 0),
		ADDI(A2, ZERO, -2048),
		LUI(A3, hi), ADDI(A3, A3, lo),
		0xDEADBEEF, 7,
	}
	if len(got) != len(want) {
		t.Fatalf("assembled %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, got[i], want[i])
		}
	}
}

func TestAssemble_DataDirectives(t *testing.T) {
	src := `
        .byte 1, 2, 'A'
        .align 4
        .half 0x1234
        .space 2
        .word -1
`
	img, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{1, 2, 'A', 0, 0x34, 0x12, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}
	if string(img) != string(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
}

func TestAssemble_OrgPadsImage(t *testing.T) {
	src := `
        nop
        .org 0x00010010
tail:   nop
`
	asm := NewZR32Assembler()
	img, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(img) != 0x14 {
		t.Fatalf("image length = %d, want %d", len(img), 0x14)
	}
	if asm.Labels()["tail"] != 0x00010010 {
		t.Fatalf("tail = 0x%08X, want 0x00010010", asm.Labels()["tail"])
	}
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"unknown mnemonic", "frob a0, a1", "unknown instruction"},
		{"bad register", "addi q9, x0, 1", "bad register"},
		{"immediate range", "addi a0, x0, 4096", "out of range"},
		{"undefined label", "j nowhere", "undefined symbol"},
		{"duplicate label", "a:\na:", "redefined"},
		{"shift range", "slli a0, a0, 32", "shift amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.src)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.frag)
			}
			if !strings.Contains(err.Error(), tt.frag) {
				t.Fatalf("error %q does not contain %q", err, tt.frag)
			}
		})
	}
}

func TestAssemble_Listing(t *testing.T) {
	asm := NewZR32Assembler()
	asm.SetListingMode(true)
	if _, err := asm.Assemble("start: addi a0, zero, 1"); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	listing := asm.GetListing()
	if len(listing) != 1 || !strings.HasPrefix(listing[0], "00010000  00100513") {
		t.Fatalf("listing = %q", listing)
	}
}
