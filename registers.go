// registers.go - Centralized memory map for the Zenu Pocket

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
registers.go - Master Memory Map

This file is the single reference for every region of the Zenu Pocket
address space and for the GPU control fields that live inside VRAM.
The addresses are part of the cartridge ABI and must not move.

MEMORY MAP OVERVIEW
===================

Address Range             Size    Device          Owner
---------------------------------------------------------------------------
0x00010000-0x00FFFFFF     16MB    Cartridge ROM   machine_bus.go (read-only)
0x01000000-0x01FFFFFF     16MB    Work RAM        machine_bus.go
0x02000000-0x020000FF     256B    Joypad I/O      machine_bus.go
0x02000100-0x020001FF     256B    APU registers   audio_chip.go
0x0200FFF0                1B      Bridge flag     machine_bus.go
0x03000000-0x03FFFFFF     16MB    Video RAM       video_chip.go

Everything else reads as zero and ignores writes.

VRAM LAYOUT
===========

Offset (from VRAM_START)  Field
---------------------------------------------------------------------------
0x000000                  Mode 0 framebuffer (160x144 ARGB words)
0x000000                  Mode 1 tile bitmaps (8x8 ARGB words, 256 bytes each)
0x100000                  Mode 1 tile map (40x30 uint16 tile indices)
0xFF0004                  GPU_REG_SCROLL_X  (int32)
0xFF0008                  GPU_REG_SCROLL_Y  (int32)
0xFF000C                  GPU_REG_MODE      (uint32: 0 FB, 1 tiles, 2 commands)
0xFF0020                  GPU_REG_CMD       (uint32: 1 line, 2 triangle)
0xFF0024-0xFF002E         GPU_REG_X1..Y3    (int16 vertex coordinates)
0xFF0030                  GPU_REG_COLOR     (uint32 ARGB)

APU REGISTERS
=============

Offset (from APU_START)   Field
---------------------------------------------------------------------------
ch*4 + 0                  Frequency low byte (Hz)
ch*4 + 1                  Frequency high byte (Hz)
ch*4 + 2                  Control: bit 0 enable, bits 1-2 waveform
ch*4 + 3                  Volume (0-255)
*/

package main

// =============================================================================
// Region Base Addresses and Sizes
// =============================================================================

const (
	ROM_START = 0x00010000
	ROM_SIZE  = 0x00FF0000

	RAM_START = 0x01000000
	RAM_SIZE  = 0x01000000

	JOY_START = 0x02000000
	JOY_SIZE  = 0x00000100

	APU_START = 0x02000100
	APU_SIZE  = 0x00000100

	HLE_BRIDGE = 0x0200FFF0

	VRAM_START = 0x03000000
	VRAM_SIZE  = 0x01000000
)

// =============================================================================
// GPU Control Fields (offsets inside VRAM)
// =============================================================================

const (
	GPU_CTRL_OFFSET = 0xFF0000
	TILE_MAP_OFFSET = 0x100000

	GPU_REG_SCROLL_X = GPU_CTRL_OFFSET + 0x04
	GPU_REG_SCROLL_Y = GPU_CTRL_OFFSET + 0x08
	GPU_REG_MODE     = GPU_CTRL_OFFSET + 0x0C
	GPU_REG_CMD      = GPU_CTRL_OFFSET + 0x20
	GPU_REG_X1       = GPU_CTRL_OFFSET + 0x24
	GPU_REG_Y1       = GPU_CTRL_OFFSET + 0x26
	GPU_REG_X2       = GPU_CTRL_OFFSET + 0x28
	GPU_REG_Y2       = GPU_CTRL_OFFSET + 0x2A
	GPU_REG_X3       = GPU_CTRL_OFFSET + 0x2C
	GPU_REG_Y3       = GPU_CTRL_OFFSET + 0x2E
	GPU_REG_COLOR    = GPU_CTRL_OFFSET + 0x30

	// Absolute bus addresses for guest code and scripts
	GPU_CTRL         = VRAM_START + GPU_CTRL_OFFSET
	TILE_MAP         = VRAM_START + TILE_MAP_OFFSET
	GPU_MODE_ADDR    = VRAM_START + GPU_REG_MODE
	GPU_CMD_ADDR     = VRAM_START + GPU_REG_CMD
	GPU_SCROLL_X_REG = VRAM_START + GPU_REG_SCROLL_X
	GPU_SCROLL_Y_REG = VRAM_START + GPU_REG_SCROLL_Y
)

const (
	GPU_MODE_FRAMEBUFFER = 0
	GPU_MODE_TILEMAP     = 1
	GPU_MODE_COMMAND     = 2

	GPU_CMD_NONE     = 0
	GPU_CMD_LINE     = 1
	GPU_CMD_TRIANGLE = 2
)

// =============================================================================
// Joypad Bits
// =============================================================================

const (
	JOY_UP         = 1 << 0
	JOY_DOWN       = 1 << 1
	JOY_LEFT       = 1 << 2
	JOY_RIGHT      = 1 << 3
	JOY_BTN_A      = 1 << 4 // Z
	JOY_BTN_B      = 1 << 5 // X
	JOY_BTN_START  = 1 << 6 // Enter
	JOY_BTN_SELECT = 1 << 7 // Space
)

// =============================================================================
// Helper Functions
// =============================================================================

// IsVRAMAddress returns true if the address is in video RAM
func IsVRAMAddress(addr uint32) bool {
	return addr >= VRAM_START && addr-VRAM_START < VRAM_SIZE
}

// GetRegionName returns the device name for a bus address
func GetRegionName(addr uint32) string {
	switch {
	case addr >= ROM_START && addr-ROM_START < ROM_SIZE:
		return "ROM"
	case addr >= RAM_START && addr-RAM_START < RAM_SIZE:
		return "RAM"
	case addr >= JOY_START && addr-JOY_START < JOY_SIZE:
		return "Joypad"
	case addr >= APU_START && addr-APU_START < APU_SIZE:
		return "APU"
	case addr == HLE_BRIDGE:
		return "Bridge"
	case IsVRAMAddress(addr):
		return "VRAM"
	default:
		return "Unmapped"
	}
}
