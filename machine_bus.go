// machine_bus.go - Memory bus and region dispatch

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
machine_bus.go - Machine Bus for the Zenu Pocket

The bus owns every byte of guest-visible storage (ROM, RAM, the joypad
page, the bridge byte and VRAM) and dispatches each access to the region
that contains it. Devices that are not plain storage, such as the APU,
register byte callbacks through MapIO.

Core Features:

    Byte-granular region table resolved by containment.
    Little-endian 16 and 32-bit accessors composed from byte accesses, byte 0 least significant.
    Unmapped reads return zero. Unmapped and ROM writes are dropped.
    Overlapping regions are rejected at construction.

The bus is not safe for concurrent use. It belongs to the simulation
goroutine; the audio device only touches the SoundChip behind it.
*/

package main

import "fmt"

type Bus32 interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Reset()
}

// RegisterIO is the word-level view of the bus used by scripts and
// frontends that poke device registers without caring about width.
type RegisterIO interface {
	ReadRegister(addr uint32) uint32
	WriteRegister(addr uint32, value uint32)
}

type busRegion struct {
	name    string
	start   uint32
	size    uint32
	onRead  func(offset uint32) uint8
	onWrite func(offset uint32, value uint8)
}

func (r *busRegion) contains(addr uint32) bool {
	return addr >= r.start && addr-r.start < r.size
}

type MachineBus struct {
	rom    []byte
	ram    []byte
	joy    []byte
	vram   []byte
	bridge uint8

	regions []busRegion
	last    int // index of the most recently hit region
}

// NewMachineBus builds the fixed Zenu Pocket memory map. The APU window
// is left unmapped until a sound chip is attached with MapIO.
func NewMachineBus() *MachineBus {
	bus := &MachineBus{
		rom:  make([]byte, ROM_SIZE),
		ram:  make([]byte, RAM_SIZE),
		joy:  make([]byte, JOY_SIZE),
		vram: make([]byte, VRAM_SIZE),
	}

	bus.mapRegion("ROM", ROM_START, ROM_SIZE,
		func(off uint32) uint8 { return bus.rom[off] },
		nil)
	bus.mapRegion("RAM", RAM_START, RAM_SIZE,
		func(off uint32) uint8 { return bus.ram[off] },
		func(off uint32, v uint8) { bus.ram[off] = v })
	bus.mapRegion("Joypad", JOY_START, JOY_SIZE,
		func(off uint32) uint8 { return bus.joy[off] },
		func(off uint32, v uint8) { bus.joy[off] = v })
	bus.mapRegion("Bridge", HLE_BRIDGE, 1,
		func(uint32) uint8 { return bus.bridge },
		func(_ uint32, v uint8) { bus.bridge = v })
	bus.mapRegion("VRAM", VRAM_START, VRAM_SIZE,
		func(off uint32) uint8 { return bus.vram[off] },
		func(off uint32, v uint8) { bus.vram[off] = v })

	return bus
}

// mapRegion adds a region to the dispatch table. A nil handler makes the
// region read-as-zero or write-ignore for that direction. Overlap is a
// wiring bug and panics.
func (bus *MachineBus) mapRegion(name string, start, size uint32, onRead func(uint32) uint8, onWrite func(uint32, uint8)) {
	if size == 0 {
		panic(fmt.Sprintf("bus: region %s has zero size", name))
	}
	end := uint64(start) + uint64(size)
	for _, r := range bus.regions {
		rEnd := uint64(r.start) + uint64(r.size)
		if uint64(start) < rEnd && uint64(r.start) < end {
			panic(fmt.Sprintf("bus: region %s [0x%08X-0x%08X) overlaps %s [0x%08X-0x%08X)",
				name, start, end, r.name, r.start, rEnd))
		}
	}
	bus.regions = append(bus.regions, busRegion{
		name:    name,
		start:   start,
		size:    size,
		onRead:  onRead,
		onWrite: onWrite,
	})
}

// MapIO attaches a device to the inclusive address range [start, end].
func (bus *MachineBus) MapIO(start, end uint32, onRead func(offset uint32) uint8, onWrite func(offset uint32, value uint8)) {
	if end < start {
		panic(fmt.Sprintf("bus: MapIO end 0x%08X before start 0x%08X", end, start))
	}
	bus.mapRegion(GetRegionName(start), start, end-start+1, onRead, onWrite)
}

func (bus *MachineBus) lookup(addr uint32) *busRegion {
	if bus.last < len(bus.regions) && bus.regions[bus.last].contains(addr) {
		return &bus.regions[bus.last]
	}
	for i := range bus.regions {
		if bus.regions[i].contains(addr) {
			bus.last = i
			return &bus.regions[i]
		}
	}
	return nil
}

// ------------------------------------------------------------------------------
// Byte, half-word and word access
// ------------------------------------------------------------------------------

func (bus *MachineBus) Read8(addr uint32) uint8 {
	r := bus.lookup(addr)
	if r == nil || r.onRead == nil {
		return 0
	}
	return r.onRead(addr - r.start)
}

func (bus *MachineBus) Write8(addr uint32, value uint8) {
	r := bus.lookup(addr)
	if r == nil || r.onWrite == nil {
		return
	}
	r.onWrite(addr-r.start, value)
}

func (bus *MachineBus) Read16(addr uint32) uint16 {
	return uint16(bus.Read8(addr)) | uint16(bus.Read8(addr+1))<<8
}

func (bus *MachineBus) Write16(addr uint32, value uint16) {
	bus.Write8(addr, uint8(value))
	bus.Write8(addr+1, uint8(value>>8))
}

func (bus *MachineBus) Read32(addr uint32) uint32 {
	return uint32(bus.Read8(addr)) |
		uint32(bus.Read8(addr+1))<<8 |
		uint32(bus.Read8(addr+2))<<16 |
		uint32(bus.Read8(addr+3))<<24
}

func (bus *MachineBus) Write32(addr uint32, value uint32) {
	bus.Write8(addr, uint8(value))
	bus.Write8(addr+1, uint8(value>>8))
	bus.Write8(addr+2, uint8(value>>16))
	bus.Write8(addr+3, uint8(value>>24))
}

func (bus *MachineBus) ReadRegister(addr uint32) uint32 { return bus.Read32(addr) }

func (bus *MachineBus) WriteRegister(addr uint32, value uint32) { bus.Write32(addr, value) }

// ------------------------------------------------------------------------------
// Host-side helpers
// ------------------------------------------------------------------------------

// LoadROM copies a cartridge image into ROM. Anything past the ROM
// capacity is dropped; the remainder of ROM is zeroed.
func (bus *MachineBus) LoadROM(data []byte) int {
	n := copy(bus.rom, data)
	clear(bus.rom[n:])
	return n
}

// VRAM exposes the video memory block to the GPU.
func (bus *MachineBus) VRAM() []byte {
	return bus.vram
}

// SetInput latches the host joypad bitmask into the first joypad byte.
func (bus *MachineBus) SetInput(mask uint8) {
	bus.joy[0] = mask
}

// Input returns the latched joypad bitmask.
func (bus *MachineBus) Input() uint8 {
	return bus.joy[0]
}

// Bridge returns the bridge byte.
func (bus *MachineBus) Bridge() uint8 {
	return bus.bridge
}

// ClearBridge acknowledges a bridge request.
func (bus *MachineBus) ClearBridge() {
	bus.bridge = 0
}

// Reset zeroes RAM, joypad, bridge and VRAM. ROM is left intact.
func (bus *MachineBus) Reset() {
	clear(bus.ram)
	clear(bus.joy)
	clear(bus.vram)
	bus.bridge = 0
}
