// video_chip.go - Zenu Pocket display processor

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
video_chip.go - Display processor for the Zenu Pocket

The GPU turns the VRAM block into a 160x144 frame of 0xAARRGGBB pixels
once per frame. It has no registers of its own: the mode selector and
all mode parameters live at fixed offsets inside VRAM (see registers.go),
and every field is read through the little-endian accessors below.

Modes:

    0  Framebuffer  the first 160*144 words of VRAM are the frame
    1  Tilemap      40x30 map of 8x8 tiles, scrolled into the window
    2  Command      one line or filled triangle per frame into the frame

Unknown modes leave the previous frame untouched. The frame persists
between renders so mode 2 primitives accumulate.
*/

package main

import (
	"encoding/binary"
	"image"
)

const (
	SCREEN_WIDTH  = 160
	SCREEN_HEIGHT = 144
	SCREEN_PIXELS = SCREEN_WIDTH * SCREEN_HEIGHT
	REFRESH_RATE  = 60

	TILE_SIZE    = 8
	TILE_BYTES   = TILE_SIZE * TILE_SIZE * 4
	TILEMAP_COLS = 40
	TILEMAP_ROWS = 30

	COLOR_BLACK      = 0xFF000000
	DEFAULT_BG_COLOR = 0xFF1A1A2E
)

// ------------------------------------------------------------------------------
// VRAM field accessors
// ------------------------------------------------------------------------------

func vramRead32(vram []byte, offset uint32) uint32 {
	return binary.LittleEndian.Uint32(vram[offset:])
}

func vramRead16(vram []byte, offset uint32) uint16 {
	return binary.LittleEndian.Uint16(vram[offset:])
}

func vramReadI16(vram []byte, offset uint32) int16 {
	return int16(vramRead16(vram, offset))
}

func vramWrite32(vram []byte, offset, value uint32) {
	binary.LittleEndian.PutUint32(vram[offset:], value)
}

// InitVRAM puts VRAM into its power-on state: framebuffer mode with the
// visible area filled with the default background colour.
func InitVRAM(vram []byte) {
	vramWrite32(vram, GPU_REG_MODE, GPU_MODE_FRAMEBUFFER)
	for i := uint32(0); i < SCREEN_PIXELS; i++ {
		vramWrite32(vram, i*4, DEFAULT_BG_COLOR)
	}
}

// ------------------------------------------------------------------------------
// VideoChip
// ------------------------------------------------------------------------------

type VideoChip struct {
	frame  []uint32
	rgba   []byte
	output VideoOutput

	FramesRendered uint64
}

// NewVideoChip creates a GPU presenting to output. output may be nil when
// only the frame contents are needed.
func NewVideoChip(output VideoOutput) *VideoChip {
	chip := &VideoChip{
		frame:  make([]uint32, SCREEN_PIXELS),
		rgba:   make([]byte, SCREEN_PIXELS*4),
		output: output,
	}
	for i := range chip.frame {
		chip.frame[i] = COLOR_BLACK
	}
	return chip
}

// Frame returns the current frame in 0xAARRGGBB order.
func (chip *VideoChip) Frame() []uint32 {
	return chip.frame
}

// Render updates the frame from VRAM.
func (chip *VideoChip) Render(vram []byte) {
	switch vramRead32(vram, GPU_REG_MODE) {
	case GPU_MODE_FRAMEBUFFER:
		chip.renderFramebuffer(vram)
	case GPU_MODE_TILEMAP:
		chip.renderTilemap(vram)
	case GPU_MODE_COMMAND:
		chip.runCommand(vram)
	}
	chip.FramesRendered++
}

func (chip *VideoChip) renderFramebuffer(vram []byte) {
	for i := range chip.frame {
		chip.frame[i] = vramRead32(vram, uint32(i)*4)
	}
}

func (chip *VideoChip) renderTilemap(vram []byte) {
	scrollX := int(int32(vramRead32(vram, GPU_REG_SCROLL_X)))
	scrollY := int(int32(vramRead32(vram, GPU_REG_SCROLL_Y)))

	for ty := 0; ty < TILEMAP_ROWS; ty++ {
		for tx := 0; tx < TILEMAP_COLS; tx++ {
			// Skip tiles that cannot touch the window
			baseX := tx*TILE_SIZE - scrollX
			baseY := ty*TILE_SIZE - scrollY
			if baseX <= -TILE_SIZE || baseX >= SCREEN_WIDTH || baseY <= -TILE_SIZE || baseY >= SCREEN_HEIGHT {
				continue
			}
			idx := uint32(vramRead16(vram, TILE_MAP_OFFSET+uint32(ty*TILEMAP_COLS+tx)*2))
			tile := idx * TILE_BYTES
			for py := 0; py < TILE_SIZE; py++ {
				sy := baseY + py
				if sy < 0 || sy >= SCREEN_HEIGHT {
					continue
				}
				for px := 0; px < TILE_SIZE; px++ {
					sx := baseX + px
					if sx < 0 || sx >= SCREEN_WIDTH {
						continue
					}
					chip.frame[sy*SCREEN_WIDTH+sx] = vramRead32(vram, tile+uint32(py*TILE_SIZE+px)*4)
				}
			}
		}
	}
}

// runCommand consumes the pending draw command, if any, and clears it.
func (chip *VideoChip) runCommand(vram []byte) {
	cmd := vramRead32(vram, GPU_REG_CMD)
	if cmd == GPU_CMD_NONE {
		return
	}
	c := vramRead32(vram, GPU_REG_COLOR)
	x1 := int(vramReadI16(vram, GPU_REG_X1))
	y1 := int(vramReadI16(vram, GPU_REG_Y1))
	x2 := int(vramReadI16(vram, GPU_REG_X2))
	y2 := int(vramReadI16(vram, GPU_REG_Y2))

	switch cmd {
	case GPU_CMD_LINE:
		chip.DrawLine(x1, y1, x2, y2, c)
	case GPU_CMD_TRIANGLE:
		x3 := int(vramReadI16(vram, GPU_REG_X3))
		y3 := int(vramReadI16(vram, GPU_REG_Y3))
		chip.DrawTriangle(x1, y1, x2, y2, x3, y3, c)
	}
	vramWrite32(vram, GPU_REG_CMD, GPU_CMD_NONE)
}

// ------------------------------------------------------------------------------
// Presentation
// ------------------------------------------------------------------------------

// RGBA converts the frame into the byte order VideoOutput expects.
func (chip *VideoChip) RGBA() []byte {
	for i, p := range chip.frame {
		o := i * 4
		chip.rgba[o] = byte(p >> 16)
		chip.rgba[o+1] = byte(p >> 8)
		chip.rgba[o+2] = byte(p)
		chip.rgba[o+3] = byte(p >> 24)
	}
	return chip.rgba
}

// Present pushes the frame to the attached output.
func (chip *VideoChip) Present() error {
	if chip.output == nil {
		return nil
	}
	return chip.output.UpdateFrame(chip.RGBA())
}

// Image returns a copy of the frame as an image.RGBA.
func (chip *VideoChip) Image() *image.RGBA {
	return frameImage(chip.RGBA())
}

func frameImage(rgba []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, SCREEN_WIDTH, SCREEN_HEIGHT))
	copy(img.Pix, rgba)
	return img
}
