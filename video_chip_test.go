package main

import (
	"bytes"
	"strings"
	"testing"
)

// ------------------------------------------------------------------------------
// Test rig
// ------------------------------------------------------------------------------

type gpuTestRig struct {
	bus  *MachineBus
	chip *VideoChip
	out  *HeadlessVideoOutput
}

func newGPUTestRig() *gpuTestRig {
	out := NewHeadlessVideoOutput()
	return &gpuTestRig{
		bus:  NewMachineBus(),
		chip: NewVideoChip(out),
		out:  out,
	}
}

func (r *gpuTestRig) render() {
	r.chip.Render(r.bus.VRAM())
}

func (r *gpuTestRig) pixel(x, y int) uint32 {
	return r.chip.Frame()[y*SCREEN_WIDTH+x]
}

func (r *gpuTestRig) command(cmd uint32, color uint32, pts ...int16) {
	r.bus.Write32(GPU_MODE_ADDR, GPU_MODE_COMMAND)
	r.bus.Write32(VRAM_START+GPU_REG_COLOR, color)
	regs := []uint32{GPU_REG_X1, GPU_REG_Y1, GPU_REG_X2, GPU_REG_Y2, GPU_REG_X3, GPU_REG_Y3}
	for i, p := range pts {
		r.bus.Write16(VRAM_START+regs[i], uint16(p))
	}
	r.bus.Write32(GPU_CMD_ADDR, cmd)
}

func (r *gpuTestRig) count(color uint32) int {
	n := 0
	for _, p := range r.chip.Frame() {
		if p == color {
			n++
		}
	}
	return n
}

// referenceLine is a straightforward Bresenham used to cross-check DrawLine.
func referenceLine(x0, y0, x1, y1 int) map[[2]int]bool {
	pts := map[[2]int]bool{}
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		pts[[2]int{x0, y0}] = true
		if x0 == x1 && y0 == y1 {
			return pts
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// ------------------------------------------------------------------------------
// Power-on and framebuffer mode
// ------------------------------------------------------------------------------

func TestVideoChip_InitialFrameBlack(t *testing.T) {
	chip := NewVideoChip(nil)
	for i, p := range chip.Frame() {
		if p != COLOR_BLACK {
			t.Fatalf("pixel %d = 0x%08X, want 0x%08X", i, p, uint32(COLOR_BLACK))
		}
	}
	if err := chip.Present(); err != nil {
		t.Fatalf("Present with nil output: %v", err)
	}
}

func TestVideoChip_InitVRAM(t *testing.T) {
	r := newGPUTestRig()
	InitVRAM(r.bus.VRAM())
	if got := r.bus.Read32(GPU_MODE_ADDR); got != GPU_MODE_FRAMEBUFFER {
		t.Fatalf("mode = %d, want %d", got, GPU_MODE_FRAMEBUFFER)
	}
	r.render()
	if n := r.count(DEFAULT_BG_COLOR); n != SCREEN_PIXELS {
		t.Fatalf("%d background pixels, want %d", n, SCREEN_PIXELS)
	}
}

func TestVideoChip_FramebufferCopy(t *testing.T) {
	r := newGPUTestRig()
	r.bus.Write32(VRAM_START, 0xFFFF0000)
	r.bus.Write32(VRAM_START+uint32(10*SCREEN_WIDTH+5)*4, 0xFF00FF00)
	r.bus.Write32(VRAM_START+uint32(SCREEN_PIXELS-1)*4, 0xFF0000FF)
	r.render()

	if got := r.pixel(0, 0); got != 0xFFFF0000 {
		t.Fatalf("pixel(0,0) = 0x%08X, want 0xFFFF0000", got)
	}
	if got := r.pixel(5, 10); got != 0xFF00FF00 {
		t.Fatalf("pixel(5,10) = 0x%08X, want 0xFF00FF00", got)
	}
	if got := r.pixel(SCREEN_WIDTH-1, SCREEN_HEIGHT-1); got != 0xFF0000FF {
		t.Fatalf("last pixel = 0x%08X, want 0xFF0000FF", got)
	}
	if got := r.pixel(1, 0); got != 0 {
		t.Fatalf("pixel(1,0) = 0x%08X, want 0", got)
	}
	if r.chip.FramesRendered != 1 {
		t.Fatalf("FramesRendered = %d, want 1", r.chip.FramesRendered)
	}
}

func TestVideoChip_UnknownModeKeepsFrame(t *testing.T) {
	r := newGPUTestRig()
	r.bus.Write32(VRAM_START, 0xFF123456)
	r.render()
	r.bus.Write32(VRAM_START, 0xFF654321)
	r.bus.Write32(GPU_MODE_ADDR, 7)
	r.render()
	if got := r.pixel(0, 0); got != 0xFF123456 {
		t.Fatalf("pixel(0,0) = 0x%08X, want 0xFF123456", got)
	}
}

// ------------------------------------------------------------------------------
// Tilemap mode
// ------------------------------------------------------------------------------

func fillTile(bus *MachineBus, idx uint32, color uint32) {
	for i := uint32(0); i < TILE_SIZE*TILE_SIZE; i++ {
		bus.Write32(VRAM_START+idx*TILE_BYTES+i*4, color)
	}
}

func TestVideoChip_TilemapNoScroll(t *testing.T) {
	r := newGPUTestRig()
	fillTile(r.bus, 1, 0xFFAA0000)
	fillTile(r.bus, 2, 0xFF00AA00)
	r.bus.Write16(TILE_MAP+0, 1)
	r.bus.Write16(TILE_MAP+2, 2)
	r.bus.Write32(GPU_MODE_ADDR, GPU_MODE_TILEMAP)
	r.render()

	if got := r.pixel(0, 0); got != 0xFFAA0000 {
		t.Fatalf("pixel(0,0) = 0x%08X, want 0xFFAA0000", got)
	}
	if got := r.pixel(7, 7); got != 0xFFAA0000 {
		t.Fatalf("pixel(7,7) = 0x%08X, want 0xFFAA0000", got)
	}
	if got := r.pixel(8, 0); got != 0xFF00AA00 {
		t.Fatalf("pixel(8,0) = 0x%08X, want 0xFF00AA00", got)
	}
}

func TestVideoChip_TilemapScroll(t *testing.T) {
	r := newGPUTestRig()
	fillTile(r.bus, 1, 0xFFAA0000)
	// Tile (1,1) sits at pixel (8,8); scrolling by (3,5) moves it to (5,3)
	r.bus.Write16(TILE_MAP+(1*TILEMAP_COLS+1)*2, 1)
	r.bus.Write32(GPU_SCROLL_X_REG, 3)
	r.bus.Write32(GPU_SCROLL_Y_REG, 5)
	r.bus.Write32(GPU_MODE_ADDR, GPU_MODE_TILEMAP)
	r.render()

	if got := r.pixel(5, 3); got != 0xFFAA0000 {
		t.Fatalf("pixel(5,3) = 0x%08X, want 0xFFAA0000", got)
	}
	if got := r.pixel(12, 10); got != 0xFFAA0000 {
		t.Fatalf("pixel(12,10) = 0x%08X, want 0xFFAA0000", got)
	}
	if got := r.pixel(4, 3); got == 0xFFAA0000 {
		t.Fatal("pixel(4,3) should be outside the scrolled tile")
	}
}

func TestVideoChip_TilemapNegativeScrollClips(t *testing.T) {
	r := newGPUTestRig()
	fillTile(r.bus, 3, 0xFF0000AA)
	r.bus.Write16(TILE_MAP, 3)
	r.bus.Write32(GPU_SCROLL_X_REG, uint32(0xFFFFFFFC)) // -4
	r.bus.Write32(GPU_MODE_ADDR, GPU_MODE_TILEMAP)
	r.render()

	if got := r.pixel(4, 0); got != 0xFF0000AA {
		t.Fatalf("pixel(4,0) = 0x%08X, want 0xFF0000AA", got)
	}
	if got := r.pixel(11, 7); got != 0xFF0000AA {
		t.Fatalf("pixel(11,7) = 0x%08X, want 0xFF0000AA", got)
	}
}

// ------------------------------------------------------------------------------
// Command mode
// ------------------------------------------------------------------------------

func TestVideoChip_LineMatchesBresenham(t *testing.T) {
	cases := [][4]int16{
		{0, 0, 159, 143},
		{10, 100, 150, 20},
		{80, 10, 80, 130},
		{5, 70, 140, 70},
		{140, 5, 3, 9},
		{50, 50, 50, 50},
	}
	for _, c := range cases {
		r := newGPUTestRig()
		const color = 0xFFFFFFFF
		r.command(GPU_CMD_LINE, color, c[0], c[1], c[2], c[3])
		r.render()

		want := referenceLine(int(c[0]), int(c[1]), int(c[2]), int(c[3]))
		if n := r.count(color); n != len(want) {
			t.Fatalf("line %v: %d pixels, want %d", c, n, len(want))
		}
		for p := range want {
			if got := r.pixel(p[0], p[1]); got != color {
				t.Fatalf("line %v: pixel %v = 0x%08X, want 0x%08X", c, p, got, uint32(color))
			}
		}
		if got := r.bus.Read32(GPU_CMD_ADDR); got != GPU_CMD_NONE {
			t.Fatalf("cmd after render = %d, want 0", got)
		}
	}
}

func TestVideoChip_LineClipsOffscreen(t *testing.T) {
	r := newGPUTestRig()
	r.command(GPU_CMD_LINE, 0xFF00FF00, -20, 10, 200, 10)
	r.render()
	if n := r.count(0xFF00FF00); n != SCREEN_WIDTH {
		t.Fatalf("%d pixels, want %d", n, SCREEN_WIDTH)
	}
}

func TestVideoChip_CommandRunsOnce(t *testing.T) {
	r := newGPUTestRig()
	r.command(GPU_CMD_LINE, 0xFFFF0000, 0, 0, 9, 0)
	r.render()
	// Same registers, new colour, no new command: nothing changes
	r.bus.Write32(VRAM_START+GPU_REG_COLOR, 0xFF0000FF)
	r.render()
	if n := r.count(0xFF0000FF); n != 0 {
		t.Fatalf("%d pixels redrawn without a command", n)
	}
	if n := r.count(0xFFFF0000); n != 10 {
		t.Fatalf("%d line pixels, want 10", n)
	}
}

func TestVideoChip_PrimitivesAccumulate(t *testing.T) {
	r := newGPUTestRig()
	r.command(GPU_CMD_LINE, 0xFFFF0000, 0, 0, 9, 0)
	r.render()
	r.command(GPU_CMD_LINE, 0xFF00FF00, 0, 5, 9, 5)
	r.render()
	if r.count(0xFFFF0000) != 10 || r.count(0xFF00FF00) != 10 {
		t.Fatalf("red=%d green=%d, want 10 each", r.count(0xFFFF0000), r.count(0xFF00FF00))
	}
}

func TestVideoChip_UnknownCommandCleared(t *testing.T) {
	r := newGPUTestRig()
	r.command(9, 0xFFFFFFFF, 0, 0, 10, 10)
	r.render()
	if got := r.bus.Read32(GPU_CMD_ADDR); got != GPU_CMD_NONE {
		t.Fatalf("cmd = %d, want 0", got)
	}
	if n := r.count(0xFFFFFFFF); n != 0 {
		t.Fatalf("%d pixels drawn for unknown command", n)
	}
}

// ------------------------------------------------------------------------------
// Triangles
// ------------------------------------------------------------------------------

func TestVideoChip_TriangleFlatBottom(t *testing.T) {
	r := newGPUTestRig()
	const c = 0xFF00FFFF
	r.command(GPU_CMD_TRIANGLE, c, 50, 10, 30, 40, 70, 40)
	r.render()

	if got := r.pixel(50, 10); got != c {
		t.Fatalf("apex = 0x%08X, want 0x%08X", got, uint32(c))
	}
	for x := 31; x <= 69; x++ {
		if got := r.pixel(x, 40); got != c {
			t.Fatalf("base pixel (%d,40) = 0x%08X, want 0x%08X", x, got, uint32(c))
		}
	}
	if got := r.pixel(50, 25); got != c {
		t.Fatalf("interior = 0x%08X, want 0x%08X", got, uint32(c))
	}
	if got := r.pixel(50, 41); got == c {
		t.Fatal("pixel below the base was filled")
	}
	if got := r.pixel(31, 11); got == c {
		t.Fatal("pixel outside the left edge was filled")
	}
}

func TestVideoChip_TriangleFlatTop(t *testing.T) {
	r := newGPUTestRig()
	const c = 0xFFFF00FF
	r.command(GPU_CMD_TRIANGLE, c, 20, 20, 60, 20, 40, 60)
	r.render()

	for x := 20; x <= 60; x++ {
		if got := r.pixel(x, 20); got != c {
			t.Fatalf("top edge (%d,20) = 0x%08X, want 0x%08X", x, got, uint32(c))
		}
	}
	if got := r.pixel(40, 60); got != c {
		t.Fatalf("apex = 0x%08X, want 0x%08X", got, uint32(c))
	}
	if got := r.pixel(40, 40); got != c {
		t.Fatalf("interior = 0x%08X, want 0x%08X", got, uint32(c))
	}
	if got := r.pixel(40, 19); got == c {
		t.Fatal("pixel above the top edge was filled")
	}
}

func TestVideoChip_TriangleGeneral(t *testing.T) {
	r := newGPUTestRig()
	const c = 0xFF808080
	// Vertex order must not matter
	r.command(GPU_CMD_TRIANGLE, c, 100, 100, 10, 10, 30, 120)
	r.render()

	for _, p := range [][2]int{{10, 10}, {30, 100}, {40, 70}, {90, 100}} {
		if got := r.pixel(p[0], p[1]); got != c {
			t.Fatalf("pixel %v = 0x%08X, want 0x%08X", p, got, uint32(c))
		}
	}
	for _, p := range [][2]int{{100, 10}, {10, 130}, {150, 100}} {
		if got := r.pixel(p[0], p[1]); got == c {
			t.Fatalf("pixel %v outside the triangle was filled", p)
		}
	}
	for y := 0; y < SCREEN_HEIGHT; y++ {
		if (y < 10 || y > 120) && r.pixel(30, y) == c {
			t.Fatalf("row %d outside the vertical extent was filled", y)
		}
	}
}

func TestVideoChip_TriangleDegenerate(t *testing.T) {
	r := newGPUTestRig()
	const c = 0xFFFFFF00
	r.command(GPU_CMD_TRIANGLE, c, 40, 50, 10, 50, 25, 50)
	r.render()
	if n := r.count(c); n != 31 {
		t.Fatalf("%d pixels, want 31", n)
	}
	for x := 10; x <= 40; x++ {
		if got := r.pixel(x, 50); got != c {
			t.Fatalf("pixel (%d,50) = 0x%08X, want 0x%08X", x, got, uint32(c))
		}
	}
}

func TestVideoChip_TriangleFarOffscreen(t *testing.T) {
	r := newGPUTestRig()
	const c = 0xFF0000FF
	r.command(GPU_CMD_TRIANGLE, c, -32000, -32000, 32000, -32000, 0, 32000)
	r.render()
	if got := r.pixel(0, 0); got != c {
		t.Fatalf("pixel(0,0) = 0x%08X, want 0x%08X", got, uint32(c))
	}
	if got := r.bus.Read32(GPU_CMD_ADDR); got != GPU_CMD_NONE {
		t.Fatalf("cmd = %d, want 0", got)
	}
}

// ------------------------------------------------------------------------------
// Presentation and terminal rendering
// ------------------------------------------------------------------------------

func TestVideoChip_PresentRGBA(t *testing.T) {
	r := newGPUTestRig()
	r.bus.Write32(VRAM_START, 0x80112233)
	r.render()
	if err := r.chip.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	frame := r.out.LastFrame()
	if len(frame) != SCREEN_PIXELS*4 {
		t.Fatalf("frame length = %d, want %d", len(frame), SCREEN_PIXELS*4)
	}
	if !bytes.Equal(frame[:4], []byte{0x11, 0x22, 0x33, 0x80}) {
		t.Fatalf("first pixel = % X, want 11 22 33 80", frame[:4])
	}
	if r.out.GetFrameCount() != 1 {
		t.Fatalf("frame count = %d, want 1", r.out.GetFrameCount())
	}
	img := r.chip.Image()
	if got := img.RGBAAt(0, 0); got.R != 0x11 || got.G != 0x22 || got.B != 0x33 || got.A != 0x80 {
		t.Fatalf("image pixel = %+v", got)
	}
}

func TestTerminalStep(t *testing.T) {
	cases := []struct {
		cols, rows, want int
	}{
		{200, 100, 1},
		{160, 72, 1},
		{159, 72, 2},
		{80, 36, 2},
		{40, 18, 4},
	}
	for _, c := range cases {
		if got := terminalStep(SCREEN_WIDTH, SCREEN_HEIGHT, c.cols, c.rows); got != c.want {
			t.Fatalf("terminalStep(%d,%d) = %d, want %d", c.cols, c.rows, got, c.want)
		}
	}
}

func TestRenderHalfBlocks(t *testing.T) {
	// 2x2 frame: top row red, bottom row blue
	rgba := []byte{
		255, 0, 0, 255, 255, 0, 0, 255,
		0, 0, 255, 255, 0, 0, 255, 255,
	}
	var buf bytes.Buffer
	renderHalfBlocks(&buf, rgba, 2, 2, 1)
	out := buf.String()
	if n := strings.Count(out, "▀"); n != 2 {
		t.Fatalf("%d cells, want 2", n)
	}
	if !strings.Contains(out, "\x1b[38;2;255;0;0m\x1b[48;2;0;0;255m▀") {
		t.Fatalf("cell colours wrong: %q", out)
	}
	if n := strings.Count(out, "\r\n"); n != 1 {
		t.Fatalf("%d rows, want 1", n)
	}
}

func TestTerminalOutput_KeyMapping(t *testing.T) {
	out, _ := NewTerminalOutput()
	to := out.(*TerminalOutput)
	for _, b := range []byte{0x1B, '[', 'A', 'z'} {
		to.keys <- b
	}
	if got := to.InputMask(); got != JOY_UP|JOY_BTN_A {
		t.Fatalf("mask = 0x%02X, want 0x%02X", got, JOY_UP|JOY_BTN_A)
	}
	for iter := 0; iter < terminalKeyHoldFrames-1; iter++ {
		to.InputMask()
	}
	if got := to.InputMask(); got != 0 {
		t.Fatalf("mask after hold = 0x%02X, want 0", got)
	}
	to.keys <- 'q'
	to.InputMask()
	select {
	case <-to.Done():
	default:
		t.Fatal("q did not close Done")
	}
}
