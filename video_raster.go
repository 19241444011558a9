// video_raster.go - Software line and triangle rasterizer

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

package main

// plot writes one pixel, clipped to the frame.
func (chip *VideoChip) plot(x, y int, c uint32) {
	if x < 0 || x >= SCREEN_WIDTH || y < 0 || y >= SCREEN_HEIGHT {
		return
	}
	chip.frame[y*SCREEN_WIDTH+x] = c
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// DrawLine draws an integer Bresenham line from (x1,y1) to (x2,y2)
// inclusive. Off-screen pixels are clipped individually.
func (chip *VideoChip) DrawLine(x1, y1, x2, y2 int, c uint32) {
	dx := absInt(x2 - x1)
	dy := -absInt(y2 - y1)
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx + dy

	for {
		chip.plot(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

// span draws a horizontal run through DrawLine, trimmed to the frame so
// far off-screen vertices cost nothing.
func (chip *VideoChip) span(xa, xb, y int, c uint32) {
	if y < 0 || y >= SCREEN_HEIGHT {
		return
	}
	if xa > xb {
		xa, xb = xb, xa
	}
	xa = max(xa, 0)
	xb = min(xb, SCREEN_WIDTH-1)
	if xa > xb {
		return
	}
	chip.DrawLine(xa, y, xb, y, c)
}

// DrawTriangle fills a triangle by splitting it into a flat-bottom and a
// flat-top half and drawing one horizontal span per scanline.
func (chip *VideoChip) DrawTriangle(x1, y1, x2, y2, x3, y3 int, c uint32) {
	if y1 > y2 {
		x1, x2, y1, y2 = x2, x1, y2, y1
	}
	if y1 > y3 {
		x1, x3, y1, y3 = x3, x1, y3, y1
	}
	if y2 > y3 {
		x2, x3, y2, y3 = x3, x2, y3, y2
	}

	switch {
	case y1 == y3:
		// Degenerate: all three on one scanline
		chip.span(min(x1, x2, x3), max(x1, x2, x3), y1, c)
	case y2 == y3:
		chip.fillFlatBottom(x1, y1, x2, y2, x3, c)
	case y1 == y2:
		chip.span(x1, x2, y1, c)
		chip.fillFlatTop(x1, x2, y1, x3, y3, c)
	default:
		x4 := int(float32(x1) + float32(y2-y1)/float32(y3-y1)*float32(x3-x1))
		chip.fillFlatBottom(x1, y1, x2, y2, x4, c)
		chip.fillFlatTop(x2, x4, y2, x3, y3, c)
	}
}

// fillFlatBottom fills apex (x1,y1) down to the edge (x2,y2)-(x3,y2),
// both scanlines inclusive.
func (chip *VideoChip) fillFlatBottom(x1, y1, x2, y2, x3 int, c uint32) {
	inv1 := float32(x2-x1) / float32(y2-y1)
	inv2 := float32(x3-x1) / float32(y2-y1)
	cx1, cx2 := float32(x1), float32(x1)
	for y := y1; y <= y2; y++ {
		chip.span(int(cx1), int(cx2), y, c)
		cx1 += inv1
		cx2 += inv2
	}
}

// fillFlatTop fills the edge (x1,y1)-(x2,y1) down to apex (x3,y3). The top
// scanline is excluded since the flat-bottom half already drew it.
func (chip *VideoChip) fillFlatTop(x1, x2, y1, x3, y3 int, c uint32) {
	inv1 := float32(x3-x1) / float32(y3-y1)
	inv2 := float32(x3-x2) / float32(y3-y1)
	cx1, cx2 := float32(x3), float32(x3)
	for y := y3; y > y1; y-- {
		chip.span(int(cx1), int(cx2), y, c)
		cx1 -= inv1
		cx2 -= inv2
	}
}
