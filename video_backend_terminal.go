// video_backend_terminal.go - ANSI terminal video backend

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

const (
	terminalKeyHoldFrames = 6 // terminals report no key-up; a press holds its bit this long
	terminalKeyCtrlC      = 0x03
)

// TerminalOutput draws frames on the controlling terminal with one
// half-block character per two vertical pixels, 24-bit colour.
type TerminalOutput struct {
	out    io.Writer
	fd     int
	width  int
	height int

	mu           sync.Mutex
	started      bool
	oldTermState *term.State
	frameCount   uint64
	status       string
	buf          bytes.Buffer

	hold [8]int
	keys chan byte
	done chan struct{}
	once sync.Once
}

func NewTerminalOutput() (VideoOutput, error) {
	return &TerminalOutput{
		out:    os.Stdout,
		fd:     int(os.Stdin.Fd()),
		width:  SCREEN_WIDTH,
		height: SCREEN_HEIGHT,
		keys:   make(chan byte, 64),
		done:   make(chan struct{}),
	}, nil
}

func (t *TerminalOutput) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}
	if term.IsTerminal(t.fd) {
		oldState, err := term.MakeRaw(t.fd)
		if err != nil {
			return &VideoError{Operation: "terminal start", Details: "failed to set raw mode", Err: err}
		}
		t.oldTermState = oldState
		go t.readKeys(os.Stdin)
	}
	// Hide the cursor and clear the screen
	fmt.Fprint(t.out, "\x1b[?25l\x1b[2J")
	t.started = true
	return nil
}

func (t *TerminalOutput) readKeys(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		select {
		case t.keys <- b:
		default:
		}
	}
}

func (t *TerminalOutput) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return nil
	}
	fmt.Fprint(t.out, "\x1b[0m\x1b[?25h\r\n")
	if t.oldTermState != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
	}
	t.started = false
	return nil
}

func (t *TerminalOutput) Close() error {
	return t.Stop()
}

func (t *TerminalOutput) IsStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *TerminalOutput) SetDisplayConfig(config DisplayConfig) error {
	if config.Width > 0 {
		t.width = config.Width
	}
	if config.Height > 0 {
		t.height = config.Height
	}
	return nil
}

func (t *TerminalOutput) GetDisplayConfig() DisplayConfig {
	cfg := DefaultDisplayConfig()
	cfg.Width, cfg.Height, cfg.Scale = t.width, t.height, 1
	return cfg
}

func (t *TerminalOutput) Done() <-chan struct{} {
	return t.done
}

func (t *TerminalOutput) SetStatus(status string) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

// InputMask drains pending keystrokes and returns the held joypad bits.
func (t *TerminalOutput) InputMask() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.hold {
		if t.hold[i] > 0 {
			t.hold[i]--
		}
	}
	esc := 0
	for {
		select {
		case b := <-t.keys:
			esc = t.feedKey(b, esc)
			continue
		default:
		}
		break
	}
	var mask uint8
	for i, n := range t.hold {
		if n > 0 {
			mask |= 1 << i
		}
	}
	return mask
}

// feedKey advances the ESC [ x arrow-key state machine by one byte.
func (t *TerminalOutput) feedKey(b byte, esc int) int {
	switch {
	case esc == 1 && b == '[':
		return 2
	case esc == 2:
		switch b {
		case 'A':
			t.press(JOY_UP)
		case 'B':
			t.press(JOY_DOWN)
		case 'C':
			t.press(JOY_RIGHT)
		case 'D':
			t.press(JOY_LEFT)
		}
		return 0
	}
	switch b {
	case 0x1B:
		return 1
	case terminalKeyCtrlC, 'q', 'Q':
		t.once.Do(func() { close(t.done) })
	case 'z', 'Z':
		t.press(JOY_BTN_A)
	case 'x', 'X':
		t.press(JOY_BTN_B)
	case '\r', '\n':
		t.press(JOY_BTN_START)
	case ' ':
		t.press(JOY_BTN_SELECT)
	case 'w', 'W':
		t.press(JOY_UP)
	case 's', 'S':
		t.press(JOY_DOWN)
	case 'a', 'A':
		t.press(JOY_LEFT)
	case 'd', 'D':
		t.press(JOY_RIGHT)
	}
	return 0
}

func (t *TerminalOutput) press(bit uint8) {
	for i := range t.hold {
		if bit&(1<<i) != 0 {
			t.hold[i] = terminalKeyHoldFrames
		}
	}
}

func (t *TerminalOutput) UpdateFrame(buffer []byte) error {
	cols, rows := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		cols, rows = w, h
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf.Reset()
	t.buf.WriteString("\x1b[H")
	renderHalfBlocks(&t.buf, buffer, t.width, t.height, terminalStep(t.width, t.height, cols, rows-1))
	if t.status != "" {
		fmt.Fprintf(&t.buf, "\x1b[0m%s\x1b[K", t.status)
	}
	atomic.AddUint64(&t.frameCount, 1)
	if _, err := t.out.Write(t.buf.Bytes()); err != nil {
		return &VideoError{Operation: "terminal update", Details: "write failed", Err: err}
	}
	return nil
}

func (t *TerminalOutput) WaitForVSync() error {
	return nil
}

func (t *TerminalOutput) GetFrameCount() uint64 {
	return atomic.LoadUint64(&t.frameCount)
}

func (t *TerminalOutput) GetRefreshRate() int {
	return REFRESH_RATE
}

// terminalStep picks the smallest integer pixel step that fits a width x
// height frame into cols x rows character cells.
func terminalStep(width, height, cols, rows int) int {
	step := 1
	for cols > 0 && rows > 0 && (width/step > cols || (height/step+1)/2 > rows) {
		step++
	}
	return step
}

// renderHalfBlocks writes rgba as rows of upper-half blocks. Each cell
// takes its foreground from the upper pixel and its background from the
// lower one.
func renderHalfBlocks(w *bytes.Buffer, rgba []byte, width, height, step int) {
	if step < 1 {
		step = 1
	}
	px := func(x, y int) (byte, byte, byte) {
		if y >= height {
			return 0, 0, 0
		}
		o := (y*width + x) * 4
		return rgba[o], rgba[o+1], rgba[o+2]
	}
	for y := 0; y < height; y += 2 * step {
		for x := 0; x < width; x += step {
			r1, g1, b1 := px(x, y)
			r2, g2, b2 := px(x, y+step)
			fmt.Fprintf(w, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀", r1, g1, b1, r2, g2, b2)
		}
		w.WriteString("\x1b[0m\r\n")
	}
}
