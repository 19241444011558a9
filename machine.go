// machine.go - Zenu Pocket machine and frame loop

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
One frame is:

    1. latch the host joypad bitmask into JOY_START
    2. run the CPU for the instruction budget
    3. if bridge bit 0 is set, hand control to the BridgeHandler and clear it
    4. render VRAM and present the frame
    5. advance audio if no device clock pulls it
    6. wait for the next tick of the frame timer

Pacing is advisory: a slow frame simply makes the next tick arrive
immediately. The loop ends when its context is cancelled, the display
reports it was closed, or a frame limit is reached.
*/

package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	DEFAULT_CPU_BUDGET   = 500000
	BRIDGE_REQUEST       = 1 << 0
	STATUS_UPDATE_FRAMES = 30
)

// BridgeHandler services guest requests raised through the bridge byte.
// It runs on the simulation goroutine between CPU bursts and may access
// the bus freely.
type BridgeHandler interface {
	HandleBridge(bus *MachineBus, value uint8, input uint8, frame uint64)
}

// BridgeHandlerFunc adapts a plain function to BridgeHandler.
type BridgeHandlerFunc func(bus *MachineBus, value uint8, input uint8, frame uint64)

func (f BridgeHandlerFunc) HandleBridge(bus *MachineBus, value uint8, input uint8, frame uint64) {
	f(bus, value, input, frame)
}

// FrameHook runs once per frame after presentation.
type FrameHook interface {
	HandleFrame(bus *MachineBus, frame uint64) error
}

type Machine struct {
	Bus *MachineBus
	CPU *CPUZR32
	GPU *VideoChip
	APU *SoundChip

	video  VideoOutput
	audio  AudioOutput
	bridge BridgeHandler
	hooks  []FrameHook

	// Input overrides the display's joypad when set
	Input func() uint8

	Budget   int
	Paced    bool
	Manifest Manifest

	frame  uint64
	status runtimeStatusStore
}

// NewMachine wires bus, CPU, GPU and APU together. video may be nil.
func NewMachine(video VideoOutput) *Machine {
	bus := NewMachineBus()
	apu := NewSoundChip()
	bus.MapIO(APU_START, APU_START+APU_SIZE-1, apu.Read8, apu.Write8)

	return &Machine{
		Bus:    bus,
		CPU:    NewCPUZR32(bus),
		GPU:    NewVideoChip(video),
		APU:    apu,
		video:  video,
		Budget: DEFAULT_CPU_BUDGET,
		Paced:  true,
	}
}

// Load installs a cartridge and puts the machine in its power-on state.
func (m *Machine) Load(rom []byte, manifest Manifest) int {
	m.Bus.Reset()
	n := m.Bus.LoadROM(rom)
	InitVRAM(m.Bus.VRAM())
	m.CPU.Reset()
	m.APU.Reset()
	m.Manifest = manifest
	m.frame = 0
	m.status.setCartridge(manifest.Name)
	return n
}

func (m *Machine) SetBridgeHandler(h BridgeHandler) {
	m.bridge = h
}

func (m *Machine) AddFrameHook(h FrameHook) {
	m.hooks = append(m.hooks, h)
}

// SetAudio attaches an output that consumes APU samples.
func (m *Machine) SetAudio(out AudioOutput) {
	m.audio = out
}

// Frame returns the number of completed frames.
func (m *Machine) Frame() uint64 {
	return m.frame
}

func (m *Machine) readInput() uint8 {
	if m.Input != nil {
		return m.Input()
	}
	if ic, ok := m.video.(InputCapable); ok {
		return ic.InputMask()
	}
	return 0
}

// RunFrame executes exactly one frame.
func (m *Machine) RunFrame() error {
	input := m.readInput()
	m.Bus.SetInput(input)

	executed := m.CPU.Run(m.Budget)

	bridged := false
	if v := m.Bus.Bridge(); v&BRIDGE_REQUEST != 0 {
		if m.bridge != nil {
			m.bridge.HandleBridge(m.Bus, v, input, m.frame)
		}
		m.Bus.ClearBridge()
		bridged = true
	}

	m.GPU.Render(m.Bus.VRAM())
	if err := m.GPU.Present(); err != nil {
		return err
	}

	if pump, ok := m.audio.(FramePumped); ok {
		pump.PumpFrame()
	}

	for _, h := range m.hooks {
		if err := h.HandleFrame(m.Bus, m.frame); err != nil {
			return err
		}
	}

	m.frame++
	m.status.frameDone(time.Now(), uint64(executed), bridged, m.APU.SamplesGenerated())
	if m.frame%STATUS_UPDATE_FRAMES == 0 {
		if sc, ok := m.video.(StatusCapable); ok {
			sc.SetStatus(m.status.snapshot().String())
		}
	}
	return nil
}

// Run drives frames until ctx is cancelled, the display closes, or
// maxFrames frames have run (0 means no limit).
func (m *Machine) Run(ctx context.Context, maxFrames uint64) error {
	var closed <-chan struct{}
	if qc, ok := m.video.(QuitCapable); ok {
		closed = qc.Done()
	}

	var tick <-chan time.Time
	if m.Paced {
		ticker := time.NewTicker(time.Second / REFRESH_RATE)
		defer ticker.Stop()
		tick = ticker.C
	}

	for maxFrames == 0 || m.frame < maxFrames {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		default:
		}

		if err := m.RunFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", m.frame, err)
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-closed:
				return nil
			case <-tick:
			}
		}
	}
	return nil
}

// Status returns the current runtime counters.
func (m *Machine) Status() runtimeStatusSnapshot {
	return m.status.snapshot()
}

// PrintSummary writes end-of-run counters to stderr.
func (m *Machine) PrintSummary() {
	s := m.status.snapshot()
	fmt.Fprintf(os.Stderr, "Zenu: %d frames, %d instructions, %d bridge calls\n", s.frames, s.instructions, s.bridgeCalls)
}
