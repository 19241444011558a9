// runtime_status.go - Runtime counters for status and perf output

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
	"fmt"
	"sync"
	"time"
)

// runtimeStatusSnapshot is what the status bar and the perf reporter see
// of the running machine.
type runtimeStatusSnapshot struct {
	cartridge    string
	frames       uint64
	instructions uint64
	fps          float64
	mips         float64
	bridgeCalls  uint64
	audioSamples uint64
}

type runtimeStatusStore struct {
	mu sync.RWMutex
	runtimeStatusSnapshot

	windowStart  time.Time
	windowFrames uint64
	windowInstr  uint64
}

func (s *runtimeStatusStore) setCartridge(name string) {
	s.mu.Lock()
	s.cartridge = name
	s.mu.Unlock()
}

// frameDone folds one finished frame into the counters. FPS and MIPS are
// recomputed over windows of at least half a second.
func (s *runtimeStatusStore) frameDone(now time.Time, instructions uint64, bridged bool, samples uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	s.instructions += instructions
	s.audioSamples = samples
	if bridged {
		s.bridgeCalls++
	}

	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.windowFrames++
	s.windowInstr += instructions
	if elapsed := now.Sub(s.windowStart).Seconds(); elapsed >= 0.5 {
		s.fps = float64(s.windowFrames) / elapsed
		s.mips = float64(s.windowInstr) / elapsed / 1_000_000
		s.windowStart = now
		s.windowFrames = 0
		s.windowInstr = 0
	}
}

func (s *runtimeStatusStore) snapshot() runtimeStatusSnapshot {
	s.mu.RLock()
	snap := s.runtimeStatusSnapshot
	s.mu.RUnlock()
	return snap
}

func (snap runtimeStatusSnapshot) String() string {
	return fmt.Sprintf("%s %.0fFPS %.1fMIPS", snap.cartridge, snap.fps, snap.mips)
}
