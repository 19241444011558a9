// audio_interface.go - Audio backend abstraction

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
)

// AudioError provides detailed error context for audio operations
type AudioError struct {
	Operation string
	Details   string
	Err       error
}

func (e *AudioError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("audio %s failed: %s", e.Operation, e.Details)
}

func (e *AudioError) Unwrap() error {
	return e.Err
}

// AudioOutput is a sink that pulls samples from a SoundChip.
type AudioOutput interface {
	SetupPlayer(chip *SoundChip)
	Start()
	Stop()
	Close()
	IsStarted() bool
}

// FramePumped outputs have no device clock of their own; the frame loop
// calls PumpFrame once per frame to keep the APU advancing.
type FramePumped interface {
	PumpFrame()
}

const (
	AUDIO_BACKEND_OTO  = iota // Host audio device through oto
	AUDIO_BACKEND_NULL        // No device; samples are generated per frame and discarded
)

// NewAudioOutput creates an output for backend and attaches chip to it.
func NewAudioOutput(backend int, sampleRate int, chip *SoundChip) (AudioOutput, error) {
	var out AudioOutput
	switch backend {
	case AUDIO_BACKEND_OTO:
		op, err := NewOtoPlayer(sampleRate)
		if err != nil {
			return nil, &AudioError{Operation: "backend creation", Details: "oto context", Err: err}
		}
		out = op
	case AUDIO_BACKEND_NULL:
		out = &NullAudioOutput{}
	default:
		return nil, &AudioError{
			Operation: "backend creation",
			Details:   fmt.Sprintf("unknown backend type: %d", backend),
		}
	}
	out.SetupPlayer(chip)
	return out, nil
}

// ------------------------------------------------------------------------------
// NullAudioOutput
// ------------------------------------------------------------------------------

type NullAudioOutput struct {
	chip    *SoundChip
	buf     []float32
	started bool
}

func (n *NullAudioOutput) SetupPlayer(chip *SoundChip) {
	n.chip = chip
	n.buf = make([]float32, APU_SAMPLES_PER_FRAME)
}

func (n *NullAudioOutput) Start() { n.started = true }

func (n *NullAudioOutput) Stop() { n.started = false }

func (n *NullAudioOutput) Close() { n.started = false }

func (n *NullAudioOutput) IsStarted() bool { return n.started }

// PumpFrame generates one frame's worth of samples.
func (n *NullAudioOutput) PumpFrame() {
	if n.chip == nil || !n.started {
		return
	}
	n.chip.GenerateSamples(n.buf)
}
