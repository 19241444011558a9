// audio_chip.go - Zenu Pocket sound chip

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
audio_chip.go - Four channel tone generator for the Zenu Pocket

The APU owns a 256 byte window on the bus but only decodes the first 0x20
offsets, four bytes per channel:

    +0  frequency low byte (Hz)
    +1  frequency high byte (Hz)
    +2  control: bit0 enable, bits1-2 waveform
    +3  volume 0-255

Channels 0-3 live at 0x00-0x0F. Offsets 0x10-0x1F address four more
channel slots that were never populated; writes there are accepted and
dropped. Everything above 0x20 is ignored. The APU is write-only: every
read returns 0.

Output is mono float32 at 48 kHz. Each active channel contributes
sample * volume * 0.25 so four full-volume channels stay inside [-1,1].
Channels power on disabled at half volume, so enabling one without a
volume write is audible.
*/

package main

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

const (
	APU_SAMPLE_RATE = 48000
	APU_CHANNELS    = 4
	APU_CHANNEL_MIX = 0.25

	APU_REG_WINDOW   = 0x20 // decoded register range
	APU_REG_STRIDE   = 4
	APU_REG_FREQ_LO  = 0
	APU_REG_FREQ_HI  = 1
	APU_REG_CTRL     = 2
	APU_REG_VOLUME   = 3
	APU_CTRL_ENABLE  = 1 << 0
	APU_CTRL_WAVE    = 3 << 1
	APU_CTRL_WAVE_SH = 1

	// Samples generated per video frame when no device pulls audio
	APU_SAMPLES_PER_FRAME = APU_SAMPLE_RATE / REFRESH_RATE
)

const (
	WAVE_SQUARE = iota
	WAVE_SINE
	WAVE_TRIANGLE
	WAVE_NOISE
)

const (
	NOISE_LFSR_SEED = 0x7FFFFF // 23-bit LFSR seed
	NOISE_LFSR_MASK = 0x7FFFFF // 23-bit mask

	APU_POWER_ON_VOLUME = 0.5
)

// SampleSink receives every buffer the APU generates, after mixing.
type SampleSink interface {
	WriteSamples(samples []float32) error
}

type Channel struct {
	enabled   bool
	waveType  int
	freqRaw   uint16
	frequency float64
	volume    float32
	phase     float64

	noiseSR    uint32 // Noise shift register state
	noiseValue float32
}

// ChannelState is a read-only view of one channel.
type ChannelState struct {
	Enabled   bool
	WaveType  int
	Frequency float64
	Volume    float32
	Phase     float64
}

type SoundChip struct {
	mutex    sync.Mutex
	channels [APU_CHANNELS]Channel
	sink     SampleSink

	samplesGenerated atomic.Uint64
}

func NewSoundChip() *SoundChip {
	chip := &SoundChip{}
	chip.Reset()
	return chip
}

// Reset disables every channel, clears its phase and frequency and puts
// volume back to half scale.
func (chip *SoundChip) Reset() {
	chip.mutex.Lock()
	defer chip.mutex.Unlock()
	for i := range chip.channels {
		chip.channels[i] = Channel{
			volume:     APU_POWER_ON_VOLUME,
			noiseSR:    NOISE_LFSR_SEED,
			noiseValue: 1,
		}
	}
}

// SetSink attaches a tap that sees every generated buffer. nil detaches.
func (chip *SoundChip) SetSink(sink SampleSink) {
	chip.mutex.Lock()
	chip.sink = sink
	chip.mutex.Unlock()
}

// Write8 handles a byte store at offset reg within the APU window.
func (chip *SoundChip) Write8(reg uint32, value uint8) {
	if reg >= APU_REG_WINDOW {
		return
	}
	idx := int(reg / APU_REG_STRIDE)
	if idx >= APU_CHANNELS {
		return
	}

	chip.mutex.Lock()
	defer chip.mutex.Unlock()

	ch := &chip.channels[idx]
	switch reg % APU_REG_STRIDE {
	case APU_REG_FREQ_LO:
		ch.freqRaw = ch.freqRaw&0xFF00 | uint16(value)
		ch.frequency = float64(ch.freqRaw)
	case APU_REG_FREQ_HI:
		ch.freqRaw = ch.freqRaw&0x00FF | uint16(value)<<8
		ch.frequency = float64(ch.freqRaw)
	case APU_REG_CTRL:
		enable := value&APU_CTRL_ENABLE != 0
		if enable {
			ch.phase = 0
		}
		ch.enabled = enable
		ch.waveType = int(value&APU_CTRL_WAVE) >> APU_CTRL_WAVE_SH
	case APU_REG_VOLUME:
		ch.volume = float32(value) / 255
	}
}

// Read8 always returns 0; the APU registers are write-only.
func (chip *SoundChip) Read8(reg uint32) uint8 {
	return 0
}

// Channel returns a snapshot of channel i.
func (chip *SoundChip) Channel(i int) ChannelState {
	chip.mutex.Lock()
	defer chip.mutex.Unlock()
	ch := chip.channels[i]
	return ChannelState{
		Enabled:   ch.enabled,
		WaveType:  ch.waveType,
		Frequency: ch.frequency,
		Volume:    ch.volume,
		Phase:     ch.phase,
	}
}

// GenerateSamples fills buf with mixed mono samples at APU_SAMPLE_RATE.
func (chip *SoundChip) GenerateSamples(buf []float32) {
	chip.mutex.Lock()
	for i := range buf {
		var out float32
		for c := range chip.channels {
			out += chip.channels[c].next()
		}
		buf[i] = out
	}
	chip.samplesGenerated.Add(uint64(len(buf)))
	sink := chip.sink
	chip.mutex.Unlock()

	if sink == nil {
		return
	}
	if err := sink.WriteSamples(buf); err != nil {
		chip.mutex.Lock()
		if chip.sink == sink {
			chip.sink = nil
			fmt.Printf("Audio: %v, recording stopped\n", err)
		}
		chip.mutex.Unlock()
	}
}

// SamplesGenerated returns the number of samples mixed since power-on. It
// is safe to call while the audio backend is pulling samples.
func (chip *SoundChip) SamplesGenerated() uint64 {
	return chip.samplesGenerated.Load()
}

// next returns the channel's contribution to one output sample and
// advances its phase.
func (ch *Channel) next() float32 {
	if !ch.enabled || ch.frequency <= 0 {
		return 0
	}

	var s float32
	switch ch.waveType {
	case WAVE_SQUARE:
		s = -1
		if ch.phase < 0.5 {
			s = 1
		}
	case WAVE_SINE:
		s = float32(math.Sin(2 * math.Pi * ch.phase))
	case WAVE_TRIANGLE:
		s = float32(4*math.Abs(ch.phase-0.5) - 1)
	case WAVE_NOISE:
		s = ch.noiseValue
	}

	ch.phase += ch.frequency / APU_SAMPLE_RATE
	for ch.phase >= 1 {
		ch.phase -= 1
		if ch.waveType == WAVE_NOISE {
			newBit := ((ch.noiseSR >> 22) ^ (ch.noiseSR >> 17)) & 1
			ch.noiseSR = ((ch.noiseSR << 1) | newBit) & NOISE_LFSR_MASK
			ch.noiseValue = float32(ch.noiseSR&1)*2 - 1
		}
	}
	return s * ch.volume * APU_CHANNEL_MIX
}
