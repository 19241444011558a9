// audio_wav_recorder.go - WAV capture of APU output

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
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	WAV_BIT_DEPTH   = 16
	WAV_FORMAT_PCM  = 1
	WAV_SAMPLE_MAX  = 32767
	WAV_NUM_CHANNEL = 1
)

// WavRecorder streams APU output to a mono 16-bit PCM WAV file. It
// implements SampleSink so it can be attached with SoundChip.SetSink.
type WavRecorder struct {
	filename string
	mu       sync.Mutex
	file     *os.File
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	samples  uint64
	err      error
}

func NewWavRecorder(filename string, sampleRate int) (*WavRecorder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, &AudioError{Operation: "wav create", Details: filename, Err: err}
	}
	return &WavRecorder{
		filename: filename,
		file:     f,
		enc:      wav.NewEncoder(f, sampleRate, WAV_BIT_DEPTH, WAV_NUM_CHANNEL, WAV_FORMAT_PCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: WAV_NUM_CHANNEL, SampleRate: sampleRate},
			SourceBitDepth: WAV_BIT_DEPTH,
		},
	}, nil
}

// WriteSamples converts float samples in [-1,1] to 16-bit and appends them.
// After the first failure every call returns that error.
func (r *WavRecorder) WriteSamples(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.enc == nil {
		return fmt.Errorf("WavRecorder: %s already closed", r.filename)
	}

	data := r.buf.Data[:0]
	for _, s := range samples {
		s = max(-1, min(1, s))
		data = append(data, int(s*WAV_SAMPLE_MAX))
	}
	r.buf.Data = data
	if err := r.enc.Write(r.buf); err != nil {
		r.err = &AudioError{Operation: "wav write", Details: r.filename, Err: err}
		return r.err
	}
	r.samples += uint64(len(samples))
	return nil
}

// SampleCount returns the number of samples written so far.
func (r *WavRecorder) SampleCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}

// Close finalises the WAV header and closes the file. A write error seen
// earlier is returned here, since the recording is truncated.
func (r *WavRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return r.err
	}
	encErr := r.enc.Close()
	fileErr := r.file.Close()
	r.enc = nil
	if r.err != nil {
		return r.err
	}
	if encErr != nil {
		return &AudioError{Operation: "wav close", Details: r.filename, Err: encErr}
	}
	if fileErr != nil {
		return &AudioError{Operation: "wav close", Details: r.filename, Err: fileErr}
	}
	return nil
}
