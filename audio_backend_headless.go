//go:build headless

package main

type OtoPlayer struct {
	NullAudioOutput
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	return &OtoPlayer{}, nil
}

func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	return len(p), nil
}
