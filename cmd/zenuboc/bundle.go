package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/StrayKOficial/zenu-virtualconsole/assembler"
)

const (
	bundleExt      = ".boc"
	romName        = "rom.bin"
	manifestName   = "manifest.json"
	defaultVersion = "1.0"
	maxROMSize     = 0x00FF0000
	romLoadAddress = 0x00010000
	fileMode       = 0644
)

type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// loadROM returns the ROM image for path. Assembly sources (.s, .asm) are
// assembled at the ROM base; anything else is taken as a raw image. When
// listing is non-nil the assembler listing is written to it.
func loadROM(path string, listing io.Writer) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rom []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".s", ".asm":
		asm := assembler.NewZR32Assembler()
		asm.SetOrigin(romLoadAddress)
		asm.SetListingMode(listing != nil)
		rom, err = asm.Assemble(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if listing != nil {
			for _, line := range asm.GetListing() {
				fmt.Fprintln(listing, line)
			}
		}
	default:
		rom = data
	}

	if len(rom) > maxROMSize {
		return nil, fmt.Errorf("%s: image is %d bytes, ROM holds %d", path, len(rom), maxROMSize)
	}
	return rom, nil
}

// bundlePath normalises an output name to a directory ending in .boc.
func bundlePath(out string) string {
	out = filepath.Clean(out)
	if !strings.EqualFold(filepath.Ext(out), bundleExt) {
		out += bundleExt
	}
	return out
}

// writeBundle creates the bundle directory holding rom.bin and manifest.json.
func writeBundle(out string, rom []byte, m manifest) (string, error) {
	dir := bundlePath(out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, romName), rom, fileMode); err != nil {
		return "", err
	}
	meta, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), append(meta, '\n'), fileMode); err != nil {
		return "", err
	}
	return dir, nil
}
