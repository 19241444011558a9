// loader.go - Cartridge bundle loader

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
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	BUNDLE_ROM_NAME      = "rom.bin"
	BUNDLE_MANIFEST_NAME = "manifest.json"
	BUNDLE_VERSION       = "1.0.0"
)

var (
	ErrBundleNotFound     = errors.New("bundle not found")
	ErrBundleNotDirectory = errors.New("bundle is not a directory")
	ErrROMMissing         = errors.New("rom.bin missing from bundle")
	ErrROMUnreadable      = errors.New("rom.bin unreadable")
)

// Manifest describes a loaded bundle. Name is the bundle directory's base
// name; any manifest.json inside the bundle is not consulted.
type Manifest struct {
	Name    string
	Version string
}

// LoadBundle reads <path>/rom.bin from a .boc bundle directory. On failure
// the returned ROM is nil and the error wraps one of the Err* sentinels.
func LoadBundle(path string) ([]byte, Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: %s: %v", ErrBundleNotFound, path, err)
	}
	if !info.IsDir() {
		return nil, Manifest{}, fmt.Errorf("%w: %s", ErrBundleNotDirectory, path)
	}

	romPath := filepath.Join(path, BUNDLE_ROM_NAME)
	if _, err := os.Stat(romPath); err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: %s", ErrROMMissing, path)
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: %s: %v", ErrROMUnreadable, romPath, err)
	}

	return rom, Manifest{
		Name:    filepath.Base(filepath.Clean(path)),
		Version: BUNDLE_VERSION,
	}, nil
}
