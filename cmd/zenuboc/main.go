package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	outDir := flag.String("o", "", "Output bundle (default: input name + .boc)")
	name := flag.String("name", "", "Cartridge name for manifest.json (default: input name)")
	version := flag.String("version", defaultVersion, "Cartridge version for manifest.json")
	listing := flag.Bool("list", false, "Print the assembler listing")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: zenuboc [options] input.s|input.bin\n\nBuilds a .boc cartridge bundle for the Zenu Pocket.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  zenuboc roms/hello.s\n")
		fmt.Fprintf(os.Stderr, "  zenuboc -o build/tetris -name \"Zenu Tetris (Pocket)\" -version 2.0 roms/tetris.s\n")
		fmt.Fprintf(os.Stderr, "  zenuboc game.bin\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	var list io.Writer
	if *listing {
		list = os.Stdout
	}
	rom, err := loadROM(inputPath, list)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out := *outDir
	if out == "" {
		out = filepath.Join(filepath.Dir(inputPath), base)
	}
	m := manifest{Name: *name, Version: *version}
	if m.Name == "" {
		m.Name = base
	}

	dir, err := writeBundle(out, rom, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d bytes (%s %s)\n", dir, len(rom), m.Name, m.Version)
}
