// main.go - Main entry point for the Zenu Pocket console

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
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄\033[0m")
	fmt.Println("\033[38;2;255;110;147m   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █\033[0m")
	fmt.Println("\033[38;2;255;200;147m ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █\033[0m")
	fmt.Println("\nA 160x144 pocket console around a 32-bit RISC core.")
	fmt.Println("https://github.com/StrayKOficial/zenu-virtualconsole")
	fmt.Println("License: GPLv3 or later")
}

type options struct {
	bundle    string
	scale     int
	budget    uint32
	frames    uint32
	trace     bool
	perf      bool
	headless  bool
	terminal  bool
	mute      bool
	wavFile   string
	script    string
	statsview bool
}

func usage(flagSet *flag.FlagSet) {
	flagSet.SetOutput(os.Stdout)
	fmt.Println("Usage: ./zenu [-scale 4] [-budget 500000] [-headless|-term] [-mute] [-wav out.wav] [-script hooks.lua] game.boc")
	flagSet.PrintDefaults()
}

// parseOptions reads the command line. A nil error with an empty bundle
// means usage was printed and the program should exit successfully.
func parseOptions(args []string) (options, error) {
	var (
		opts   options
		budget string
		frames string
	)

	flagSet := flag.NewFlagSet("zenu", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&opts.scale, "scale", DefaultDisplayConfig().Scale, "Window scale factor")
	flagSet.StringVar(&budget, "budget", strconv.Itoa(DEFAULT_CPU_BUDGET), "Instructions per frame (hex or decimal)")
	flagSet.StringVar(&frames, "frames", "0", "Stop after this many frames (0 runs until quit)")
	flagSet.BoolVar(&opts.trace, "trace", false, "Disassemble every executed instruction")
	flagSet.BoolVar(&opts.perf, "perf", false, "Report CPU MIPS once per second")
	flagSet.BoolVar(&opts.headless, "headless", false, "Run without a display")
	flagSet.BoolVar(&opts.terminal, "term", false, "Render to the terminal with ANSI half blocks")
	flagSet.BoolVar(&opts.mute, "mute", false, "Disable audio output")
	flagSet.StringVar(&opts.wavFile, "wav", "", "Record audio to a WAV file")
	flagSet.StringVar(&opts.script, "script", "", "Lua script with on_frame/on_bridge hooks")
	flagSet.BoolVar(&opts.statsview, "statsview", false, "Serve runtime statistics (statsview builds only)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(flagSet)
			return options{}, nil
		}
		return options{}, err
	}

	var err error
	if opts.budget, err = parseUint32Flag(budget); err != nil {
		return options{}, fmt.Errorf("invalid -budget %q: %w", budget, err)
	}
	if opts.budget == 0 {
		return options{}, fmt.Errorf("invalid -budget %q: must be positive", budget)
	}
	if opts.frames, err = parseUint32Flag(frames); err != nil {
		return options{}, fmt.Errorf("invalid -frames %q: %w", frames, err)
	}
	if opts.scale < 1 {
		return options{}, fmt.Errorf("invalid -scale %d: must be at least 1", opts.scale)
	}
	if opts.statsview && !statsviewAvailable() {
		return options{}, errors.New("-statsview needs a build with -tags statsview")
	}
	if opts.headless && opts.terminal {
		return options{}, errors.New("-headless and -term are mutually exclusive")
	}

	switch flagSet.NArg() {
	case 0:
		usage(flagSet)
		return options{}, nil
	case 1:
		opts.bundle = flagSet.Arg(0)
	default:
		return options{}, fmt.Errorf("expected one bundle, got %d arguments", flagSet.NArg())
	}
	return opts, nil
}

func (o options) videoBackend() int {
	switch {
	case o.headless:
		return VIDEO_BACKEND_HEADLESS
	case o.terminal:
		return VIDEO_BACKEND_TERMINAL
	default:
		return VIDEO_BACKEND_EBITEN
	}
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if opts.bundle == "" {
		os.Exit(0)
	}
	if !opts.terminal {
		boilerPlate()
	}

	rom, manifest, err := LoadBundle(opts.bundle)
	if err != nil {
		fmt.Printf("Loader: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts, rom, manifest); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, rom []byte, manifest Manifest) error {
	video, err := NewVideoOutput(opts.videoBackend())
	if err != nil {
		return fmt.Errorf("video: %w", err)
	}
	defer video.Close()

	config := video.GetDisplayConfig()
	config.Scale = opts.scale
	if err := video.SetDisplayConfig(config); err != nil {
		return fmt.Errorf("video: %w", err)
	}

	m := NewMachine(video)
	m.Budget = int(opts.budget)
	m.Paced = !(opts.headless && opts.frames > 0)
	m.CPU.TraceEnabled = opts.trace
	m.CPU.PerfEnabled = opts.perf
	if n := m.Load(rom, manifest); n < len(rom) {
		fmt.Printf("Loader: %s truncated to %d of %d bytes\n", manifest.Name, n, len(rom))
	}

	if opts.wavFile != "" {
		rec, err := NewWavRecorder(opts.wavFile, APU_SAMPLE_RATE)
		if err != nil {
			return fmt.Errorf("wav: %w", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				fmt.Printf("Audio: closing %s: %v\n", opts.wavFile, err)
			}
		}()
		m.APU.SetSink(rec)
	}

	backend := AUDIO_BACKEND_OTO
	if opts.mute || opts.headless {
		backend = AUDIO_BACKEND_NULL
	}
	audio, err := NewAudioOutput(backend, APU_SAMPLE_RATE, m.APU)
	if err != nil {
		fmt.Printf("Audio: %v, continuing without sound\n", err)
		audio, _ = NewAudioOutput(AUDIO_BACKEND_NULL, APU_SAMPLE_RATE, m.APU)
	}
	defer audio.Close()
	m.SetAudio(audio)

	if opts.script != "" {
		host := NewScriptHost(m)
		defer host.Close()
		if err := host.LoadFile(opts.script); err != nil {
			return err
		}
		host.Attach(m)
	}

	if opts.statsview {
		launchStatsview(os.Stdout)
	}

	if err := video.Start(); err != nil {
		return fmt.Errorf("video: %w", err)
	}
	defer video.Stop()
	audio.Start()
	defer audio.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = m.Run(ctx, uint64(opts.frames))
	if opts.perf || opts.headless {
		m.PrintSummary()
	}
	return err
}

func parseUint32Flag(value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(parsed), nil
}
