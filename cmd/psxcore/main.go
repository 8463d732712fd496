// Command psxcore runs the core emulation loop headless: load a BIOS, an
// optional PSX-EXE, and step the CPU frame by frame. It is intentionally
// minimal -- a real front-end drives system.System directly instead of
// going through this binary.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rogestation/psxcore/logger"
	"github.com/rogestation/psxcore/system"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// exit codes: 0 success, 1 usage error, -1 runtime initialization failure.
func run(args []string) int {
	flgs := flag.NewFlagSet("psxcore", flag.ContinueOnError)
	frames := flgs.Int("frames", 60, "number of frames to run before exiting")
	echo := flgs.Bool("log", false, "echo diagnostics log to stdout on exit")

	if err := flgs.Parse(args); err != nil {
		return 1
	}
	pos := flgs.Args()
	if len(pos) < 1 || len(pos) > 2 {
		fmt.Fprintln(os.Stderr, "usage: psxcore <bios> [exe]")
		return 1
	}

	biosPath := pos[0]
	var exePath string
	if len(pos) == 2 {
		exePath = pos[1]
	}

	sys := system.New()

	bios, err := os.ReadFile(biosPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading bios: %s\n", err)
		return -1
	}
	if err := sys.LoadBIOS(bios); err != nil {
		fmt.Fprintf(os.Stderr, "loading bios: %s\n", err)
		return -1
	}
	sys.Reset()

	if exePath != "" {
		exe, err := os.ReadFile(exePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading exe: %s\n", err)
			return -1
		}
		if err := sys.LoadEXE(exe); err != nil {
			fmt.Fprintf(os.Stderr, "loading exe: %s\n", err)
			return -1
		}
	}

	sys.SetTTYSink(func(line string) {
		fmt.Println(line)
	})

	for i := 0; i < *frames; i++ {
		sys.RunFrame()
	}

	if *echo {
		logger.Write(os.Stdout)
	}

	return 0
}
