//go:build !statsview

package main

import (
	"fmt"
	"io"
)

func launchStatsview(output io.Writer) {
	fmt.Fprintln(output, "Stats: not available, rebuild with -tags statsview")
}

func statsviewAvailable() bool {
	return false
}
