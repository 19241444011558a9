//go:build statsview

// statsview.go - Runtime stats server (statsview build tag)

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
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const (
	STATSVIEW_ADDR = "localhost:12600"
	STATSVIEW_PATH = "/debug/statsview"
)

// launchStatsview starts the runtime stats server in the background.
// pprof is served alongside at /debug/pprof/.
func launchStatsview(output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(STATSVIEW_ADDR))
		mgr := statsview.New()
		mgr.Start()
	}()
	fmt.Fprintf(output, "Stats: server available at http://%s%s\n", STATSVIEW_ADDR, STATSVIEW_PATH)
}

func statsviewAvailable() bool {
	return true
}
