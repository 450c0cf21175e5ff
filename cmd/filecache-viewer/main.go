// SPDX-License-Identifier: Apache-2.0

// filecache-viewer is a standalone terminal dashboard for a running
// filecached instance: it polls the daemon's /debug/status endpoint and
// renders the tracked files, their replacement-engine priority, and the
// size budget's current usage.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cachedepot/filecached/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var address string
	var interval time.Duration
	var showVersion bool
	flag.StringVar(&address, "address", "http://127.0.0.1:8080", "base address of the filecached instance to watch")
	flag.DurationVar(&interval, "interval", 2*time.Second, "status poll interval")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("filecache-viewer %s\n", version.Info())
		return nil
	}

	model := newModel(address, interval, &http.Client{Timeout: 5 * time.Second})
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
