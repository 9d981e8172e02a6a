package main

import (
	"os"

	"deployclean/internal/ghclient"

	"github.com/mattn/go-isatty"
)

var (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorReset  = "\033[0m"
)

func init() {
	// Not a terminal, disable colors
	if !isTerminal(os.Stdout) || os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorGreen = ""
	colorRed = ""
	colorYellow = ""
	colorGray = ""
	colorReset = ""
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// isInteractive checks if stdin is a terminal
func isInteractive() bool {
	return isTerminal(os.Stdin)
}

func stateColor(state ghclient.State) string {
	switch state {
	case ghclient.StateSuccess:
		return colorGreen
	case ghclient.StateFailure, ghclient.StateError:
		return colorRed
	case ghclient.StatePending, ghclient.StateQueued, ghclient.StateInProgress:
		return colorYellow
	case ghclient.StateInactive, ghclient.StateUnknown:
		return colorGray
	default:
		return ""
	}
}

func colorize(color, s string) string {
	if color == "" || colorReset == "" {
		return s
	}
	return color + s + colorReset
}
