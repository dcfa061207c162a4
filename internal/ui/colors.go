// Package ui holds terminal styling shared by the CLI.
package ui

import "os"

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// NoColor is set when the NO_COLOR convention asks for plain output
var NoColor = os.Getenv("NO_COLOR") != ""

func paint(style, s string) string {
	if NoColor {
		return s
	}
	return style + s + ColorReset
}

func Bold(s string) string {
	return paint(ColorBold, s)
}

func Success(s string) string {
	return paint(ColorGreen, s)
}

// Info renders secondary notes
func Info(s string) string {
	return paint(ColorDim+ColorYellow, s)
}

func Error(s string) string {
	return paint(ColorRed, s)
}
