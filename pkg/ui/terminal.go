package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Banner printed at the top of interactive runs
const Banner = `
  ╔════════════════════════════════════════╗
  ║  itcharchive · creator page archiver   ║
  ╚════════════════════════════════════════╝
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	color             = detectColor(os.Stdout)
	isTTY             = isTerminal(os.Stdout)
	quietUI bool
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func detectColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(f)
}

// colorize returns a function that wraps text with ANSI color codes when
// colour output is enabled
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		enabled := color
		mu.Unlock()
		if !enabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetOutput redirects UI output. Colour and line redraws are turned off
// unless w is a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	f, ok := w.(*os.File)
	isTTY = ok && isTerminal(f)
	color = ok && detectColor(f)
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quietUI = q
}

// IsInteractive reports whether output goes to a terminal
func IsInteractive() bool {
	mu.Lock()
	defer mu.Unlock()
	return isTTY
}

func writer() (io.Writer, bool) {
	mu.Lock()
	defer mu.Unlock()
	return out, quietUI
}

func printLine(s string, always bool) {
	w, quiet := writer()
	if quiet && !always {
		return
	}
	fmt.Fprintln(w, s)
}

// PrintBanner prints the banner on interactive terminals
func PrintBanner() {
	if IsInteractive() {
		printLine(Cyan(Banner), false)
	}
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		printLine(Red(msg+": "+fmt.Sprintf("%v", args[0])), true)
	} else {
		printLine(Red(msg), true)
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printLine(Green(msg), false)
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	printLine(fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)), false)
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		printLine(Yellow(msg+": "+fmt.Sprintf("%v", args[0])), false)
	} else {
		printLine(Yellow(msg), false)
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printLine(Magenta(msg), false)
}
