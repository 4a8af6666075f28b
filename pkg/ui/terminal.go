package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Banner is printed by interactive subcommands.
const Banner = `
  ┌─────────────────────────────────────────────┐
  │  tap-instagram  ·  Instagram Graph API tap  │
  └─────────────────────────────────────────────┘
`

// stdout carries the message stream, so human output defaults to stderr.
var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	quiet   bool
	colored = term.IsTerminal(int(os.Stderr.Fd()))
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

// SetOutput redirects human-facing output. Color is enabled only when w is a
// terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	f, ok := w.(*os.File)
	colored = ok && term.IsTerminal(int(f.Fd()))
}

// SetQuiet suppresses everything except errors.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// Quiet reports whether output is suppressed.
func Quiet() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

func colorize(format string) func(string) string {
	return func(text string) string {
		mu.Lock()
		c := colored
		mu.Unlock()
		if !c {
			return text
		}
		return fmt.Sprintf(format, text)
	}
}

func emit(force bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintln(out, s)
}

// Writer returns the current output writer, or io.Discard when quiet.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if quiet {
		return io.Discard
	}
	return out
}

// PrintBanner prints the banner
func PrintBanner() {
	emit(false, Cyan(Banner))
}

// PrintError prints an error message in red. Errors are shown even when quiet.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprint(args[0])
	}
	emit(true, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(false, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	emit(false, Cyan(label)+": "+Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprint(args[0])
	}
	emit(false, Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(false, Magenta(msg))
}
