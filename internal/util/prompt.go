// Package util provides terminal helpers shared by CLI commands.
package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or fallback when f is not a
// terminal.
func TerminalWidth(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Confirm asks a y/n question on out and reads the answer from in. An
// empty answer picks the default; EOF counts as no answer.
func Confirm(in io.Reader, out io.Writer, label string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}
	fmt.Fprintf(out, "%s%s", label, suffix)

	text, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return defaultYes, nil
	}
	return text == "y" || text == "yes", nil
}

// PromptConfirm asks for y/n confirmation on the terminal.
func PromptConfirm(label string, defaultYes bool) (bool, error) {
	return Confirm(os.Stdin, os.Stderr, label, defaultYes)
}
