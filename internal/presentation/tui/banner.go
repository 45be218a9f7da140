package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the runlens banner with the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"                  _", "#34d399"},
		{"  _ _ _  _ _ _   | |___ _ _  ___", "#2dd4bf"},
		{" | '_| || | ' \\  | / -_) ' \\(_-<", "#22d3ee"},
		{" |_|  \\_,_|_||_| |_\\___|_||_/__/", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
