// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Color modes accepted by ResolveColors.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ResolveColors decides whether to emit ANSI colors. In auto mode NO_COLOR
// and TERM=dumb turn them off and otherwise the terminal check done by
// fatih/color applies.
func ResolveColors(mode string) (bool, error) {
	switch mode {
	case ColorAlways:
		return true, nil
	case ColorNever:
		return false, nil
	case ColorAuto, "":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false, nil
		}
		if os.Getenv("TERM") == "dumb" {
			return false, nil
		}
		return !color.NoColor, nil
	}
	return false, fmt.Errorf("invalid color mode %q: must be auto, always or never", mode)
}

// Printer writes status lines, colored when enabled.
type Printer struct {
	w         io.Writer
	useColors bool
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, useColors bool) *Printer {
	return &Printer{w: w, useColors: useColors}
}

func (p *Printer) print(c *color.Color, prefix, format string, args ...any) {
	if !p.useColors {
		fmt.Fprintf(p.w, prefix+format+"\n", args...)
		return
	}
	c.EnableColor()
	c.Fprintf(p.w, prefix+format+"\n", args...)
}

// Heading prints a bold line.
func (p *Printer) Heading(format string, args ...any) {
	p.print(color.New(color.Bold), "", format, args...)
}

// Info prints a cyan line.
func (p *Printer) Info(format string, args ...any) {
	p.print(color.New(color.FgCyan), "", format, args...)
}

// Warning prints a line prefixed "warning: ".
func (p *Printer) Warning(format string, args ...any) {
	p.print(color.New(color.FgYellow), "warning: ", format, args...)
}

// Error prints a line prefixed "error: ".
func (p *Printer) Error(format string, args ...any) {
	p.print(color.New(color.FgRed, color.Bold), "error: ", format, args...)
}
