package output

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme defines the colors used for the different elements of a
// rendered snapshot.
type ColorScheme struct {
	MetricName *color.Color
	Kind       *color.Color
	StatKey    *color.Color
	StatValue  *color.Color
	Heading    *color.Color
	Success    *color.Color
	Error      *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		MetricName: color.New(color.FgCyan, color.Bold),
		Kind:       color.New(color.FgMagenta),
		StatKey:    color.New(color.FgYellow),
		StatValue:  color.New(color.FgWhite),
		Heading:    color.New(color.FgBlue, color.Bold),
		Success:    color.New(color.FgGreen),
		Error:      color.New(color.FgRed, color.Bold),
	}
}

// NoColorScheme returns a scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.MetricName.DisableColor()
	scheme.Kind.DisableColor()
	scheme.StatKey.DisableColor()
	scheme.StatValue.DisableColor()
	scheme.Heading.DisableColor()
	scheme.Success.DisableColor()
	scheme.Error.DisableColor()
	return scheme
}

// IsTerminal reports whether stdout is an interactive terminal; callers use
// it to decide whether colored output makes sense.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
