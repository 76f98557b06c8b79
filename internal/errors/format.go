//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders errors for the terminal.
type Formatter struct {
	NoColor bool
	Writer  io.Writer

	errorColor *color.Color
	codeColor  *color.Color
	hintColor  *color.Color
	dimColor   *color.Color
	styles     map[fieldStyle]*color.Color
}

// NewFormatter creates a Formatter. noColor disables color globally.
func NewFormatter(w io.Writer, noColor bool) *Formatter {
	if noColor {
		color.NoColor = true
	}

	return &Formatter{
		NoColor:    noColor,
		Writer:     w,
		errorColor: color.New(color.FgRed, color.Bold),
		codeColor:  color.New(color.FgRed),
		hintColor:  color.New(color.FgGreen),
		dimColor:   color.New(color.FgHiBlack),
		styles: map[fieldStyle]*color.Color{
			styleResource: color.New(color.FgCyan),
			styleExpected: color.New(color.FgYellow),
			styleGot:      color.New(color.FgRed),
		},
	}
}

// Format renders the outermost error of this package found in err's
// chain. Other errors are printed as a single line.
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	var c coded
	if !errors.As(err, &c) {
		sb.WriteString(f.errorColor.Sprint("Error: "))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		return sb.String()
	}

	base := c.base()
	f.header(&sb, base)
	for _, fl := range c.fields() {
		f.field(&sb, fl)
	}
	f.footer(&sb, base)
	return sb.String()
}

// FormatJSON renders err as indented JSON.
func (f *Formatter) FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return nil, nil
	}
	var c coded
	if errors.As(err, &c) {
		return json.MarshalIndent(c, "", "  ")
	}
	return json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
}

// header writes "Error [E301]: message", or "Error: message" without a code.
func (f *Formatter) header(sb *strings.Builder, err *Error) {
	sb.WriteString(f.errorColor.Sprint("Error"))
	if err.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(f.codeColor.Sprintf("[%s]", err.Code))
	}
	sb.WriteString(f.errorColor.Sprint(": "))
	sb.WriteString(err.Message)
	sb.WriteString("\n\n")
}

func (f *Formatter) field(sb *strings.Builder, fl field) {
	if fl.value == "" {
		return
	}
	value := fl.value
	if c, ok := f.styles[fl.style]; ok {
		value = c.Sprint(value)
	}
	sb.WriteString("  ")
	sb.WriteString(f.dimColor.Sprint(fl.label))
	sb.WriteString(value)
	sb.WriteString("\n")
}

// footer writes the cause and a possibly multi-line hint.
func (f *Formatter) footer(sb *strings.Builder, err *Error) {
	if err.Cause != nil {
		sb.WriteString("\n  ")
		sb.WriteString(f.dimColor.Sprint("Cause: "))
		sb.WriteString(err.Cause.Error())
		sb.WriteString("\n")
	}
	if err.Hint == "" {
		return
	}

	sb.WriteString("\n")
	sb.WriteString(f.hintColor.Sprint("Hint: "))
	lines := strings.Split(err.Hint, "\n")
	sb.WriteString(lines[0])
	sb.WriteString("\n")
	for _, line := range lines[1:] {
		sb.WriteString("      ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
