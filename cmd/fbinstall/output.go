package main

import "github.com/fatih/color"

// outputStyle holds common output styling for CLI commands.
type outputStyle struct {
	successMark string
	failMark    string
	skipMark    string
	header      *color.Color
	path        *color.Color
	success     *color.Color
	dim         *color.Color
}

// newOutputStyle creates a new outputStyle with standard colors.
func newOutputStyle() *outputStyle {
	return &outputStyle{
		successMark: color.New(color.FgGreen).Sprint("✓"),
		failMark:    color.New(color.FgRed).Sprint("✗"),
		skipMark:    color.New(color.FgYellow).Sprint("-"),
		header:      color.New(color.FgCyan, color.Bold),
		path:        color.New(color.FgCyan),
		success:     color.New(color.FgGreen, color.Bold),
		dim:         color.New(color.Faint),
	}
}
