// Package logging builds the slog loggers used across the storyboard editor.
//
// Two formats are supported: a console format with one line per record and
// the component name up front, and JSON for machine consumption. Console
// levels are coloured when the destination is a terminal.
package logging
