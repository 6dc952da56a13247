package logging

import "log/slog"

// Common attribute keys.
const (
	FieldComponent = "component"
	FieldBoard     = "board"
	FieldFrame     = "frame"
	FieldTarget    = "target"
	FieldChannel   = "channel"
	FieldEntry     = "entry"
	FieldPath      = "path"
	FieldErrorKind = "error_kind"
)

// Error returns an attribute carrying err under the "error" key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
