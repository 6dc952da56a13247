package storyboard

import "errors"

var (
	// ErrInvariantViolation reports a timeline/channel mismatch or a misuse of
	// the registry. It indicates a programming error and is never recovered.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrUnsupportedChannel reports a targeted animation whose property kind is
	// not one of the four known kinds.
	ErrUnsupportedChannel = errors.New("unsupported channel")
	// ErrSerialization reports a missing required archive entry or malformed
	// entry data.
	ErrSerialization = errors.New("serialization failed")
	// ErrDisposal reports an incomplete teardown of the previous scene.
	ErrDisposal = errors.New("disposal failed")
	// ErrNotFound reports a name that does not resolve to a live object.
	ErrNotFound = errors.New("not found")
)

// Kind classifies err for structured logging. Unknown errors map to "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, ErrUnsupportedChannel):
		return "unsupported"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrDisposal):
		return "disposal"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "internal"
}
