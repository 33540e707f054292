package protocol

import "fmt"

// UnsupportedVersionError is returned when a version outside the range
// this module implements is passed to build, parse or synthesis. The
// caller mis-negotiated the protocol version; this is not retried.
type UnsupportedVersionError struct {
	Version    int16
	MinVersion int16
	MaxVersion int16
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("version %d is not valid, valid versions are %d to %d", e.Version, e.MinVersion, e.MaxVersion)
}

// UnsupportedFeatureError is returned when the requested semantics have
// no wire representation at the target version. The caller can retry
// with a higher negotiated version or fall back.
type UnsupportedFeatureError struct {
	Feature    string
	Version    int16
	MinVersion int16
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("the broker only supports version %d, but %s needs version %d or newer", e.Version, e.Feature, e.MinVersion)
}

// MalformedMessageError wraps a decoding failure. It is propagated
// unchanged; the caller decides whether to drop the connection.
type MalformedMessageError struct {
	Cause error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Cause)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Cause
}

// InvariantViolationError reports an internal contradiction that the
// public constructors are supposed to make unreachable.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Reason)
}
