package npc

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable classification every engine error carries.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindThresholdNotMet
	KindResourceUnavailable
	KindTimeout
)

var kindNames = [...]string{
	"unknown", "not_found", "invalid_state",
	"threshold_not_met", "resource_unavailable", "timeout",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is the structured error type returned by engine operations. Engines
// never panic; every failure is one of the kinds above.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors by kind so callers can use errors.Is with a bare kind error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == ""
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// InvalidStatef builds an InvalidState error.
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

// ThresholdNotMetf builds a ThresholdNotMet error. It signals a no-op, not a
// failure; bulk operations do not count it against their error totals.
func ThresholdNotMetf(format string, args ...any) *Error {
	return &Error{Kind: KindThresholdNotMet, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a backing-store failure.
func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindResourceUnavailable, Msg: msg, Err: err}
}

// Timeoutf builds a Timeout error for batch tasks that exceed their budget.
func Timeoutf(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from any error, returning KindUnknown for errors
// that did not originate in an engine.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
