package bgt60

import (
	"errors"
	"fmt"
)

// Kind is a stable error identifier. It is comparable, implements error and
// can be used as an errors.Is target:
//
//	if errors.Is(err, bgt60.KindStatus) { ... }
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	KindTransport       Kind = "transport"
	KindPin             Kind = "pin"
	KindStatus          Kind = "status"
	KindVariantMismatch Kind = "variant_mismatch"
	KindResetTimeout    Kind = "reset_timeout"
	KindInvalidFIFO     Kind = "invalid_fifo_limit"
	KindNoConfiguration Kind = "no_configuration"
	KindBufferSize      Kind = "buffer_size_mismatch"
	KindInvalidConfig   Kind = "invalid_config"
)

// Error carries the kind plus whatever detail is needed to diagnose it
// without re-reading the device.
type Error struct {
	Kind Kind
	Op   string

	Reg    Register // register involved, if any
	Status GSR0     // raw status for KindStatus

	Want, Got int // sizes/limits for KindBufferSize and KindInvalidFIFO

	Msg string
	Err error // collaborator error for KindTransport/KindPin
}

func (e *Error) Error() string {
	s := "bgt60: " + e.Op + ": " + string(e.Kind)
	switch e.Kind {
	case KindStatus:
		s += fmt.Sprintf(" (reg %s, gsr0 %s)", e.Reg, e.Status)
	case KindBufferSize:
		s += fmt.Sprintf(" (want %d, got %d)", e.Want, e.Got)
	case KindInvalidFIFO:
		s += fmt.Sprintf(" (limit %d, max %d)", e.Got, e.Want)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind of err, or "" when err does not come from this
// package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

func transportErr(op string, reg Register, err error) error {
	return &Error{Kind: KindTransport, Op: op, Reg: reg, Err: err}
}

func pinErr(op, pin string, err error) error {
	return &Error{Kind: KindPin, Op: op, Msg: pin, Err: err}
}

func statusErr(op string, reg Register, st GSR0) error {
	return &Error{Kind: KindStatus, Op: op, Reg: reg, Status: st}
}

func sizeErr(op, what string, want, got int) error {
	return &Error{Kind: KindBufferSize, Op: op, Msg: what, Want: want, Got: got}
}
