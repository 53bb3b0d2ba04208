package soti

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNoFrame means the bit buffer does not hold a complete frame yet.
// It is the normal "come back with more bits" result, not a failure.
var ErrNoFrame = errors.New("no frame yet")

type DecodeErrorKind int

const (
	TooShort DecodeErrorKind = iota + 1
	TooLong
	Aborted
	BadFCS
	InvalidEncoding
	UnknownCommand
	UnknownNode
	BadLength
)

func (k DecodeErrorKind) String() string {
	switch k {
	case TooShort:
		return "too short"
	case TooLong:
		return "too long"
	case Aborted:
		return "abort sequence"
	case BadFCS:
		return "bad FCS"
	case InvalidEncoding:
		return "bad encoding"
	case UnknownCommand:
		return "unknown command"
	case UnknownNode:
		return "unknown node"
	case BadLength:
		return "bad length"
	}

	return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
}

// DecodeError reports a frame or message that could not be decoded.
// Raw holds the offending bytes for diagnostics.
type DecodeError struct {
	Kind   DecodeErrorKind
	Raw    []byte
	Detail string
}

func (e *DecodeError) Error() string {
	var s = e.Kind.String()
	if e.Detail != "" {
		s += ": " + e.Detail
	}

	return s
}

// Is matches on Kind only, so errors.Is(err, ErrTooShort) works for any
// DecodeError carrying that kind.
func (e *DecodeError) Is(target error) bool {
	var t *DecodeError
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// RawHex is the hex form of Raw used in log lines.
func (e *DecodeError) RawHex() string {
	return hex.EncodeToString(e.Raw)
}

func lengthDetail(n int) string {
	return fmt.Sprintf("%d bytes", n)
}

func fcsDetail(actual uint16, expected uint16) string {
	return fmt.Sprintf("got %04x, computed %04x", actual, expected)
}

var (
	ErrTooShort        = &DecodeError{Kind: TooShort}
	ErrTooLong         = &DecodeError{Kind: TooLong}
	ErrAborted         = &DecodeError{Kind: Aborted}
	ErrBadFCS          = &DecodeError{Kind: BadFCS}
	ErrInvalidEncoding = &DecodeError{Kind: InvalidEncoding}
	ErrUnknownCommand  = &DecodeError{Kind: UnknownCommand}
	ErrUnknownNode     = &DecodeError{Kind: UnknownNode}
	ErrBadLength       = &DecodeError{Kind: BadLength}
)

// ArgumentError is a malformed user command. It is reported to whoever
// typed it and never reaches a transport.
type ArgumentError struct {
	Arg string
	Msg string
}

func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return e.Msg
	}

	return fmt.Sprintf("%s: %s", e.Msg, e.Arg)
}

func argErrorf(arg string, format string, a ...any) *ArgumentError {
	return &ArgumentError{Arg: arg, Msg: fmt.Sprintf(format, a...)}
}
