// Package pamerr defines the error kinds shared by the analysis pipeline.
package pamerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure by how the batch must react to it
type Kind int

const (
	// KindConfig is an invalid or incomplete configuration. Fatal before any file is processed.
	KindConfig Kind = iota + 1
	// KindDecode is an unreadable or malformed recording. The file is skipped.
	KindDecode
	// KindTimestamp is an unparseable filename timestamp. The file falls back to relative time.
	KindTimestamp
	// KindNumeric is a degenerate value such as the log of zero power.
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindDecode:
		return "decode"
	case KindTimestamp:
		return "timestamp"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a Kind
var (
	ErrConfig    = &Error{Kind: KindConfig}
	ErrDecode    = &Error{Kind: KindDecode}
	ErrTimestamp = &Error{Kind: KindTimestamp}
	ErrNumeric   = &Error{Kind: KindNumeric}
)

// Error is a classified pipeline error
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "window" or "decode"
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same Kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Config returns a KindConfig error for op with a formatted message
func Config(op, format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

// Decode wraps err as a KindDecode error
func Decode(op string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

// Timestamp wraps err as a KindTimestamp error
func Timestamp(op string, err error) error {
	return &Error{Kind: KindTimestamp, Op: op, Err: err}
}

// Numeric returns a KindNumeric error for op with a formatted message
func Numeric(op, format string, args ...any) error {
	return &Error{Kind: KindNumeric, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
