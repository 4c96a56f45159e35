package sample

import (
	"errors"
	"fmt"
)

var (
	ErrParse       = errors.New("sample: parse error")
	ErrLineTooLong = errors.New("sample: line too long")
)

// ParseError reports a line rejected under its decided kind.
// The line is dropped as a whole; no partial record is produced.
type ParseError struct {
	Line  uint64
	Token string
	Kind  Kind
	Err   error
}

func (e *ParseError) Error() string {
	if e.Kind == KindNone {
		return fmt.Sprintf("sample: line %d: %v (starts %q)", e.Line, e.Err, e.Token)
	}
	return fmt.Sprintf("sample: line %d: token %q is not a valid %s: %v", e.Line, e.Token, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
