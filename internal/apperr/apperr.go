// Package apperr carries the service error convention shared by every
// service package: a dotted operation code plus an optional cause.
package apperr

import (
	"errors"
	"fmt"
)

// Error pairs a dotted operation code with its underlying cause.
type Error struct {
	code string
	err  error
}

// New builds an Error with code "<operation>.<reason>".
func New(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *Error) Code() string {
	return e.code
}

// CodeOf extracts the dotted code from an error chain, or "" if none exists.
func CodeOf(err error) string {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return ""
}
