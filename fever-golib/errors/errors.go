// Package errors collects the error helpers used across the pipelines. Plain
// formatting comes from fmt, wrapping from github.com/pkg/errors.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Errorf is re-exported from fmt
var Errorf = fmt.Errorf

// New is an alias to Errorf
var New = Errorf

// Is is re-exported from the standard errors package
var Is = stderrors.Is

// Cause is re-exported from github.com/pkg/errors
var Cause = errors.Cause

// WrapfOrNil annotates err with a formatted message, or returns nil if err is nil.
func WrapfOrNil(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, fmt.Sprintf(format, args...))
}

// Wrapf is WrapfOrNil if err != nil, and Errorf otherwise: it never returns nil
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return Errorf(format, args...)
	}
	return WrapfOrNil(err, format, args...)
}
