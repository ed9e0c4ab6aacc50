package errors

import (
	"strings"
)

// Errors is a non-empty list of errors. A nil Errors means no error occurred,
// so callers can keep comparing against nil.
type Errors []error

// Error joins the messages of the underlying errors, one per line.
func (m Errors) Error() string {
	msgs := make([]string, 0, len(m))
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// Append adds err (if non-nil) to errs, flattening nested Errors.
func Append(errs Errors, err error) Errors {
	switch err := err.(type) {
	case nil:
		return errs
	case Errors:
		for _, e := range err {
			errs = Append(errs, e)
		}
		return errs
	default:
		return append(errs, err)
	}
}

// Combine merges e and f into a single error; it returns nil only if both are nil.
func Combine(e, f error) error {
	var errs Errors
	if m, ok := e.(Errors); ok {
		// copy so the caller's backing array is never written to
		errs = append(Errors(nil), m...)
	} else {
		errs = Append(errs, e)
	}
	errs = Append(errs, f)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errs
	}
}

// Defer is a helper for deferring error-returning functions such as Close:
//
//   defer errors.Defer(&err, f.Close)
func Defer(err *error, f func() error) {
	*err = Combine(*err, f())
}
