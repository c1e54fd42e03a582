package errors

import "errors"

// As is errors.As, so callers only import this package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// UnwrapMultiErrors flattens every multi-error found in the chain of err. An error that wraps no
// multi-error is returned as is.
func UnwrapMultiErrors(err error) []error {
	if err == nil {
		return nil
	}

	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		multi, ok := cur.(interface{ Unwrap() []error })
		if !ok {
			continue
		}

		var flat []error
		for _, nested := range multi.Unwrap() {
			flat = append(flat, UnwrapMultiErrors(nested)...)
		}

		return flat
	}

	return []error{err}
}
