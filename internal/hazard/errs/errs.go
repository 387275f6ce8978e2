// Package errs holds the error taxonomy shared by the interpolation engine,
// the store and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks a missing or malformed caller parameter.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown dataset or a point outside model coverage.
	ErrNotFound = errors.New("not found")
	// ErrDataIntegrity marks a corrupt or inconsistent dataset.
	ErrDataIntegrity = errors.New("data integrity error")
	// ErrArithmetic marks degenerate interpolation inputs. It is a
	// data integrity failure.
	ErrArithmetic = fmt.Errorf("%w: degenerate interpolation input", ErrDataIntegrity)
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func DataIntegrity(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}

func Arithmetic(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrArithmetic, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error to the response code the HTTP layer should use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
