package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmeticIsDataIntegrity(t *testing.T) {
	err := Arithmetic("x0 == x1 (%g)", 1.5)

	assert.ErrorIs(t, err, ErrArithmetic)
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "x0 == x1 (1.5)")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("latitude is required"), http.StatusBadRequest},
		{"not found", NotFound("no dataset"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("expand: %w", NotFound("no region")), http.StatusNotFound},
		{"data integrity", DataIntegrity("afe length"), http.StatusInternalServerError},
		{"arithmetic", Arithmetic("x0 == x1"), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"canceled", context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}
