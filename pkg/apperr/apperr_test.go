package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := ErrDeadlinePassed.With("menu 7 closed at 10:00")
	assert.True(t, errors.Is(err, ErrDeadlinePassed))
	assert.False(t, errors.Is(err, ErrMenuInactive))

	wrapped := fmt.Errorf("create order: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDeadlinePassed))
	assert.Equal(t, KindDeadlinePassed, KindOf(wrapped))
}

func TestValidationErrorMatchesEveryProblem(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.Err())

	v.AddErr(ErrDeadlinePassed, "")
	v.AddErr(ErrAddressRequired, "delivery address street is required")

	err := v.Err()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrDeadlinePassed))
	assert.True(t, errors.Is(err, ErrAddressRequired))
	assert.False(t, errors.Is(err, ErrMenuInactive))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "delivery address street is required")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrTotalMismatch, http.StatusBadRequest},
		{ErrSignatureInvalid, http.StatusBadRequest},
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrIllegalTransition, http.StatusConflict},
		{ErrDuplicatePayment, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), "%v", c.err)
	}
}

func TestHTTPStatusForValidationList(t *testing.T) {
	notFound := &ValidationError{}
	notFound.AddErr(ErrItemNotFound, "")
	notFound.AddErr(ErrMenuNotFound, "")
	assert.Equal(t, http.StatusNotFound, HTTPStatus(notFound))

	mixed := &ValidationError{}
	mixed.AddErr(ErrItemNotFound, "")
	mixed.AddErr(ErrDeadlinePassed, "")
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(mixed))
}
