package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: http.StatusOK},
		{name: "missing payload", err: NewPayloadError("map"), expected: http.StatusUnprocessableEntity},
		{name: "wrapped missing payload", err: fmt.Errorf("envelope: %w", ErrMissingPayload), expected: http.StatusUnprocessableEntity},
		{name: "contract violation", err: NewContractError("paginate", "string"), expected: http.StatusInternalServerError},
		{name: "depth exceeded", err: NewDepthError(4), expected: http.StatusInternalServerError},
		{name: "http error", err: NewHTTPError(http.StatusNotFound, "nope"), expected: http.StatusNotFound},
		{name: "http error without code", err: &HTTPError{Message: "x"}, expected: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, StatusCode(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "missing payload", err: NewPayloadError("map"), expected: MessageMissingPayload},
		{name: "client http error", err: NewHTTPError(http.StatusNotFound, "post not found"), expected: "post not found"},
		{name: "server http error hides message", err: NewHTTPError(http.StatusBadGateway, "db at 10.0.0.1 down"), expected: MessageInternal},
		{name: "contract violation hides detail", err: NewContractError("paginate", "string"), expected: MessageInternal},
		{name: "plain error", err: errors.New("secret detail"), expected: MessageInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, PublicMessage(tt.err))
		})
	}
}

func TestIsClientAndServerError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsClientError(ErrMissingPayload))
	assert.False(t, IsServerError(ErrMissingPayload))
	assert.True(t, IsServerError(ErrContractViolation))
	assert.False(t, IsClientError(nil))
	assert.False(t, IsServerError(nil))
}
