package util

import (
	"errors"
	"net/http"
)

// Client-visible messages. Server errors never leak their cause.
const (
	// MessageMissingPayload is returned with 422 responses.
	MessageMissingPayload = "The response data is missing"

	// MessageInternal is returned with every 5xx response.
	MessageInternal = "An unexpected error occurred"
)

// StatusCode maps an error to the HTTP status the client receives.
// A nil error maps to 200.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Code > 0 {
		return httpErr.Code
	}

	if errors.Is(err, ErrMissingPayload) {
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to send to the client
// for the given error.
func PublicMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Code > 0 && httpErr.Code < http.StatusInternalServerError {
		return httpErr.Message
	}

	if errors.Is(err, ErrMissingPayload) {
		return MessageMissingPayload
	}

	return MessageInternal
}

// IsClientError returns true if the error maps to a 4xx status.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// IsServerError returns true if the error maps to a 5xx status.
func IsServerError(err error) bool {
	return StatusCode(err) >= 500
}
