package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication is returned when the provider rejects the API key.
	ErrAuthentication = errors.New("llm: authentication failed")

	// ErrRateLimited is returned when the provider throttles the request.
	ErrRateLimited = errors.New("llm: rate limited")
)

// classifyStatus wraps err with a sentinel matching the provider's HTTP status.
func classifyStatus(status int, err error) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return err
	}
}
