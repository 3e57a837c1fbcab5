package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTooManyRedirects is returned when the redirect chain exceeds
	// Options.MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrMissingLocation is returned for a redirect without a Location header.
	ErrMissingLocation = errors.New("redirect without Location header")
	// ErrLengthMismatch is returned when the body size differs from the
	// advertised Content-Length.
	ErrLengthMismatch = errors.New("content length mismatch")
	// ErrInvalidURL is returned for URLs no retry can fetch: unparsable,
	// unsupported scheme, or an s3:// URL without a client.
	ErrInvalidURL = errors.New("invalid download URL")
)

// TransportError describes a failed download. Status is the HTTP status
// code, or 0 when no usable response was received.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Err == nil:
		return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
	case e.Status != 0:
		return fmt.Sprintf("GET %s: status %d: %v", e.URL, e.Status, e.Err)
	default:
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the download could succeed.
// Server errors, connection failures and truncated bodies qualify; client
// errors, invalid URLs and broken redirect chains do not.
func (e *TransportError) Temporary() bool {
	if errors.Is(e.Err, ErrTooManyRedirects) || errors.Is(e.Err, ErrMissingLocation) || errors.Is(e.Err, ErrInvalidURL) {
		return false
	}
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.Status >= 500 {
		return true
	}
	return e.Status == 0
}
