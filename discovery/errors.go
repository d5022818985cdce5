package discovery

import (
	"errors"
	"fmt"
)

// ErrContainerNotFound is returned when a structural element a page must
// contain is absent.
var ErrContainerNotFound = errors.New("container not found")

// ErrBodyTooLarge is returned when a response body exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPError reports a response with a client or server error status.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %s returned %s", e.URL, e.Status)
}

// ParseError reports a body that could not be parsed as markup.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse HTML from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a detail page whose fields could not be extracted.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract person from %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// notFound wraps ErrContainerNotFound with the selector that matched nothing.
func notFound(selector string) error {
	return fmt.Errorf("%w: %s", ErrContainerNotFound, selector)
}
