package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid candle request")

	// ErrNoResponse is returned when every attempt hit a retryable server status.
	ErrNoResponse = errors.New("http get failed with no response")

	// ErrEmptyResult marks a successful response that carried no rows.
	ErrEmptyResult = errors.New("empty result")
)

// TransportError is a connection, timeout or DNS failure that outlived its retries.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error after %d attempts: %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-retryable, non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("non-OK response: %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("non-OK response: %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// GeoBlocked reports whether the status is a legal or regional block.
func (e *StatusError) GeoBlocked() bool {
	return e.StatusCode == 451 || e.StatusCode == 403
}

// DataFetchError is the final failure once every provider has been tried.
type DataFetchError struct {
	Provider string
	Cause    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("%s failed after retries: %v", e.Provider, e.Cause)
}

func (e *DataFetchError) Unwrap() error {
	return e.Cause
}
