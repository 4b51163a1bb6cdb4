package datasource

import (
	"context"
	"errors"
	"fmt"
)

// PriceSource loads the universe's price bars
type PriceSource interface {
	// Load fetches and parses the full price history
	Load(ctx context.Context) (*PriceSet, error)

	// Name identifies the source in logs
	Name() string
}

// SourceError represents errors from price source operations
type SourceError struct {
	Source  string // Source name
	Code    string // Error code (e.g., "not_found")
	Message string
	Err     error
}

func (e SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Source, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidData  = "invalid_data"
	ErrCodeNetworkError = "network_error"
	ErrCodeServerError  = "server_error"
)

var (
	ErrNotFound     = errors.New("data not found")
	ErrNetworkError = errors.New("network error")
	ErrServerError  = errors.New("server error")
)

// NewSourceError creates a new source error
func NewSourceError(source, code, message string, err error) SourceError {
	return SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
