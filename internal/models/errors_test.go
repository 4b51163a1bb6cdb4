package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrInsufficientData, fmt.Errorf("need 60 bars, got 12"))
	assert.True(t, errors.Is(wrapped, ErrInsufficientData))
	assert.False(t, errors.Is(wrapped, ErrConfiguration))
	assert.Contains(t, wrapped.Error(), "INSUFFICIENT_DATA")
	assert.Contains(t, wrapped.Error(), "need 60 bars")

	outer := fmt.Errorf("screen AAA/BBB: %w", wrapped)
	assert.True(t, errors.Is(outer, ErrInsufficientData))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrFilterDivergence, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "[FILTER_DIVERGENCE] filter diverged", ErrFilterDivergence.Error())
}
