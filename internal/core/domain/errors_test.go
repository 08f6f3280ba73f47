package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrMalformedIndex", ErrMalformedIndex},
		{"ErrIndexNotInitialized", ErrIndexNotInitialized},
		{"ErrRebuildInProgress", ErrRebuildInProgress},
		{"ErrGuardrailBlock", ErrGuardrailBlock},
		{"ErrGenerationFailed", ErrGenerationFailed},
		{"ErrAuditFailed", ErrAuditFailed},
		{"ErrTimeout", ErrTimeout},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrNotFound, ErrMalformedIndex))
	assert.False(t, errors.Is(ErrTimeout, ErrGenerationFailed))
	assert.False(t, errors.Is(ErrIndexNotInitialized, ErrNotFound))
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("load index: %w", ErrMalformedIndex)

	assert.True(t, errors.Is(wrapped, ErrMalformedIndex))
	assert.Contains(t, wrapped.Error(), "malformed index")
}
