package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		version  string
		expected string
	}{
		{"dev", "riskpilot version dev\n"},
		{"1.2.0", "riskpilot version 1.2.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			original := version
			version = tt.version
			t.Cleanup(func() { version = original })
			setupTestServices(t, Services{})

			out, err := executeCommand(t, "", "version")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestVersionCmd_Providers(t *testing.T) {
	setupTestServices(t, Services{Settings: newMockSettingsService()})

	out, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding: local (hashing-unigram-bigram, 384 dims)")
	assert.Contains(t, out, "llm:       template (mock-llm)")
}
