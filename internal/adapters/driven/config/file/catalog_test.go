package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardrails.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCatalogSource_DefaultsWithoutFile(t *testing.T) {
	for name, path := range map[string]string{
		"empty path":   "",
		"missing file": filepath.Join(t.TempDir(), "missing.yaml"),
	} {
		t.Run(name, func(t *testing.T) {
			catalog, err := NewCatalogSource(path).LoadCatalog()
			require.NoError(t, err)
			assert.Equal(t, domain.DefaultGuardrailCatalog(), catalog)
		})
	}
}

func TestCatalogSource_OverridesPresentLists(t *testing.T) {
	path := writeCatalog(t, `
pii:
  - type: employee_id
    pattern: '\bEMP-\d{6}\b'
banned_topics:
  - front running
`)

	catalog, err := NewCatalogSource(path).LoadCatalog()

	require.NoError(t, err)
	defaults := domain.DefaultGuardrailCatalog()
	assert.Equal(t, []domain.PIIPattern{{Type: "employee_id", Pattern: `\bEMP-\d{6}\b`}}, catalog.PII)
	assert.Equal(t, []string{"front running"}, catalog.BannedTopics)
	assert.Equal(t, defaults.ToxicMarkers, catalog.ToxicMarkers)
	assert.Equal(t, defaults.InjectionPhrases, catalog.InjectionPhrases)
	assert.Equal(t, defaults.HallucinationMarkers, catalog.HallucinationMarkers)
}

func TestCatalogSource_EmptyListDisablesCategory(t *testing.T) {
	path := writeCatalog(t, "toxic_markers: []\n")

	catalog, err := NewCatalogSource(path).LoadCatalog()

	require.NoError(t, err)
	assert.Empty(t, catalog.ToxicMarkers)
	assert.NotEmpty(t, catalog.BannedTopics)
}

func TestCatalogSource_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "pii: [",
		"bad regex":    "pii:\n  - type: x\n    pattern: '(unclosed'\n",
		"missing type": "pii:\n  - pattern: 'abc'\n",
		"wrong shape":  "banned_topics: {a: b}\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalogSource(writeCatalog(t, content)).LoadCatalog()
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
