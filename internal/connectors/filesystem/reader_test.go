package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestReader_ReadDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"model_risk.md":     "# Model Risk\n\nModels are validated annually.",
		"ai_ethics.txt":     "Fairness reviews are mandatory.",
		"Guide.MARKDOWN":    "Mixed case extension.",
		".draft.md":         "hidden draft",
		"budget.xlsx":       "binary-ish",
		"archive/old.md":    "nested documents are not read",
		"compliance_faq.md": "Compliance questions go to the desk.",
	})

	docs, skipped, err := NewReader().ReadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"Guide.MARKDOWN", "ai_ethics.txt", "compliance_faq.md", "model_risk.md"}, names)

	t.Run("document fields", func(t *testing.T) {
		doc := docs[3]
		assert.Equal(t, filepath.Join(dir, "model_risk.md"), doc.Path)
		assert.Equal(t, ".md", doc.Type)
		assert.Equal(t, "# Model Risk\n\nModels are validated annually.", doc.Content)
		assert.Len(t, doc.ID, 12)
		assert.False(t, doc.ModifiedAt.IsZero())
	})

	t.Run("extension is lower-cased", func(t *testing.T) {
		assert.Equal(t, ".markdown", docs[0].Type)
	})
}

func TestReader_ReadDir_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.md": "readable",
	})
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 0x00, 0x81}, 0o644))

	docs, skipped, err := NewReader().ReadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.md", docs[0].Name)
	assert.Equal(t, []string{bad}, skipped)
}

func TestReader_ReadDir_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, _, err := NewReader().ReadDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "policy.md")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		_, _, err := NewReader().ReadDir(context.Background(), file)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"a.md": "a"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := NewReader().ReadDir(ctx, dir)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty directory", func(t *testing.T) {
		docs, skipped, err := NewReader().ReadDir(context.Background(), t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, docs)
		assert.Empty(t, skipped)
	})
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"policy.md", true},
		{"POLICY.MD", true},
		{"notes.markdown", true},
		{"faq.txt", true},
		{"/abs/path/faq.txt", true},
		{"report.pdf", false},
		{"README", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSupported(tt.path))
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{".hidden", ".hidden", true},
		{"path/to/.hidden", "path/to/.hidden", true},
		{"hidden directory in path", "/path/.cache/file.md", true},
		{"file.md", "file.md", false},
		{"path/to/file.md", "path/to/file.md", false},
		{"dot in name", "file.hidden", false},
		{".", ".", false},
		{"..", "..", false},
		{"path/../file", "path/../file", false},
		{"empty", "", false},
		{"root", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}
