package driven

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// CorpusReader loads policy documents from a directory.
type CorpusReader interface {
	// ReadDir loads the supported documents directly under dir, sorted by name.
	// Returns ErrNotFound when dir does not exist. Files that cannot be read
	// are skipped and reported by path.
	ReadDir(ctx context.Context, dir string) (docs []domain.Document, skipped []string, err error)
}

// ProcessedStore persists the intermediate output of a rebuild.
type ProcessedStore interface {
	// Save writes the corpus, replacing any previous one.
	Save(ctx context.Context, corpus *domain.ProcessedCorpus) error

	// Load reads the corpus. Returns ErrNotFound when none is stored.
	Load(ctx context.Context) (*domain.ProcessedCorpus, error)

	// Exists reports whether a corpus is stored.
	Exists() bool
}

// GuardrailCatalogSource provides the detector catalogs.
type GuardrailCatalogSource interface {
	// LoadCatalog returns the catalog, or an error when it cannot be decoded.
	LoadCatalog() (domain.GuardrailCatalog, error)
}
