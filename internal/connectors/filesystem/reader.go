// Package filesystem reads policy documents from a local directory and
// watches that directory for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.CorpusReader = (*Reader)(nil)

// maxFileSize is the largest document read (10 MiB).
const maxFileSize = 10 << 20

// supportedExtensions are the document types read from the corpus.
var supportedExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".txt":      {},
}

// Reader loads policy documents directly under a directory.
type Reader struct{}

// NewReader creates a new corpus reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadDir loads the supported, non-hidden files directly under dir, sorted by
// name. Subdirectories are not descended into.
func (r *Reader) ReadDir(ctx context.Context, dir string) ([]domain.Document, []string, error) {
	if err := checkDir(dir); err != nil {
		return nil, nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read corpus directory %s: %w", dir, err)
	}

	var (
		docs    []domain.Document
		skipped []string
	)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if entry.IsDir() || isHidden(entry.Name()) || !IsSupported(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		doc, err := readDocument(path)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			skipped = append(skipped, path)
			continue
		}
		docs = append(docs, doc)
	}

	logger.Debug("corpus %s: %d documents, %d skipped", dir, len(docs), len(skipped))
	return docs, skipped, nil
}

// checkDir returns ErrNotFound for a missing dir and ErrInvalidInput for a file.
func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("corpus directory %s: %w", dir, domain.ErrNotFound)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return nil
}

func readDocument(path string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, err
	}
	if info.Size() > maxFileSize {
		return domain.Document{}, fmt.Errorf("file too large (%d bytes)", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	if !utf8.Valid(data) {
		return domain.Document{}, errors.New("not valid UTF-8 text")
	}

	name := filepath.Base(path)
	return domain.NewDocument(name, path, string(data), info.ModTime(), strings.ToLower(filepath.Ext(name))), nil
}

// IsSupported reports whether path has a corpus document extension.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
