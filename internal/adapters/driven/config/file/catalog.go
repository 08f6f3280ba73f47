package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure CatalogSource implements the interface.
var _ driven.GuardrailCatalogSource = (*CatalogSource)(nil)

// CatalogSource reads guardrail catalogs from a YAML file.
//
// Every top-level list present in the file replaces the built-in list of the
// same name; absent lists keep the built-in entries. An empty path, or a path
// that does not exist, yields the built-in catalog.
//
//	pii:
//	  - type: employee_id
//	    pattern: '\bEMP-\d{6}\b'
//	banned_topics: [insider trading, front running]
type CatalogSource struct {
	path string
}

// NewCatalogSource creates a catalog source reading path.
func NewCatalogSource(path string) *CatalogSource {
	return &CatalogSource{path: path}
}

// LoadCatalog returns the merged catalog.
// Undecodable YAML or an invalid PII pattern is ErrInvalidInput.
func (c *CatalogSource) LoadCatalog() (domain.GuardrailCatalog, error) {
	catalog := domain.DefaultGuardrailCatalog()
	if c.path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return catalog, nil
		}
		return catalog, fmt.Errorf("read guardrail catalog: %w", err)
	}

	var override domain.GuardrailCatalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return catalog, fmt.Errorf("%w: guardrail catalog %s: %v", domain.ErrInvalidInput, c.path, err)
	}

	for _, p := range override.PII {
		if p.Type == "" {
			return catalog, fmt.Errorf("%w: pii pattern %q has no type", domain.ErrInvalidInput, p.Pattern)
		}
		if _, err := regexp.Compile("(?i)" + p.Pattern); err != nil {
			return catalog, fmt.Errorf("%w: pii pattern %s: %v", domain.ErrInvalidInput, p.Type, err)
		}
	}

	if override.PII != nil {
		catalog.PII = override.PII
	}
	if override.BannedTopics != nil {
		catalog.BannedTopics = override.BannedTopics
	}
	if override.ToxicMarkers != nil {
		catalog.ToxicMarkers = override.ToxicMarkers
	}
	if override.InjectionPhrases != nil {
		catalog.InjectionPhrases = override.InjectionPhrases
	}
	if override.HallucinationMarkers != nil {
		catalog.HallucinationMarkers = override.HallucinationMarkers
	}
	return catalog, nil
}

// Path returns the catalog file path.
func (c *CatalogSource) Path() string {
	return c.path
}
