// Package catalogfile loads the houseplant catalog from YAML.
package catalogfile

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

//go:embed houseplants.yaml
var defaultCatalog []byte

type document struct {
	GenericTerms []string              `yaml:"generic_terms"`
	Species      []domain.CatalogEntry `yaml:"species"`
}

// Load reads the catalog at path. An empty path selects the embedded catalog.
func Load(path string) (*domain.Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Parse(defaultCatalog)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	catalog, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Default returns the embedded catalog.
func Default() (*domain.Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(raw []byte) (*domain.Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode catalog", err)
	}
	return domain.NewCatalog(doc.Species, doc.GenericTerms)
}
