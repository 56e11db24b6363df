package domain

import (
	"errors"
	"fmt"
	"strings"
)

type CatalogEntry struct {
	Species  string   `json:"species" yaml:"species"`
	Features []string `json:"features" yaml:"features"`
}

// Catalog maps species labels to discriminating visual features.
// It is immutable once built and safe for concurrent readers.
type Catalog struct {
	entries []CatalogEntry
	generic map[string]struct{}
}

// NewCatalog validates and normalizes entries. Entry order is preserved and is the
// tie-break order used by the heuristic matcher.
func NewCatalog(entries []CatalogEntry, genericTerms []string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, WrapError(ErrInvalidInput, "build catalog", errors.New("catalog has no entries"))
	}

	seen := make(map[string]struct{}, len(entries))
	normalized := make([]CatalogEntry, 0, len(entries))
	for idx, entry := range entries {
		species := strings.ToLower(strings.TrimSpace(entry.Species))
		if species == "" {
			return nil, WrapError(ErrInvalidInput, "build catalog", fmt.Errorf("entry %d has empty species", idx))
		}
		if _, ok := seen[species]; ok {
			return nil, WrapError(ErrInvalidInput, "build catalog", fmt.Errorf("duplicate species %q", species))
		}
		seen[species] = struct{}{}

		features := normalizeTerms(entry.Features)
		if len(features) == 0 {
			return nil, WrapError(ErrInvalidInput, "build catalog", fmt.Errorf("species %q has no features", species))
		}
		normalized = append(normalized, CatalogEntry{Species: species, Features: features})
	}

	generic := make(map[string]struct{}, len(genericTerms))
	for _, term := range normalizeTerms(genericTerms) {
		generic[term] = struct{}{}
	}

	return &Catalog{entries: normalized, generic: generic}, nil
}

// Entries returns the entries in definition order. Callers must not mutate the features.
func (c *Catalog) Entries() []CatalogEntry {
	if c == nil {
		return nil
	}
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// IsGeneric reports whether the label is a non-discriminating term such as "plant".
func (c *Catalog) IsGeneric(label string) bool {
	if c == nil {
		return false
	}
	_, ok := c.generic[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
