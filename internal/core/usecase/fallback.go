package usecase

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// fallbackFixture is the demo result served while the primary classifier is unconfigured.
//
//go:embed fallback_result.json
var fallbackFixture []byte

// FallbackFixture returns a copy of the raw fixture document.
func FallbackFixture() []byte {
	return bytes.Clone(fallbackFixture)
}

// FallbackResult decodes a fresh copy of the fixture so callers never share state.
func FallbackResult() (*domain.IdentificationResult, error) {
	var result domain.IdentificationResult
	if err := json.Unmarshal(fallbackFixture, &result); err != nil {
		return nil, fmt.Errorf("decode fallback fixture: %w", err)
	}
	return &result, nil
}
