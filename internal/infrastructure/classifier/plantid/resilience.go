package plantid

import (
	"net/http"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

func classifyPlantIDError(err error) resilience.ErrorClassification {
	switch resilience.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return resilience.ErrorClassification{}
	}
	return resilience.ClassifyHTTPError(err)
}

// wrapPlantIDError maps a rejected credential to ErrNotConfigured so callers degrade to the fixture.
func wrapPlantIDError(operation string, err error) error {
	switch resilience.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.WrapError(domain.ErrNotConfigured, operation, err)
	}
	return resilience.WrapTemporary(operation, err, classifyPlantIDError)
}
