package ollama

import (
	"net/http"

	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

// A missing model answers 404; retrying cannot help and it says nothing about availability.
func classifyOllamaError(err error) resilience.ErrorClassification {
	if resilience.StatusCode(err) == http.StatusNotFound {
		return resilience.ErrorClassification{}
	}
	return resilience.ClassifyHTTPError(err)
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, classifyOllamaError)
}
