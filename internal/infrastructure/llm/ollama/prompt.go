package ollama

import (
	"strings"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

const careGuideSchema = `{
  "light": {"level": "light level", "description": "details", "tips": ["tip"]},
  "water": {"frequency": "watering frequency", "description": "details", "tips": ["tip"]},
  "temperature": {"range": "temperature range", "description": "details", "tips": ["tip"]},
  "soil": {"type": "soil type", "description": "details", "tips": ["tip"]},
  "fertilizer": {"schedule": "feeding schedule", "description": "details", "tips": ["tip"]},
  "maintenance": {"description": "details", "tips": ["tip"]}
}`

func buildCareGuidePrompt(req domain.CareRequest) string {
	const maxDescription = 1500
	description := strings.TrimSpace(req.Description)
	if len(description) > maxDescription {
		description = description[:maxDescription]
	}

	var b strings.Builder
	b.WriteString("You are a professional horticulturist. Write a practical care guide for the plant below.\n\n")
	b.WriteString("Common name: " + req.CommonName + "\n")
	b.WriteString("Scientific name: " + req.ScientificName + "\n")
	if description != "" {
		b.WriteString("Description: " + description + "\n")
	}
	b.WriteString(`
Cover light (intensity, duration), watering (frequency, method, seasonal changes),
temperature (suitable and extreme ranges), soil (type, pH, drainage),
fertilizer (type, frequency, seasonal changes) and maintenance (pruning, pests, cleaning).

Return strict JSON object with exactly this shape. No markdown, no extra keys.
`)
	b.WriteString(careGuideSchema)
	return b.String()
}
