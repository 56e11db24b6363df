package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// CareGuideGenerator asks the generation model for a structured care guide.
type CareGuideGenerator struct {
	client *Client
}

func NewCareGuideGenerator(client *Client) *CareGuideGenerator {
	return &CareGuideGenerator{client: client}
}

func (g *CareGuideGenerator) GenerateCareGuide(ctx context.Context, req domain.CareRequest) (domain.CareGuide, error) {
	if g.client.baseURL == "" {
		return domain.CareGuide{}, domain.WrapError(domain.ErrNotConfigured, "ollama care guide", errors.New("OLLAMA_URL is not set"))
	}

	respText, err := g.client.generateJSON(ctx, buildCareGuidePrompt(req))
	if err != nil {
		return domain.CareGuide{}, err
	}

	var guide domain.CareGuide
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &guide); err != nil {
		return domain.CareGuide{}, fmt.Errorf("parse care guide json: %w", err)
	}
	if isEmptyGuide(guide) {
		return domain.CareGuide{}, errors.New("care guide response has no known fields")
	}
	return guide, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0.7,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.executor.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func isEmptyGuide(guide domain.CareGuide) bool {
	for _, aspect := range []domain.CareAspect{
		guide.Light, guide.Water, guide.Temperature, guide.Soil, guide.Fertilizer, guide.Maintenance,
	} {
		if aspect.Description != "" || len(aspect.Tips) > 0 {
			return false
		}
	}
	return true
}
