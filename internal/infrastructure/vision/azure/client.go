// Package azure adapts the Azure Computer Vision v3.2 analyze API to ports.VisionDescriber.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

const analyzePath = "/vision/v3.2/analyze?visualFeatures=Description,Tags,Objects"

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint, apiKey string, executor *resilience.Executor) *Client {
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 20 * time.Second},
		executor:   executor,
	}
}

type analyzeResponse struct {
	Description struct {
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
	Objects []struct {
		Object     string  `json:"object"`
		Confidence float64 `json:"confidence"`
	} `json:"objects"`
}

func (c *Client) Describe(ctx context.Context, image []byte) (*domain.VisionDescription, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return nil, domain.WrapError(domain.ErrNotConfigured, "vision describe", errors.New("VISION_ENDPOINT or VISION_API_KEY is not set"))
	}
	if len(image) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "vision describe", errors.New("image is empty"))
	}

	resp, err := resilience.Do(ctx, c.executor, "vision.analyze", func(ctx context.Context) (analyzeResponse, error) {
		return c.analyze(ctx, image)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("vision describe", err, resilience.ClassifyHTTPError)
	}
	return resp.toDomain(), nil
}

func (c *Client) analyze(ctx context.Context, image []byte) (analyzeResponse, error) {
	var out analyzeResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+analyzePath, bytes.NewReader(image))
	if err != nil {
		return out, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("vision analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return out, &resilience.HTTPStatusError{
			Service:    "vision",
			Operation:  "analyze",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode analyze response: %w", err)
	}
	return out, nil
}

func (r analyzeResponse) toDomain() *domain.VisionDescription {
	out := &domain.VisionDescription{
		Tags:    make([]domain.RawLabel, 0, len(r.Tags)),
		Objects: make([]domain.RawLabel, 0, len(r.Objects)),
	}

	captions := r.Description.Captions
	sort.SliceStable(captions, func(i, j int) bool { return captions[i].Confidence > captions[j].Confidence })
	if len(captions) > 0 {
		out.Caption = strings.TrimSpace(captions[0].Text)
	}
	for _, tag := range r.Tags {
		out.Tags = append(out.Tags, domain.RawLabel{Name: tag.Name, Confidence: tag.Confidence})
	}
	for _, obj := range r.Objects {
		out.Objects = append(out.Objects, domain.RawLabel{Name: obj.Object, Confidence: obj.Confidence})
	}
	return out
}
