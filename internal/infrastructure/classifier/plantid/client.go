// Package plantid adapts the Plant.id v3 identification API to ports.PlantClassifier.
package plantid

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

const (
	DefaultURL = "https://plant.id/api/v3/identification"

	detailFields = "common_names,url,description,taxonomy,image"
)

type Options struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	Executor   *resilience.Executor
	HTTPClient *http.Client
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	endpoint := strings.TrimSpace(opts.URL)
	if endpoint == "" {
		endpoint = DefaultURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		executor:   opts.Executor,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) Classify(ctx context.Context, image []byte) (*domain.ClassifierResponse, error) {
	if !c.Configured() {
		return nil, domain.WrapError(domain.ErrNotConfigured, "plantid classify", errors.New("PLANT_ID_API_KEY is not set"))
	}
	if len(image) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "plantid classify", errors.New("image is empty"))
	}

	target, err := c.identificationURL()
	if err != nil {
		return nil, domain.WrapError(domain.ErrNotConfigured, "plantid classify", err)
	}
	payload := identificationRequest{
		Images:        []string{base64.StdEncoding.EncodeToString(image)},
		SimilarImages: true,
	}

	resp, err := resilience.Do(ctx, c.executor, "plantid.identify", func(ctx context.Context) (identificationResponse, error) {
		var out identificationResponse
		err := c.postJSON(ctx, target, payload, &out)
		return out, err
	}, classifyPlantIDError)
	if err != nil {
		return nil, wrapPlantIDError("plantid classify", err)
	}
	return resp.toDomain(), nil
}

func (c *Client) identificationURL() (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("details", detailFields)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
