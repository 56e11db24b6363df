// Package bing adapts the Bing v7 web and image search APIs to ports.WebSearcher.
package bing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

const (
	DefaultEndpoint = "https://api.bing.microsoft.com/v7.0"

	market = "en-US"
)

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint, apiKey string, executor *resilience.Executor) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   executor,
	}
}

type webResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

type imageResponse struct {
	Value []struct {
		Name         string `json:"name"`
		ContentURL   string `json:"contentUrl"`
		ThumbnailURL string `json:"thumbnailUrl"`
		HostPageURL  string `json:"hostPageUrl"`
	} `json:"value"`
}

func (c *Client) SearchWeb(ctx context.Context, query string, count int) ([]domain.WebPage, error) {
	params := url.Values{}
	params.Set("responseFilter", "Webpages")

	var resp webResponse
	if err := c.search(ctx, "/search", "web", query, count, params, &resp); err != nil {
		return nil, err
	}
	pages := make([]domain.WebPage, 0, len(resp.WebPages.Value))
	for _, v := range resp.WebPages.Value {
		pages = append(pages, domain.WebPage{
			Name:    StripMarkup(v.Name),
			URL:     v.URL,
			Snippet: StripMarkup(v.Snippet),
		})
	}
	return pages, nil
}

func (c *Client) SearchImages(ctx context.Context, query string, count int) ([]domain.ImageHit, error) {
	var resp imageResponse
	if err := c.search(ctx, "/images/search", "images", query, count, url.Values{}, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.ImageHit, 0, len(resp.Value))
	for _, v := range resp.Value {
		hits = append(hits, domain.ImageHit{
			Name:         StripMarkup(v.Name),
			ContentURL:   v.ContentURL,
			ThumbnailURL: v.ThumbnailURL,
			HostPageURL:  v.HostPageURL,
		})
	}
	return hits, nil
}

func (c *Client) search(ctx context.Context, path, operation, query string, count int, params url.Values, out any) error {
	op := "bing " + operation
	if c.apiKey == "" {
		return domain.WrapError(domain.ErrNotConfigured, op, errors.New("BING_API_KEY is not set"))
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.WrapError(domain.ErrInvalidInput, op, errors.New("query is empty"))
	}
	if count <= 0 {
		count = 1
	}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("mkt", market)
	target := c.endpoint + path + "?" + params.Encode()

	err := c.executor.Execute(ctx, "bing."+operation, func(ctx context.Context) error {
		return c.getJSON(ctx, target, operation, out)
	}, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary(op, err, resilience.ClassifyHTTPError)
}

func (c *Client) getJSON(ctx context.Context, target, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bing %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Service:    "bing",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
