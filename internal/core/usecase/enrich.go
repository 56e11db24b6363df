package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
)

const (
	webResultCount   = 5
	imageResultCount = 1

	defaultEnrichmentCacheTTL = 24 * time.Hour
)

// SearchEnricher implements ports.PlantEnricher on top of a web/image searcher.
// It never returns an error: search failures leave the affected fields empty.
type SearchEnricher struct {
	searcher ports.WebSearcher
	cache    ports.EnrichmentCache
	cacheTTL time.Duration
}

func NewSearchEnricher(searcher ports.WebSearcher, cache ports.EnrichmentCache, cacheTTL time.Duration) *SearchEnricher {
	if cacheTTL <= 0 {
		cacheTTL = defaultEnrichmentCacheTTL
	}
	return &SearchEnricher{
		searcher: searcher,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (e *SearchEnricher) Enrich(ctx context.Context, query string) (domain.Enrichment, error) {
	query = strings.TrimSpace(query)
	if query == "" || e.searcher == nil {
		return domain.Enrichment{}, nil
	}

	key := enrichmentCacheKey(query)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	var (
		wg       sync.WaitGroup
		pages    []domain.WebPage
		images   []domain.ImageHit
		webErr   error
		imageErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		webErr = recoverInto(func() error {
			var err error
			pages, err = e.searcher.SearchWeb(ctx, query, webResultCount)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		imageErr = recoverInto(func() error {
			var err error
			images, err = e.searcher.SearchImages(ctx, query, imageResultCount)
			return err
		})
	}()
	wg.Wait()

	logSearchFailure("web", query, webErr)
	logSearchFailure("image", query, imageErr)

	result := ExtractEnrichment(pages)
	for _, hit := range images {
		if hit.ContentURL != "" {
			result.ImageURL = hit.ContentURL
			break
		}
	}
	if result.IsEmpty() {
		slog.Debug("enrichment_no_data", "query", query)
	}

	if e.cache != nil && webErr == nil && imageErr == nil {
		e.cache.Set(ctx, key, result, e.cacheTTL)
	}
	return result, nil
}

func enrichmentCacheKey(query string) string {
	return "enrichment:" + strings.ToLower(query)
}

func logSearchFailure(kind, query string, err error) {
	if err == nil {
		return
	}
	if domain.IsKind(err, domain.ErrNotConfigured) {
		slog.Debug("enrichment_search_skipped", "kind", kind, "query", query, "error", err)
		return
	}
	slog.Warn("enrichment_search_failed", "kind", kind, "query", query, "error", err)
}

// recoverInto runs fn and converts a panic into an error.
func recoverInto(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
