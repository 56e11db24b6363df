package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
)

const (
	// MatchedConfidence is assigned to a species found by the heuristic matcher.
	MatchedConfidence = 0.8
	// DefaultSpecies is injected when no label survives filtering.
	DefaultSpecies           = "monstera deliciosa"
	DefaultSpeciesConfidence = 0.4

	maxSuggestions = 3
	querySuffix    = " houseplant species"
	referenceQuery = " houseplant care guide"
)

// Enrichment outcomes reported to the observer.
const (
	EnrichmentFound = "found"
	EnrichmentEmpty = "empty"
	EnrichmentError = "error"
)

// Aggregator turns vision labels into a ranked, enriched identification result.
type Aggregator struct {
	catalog  *domain.Catalog
	enricher ports.PlantEnricher

	now          func() time.Time
	newID        func() string
	onEnrichment func(outcome string)
}

func NewAggregator(catalog *domain.Catalog, enricher ports.PlantEnricher) *Aggregator {
	return &Aggregator{
		catalog:  catalog,
		enricher: enricher,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// WithEnrichmentObserver registers a callback invoked once per enrichment task.
func (a *Aggregator) WithEnrichmentObserver(fn func(outcome string)) *Aggregator {
	a.onEnrichment = fn
	return a
}

// Aggregate never returns an empty suggestion list.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	labels []domain.RawLabel,
	caption string,
	capturedImage string,
) domain.IdentificationResult {
	candidates := a.selectCandidates(labels, caption)
	enrichments := a.enrichAll(ctx, candidates)

	suggestions := make([]domain.Suggestion, 0, len(candidates))
	for idx, candidate := range candidates {
		suggestions = append(suggestions, buildSuggestion(idx+1, candidate, enrichments[idx]))
	}

	images := []string{}
	if capturedImage != "" {
		images = append(images, capturedImage)
	}

	return domain.IdentificationResult{
		ID:          a.newID(),
		Source:      domain.SourceHeuristic,
		CapturedAt:  a.now(),
		Images:      images,
		Suggestions: suggestions,
	}
}

func (a *Aggregator) selectCandidates(labels []domain.RawLabel, caption string) []domain.RawLabel {
	filtered := FilterTags(labels, a.catalog)

	if species, ok := MatchSpecies(a.catalog, filtered, caption); ok {
		slog.Debug("heuristic_match", "species", species)
		filtered = append([]domain.RawLabel{{Name: species, Confidence: MatchedConfidence}}, filtered...)
	}
	if len(filtered) == 0 {
		filtered = append(filtered, domain.RawLabel{Name: DefaultSpecies, Confidence: DefaultSpeciesConfidence})
	}

	sortByConfidence(filtered)
	if len(filtered) > maxSuggestions {
		filtered = filtered[:maxSuggestions]
	}
	return filtered
}

// enrichAll runs one independent task per candidate and waits for all of them.
// A failed or panicking task yields an empty enrichment for its slot only.
func (a *Aggregator) enrichAll(ctx context.Context, candidates []domain.RawLabel) []domain.Enrichment {
	out := make([]domain.Enrichment, len(candidates))
	if a.enricher == nil {
		return out
	}

	var wg sync.WaitGroup
	for idx, candidate := range candidates {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			query := name + querySuffix

			var enrichment domain.Enrichment
			err := recoverInto(func() error {
				var err error
				enrichment, err = a.enricher.Enrich(ctx, query)
				return err
			})
			if err != nil {
				slog.Warn("enrichment_failed", "query", query, "error", err)
				a.observe(EnrichmentError)
				return
			}
			if enrichment.IsEmpty() {
				a.observe(EnrichmentEmpty)
			} else {
				a.observe(EnrichmentFound)
			}
			out[idx] = enrichment
		}(idx, candidate.Name)
	}
	wg.Wait()
	return out
}

func (a *Aggregator) observe(outcome string) {
	if a.onEnrichment != nil {
		a.onEnrichment(outcome)
	}
}

func buildSuggestion(rank int, label domain.RawLabel, enrichment domain.Enrichment) domain.Suggestion {
	commonNames := enrichment.CommonNames
	if commonNames == nil {
		commonNames = []string{}
	}
	return domain.Suggestion{
		Rank:           rank,
		Label:          label.Name,
		ScientificName: enrichment.ScientificName,
		Probability:    label.Confidence,
		CommonNames:    commonNames,
		Description:    enrichment.Description,
		Taxonomy: domain.Taxonomy{
			Kingdom: domain.KingdomPlantae,
			Order:   enrichment.Order,
			Family:  enrichment.Family,
			Genus:   enrichment.Genus,
		},
		ReferenceURL: referenceURL(label.Name),
		ImageURL:     enrichment.ImageURL,
	}
}

func referenceURL(label string) string {
	return fmt.Sprintf("https://www.bing.com/search?q=%s", url.QueryEscape(label+referenceQuery))
}
