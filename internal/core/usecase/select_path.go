package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
)

const (
	ModePrimary   = "primary"
	ModeHeuristic = "heuristic"

	defaultImageMimeType = "image/jpeg"
)

type SelectorOptions struct {
	// Mode is ModePrimary (classifier first) or ModeHeuristic (vision + aggregation only).
	Mode string
	// FallbackDelay is waited before serving the fallback fixture.
	FallbackDelay time.Duration
}

// PathSelector decides, per call, between the primary classifier, the heuristic
// aggregation path and the fallback fixture. It keeps no state between calls.
type PathSelector struct {
	classifier ports.PlantClassifier
	vision     ports.VisionDescriber
	aggregator *Aggregator
	opts       SelectorOptions

	now   func() time.Time
	newID func() string
}

func NewPathSelector(
	classifier ports.PlantClassifier,
	vision ports.VisionDescriber,
	aggregator *Aggregator,
	opts SelectorOptions,
) *PathSelector {
	if opts.Mode != ModeHeuristic {
		opts.Mode = ModePrimary
	}
	if opts.FallbackDelay < 0 {
		opts.FallbackDelay = 0
	}
	return &PathSelector{
		classifier: classifier,
		vision:     vision,
		aggregator: aggregator,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

func (s *PathSelector) Select(ctx context.Context, image []byte, mimeType string) (*domain.IdentificationResult, error) {
	if len(image) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "select identification path", errors.New("image is empty"))
	}
	captured := dataURL(image, mimeType)

	if s.opts.Mode == ModeHeuristic || s.classifier == nil {
		return s.heuristic(ctx, image, captured), nil
	}

	resp, err := s.classifier.Classify(ctx, image)
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrNotConfigured):
		slog.Info("identification_fallback_fixture", "reason", err.Error())
		return s.fallback(ctx)
	default:
		return nil, fmt.Errorf("classify image: %w", err)
	}

	if resp == nil || len(resp.Suggestions) == 0 {
		slog.Info("identification_primary_empty", "next", ModeHeuristic)
		return s.heuristic(ctx, image, captured), nil
	}
	return s.normalizePrimary(resp, captured), nil
}

func (s *PathSelector) heuristic(ctx context.Context, image []byte, captured string) *domain.IdentificationResult {
	var description *domain.VisionDescription
	if s.vision != nil {
		var err error
		description, err = s.vision.Describe(ctx, image)
		if err != nil {
			slog.Warn("vision_describe_failed", "error", err)
			description = nil
		}
	}

	var caption string
	if description != nil {
		caption = description.Caption
	}
	result := s.aggregator.Aggregate(ctx, description.Labels(), caption, captured)
	return &result
}

func (s *PathSelector) fallback(ctx context.Context) (*domain.IdentificationResult, error) {
	if err := sleepContext(ctx, s.opts.FallbackDelay); err != nil {
		return nil, err
	}
	return FallbackResult()
}

func (s *PathSelector) normalizePrimary(resp *domain.ClassifierResponse, captured string) *domain.IdentificationResult {
	ranked := make([]domain.ClassifierSuggestion, len(resp.Suggestions))
	copy(ranked, resp.Suggestions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	best := ranked[0]

	suggestion := domain.Suggestion{
		Rank:           1,
		Label:          best.Name,
		ScientificName: best.Name,
		Probability:    best.Probability,
		CommonNames:    []string{},
		Taxonomy:       domain.Taxonomy{Kingdom: domain.KingdomPlantae},
	}
	if details := best.Details; details != nil {
		if len(details.CommonNames) > 0 {
			suggestion.Label = details.CommonNames[0]
			suggestion.CommonNames = append(suggestion.CommonNames, details.CommonNames...)
		}
		suggestion.Description = details.Description
		suggestion.ReferenceURL = details.URL
		suggestion.ImageURL = details.ImageURL
		if details.Taxonomy != nil {
			suggestion.Taxonomy = *details.Taxonomy
			if strings.TrimSpace(suggestion.Taxonomy.Kingdom) == "" {
				suggestion.Taxonomy.Kingdom = domain.KingdomPlantae
			}
		}
	}

	return &domain.IdentificationResult{
		ID:          s.newID(),
		Source:      domain.SourcePrimary,
		CapturedAt:  s.now(),
		Images:      []string{captured},
		Suggestions: []domain.Suggestion{suggestion},
	}
}

func dataURL(image []byte, mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = defaultImageMimeType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
