package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

var testImage = []byte{0xff, 0xd8, 0xff, 0xe0}

func newTestSelector(t *testing.T, classifier *classifierFake, vision *visionFake, opts SelectorOptions) *PathSelector {
	t.Helper()
	agg := newTestAggregator(t, &enricherFake{})
	selector := NewPathSelector(classifier, vision, agg, opts)
	selector.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }
	selector.newID = func() string { return "primary-1" }
	return selector
}

func notConfigured() error {
	return domain.WrapError(domain.ErrNotConfigured, "plantid classify", errors.New("api key is not set"))
}

func TestSelectReturnsFallbackFixtureWhenUnconfigured(t *testing.T) {
	delay := 30 * time.Millisecond
	classifier := &classifierFake{errs: []error{notConfigured()}}
	selector := newTestSelector(t, classifier, &visionFake{}, SelectorOptions{FallbackDelay: delay})

	start := time.Now()
	result, err := selector.Select(context.Background(), testImage, "image/jpeg")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("expected at least %s delay, got %s", delay, elapsed)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var got, want map[string]any
	if err := json.Unmarshal(encoded, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if err := json.Unmarshal(FallbackFixture(), &want); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallback result differs from fixture:\n got=%v\nwant=%v", got, want)
	}
	if result.Source != domain.SourceFallback || result.ID != "mock-id-123" {
		t.Fatalf("unexpected fallback header: %+v", result)
	}
}

func TestSelectFallbackHonoursCancellation(t *testing.T) {
	classifier := &classifierFake{errs: []error{notConfigured()}}
	selector := newTestSelector(t, classifier, &visionFake{}, SelectorOptions{FallbackDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := selector.Select(ctx, testImage, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSelectSurfacesTransientFailure(t *testing.T) {
	classifier := &classifierFake{errs: []error{
		domain.WrapError(domain.ErrTemporary, "plantid classify", errors.New("503")),
	}}
	vision := &visionFake{}
	selector := newTestSelector(t, classifier, vision, SelectorOptions{})

	result, err := selector.Select(context.Background(), testImage, "")
	if err == nil || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got result=%+v err=%v", result, err)
	}
	if vision.calls != 0 {
		t.Fatalf("transient failure must not degrade to the heuristic path")
	}
}

func TestSelectNormalizesPrimaryResult(t *testing.T) {
	classifier := &classifierFake{responses: []*domain.ClassifierResponse{{
		Suggestions: []domain.ClassifierSuggestion{
			{Name: "Epipremnum aureum", Probability: 0.31},
			{
				Name:        "Monstera deliciosa",
				Probability: 0.93,
				Details: &domain.ClassifierDetails{
					CommonNames: []string{"Swiss cheese plant", "Split-leaf philodendron"},
					Taxonomy:    &domain.Taxonomy{Family: "Araceae", Genus: "Monstera"},
					URL:         "https://en.wikipedia.org/wiki/Monstera_deliciosa",
					Description: "A species of flowering plant native to tropical forests.",
					ImageURL:    "https://plant.id/media/monstera.jpg",
				},
			},
		},
		IsPlant: domain.BinaryScore{Probability: 0.99, Binary: true},
	}}}
	selector := newTestSelector(t, classifier, &visionFake{}, SelectorOptions{})

	result, err := selector.Select(context.Background(), testImage, "image/png")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.Source != domain.SourcePrimary || result.ID != "primary-1" || len(result.Suggestions) != 1 {
		t.Fatalf("unexpected primary result: %+v", result)
	}
	got := result.Suggestions[0]
	if got.Label != "Swiss cheese plant" || got.ScientificName != "Monstera deliciosa" || got.Probability != 0.93 {
		t.Fatalf("unexpected best suggestion: %+v", got)
	}
	if got.Taxonomy.Kingdom != domain.KingdomPlantae || got.Taxonomy.Family != "Araceae" {
		t.Fatalf("unexpected taxonomy: %+v", got.Taxonomy)
	}
	if result.Images[0] != "data:image/png;base64,/9j/4A==" {
		t.Fatalf("unexpected captured image: %s", result.Images[0])
	}
}

func TestSelectEmptyPrimaryUsesHeuristicPath(t *testing.T) {
	classifier := &classifierFake{responses: []*domain.ClassifierResponse{{}}}
	vision := &visionFake{description: &domain.VisionDescription{
		Caption: "a plant with large leaves and holes",
		Tags:    []domain.RawLabel{{Name: "houseplant", Confidence: 0.99}, {Name: "tropical", Confidence: 0.8}},
	}}
	selector := newTestSelector(t, classifier, vision, SelectorOptions{})

	result, err := selector.Select(context.Background(), testImage, "")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.Source != domain.SourceHeuristic || vision.calls != 1 {
		t.Fatalf("expected heuristic path, got %+v", result)
	}
	if result.Suggestions[0].Label != "monstera" {
		t.Fatalf("expected matched monstera first, got %+v", result.Suggestions)
	}
}

func TestSelectHeuristicModeSurvivesVisionFailure(t *testing.T) {
	classifier := &classifierFake{}
	vision := &visionFake{err: errors.New("vision timeout")}
	selector := newTestSelector(t, classifier, vision, SelectorOptions{Mode: ModeHeuristic})

	result, err := selector.Select(context.Background(), testImage, "")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if classifier.calls != 0 {
		t.Fatalf("heuristic mode must not call the classifier")
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0].Label != DefaultSpecies {
		t.Fatalf("expected default candidate, got %+v", result.Suggestions)
	}
}

func TestSelectIsNotSticky(t *testing.T) {
	classifier := &classifierFake{
		errs: []error{notConfigured(), nil},
		responses: []*domain.ClassifierResponse{nil, {
			Suggestions: []domain.ClassifierSuggestion{{Name: "Aloe vera", Probability: 0.8}},
		}},
	}
	selector := newTestSelector(t, classifier, &visionFake{}, SelectorOptions{})

	first, err := selector.Select(context.Background(), testImage, "")
	if err != nil || first.Source != domain.SourceFallback {
		t.Fatalf("expected fallback first, got %+v err=%v", first, err)
	}
	second, err := selector.Select(context.Background(), testImage, "")
	if err != nil || second.Source != domain.SourcePrimary {
		t.Fatalf("expected primary second, got %+v err=%v", second, err)
	}
	if second.Suggestions[0].Label != "Aloe vera" || second.Suggestions[0].Taxonomy.Kingdom != domain.KingdomPlantae {
		t.Fatalf("unexpected primary suggestion: %+v", second.Suggestions[0])
	}
}

func TestSelectRejectsEmptyImage(t *testing.T) {
	selector := newTestSelector(t, &classifierFake{}, &visionFake{}, SelectorOptions{})
	if _, err := selector.Select(context.Background(), nil, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
