package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// PlantClassifier is the primary image classifier. It returns an error wrapping
// domain.ErrNotConfigured when its credential is absent and domain.ErrTemporary on
// transient upstream failures.
type PlantClassifier interface {
	Classify(ctx context.Context, image []byte) (*domain.ClassifierResponse, error)
}

// VisionDescriber produces a caption and generic tags for an image.
type VisionDescriber interface {
	Describe(ctx context.Context, image []byte) (*domain.VisionDescription, error)
}

// WebSearcher queries the external text and image search service.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string, count int) ([]domain.WebPage, error)
	SearchImages(ctx context.Context, query string, count int) ([]domain.ImageHit, error)
}

// PlantEnricher augments a candidate label with search-derived fields.
type PlantEnricher interface {
	Enrich(ctx context.Context, query string) (domain.Enrichment, error)
}

// EnrichmentCache stores enrichment results by query.
type EnrichmentCache interface {
	Get(ctx context.Context, key string) (domain.Enrichment, bool)
	Set(ctx context.Context, key string, value domain.Enrichment, ttl time.Duration)
}

// CareGuideGenerator produces structured care fields for a species.
type CareGuideGenerator interface {
	GenerateCareGuide(ctx context.Context, req domain.CareRequest) (domain.CareGuide, error)
}

// HistoryStore persists identification history keyed by user and creation time.
type HistoryStore interface {
	Save(ctx context.Context, record *domain.HistoryRecord) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.HistoryRecord, int, error)
	GetByID(ctx context.Context, userID, id string) (*domain.HistoryRecord, error)
}

// ImageStorage stores captured images.
type ImageStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EventQueue publishes/consumes identification events.
type EventQueue interface {
	PublishIdentificationRecorded(ctx context.Context, event domain.IdentificationRecorded) error
	SubscribeIdentificationRecorded(ctx context.Context, handler func(context.Context, domain.IdentificationRecorded) error) error
}

// IdentityResolver maps an opaque session token to a user id.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}
