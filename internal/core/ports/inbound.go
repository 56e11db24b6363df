package ports

import (
	"context"
	"io"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// PlantIdentifier is the inbound contract for photo identification.
type PlantIdentifier interface {
	Identify(ctx context.Context, req domain.IdentifyRequest) (*domain.IdentificationResult, error)
}

// CareAdvisor is the inbound contract for care-guide lookups.
type CareAdvisor interface {
	CareGuide(ctx context.Context, req domain.CareRequest) (*domain.CareGuide, error)
}

// HistoryReader is the inbound read model for a user's identification history.
type HistoryReader interface {
	ListHistory(ctx context.Context, userID string, page, limit int) (*domain.HistoryPage, error)
	GetHistory(ctx context.Context, userID, id string) (*domain.HistoryRecord, error)
	OpenHistoryImage(ctx context.Context, userID, id string) (io.ReadCloser, error)
}

// HistoryRecorder is the inbound contract for asynchronous history persistence.
type HistoryRecorder interface {
	Record(ctx context.Context, event domain.IdentificationRecorded) error
}
