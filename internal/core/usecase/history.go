package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

type HistoryUseCase struct {
	store        ports.HistoryStore
	storage      ports.ImageStorage
	defaultLimit int
}

func NewHistoryUseCase(store ports.HistoryStore, storage ports.ImageStorage, defaultLimit int) *HistoryUseCase {
	if defaultLimit <= 0 || defaultLimit > MaxHistoryLimit {
		defaultLimit = DefaultHistoryLimit
	}
	return &HistoryUseCase{
		store:        store,
		storage:      storage,
		defaultLimit: defaultLimit,
	}
}

func (uc *HistoryUseCase) ListHistory(ctx context.Context, userID string, page, limit int) (*domain.HistoryPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list history", errors.New("user is required"))
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	records, total, err := uc.store.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list history records: %w", err)
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}

	return &domain.HistoryPage{
		Records:     records,
		Total:       total,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

func (uc *HistoryUseCase) GetHistory(ctx context.Context, userID, id string) (*domain.HistoryRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "get history", errors.New("user is required"))
	}
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get history", errors.New("id is required"))
	}
	record, err := uc.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get history record: %w", err)
	}
	return record, nil
}

// OpenHistoryImage returns the stored capture of a history record.
func (uc *HistoryUseCase) OpenHistoryImage(ctx context.Context, userID, id string) (io.ReadCloser, error) {
	record, err := uc.GetHistory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if record.ImageKey == "" || uc.storage == nil {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "open history image", fmt.Errorf("no image for id=%s", id))
	}
	rc, err := uc.storage.Open(ctx, record.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("open history image: %w", err)
	}
	return rc, nil
}

// HistoryRecorderUseCase persists identification events consumed by the worker.
type HistoryRecorderUseCase struct {
	store ports.HistoryStore
}

func NewHistoryRecorderUseCase(store ports.HistoryStore) *HistoryRecorderUseCase {
	return &HistoryRecorderUseCase{store: store}
}

func (uc *HistoryRecorderUseCase) Record(ctx context.Context, event domain.IdentificationRecorded) error {
	if strings.TrimSpace(event.UserID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record history", errors.New("user is required"))
	}
	best, ok := event.Result.Best()
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "record history", errors.New("result has no suggestions"))
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = event.Result.CapturedAt
	}

	record := &domain.HistoryRecord{
		ID:             event.Result.ID,
		UserID:         event.UserID,
		CommonName:     best.Label,
		ScientificName: best.ScientificName,
		Description:    best.Description,
		Probability:    best.Probability,
		Source:         event.Result.Source,
		ImageKey:       event.ImageKey,
		Result:         event.Result,
		CreatedAt:      createdAt.UTC(),
	}
	if err := uc.store.Save(ctx, record); err != nil {
		return fmt.Errorf("save history record: %w", err)
	}
	return nil
}
