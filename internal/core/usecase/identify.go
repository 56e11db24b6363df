package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
)

// IdentifyUseCase runs path selection and hands successful results of known users
// to history persistence. Recording is best-effort and never fails the request.
type IdentifyUseCase struct {
	selector *PathSelector
	storage  ports.ImageStorage
	queue    ports.EventQueue
	now      func() time.Time
}

func NewIdentifyUseCase(
	selector *PathSelector,
	storage ports.ImageStorage,
	queue ports.EventQueue,
) *IdentifyUseCase {
	return &IdentifyUseCase{
		selector: selector,
		storage:  storage,
		queue:    queue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IdentifyUseCase) Identify(ctx context.Context, req domain.IdentifyRequest) (*domain.IdentificationResult, error) {
	result, err := uc.selector.Select(ctx, req.Image, req.MimeType)
	if err != nil {
		return nil, err
	}

	if req.UserID != "" && result.Source != domain.SourceFallback {
		uc.record(ctx, req, *result)
	}
	return result, nil
}

func (uc *IdentifyUseCase) record(ctx context.Context, req domain.IdentifyRequest, result domain.IdentificationResult) {
	imageKey := uc.storeImage(ctx, result.ID, req)
	if uc.queue == nil {
		return
	}

	// Stored captures are referenced by key instead of travelling inline.
	if imageKey != "" {
		result.Images = nil
	}
	event := domain.IdentificationRecorded{
		UserID:     req.UserID,
		ImageKey:   imageKey,
		Result:     result,
		OccurredAt: uc.now(),
	}
	if err := uc.queue.PublishIdentificationRecorded(ctx, event); err != nil {
		slog.Warn("history_publish_failed", "result_id", result.ID, "user_id", req.UserID, "error", err)
	}
}

func (uc *IdentifyUseCase) storeImage(ctx context.Context, resultID string, req domain.IdentifyRequest) string {
	if uc.storage == nil || len(req.Image) == 0 {
		return ""
	}
	key := resultID + imageExtension(req.MimeType)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(req.Image)); err != nil {
		slog.Warn("capture_store_failed", "result_id", resultID, "error", err)
		return ""
	}
	return key
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
