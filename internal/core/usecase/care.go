package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
)

type CareUseCase struct {
	generator ports.CareGuideGenerator
}

func NewCareUseCase(generator ports.CareGuideGenerator) *CareUseCase {
	return &CareUseCase{generator: generator}
}

func (uc *CareUseCase) CareGuide(ctx context.Context, req domain.CareRequest) (*domain.CareGuide, error) {
	req.CommonName = strings.TrimSpace(req.CommonName)
	req.ScientificName = strings.TrimSpace(req.ScientificName)
	req.Description = strings.TrimSpace(req.Description)
	if req.CommonName == "" && req.ScientificName == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "care guide", errors.New("common or scientific name is required"))
	}
	if req.CommonName == "" {
		req.CommonName = req.ScientificName
	}

	guide, err := uc.generator.GenerateCareGuide(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate care guide: %w", err)
	}
	normalizeTips(&guide)
	return &guide, nil
}

func normalizeTips(guide *domain.CareGuide) {
	for _, aspect := range []*domain.CareAspect{
		&guide.Light, &guide.Water, &guide.Temperature, &guide.Soil, &guide.Fertilizer, &guide.Maintenance,
	} {
		if aspect.Tips == nil {
			aspect.Tips = []string{}
		}
	}
}
