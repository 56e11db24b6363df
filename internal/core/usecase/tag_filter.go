package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// MinTagConfidence is the lowest confidence a raw label may carry to be kept.
const MinTagConfidence = 0.5

// FilterTags drops low-confidence and generic labels and orders the rest by
// descending confidence. The input slice is not modified.
func FilterTags(labels []domain.RawLabel, catalog *domain.Catalog) []domain.RawLabel {
	out := make([]domain.RawLabel, 0, len(labels))
	for _, label := range labels {
		if strings.TrimSpace(label.Name) == "" {
			continue
		}
		// NaN fails every comparison and must not survive into the ordering.
		if !(label.Confidence >= MinTagConfidence) {
			continue
		}
		if catalog.IsGeneric(label.Name) {
			continue
		}
		out = append(out, label)
	}

	sortByConfidence(out)
	return out
}

func sortByConfidence(labels []domain.RawLabel) {
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Confidence > labels[j].Confidence
	})
}
