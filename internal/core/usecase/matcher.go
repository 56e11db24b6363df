package usecase

import (
	"strings"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// MinMatchScore is the number of features that must co-occur before a catalog
// species is trusted. A single keyword hit is treated as noise.
const MinMatchScore = 2

// ScoreCatalog counts, per catalog entry, how many of its features occur as
// substrings of the caption and label names. Scores follow catalog order.
func ScoreCatalog(catalog *domain.Catalog, labels []domain.RawLabel, caption string) []domain.ScoredCandidate {
	text := matchText(labels, caption)
	entries := catalog.Entries()

	scores := make([]domain.ScoredCandidate, 0, len(entries))
	for _, entry := range entries {
		score := 0
		for _, feature := range entry.Features {
			if strings.Contains(text, feature) {
				score++
			}
		}
		scores = append(scores, domain.ScoredCandidate{Species: entry.Species, Score: score})
	}
	return scores
}

// MatchSpecies returns the best scoring catalog species. Ties keep the entry
// defined first. No species is returned when the best score is below MinMatchScore.
func MatchSpecies(catalog *domain.Catalog, labels []domain.RawLabel, caption string) (string, bool) {
	best := domain.ScoredCandidate{}
	for _, candidate := range ScoreCatalog(catalog, labels, caption) {
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	if best.Score < MinMatchScore {
		return "", false
	}
	return best.Species, true
}

func matchText(labels []domain.RawLabel, caption string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(caption))
	for _, label := range labels {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(label.Name))
	}
	return b.String()
}
