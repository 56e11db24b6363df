package domain

import "time"

// KingdomPlantae is the kingdom reported for every plant suggestion.
const KingdomPlantae = "Plantae"

type ResultSource string

const (
	SourcePrimary   ResultSource = "primary"
	SourceHeuristic ResultSource = "heuristic"
	SourceFallback  ResultSource = "fallback"
)

// RawLabel is a label/confidence pair produced by a classifier or vision service.
type RawLabel struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type ScoredCandidate struct {
	Species string `json:"species"`
	Score   int    `json:"score"`
}

type Taxonomy struct {
	Kingdom string `json:"kingdom"`
	Phylum  string `json:"phylum"`
	Class   string `json:"class"`
	Order   string `json:"order"`
	Family  string `json:"family"`
	Genus   string `json:"genus"`
}

type Suggestion struct {
	Rank           int      `json:"rank"`
	Label          string   `json:"label"`
	ScientificName string   `json:"scientific_name"`
	Probability    float64  `json:"probability"`
	CommonNames    []string `json:"common_names"`
	Description    string   `json:"description"`
	Taxonomy       Taxonomy `json:"taxonomy"`
	ReferenceURL   string   `json:"reference_url"`
	ImageURL       string   `json:"image_url"`
}

// IdentificationResult is the top-level identification response.
// Suggestions are ordered by descending probability.
type IdentificationResult struct {
	ID          string       `json:"id"`
	Source      ResultSource `json:"source"`
	CapturedAt  time.Time    `json:"captured_at"`
	Images      []string     `json:"images"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Best returns the highest-ranked suggestion, or false when there is none.
func (r *IdentificationResult) Best() (Suggestion, bool) {
	if r == nil || len(r.Suggestions) == 0 {
		return Suggestion{}, false
	}
	return r.Suggestions[0], true
}

// Enrichment holds fields extracted from external search. Empty fields were not found.
type Enrichment struct {
	ScientificName string   `json:"scientific_name,omitempty"`
	Description    string   `json:"description,omitempty"`
	Family         string   `json:"family,omitempty"`
	Genus          string   `json:"genus,omitempty"`
	Order          string   `json:"order,omitempty"`
	CommonNames    []string `json:"common_names,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
}

func (e Enrichment) IsEmpty() bool {
	return e.ScientificName == "" && e.Description == "" && e.Family == "" && e.Genus == "" &&
		e.Order == "" && len(e.CommonNames) == 0 && e.ImageURL == ""
}

type WebPage struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type ImageHit struct {
	Name         string `json:"name"`
	ContentURL   string `json:"content_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	HostPageURL  string `json:"host_page_url"`
}
