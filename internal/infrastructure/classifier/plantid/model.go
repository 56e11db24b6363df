package plantid

import (
	"encoding/json"
	"strings"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

type identificationRequest struct {
	Images        []string `json:"images"`
	SimilarImages bool     `json:"similar_images"`
}

type identificationResponse struct {
	Result struct {
		IsPlant        domain.BinaryScore `json:"is_plant"`
		Classification struct {
			Suggestions []suggestion `json:"suggestions"`
		} `json:"classification"`
	} `json:"result"`
}

type suggestion struct {
	Name        string   `json:"name"`
	Probability float64  `json:"probability"`
	Details     *details `json:"details"`
}

type details struct {
	CommonNames []string     `json:"common_names"`
	URL         string       `json:"url"`
	Description valueOrText  `json:"description"`
	Image       valueOrText  `json:"image"`
	Taxonomy    *taxonomyDoc `json:"taxonomy"`
}

type taxonomyDoc struct {
	Kingdom string `json:"kingdom"`
	Phylum  string `json:"phylum"`
	Class   string `json:"class"`
	Order   string `json:"order"`
	Family  string `json:"family"`
	Genus   string `json:"genus"`
}

// valueOrText accepts both "text" and {"value": "text", ...}; the API uses either shape.
type valueOrText string

func (v *valueOrText) UnmarshalJSON(raw []byte) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = valueOrText(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	*v = valueOrText(obj.Value)
	return nil
}

func (r identificationResponse) toDomain() *domain.ClassifierResponse {
	out := &domain.ClassifierResponse{
		IsPlant:     r.Result.IsPlant,
		Suggestions: make([]domain.ClassifierSuggestion, 0, len(r.Result.Classification.Suggestions)),
	}
	for _, s := range r.Result.Classification.Suggestions {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		item := domain.ClassifierSuggestion{Name: name, Probability: s.Probability}
		if s.Details != nil {
			item.Details = &domain.ClassifierDetails{
				CommonNames: s.Details.CommonNames,
				URL:         s.Details.URL,
				Description: strings.TrimSpace(string(s.Details.Description)),
				ImageURL:    strings.TrimSpace(string(s.Details.Image)),
			}
			if tax := s.Details.Taxonomy; tax != nil {
				item.Details.Taxonomy = &domain.Taxonomy{
					Kingdom: tax.Kingdom,
					Phylum:  tax.Phylum,
					Class:   tax.Class,
					Order:   tax.Order,
					Family:  tax.Family,
					Genus:   tax.Genus,
				}
			}
		}
		out.Suggestions = append(out.Suggestions, item)
	}
	return out
}
