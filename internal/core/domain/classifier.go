package domain

// ClassifierResponse is the normalized answer of the primary classification service.
type ClassifierResponse struct {
	Suggestions []ClassifierSuggestion `json:"suggestions"`
	IsPlant     BinaryScore            `json:"is_plant"`
}

type ClassifierSuggestion struct {
	Name        string             `json:"name"`
	Probability float64            `json:"probability"`
	Details     *ClassifierDetails `json:"details,omitempty"`
}

type ClassifierDetails struct {
	CommonNames []string  `json:"common_names,omitempty"`
	Taxonomy    *Taxonomy `json:"taxonomy,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
}

type BinaryScore struct {
	Probability float64 `json:"probability"`
	Binary      bool    `json:"binary"`
}

// VisionDescription is the caption/tag output of the vision service.
type VisionDescription struct {
	Caption string     `json:"caption"`
	Tags    []RawLabel `json:"tags"`
	Objects []RawLabel `json:"objects"`
}

// Labels merges tags and detected objects into one label set.
func (v *VisionDescription) Labels() []RawLabel {
	if v == nil {
		return nil
	}
	out := make([]RawLabel, 0, len(v.Tags)+len(v.Objects))
	out = append(out, v.Tags...)
	out = append(out, v.Objects...)
	return out
}
