package domain

type CareRequest struct {
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	Description    string `json:"description,omitempty"`
}

// CareGuide holds the structured care fields produced by the care-guide generator.
type CareGuide struct {
	Light       CareAspect `json:"light"`
	Water       CareAspect `json:"water"`
	Temperature CareAspect `json:"temperature"`
	Soil        CareAspect `json:"soil"`
	Fertilizer  CareAspect `json:"fertilizer"`
	Maintenance CareAspect `json:"maintenance"`
}

// CareAspect covers one care topic. Level, Frequency, Range, Type and Schedule are
// filled only for the topic they belong to.
type CareAspect struct {
	Level       string   `json:"level,omitempty"`
	Frequency   string   `json:"frequency,omitempty"`
	Range       string   `json:"range,omitempty"`
	Type        string   `json:"type,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	Description string   `json:"description"`
	Tips        []string `json:"tips"`
}
