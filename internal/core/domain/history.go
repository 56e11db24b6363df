package domain

import "time"

// HistoryRecord is one persisted identification of a user.
type HistoryRecord struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	CommonName     string               `json:"common_name"`
	ScientificName string               `json:"scientific_name"`
	Description    string               `json:"description"`
	Probability    float64              `json:"probability"`
	Source         ResultSource         `json:"source"`
	ImageKey       string               `json:"image_key,omitempty"`
	Result         IdentificationResult `json:"result"`
	CreatedAt      time.Time            `json:"created_at"`
}

type HistoryPage struct {
	Records     []HistoryRecord `json:"records"`
	Total       int             `json:"total"`
	CurrentPage int             `json:"current_page"`
	TotalPages  int             `json:"total_pages"`
}

// IdentificationRecorded is published after a successful identification of a known user.
type IdentificationRecorded struct {
	UserID     string               `json:"user_id"`
	ImageKey   string               `json:"image_key,omitempty"`
	Result     IdentificationResult `json:"result"`
	OccurredAt time.Time            `json:"occurred_at"`
}

type IdentifyRequest struct {
	UserID   string
	Image    []byte
	MimeType string
}
