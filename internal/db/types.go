package db

import (
	"time"

	"github.com/google/uuid"
)

// Brand is a catalog brand row.
type Brand struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MiniPCSummary is a lightweight view of a catalog record for listing.
type MiniPCSummary struct {
	ID        uuid.UUID `json:"id"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	FromURL   string    `json:"from_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MiniPCFilters holds optional filters for listing catalog records.
type MiniPCFilters struct {
	Brand  string
	Limit  int
	Offset int
}
