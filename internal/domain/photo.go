package domain

import "time"

// PhotoStatus enumerates the overall lifecycle of an uploaded photo.
type PhotoStatus string

const (
	PhotoStatusPending  PhotoStatus = "pending"
	PhotoStatusComplete PhotoStatus = "complete"
)

// Photo is one uploaded source image submitted for multi-design derivation.
// The orchestrator only ever flips Status from pending to complete; favorite
// selection belongs to the customer, not to the generation pipeline.
type Photo struct {
	ID               string
	CustomerID       string
	SourceKey        string
	SourceURL        string
	Status           PhotoStatus
	FavoriteDesignID *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
