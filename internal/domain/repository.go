package domain

import (
	"context"
	"time"
)

// PhotoRepository defines persistence for photos.
type PhotoRepository interface {
	Create(ctx context.Context, photo *Photo) error
	GetByID(ctx context.Context, photoID string) (*Photo, error)
	// MarkComplete performs the atomic pending->complete transition and
	// reports whether this call was the one that flipped it. Callers use the
	// return value as the strictly-once gate for downstream triggers.
	MarkComplete(ctx context.Context, photoID string) (bool, error)
	SetFavorite(ctx context.Context, photoID string, designID int) error
	ListIncomplete(ctx context.Context, olderThan time.Time, limit int) ([]Photo, error)
}

// DesignRepository exposes the read-only design catalog.
type DesignRepository interface {
	ListPublished(ctx context.Context) ([]HairDesign, error)
	CountPublished(ctx context.Context) (int, error)
}

// ResultRepository persists per-(photo, design) outcomes. Upsert is keyed on
// the unique (photo_id, design_id) pair and never inserts a second row for
// the same pair.
type ResultRepository interface {
	Upsert(ctx context.Context, photoID string, designID int, resultKey, resultURL string, failure FailureKind) (*DesignResult, error)
	ListByPhoto(ctx context.Context, photoID string) ([]DesignResult, error)
	CountComplete(ctx context.Context, photoID string) (int, error)
	ListFailing(ctx context.Context, limit int) ([]FailingResult, error)
}

// ErrorLogRepository appends diagnostic rows for failed attempts.
type ErrorLogRepository interface {
	Append(ctx context.Context, photoID string, designID int, errorText string) error
}

// CollectionLogRepository tracks the one collection log entry per completed
// photo. RecordFirstCompletion must be idempotent.
type CollectionLogRepository interface {
	RecordFirstCompletion(ctx context.Context, photoID, customerID string) error
	MarkNotified(ctx context.Context, photoID string) error
}
