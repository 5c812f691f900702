package repo

import (
	"context"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// CollectionLogRepositoryPG implements domain.CollectionLogRepository. One
// row per photo; recording completion twice updates the existing row instead
// of duplicating it.
type CollectionLogRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCollectionLogRepository creates a new collection log repository.
func NewCollectionLogRepository(sql infra.SQLExecutor) *CollectionLogRepositoryPG {
	return &CollectionLogRepositoryPG{sql: sql}
}

// RecordFirstCompletion initializes the collection log entry for a photo.
// The first completion timestamp is preserved on conflict.
func (r *CollectionLogRepositoryPG) RecordFirstCompletion(ctx context.Context, photoID, customerID string) error {
	query := `
INSERT INTO collection_logs (photo_id, customer_id, completed_at, notified)
VALUES ($1, $2, NOW(), FALSE)
ON CONFLICT (photo_id) DO UPDATE
SET customer_id = EXCLUDED.customer_id;
`
	_, err := r.sql.Exec(ctx, query, photoID, customerID)
	return err
}

// MarkNotified flags the entry once the owner notification has been handed
// off to the delivery channel.
func (r *CollectionLogRepositoryPG) MarkNotified(ctx context.Context, photoID string) error {
	query := `
UPDATE collection_logs SET notified = TRUE WHERE photo_id = $1;
`
	_, err := r.sql.Exec(ctx, query, photoID)
	return err
}

var _ domain.CollectionLogRepository = (*CollectionLogRepositoryPG)(nil)
