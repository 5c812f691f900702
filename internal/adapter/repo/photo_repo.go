package repo

import (
	"context"
	"time"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// PhotoRepositoryPG implements domain.PhotoRepository.
type PhotoRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPhotoRepository creates a new photo repository backed by PostgreSQL.
func NewPhotoRepository(sql infra.SQLExecutor) *PhotoRepositoryPG {
	return &PhotoRepositoryPG{sql: sql}
}

// Create inserts a new photo record in pending status.
func (r *PhotoRepositoryPG) Create(ctx context.Context, photo *domain.Photo) error {
	query := `
INSERT INTO photos (id, customer_id, source_key, source_url, status)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.sql.Exec(ctx, query,
		photo.ID,
		photo.CustomerID,
		photo.SourceKey,
		photo.SourceURL,
		domain.PhotoStatusPending,
	)
	return err
}

// GetByID fetches a photo by its identifier.
func (r *PhotoRepositoryPG) GetByID(ctx context.Context, photoID string) (*domain.Photo, error) {
	query := `
SELECT id, customer_id, source_key, source_url, status, favorite_design_id, created_at, updated_at
FROM photos
WHERE id = $1;
`
	row := r.sql.QueryRow(ctx, query, photoID)
	var photo domain.Photo
	if err := row.Scan(
		&photo.ID,
		&photo.CustomerID,
		&photo.SourceKey,
		&photo.SourceURL,
		&photo.Status,
		&photo.FavoriteDesignID,
		&photo.CreatedAt,
		&photo.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &photo, nil
}

// MarkComplete flips the photo from pending to complete. The conditional
// WHERE clause makes the transition atomic: under concurrent orchestrator
// runs exactly one caller observes true, and only that caller may fire
// downstream triggers.
func (r *PhotoRepositoryPG) MarkComplete(ctx context.Context, photoID string) (bool, error) {
	query := `
UPDATE photos
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = $3;
`
	tag, err := r.sql.Exec(ctx, query, photoID, domain.PhotoStatusComplete, domain.PhotoStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetFavorite records the customer's chosen design for a photo.
func (r *PhotoRepositoryPG) SetFavorite(ctx context.Context, photoID string, designID int) error {
	query := `
UPDATE photos
SET favorite_design_id = $2, updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.sql.Exec(ctx, query, photoID, designID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListIncomplete returns pending photos created before olderThan, oldest
// first. The sweep uses it to find jobs stuck in a partial state.
func (r *PhotoRepositoryPG) ListIncomplete(ctx context.Context, olderThan time.Time, limit int) ([]domain.Photo, error) {
	query := `
SELECT id, customer_id, source_key, source_url, status, favorite_design_id, created_at, updated_at
FROM photos
WHERE status = $1 AND created_at < $2
ORDER BY created_at ASC
LIMIT $3;
`
	rows, err := r.sql.Query(ctx, query, domain.PhotoStatusPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []domain.Photo
	for rows.Next() {
		var photo domain.Photo
		if err := rows.Scan(
			&photo.ID,
			&photo.CustomerID,
			&photo.SourceKey,
			&photo.SourceURL,
			&photo.Status,
			&photo.FavoriteDesignID,
			&photo.CreatedAt,
			&photo.UpdatedAt,
		); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

var _ domain.PhotoRepository = (*PhotoRepositoryPG)(nil)
