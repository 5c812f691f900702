package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// ErrorLogRepositoryPG implements domain.ErrorLogRepository. Rows are
// append-only diagnostics, one per failed attempt, never deduplicated.
type ErrorLogRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewErrorLogRepository creates a new generation error log repository.
func NewErrorLogRepository(sql infra.SQLExecutor) *ErrorLogRepositoryPG {
	return &ErrorLogRepositoryPG{sql: sql}
}

// Append records one failed generation attempt.
func (r *ErrorLogRepositoryPG) Append(ctx context.Context, photoID string, designID int, errorText string) error {
	query := `
INSERT INTO generation_errors (id, photo_id, design_id, error_text)
VALUES ($1, $2, $3, $4);
`
	_, err := r.sql.Exec(ctx, query, uuid.NewString(), photoID, designID, errorText)
	return err
}

var _ domain.ErrorLogRepository = (*ErrorLogRepositoryPG)(nil)
