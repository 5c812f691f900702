package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// ResultRepositoryPG implements domain.ResultRepository. The unique
// (photo_id, design_id) key plus ON CONFLICT update is the only concurrency
// mechanism the generation pipeline relies on: concurrent runs can race on
// the same pair but can never produce a second row, and a complete result is
// never downgraded.
type ResultRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewResultRepository creates a new design result repository.
func NewResultRepository(sql infra.SQLExecutor) *ResultRepositoryPG {
	return &ResultRepositoryPG{sql: sql}
}

// Upsert records the outcome of one generation attempt. A non-empty
// resultKey means the attempt produced an artifact (status complete);
// otherwise the row is marked fail with the given failure kind. Re-running
// the same pair updates the existing row in place.
func (r *ResultRepositoryPG) Upsert(ctx context.Context, photoID string, designID int, resultKey, resultURL string, failure domain.FailureKind) (*domain.DesignResult, error) {
	status := domain.ResultStatusFail
	var failureKind *string
	if resultKey != "" {
		status = domain.ResultStatusComplete
	} else if failure != "" {
		s := string(failure)
		failureKind = &s
	}

	query := `
INSERT INTO design_results (id, photo_id, design_id, status, result_key, result_url, failure_kind)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
ON CONFLICT (photo_id, design_id) DO UPDATE
SET status       = CASE WHEN design_results.status = 'complete' THEN design_results.status ELSE EXCLUDED.status END,
    result_key   = CASE WHEN design_results.status = 'complete' THEN design_results.result_key ELSE EXCLUDED.result_key END,
    result_url   = CASE WHEN design_results.status = 'complete' THEN design_results.result_url ELSE EXCLUDED.result_url END,
    failure_kind = CASE WHEN design_results.status = 'complete' THEN design_results.failure_kind ELSE EXCLUDED.failure_kind END,
    updated_at   = NOW()
RETURNING id, photo_id, design_id, status, COALESCE(result_key, ''), COALESCE(result_url, ''), COALESCE(failure_kind, ''), created_at, updated_at;
`
	row := r.sql.QueryRow(ctx, query,
		uuid.NewString(),
		photoID,
		designID,
		status,
		resultKey,
		resultURL,
		failureKind,
	)
	var result domain.DesignResult
	if err := row.Scan(
		&result.ID,
		&result.PhotoID,
		&result.DesignID,
		&result.Status,
		&result.ResultKey,
		&result.ResultURL,
		&result.FailureKind,
		&result.CreatedAt,
		&result.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByPhoto returns all result rows for a photo ordered by design id.
func (r *ResultRepositoryPG) ListByPhoto(ctx context.Context, photoID string) ([]domain.DesignResult, error) {
	query := `
SELECT id, photo_id, design_id, status, COALESCE(result_key, ''), COALESCE(result_url, ''), COALESCE(failure_kind, ''), created_at, updated_at
FROM design_results
WHERE photo_id = $1
ORDER BY design_id ASC;
`
	rows, err := r.sql.Query(ctx, query, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.DesignResult
	for rows.Next() {
		var result domain.DesignResult
		if err := rows.Scan(
			&result.ID,
			&result.PhotoID,
			&result.DesignID,
			&result.Status,
			&result.ResultKey,
			&result.ResultURL,
			&result.FailureKind,
			&result.CreatedAt,
			&result.UpdatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// CountComplete returns the number of complete results for a photo, read
// fresh on every call because concurrent runs mutate the set.
func (r *ResultRepositoryPG) CountComplete(ctx context.Context, photoID string) (int, error) {
	query := `
SELECT COUNT(*) FROM design_results WHERE photo_id = $1 AND status = $2;
`
	var count int
	if err := r.sql.QueryRow(ctx, query, photoID, domain.ResultStatusComplete).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListFailing returns results stuck in fail status, newest first, joined
// with their photo for operator context.
func (r *ResultRepositoryPG) ListFailing(ctx context.Context, limit int) ([]domain.FailingResult, error) {
	query := `
SELECT dr.photo_id, p.customer_id, dr.design_id, COALESCE(dr.failure_kind, ''), dr.updated_at
FROM design_results dr
JOIN photos p ON p.id = dr.photo_id
WHERE dr.status = $1
ORDER BY dr.updated_at DESC
LIMIT $2;
`
	rows, err := r.sql.Query(ctx, query, domain.ResultStatusFail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failing []domain.FailingResult
	for rows.Next() {
		var f domain.FailingResult
		if err := rows.Scan(&f.PhotoID, &f.CustomerID, &f.DesignID, &f.FailureKind, &f.UpdatedAt); err != nil {
			return nil, err
		}
		failing = append(failing, f)
	}
	return failing, rows.Err()
}

var _ domain.ResultRepository = (*ResultRepositoryPG)(nil)
