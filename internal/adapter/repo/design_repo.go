package repo

import (
	"context"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// DesignRepositoryPG implements domain.DesignRepository over the read-only
// hair_designs catalog.
type DesignRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewDesignRepository creates a new design catalog repository.
func NewDesignRepository(sql infra.SQLExecutor) *DesignRepositoryPG {
	return &DesignRepositoryPG{sql: sql}
}

// ListPublished returns all published designs ordered by id ascending. The
// orchestrator relies on this ordering for its per-round pass.
func (r *DesignRepositoryPG) ListPublished(ctx context.Context) ([]domain.HairDesign, error) {
	query := `
SELECT id, title, prompt, COALESCE(sample_key, ''), published, sort_order
FROM hair_designs
WHERE published = TRUE
ORDER BY id ASC;
`
	rows, err := r.sql.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var designs []domain.HairDesign
	for rows.Next() {
		var d domain.HairDesign
		if err := rows.Scan(&d.ID, &d.Title, &d.Prompt, &d.SampleKey, &d.Published, &d.SortOrder); err != nil {
			return nil, err
		}
		designs = append(designs, d)
	}
	return designs, rows.Err()
}

// CountPublished returns the live published-design count, the canonical
// total used by completion detection.
func (r *DesignRepositoryPG) CountPublished(ctx context.Context) (int, error) {
	query := `
SELECT COUNT(*) FROM hair_designs WHERE published = TRUE;
`
	var count int
	if err := r.sql.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var _ domain.DesignRepository = (*DesignRepositoryPG)(nil)
