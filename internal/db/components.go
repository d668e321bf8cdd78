package db

import (
	"context"
	"fmt"
)

// ComponentsPage fetches one page of component rows created within the
// window, ordered by creation time. Same paging contract as JobsPage.
func (s *PostgresStore) ComponentsPage(ctx context.Context, offset, limit int, w Window) ([]Row, error) {
	if offset < 0 {
		return nil, fmt.Errorf("invalid offset %d", offset)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit %d", limit)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM components
		WHERE components.state = 'active'
		  AND components.created_at > (current_timestamp - %s)
		ORDER BY components.created_at ASC
		LIMIT $1 OFFSET $2`,
		aliased("components", componentsColumns),
		w.interval(),
	)

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query components page: %w", err)
	}

	res, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan components page: %w", err)
	}
	return res, nil
}
