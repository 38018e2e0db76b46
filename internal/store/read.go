package store

import (
	"context"
	"fmt"

	"github.com/resultdb/resultdb/internal/model"
)

// OutcomeCount is the number of recorded results for one outcome.
type OutcomeCount struct {
	Outcome model.Outcome
	Count   int
}

// OutcomeCounts returns per-outcome result counts in stored outcome
// order, including zero counts. This is the small read surface the CLI
// summary command needs; resultdb has no general query layer.
func (s *Store) OutcomeCounts(ctx context.Context) ([]OutcomeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM test_result GROUP BY outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	byOutcome := make(map[model.Outcome]int)
	for rows.Next() {
		var outcome int64
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		byOutcome[model.Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}

	counts := make([]OutcomeCount, 0, len(model.Outcomes()))
	for _, o := range model.Outcomes() {
		counts = append(counts, OutcomeCount{Outcome: o, Count: byOutcome[o]})
	}
	return counts, nil
}

// CountRows returns the number of rows in a table. Intended for the
// CLI summary and tests; table must come from the schema registry.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s rows: %w", table, err)
	}
	return count, nil
}
