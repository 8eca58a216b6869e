package runs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mixtools/mixatlas/pkg/models/store"
)

// Store persists and lists allocation run records.
type Store interface {
	Add(ctx context.Context, run store.AllocationRun) error
	List(ctx context.Context, limit int) ([]store.AllocationRun, error)
}

type runStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &runStore{db: db}, nil
}

func (s *runStore) Add(ctx context.Context, run store.AllocationRun) error {
	query := `
		INSERT INTO allocation_runs (
			id, model, weeks, budget, kpi_before, kpi_after, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Model, run.Weeks, run.Budget, run.KPIBefore, run.KPIAfter, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting allocation run %s: %w", run.ID, err)
	}
	return nil
}

func (s *runStore) List(ctx context.Context, limit int) ([]store.AllocationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, model, weeks, budget, kpi_before, kpi_after, created_at
		FROM allocation_runs
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying allocation runs: %w", err)
	}
	defer rows.Close()

	var runs []store.AllocationRun
	for rows.Next() {
		var run store.AllocationRun
		if err := rows.Scan(
			&run.ID, &run.Model, &run.Weeks, &run.Budget,
			&run.KPIBefore, &run.KPIAfter, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning allocation run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating allocation runs: %w", err)
	}
	return runs, nil
}
