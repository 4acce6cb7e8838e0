package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/media-uniquer/internal/model"
)

// PostgresStore keeps records in a PostgreSQL table.
type PostgresStore struct {
	db *dbpg.DB
}

// NewPostgresStore creates the task_statuses table if needed.
func NewPostgresStore(ctx context.Context, db *dbpg.DB) (*PostgresStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS task_statuses (
			task_id    TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			progress   INTEGER NOT NULL,
			stage      TEXT NOT NULL DEFAULT '',
			error      TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := db.Master.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("migrate: failed to create task_statuses: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Put upserts the record for id.
func (s *PostgresStore) Put(ctx context.Context, id string, st model.Status) error {
	query := `
		INSERT INTO task_statuses (task_id, state, progress, stage, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (task_id) DO UPDATE SET
			state = EXCLUDED.state,
			progress = EXCLUDED.progress,
			stage = EXCLUDED.stage,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Master.ExecContext(ctx, query, id, string(st.State), st.Progress, st.Stage, st.Error)
	if err != nil {
		return fmt.Errorf("put: failed to save status: %w", err)
	}

	return nil
}

// Get retrieves the record for id.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.Status, error) {
	query := `
		SELECT state, progress, stage, error
		FROM task_statuses
		WHERE task_id = $1
	`

	var st model.Status
	var state string
	err := s.db.Master.QueryRowContext(ctx, query, id).Scan(&state, &st.Progress, &st.Stage, &st.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Status{}, ErrStatusNotFound
		}

		return model.Status{}, fmt.Errorf("get: failed to get status: %w", err)
	}
	st.State = model.State(state)

	return st, nil
}

// Delete removes the record for id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	rows, err := s.db.Master.ExecContext(ctx, `DELETE FROM task_statuses WHERE task_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete: failed to delete status: %w", err)
	}

	n, err := rows.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrStatusNotFound
	}

	return nil
}

// Expire removes records last written before cutoff.
func (s *PostgresStore) Expire(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.Master.ExecContext(ctx, `DELETE FROM task_statuses WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire: failed to delete statuses: %w", err)
	}

	n, err := rows.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire: failed to get number of rows affected: %w", err)
	}

	return int(n), nil
}

// Close closes master and slave connections.
func (s *PostgresStore) Close() error {
	var errs []error
	if err := s.db.Master.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close master: %w", err))
	}
	for i, slave := range s.db.Slaves {
		if err := slave.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close slave %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
