package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/aliskhannn/media-uniquer/internal/model"
)

// SQLiteStore keeps records in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and runs the schema migration.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS task_statuses (
			task_id    TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			progress   INTEGER NOT NULL,
			stage      TEXT NOT NULL DEFAULT '',
			error      TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, id string, st model.Status) error {
	query := `
		INSERT INTO task_statuses (task_id, state, progress, stage, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			state = excluded.state,
			progress = excluded.progress,
			stage = excluded.stage,
			error = excluded.error,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		id, string(st.State), st.Progress, st.Stage, st.Error, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put: failed to save status: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Status, error) {
	query := `SELECT state, progress, stage, error FROM task_statuses WHERE task_id = ?`

	var st model.Status
	var state string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&state, &st.Progress, &st.Stage, &st.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Status{}, ErrStatusNotFound
		}
		return model.Status{}, fmt.Errorf("get: failed to get status: %w", err)
	}
	st.State = model.State(state)

	return st, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_statuses WHERE task_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete: failed to delete status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusNotFound
	}

	return nil
}

func (s *SQLiteStore) Expire(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_statuses WHERE updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("expire: failed to delete statuses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire: failed to get number of rows affected: %w", err)
	}

	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
