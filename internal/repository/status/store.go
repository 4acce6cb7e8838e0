// Package status persists task status records.
//
// Every backend satisfies Store, so the job runner and the delivery layer
// never depend on where the records live.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aliskhannn/media-uniquer/internal/model"
)

var ErrStatusNotFound = errors.New("status not found")

// Store maps task ids to status records.
type Store interface {
	// Put persists or overwrites the record for id. A successful return
	// means the write is durable and fully visible to readers.
	Put(ctx context.Context, id string, s model.Status) error
	// Get returns the current record or ErrStatusNotFound.
	Get(ctx context.Context, id string) (model.Status, error)
	// Delete removes the record for id.
	Delete(ctx context.Context, id string) error
	// Expire removes records last written before cutoff and returns how many were removed.
	Expire(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

func encode(s model.Status) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return data, nil
}

func decode(data []byte) (model.Status, error) {
	var s model.Status
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Status{}, fmt.Errorf("unmarshal status: %w", err)
	}
	return s, nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*RedisStore)(nil)
)
