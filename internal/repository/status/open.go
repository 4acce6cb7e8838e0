package status

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/media-uniquer/internal/config"
)

// Backend names accepted in status_store.backend.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Open builds the Store selected by cfg.StatusStore.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StatusStore.Backend {
	case BackendFile, "":
		return NewFileStore(cfg.Storage.StatusesDir)

	case BackendMemory:
		return NewMemoryStore(), nil

	case BackendSQLite:
		return NewSQLiteStore(cfg.StatusStore.SQLitePath)

	case BackendPostgres:
		db, err := dbpg.New(cfg.Database.DSN(), nil, &dbpg.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		store, err := NewPostgresStore(ctx, db)
		if err != nil {
			db.Master.Close()
			return nil, err
		}
		return store, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisStore(client, cfg.Retention.StatusesTTL), nil

	default:
		return nil, fmt.Errorf("unknown status store backend %q", cfg.StatusStore.Backend)
	}
}
