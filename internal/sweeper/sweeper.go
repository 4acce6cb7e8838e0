// Package sweeper periodically deletes uploads, processed outputs and status
// records that have outlived their retention period.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/config"
	"github.com/aliskhannn/media-uniquer/internal/metrics"
	"github.com/aliskhannn/media-uniquer/internal/storage/file"
)

const defaultInterval = 30 * time.Second

// statusExpirer removes status records older than cutoff.
type statusExpirer interface {
	Expire(ctx context.Context, cutoff time.Time) (int, error)
}

// Population is one set of entries sharing a TTL.
type Population struct {
	Name string
	TTL  time.Duration
	// Expire removes entries last written before cutoff.
	Expire func(ctx context.Context, cutoff time.Time) (removed, failed int, err error)
}

// DirPopulation expires regular files in dir.
func DirPopulation(name, dir string, ttl time.Duration) Population {
	return Population{
		Name: name,
		TTL:  ttl,
		Expire: func(_ context.Context, cutoff time.Time) (int, int, error) {
			res, err := file.ExpireDir(dir, cutoff)
			return res.Removed, res.Failed, err
		},
	}
}

// StorePopulation expires status records.
func StorePopulation(name string, store statusExpirer, ttl time.Duration) Population {
	return Population{
		Name: name,
		TTL:  ttl,
		Expire: func(ctx context.Context, cutoff time.Time) (int, int, error) {
			n, err := store.Expire(ctx, cutoff)
			return n, 0, err
		},
	}
}

// Sweeper runs retention for a fixed set of populations.
type Sweeper struct {
	interval    time.Duration
	populations []Population
	now         func() time.Time
}

// New creates a new Sweeper.
func New(interval time.Duration, populations ...Population) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Sweeper{
		interval:    interval,
		populations: populations,
		now:         time.Now,
	}
}

// NewFromConfig builds the standard uploads/processed/statuses sweeper.
func NewFromConfig(storage config.Storage, retention config.Retention, store statusExpirer) *Sweeper {
	return New(retention.Interval,
		DirPopulation("uploads", storage.UploadsDir, retention.UploadsTTL),
		DirPopulation("processed", storage.ProcessedDir, retention.ProcessedTTL),
		StorePopulation("statuses", store, retention.StatusesTTL),
	)
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	zlog.Logger.Info().Dur("interval", s.interval).Msg("retention sweeper started")

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over every population. A failing population is logged
// and does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	for _, p := range s.populations {
		removed, failed, err := p.Expire(ctx, now.Add(-p.TTL))

		metrics.RetentionRemovedTotal.WithLabelValues(p.Name).Add(float64(removed))
		metrics.RetentionFailedTotal.WithLabelValues(p.Name).Add(float64(failed))

		if err != nil {
			zlog.Logger.Error().Err(err).Str("population", p.Name).Msg("retention sweep failed")
			continue
		}

		if removed > 0 || failed > 0 {
			zlog.Logger.Info().
				Str("population", p.Name).
				Int("removed", removed).
				Int("failed", failed).
				Msg("retention sweep")
		}
	}
}
