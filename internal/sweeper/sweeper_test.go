package sweeper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/config"
	"github.com/aliskhannn/media-uniquer/internal/metrics"
	"github.com/aliskhannn/media-uniquer/internal/model"
	"github.com/aliskhannn/media-uniquer/internal/repository/status"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSweep_RespectsPerPopulationTTL(t *testing.T) {
	base := t.TempDir()
	storage := config.Storage{
		UploadsDir:   filepath.Join(base, "uploads"),
		ProcessedDir: filepath.Join(base, "processed"),
		StatusesDir:  filepath.Join(base, "statuses"),
	}
	require.NoError(t, os.MkdirAll(storage.UploadsDir, 0o755))
	require.NoError(t, os.MkdirAll(storage.ProcessedDir, 0o755))

	// Uploads live for an hour, outputs for five minutes.
	touch(t, filepath.Join(storage.UploadsDir, "a_old.mp4"), 2*time.Hour)
	touch(t, filepath.Join(storage.UploadsDir, "b_recent.mp4"), 10*time.Minute)
	touch(t, filepath.Join(storage.ProcessedDir, "a.mp4"), 10*time.Minute)
	touch(t, filepath.Join(storage.ProcessedDir, "b_unique.png"), time.Minute)

	store, err := status.NewFileStore(storage.StatusesDir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "old1", model.Status{State: model.StateCompleted, Progress: 100}))
	require.NoError(t, store.Put(ctx, "new1", model.Status{State: model.StateProcessing}))
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(storage.StatusesDir, "old1.json"), old, old))

	s := NewFromConfig(storage, config.Retention{
		Interval:     time.Second,
		UploadsTTL:   time.Hour,
		ProcessedTTL: 5 * time.Minute,
		StatusesTTL:  5 * time.Minute,
	}, store)
	s.Sweep(ctx)

	assert.False(t, exists(filepath.Join(storage.UploadsDir, "a_old.mp4")))
	assert.True(t, exists(filepath.Join(storage.UploadsDir, "b_recent.mp4")))
	assert.False(t, exists(filepath.Join(storage.ProcessedDir, "a.mp4")))
	assert.True(t, exists(filepath.Join(storage.ProcessedDir, "b_unique.png")))

	_, err = store.Get(ctx, "old1")
	assert.ErrorIs(t, err, status.ErrStatusNotFound)
	_, err = store.Get(ctx, "new1")
	assert.NoError(t, err)
}

func TestSweep_MissingDirectories(t *testing.T) {
	base := t.TempDir()

	s := New(time.Second,
		DirPopulation("uploads", filepath.Join(base, "nope"), time.Hour),
		DirPopulation("processed", filepath.Join(base, "also-nope"), time.Minute),
	)

	assert.NotPanics(t, func() { s.Sweep(context.Background()) })
}

func TestSweep_FailingPopulationDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old"), time.Hour)

	broken := Population{
		Name: "broken",
		TTL:  time.Minute,
		Expire: func(context.Context, time.Time) (int, int, error) {
			return 0, 0, errors.New("disk on fire")
		},
	}

	before := testutil.ToFloat64(metrics.RetentionRemovedTotal.WithLabelValues("metered"))

	s := New(time.Second, broken, DirPopulation("metered", dir, time.Minute))
	s.Sweep(context.Background())

	assert.False(t, exists(filepath.Join(dir, "old")))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RetentionRemovedTotal.WithLabelValues("metered")))
}

func TestRun_SweepsImmediatelyAndStops(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old"), time.Hour)

	s := New(time.Hour, DirPopulation("processed", dir, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go s.Run(ctx, &wg)

	assert.Eventually(t, func() bool {
		return !exists(filepath.Join(dir, "old"))
	}, time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(0)
	assert.Equal(t, defaultInterval, s.interval)
}
