package task

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/model"
	"github.com/aliskhannn/media-uniquer/internal/storage/file"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fakeRunner struct {
	mu      sync.Mutex
	started []model.Task
	err     error
}

func (r *fakeRunner) Start(_ context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.started = append(r.started, t)
	return nil
}

func (r *fakeRunner) Status(context.Context, string) (model.Status, error) {
	return model.Status{State: model.StateProcessing}, nil
}

func (r *fakeRunner) ResultPath(context.Context, string) (string, error) {
	return "", nil
}

var testStrategy = retry.Strategy{Attempts: 2, Delay: time.Millisecond, Backoff: 1}

func newTestService(t *testing.T, r runner) (*Service, string) {
	t.Helper()

	uploads := t.TempDir()
	return NewService(file.NewStorage(uploads), r, nil, uploads, testStrategy), uploads
}

func TestSubmit_DownloadsAndStarts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake video bytes"))
	}))
	defer srv.Close()

	r := &fakeRunner{}
	s, uploads := newTestService(t, r)

	task, err := s.Submit(context.Background(), srv.URL+"/media/My%20Clip.MP4")
	require.NoError(t, err)

	assert.True(t, model.ValidTaskID(task.ID))
	assert.Equal(t, "My_Clip.MP4", task.Filename)
	assert.Equal(t, model.KindVideo, task.Kind)
	assert.Equal(t, filepath.Join(uploads, task.ID+"_My_Clip.MP4"), task.InputPath)

	data, err := os.ReadFile(task.InputPath)
	require.NoError(t, err)
	assert.Equal(t, "fake video bytes", string(data))

	require.Len(t, r.started, 1)
	assert.Equal(t, task, r.started[0])
}

func TestSubmit_SameNameGetsDistinctPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer srv.Close()

	s, _ := newTestService(t, &fakeRunner{})

	a, err := s.Submit(context.Background(), srv.URL+"/photo.png")
	require.NoError(t, err)
	b, err := s.Submit(context.Background(), srv.URL+"/photo.png")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.InputPath, b.InputPath)
}

func TestSubmit_InvalidURL(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})

	for _, raw := range []string{"", "ftp://host/file.mp4", "http:///file.mp4", "http://host/", "not a url"} {
		_, err := s.Submit(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestSubmit_DownloadFailure(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := &fakeRunner{}
	s, uploads := newTestService(t, r)

	_, err := s.Submit(context.Background(), srv.URL+"/missing.mp4")
	require.ErrorIs(t, err, ErrDownload)
	assert.Empty(t, r.started)

	mu.Lock()
	assert.GreaterOrEqual(t, calls, 1)
	mu.Unlock()

	entries, err := os.ReadDir(uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmit_RunnerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer srv.Close()

	s, _ := newTestService(t, &fakeRunner{err: errors.New("store down")})

	_, err := s.Submit(context.Background(), srv.URL+"/photo.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"video.mp4":            "video.mp4",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\clip.mov`: "clip.mov",
		"my file (1).png":      "my_file_1_.png",
		"...":                  "",
		"":                     "",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}

	long := strings.Repeat("a", 300) + ".mkv"
	got := SanitizeFilename(long)
	assert.Len(t, got, maxFilenameLen)
	assert.True(t, strings.HasSuffix(got, ".mkv"))
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o644))
	assert.Equal(t, model.KindImage, classify(png, "a.bin"))

	assert.Equal(t, model.KindVideo, classify(filepath.Join(dir, "missing"), "clip.mkv"))
	assert.Equal(t, model.KindImage, classify(filepath.Join(dir, "missing"), "photo.jpg"))
}
