package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/model"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrDownload   = errors.New("failed to download file")
)

const maxFilenameLen = 128

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// fileStorage saves uploaded media.
type fileStorage interface {
	Save(dir, filename string, src io.Reader) (string, error)
}

// runner starts background jobs and answers status queries.
type runner interface {
	Start(ctx context.Context, task model.Task) error
	Status(ctx context.Context, id string) (model.Status, error)
	ResultPath(ctx context.Context, id string) (string, error)
}

// Service accepts media by URL and hands it to the job runner.
type Service struct {
	storage    fileStorage
	runner     runner
	client     *http.Client
	uploadsDir string
	strategy   retry.Strategy
}

// NewService creates a new Service. A nil client falls back to one with a
// generous timeout suitable for large videos.
func NewService(fs fileStorage, r runner, client *http.Client, uploadsDir string, strategy retry.Strategy) *Service {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	return &Service{
		storage:    fs,
		runner:     r,
		client:     client,
		uploadsDir: uploadsDir,
		strategy:   strategy,
	}
}

// Submit downloads the media at rawURL and starts processing it.
// It returns the accepted task; outcomes are observable through Status.
func (s *Service) Submit(ctx context.Context, rawURL string) (model.Task, error) {
	filename, err := filenameFromURL(rawURL)
	if err != nil {
		return model.Task{}, err
	}

	id := model.NewTaskID()

	inputPath, err := s.download(ctx, rawURL, id+"_"+filename)
	if err != nil {
		return model.Task{}, err
	}

	t := model.Task{
		ID:        id,
		Filename:  filename,
		InputPath: inputPath,
		Kind:      classify(inputPath, filename),
	}

	if err := s.runner.Start(ctx, t); err != nil {
		return model.Task{}, fmt.Errorf("submit: failed to start task: %w", err)
	}

	zlog.Logger.Info().
		Str("task_id", t.ID).
		Str("filename", t.Filename).
		Str("kind", string(t.Kind)).
		Msg("task accepted")

	return t, nil
}

// Status returns the status record of the task.
func (s *Service) Status(ctx context.Context, id string) (model.Status, error) {
	return s.runner.Status(ctx, id)
}

// Result returns the path of a completed task's output file.
func (s *Service) Result(ctx context.Context, id string) (string, error) {
	return s.runner.ResultPath(ctx, id)
}

func (s *Service) download(ctx context.Context, rawURL, filename string) (string, error) {
	var dst string

	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}

		dst, err = s.storage.Save(s.uploadsDir, filename, resp.Body)
		return err
	}, s.strategy)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("url", rawURL).Msg("download failed")
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}

	return dst, nil
}

// filenameFromURL validates rawURL and derives a safe file name from its
// last path segment.
func filenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	name := SanitizeFilename(path.Base(u.Path))
	if name == "" {
		return "", fmt.Errorf("%w: no file name in path", ErrInvalidURL)
	}

	return name, nil
}

// SanitizeFilename strips directory parts and characters that are unsafe in
// file names. It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	if len(name) > maxFilenameLen {
		ext := path.Ext(name)
		if len(ext) >= maxFilenameLen {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}

	return name
}

// classify picks the pipeline by extension and falls back to content
// sniffing for names without a recognised video extension.
func classify(filePath, filename string) model.Kind {
	if kind := model.KindFromFilename(filename); kind == model.KindVideo {
		return kind
	}

	mt, err := mimetype.DetectFile(filePath)
	if err != nil {
		return model.KindImage
	}

	if strings.HasPrefix(mt.String(), "video/") {
		return model.KindVideo
	}

	return model.KindImage
}
