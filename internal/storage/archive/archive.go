// Package archive mirrors completed outputs into an S3-compatible bucket so
// they outlive local retention.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/config"
	"github.com/aliskhannn/media-uniquer/internal/model"
)

const prefix = "processed"

// Archive uploads processed files to MinIO.
type Archive struct {
	client     *minio.Client
	bucketName string
	localDir   string
}

// New connects to MinIO and creates the bucket if it does not exist.
// localDir is where the job runner writes outputs.
func New(ctx context.Context, cfg config.Archive, localDir string) (*Archive, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Archive{client: client, bucketName: cfg.BucketName, localDir: localDir}, nil
}

func newClient(cfg config.Archive) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	return client, nil
}

// ObjectName returns the bucket key of an output file.
func ObjectName(filename string) string {
	return path.Join(prefix, filename)
}

// Upload copies the local file at localPath into the bucket.
func (a *Archive) Upload(ctx context.Context, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	objectName := ObjectName(filepath.Base(localPath))

	_, err = a.client.PutObject(ctx, a.bucketName, objectName, f, info.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return objectName, nil
}

// OnTerminal mirrors the output of a completed task. Failures are logged.
func (a *Archive) OnTerminal(ctx context.Context, t model.Task, s model.Status) {
	if s.State != model.StateCompleted {
		return
	}

	name := model.OutputName(t.ID, t.Kind)
	contentType := "image/png"
	if t.Kind == model.KindVideo {
		contentType = "video/mp4"
	}

	objectName, err := a.Upload(ctx, filepath.Join(a.localDir, name), contentType)
	if err != nil {
		zlog.Logger.Err(err).Str("task_id", t.ID).Msg("failed to archive output")
		return
	}

	zlog.Logger.Info().
		Str("task_id", t.ID).
		Str("bucket", a.bucketName).
		Str("object", objectName).
		Msg("output archived")
}
