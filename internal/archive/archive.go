// Package archive copies downloaded statements to S3-compatible object
// storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nhle/card-statements/internal/model"
)

// Secret lookup names for the object storage secret key.
const (
	EnvSecretKey     = "ARCHIVE_SECRET_KEY"
	KeyringSecretKey = "archive-secret-key"
)

// objectStore is the subset of *minio.Client used by the archiver.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(
		ctx context.Context,
		bucket, object string,
		reader io.Reader,
		size int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// Archiver uploads statement PDFs into a bucket.
type Archiver struct {
	client objectStore
	bucket string
	prefix string
	logger *log.Logger
}

// New creates an Archiver for the configured endpoint.
func New(cfg model.ArchiveConfig, secretKey string, logger *log.Logger) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, secretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger.WithPrefix("archive"),
	}, nil
}

// ObjectName returns the key a file is stored under:
// [prefix/]BANK/filename.
func (a *Archiver) ObjectName(f model.DownloadedFile) string {
	return path.Join(a.prefix, string(f.Bank), f.Filename)
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Upload stores every file and returns how many were uploaded. A failed
// upload is logged and skipped.
func (a *Archiver) Upload(ctx context.Context, files []model.DownloadedFile) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}
	if err := a.EnsureBucket(ctx); err != nil {
		return 0, err
	}

	uploaded := 0
	for _, f := range files {
		if err := a.uploadFile(ctx, f); err != nil {
			a.logger.Warn("upload failed", "file", f.Filename, "err", err)
			continue
		}
		uploaded++
	}

	a.logger.Info("archived statements", "bucket", a.bucket, "count", uploaded)
	return uploaded, nil
}

func (a *Archiver) uploadFile(ctx context.Context, f model.DownloadedFile) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.Path, err)
	}

	_, err = a.client.PutObject(ctx, a.bucket, a.ObjectName(f), file, info.Size(), minio.PutObjectOptions{
		ContentType: "application/pdf",
		UserMetadata: map[string]string{
			"bank":   string(f.Bank),
			"sender": f.Sender,
		},
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", f.Filename, err)
	}

	return nil
}
