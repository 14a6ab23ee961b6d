package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/testutil"
)

type fakeStore struct {
	exists  bool
	made    []string
	objects map[string][]byte
	failOn  string
}

func (f *fakeStore) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) PutObject(
	_ context.Context,
	_ string, object string,
	reader io.Reader,
	_ int64,
	_ minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	if object == f.failOn {
		return minio.UploadInfo{}, errors.New("access denied")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[object] = data
	return minio.UploadInfo{Key: object, Size: int64(len(data))}, nil
}

func TestArchiver_Upload(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) model.DownloadedFile {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return model.DownloadedFile{Filename: name, Path: p, Bank: model.BankHDFC}
	}

	store := &fakeStore{objects: map[string][]byte{}, failOn: "2024/HDFC/bad.pdf"}
	a := &Archiver{client: store, bucket: "statements", prefix: "2024", logger: testutil.DiscardLogger()}

	files := []model.DownloadedFile{
		write("good.pdf", "pdf-1"),
		write("bad.pdf", "pdf-2"),
		{Filename: "gone.pdf", Path: filepath.Join(dir, "gone.pdf"), Bank: model.BankIDFC},
	}

	n, err := a.Upload(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"statements"}, store.made)
	assert.Equal(t, []byte("pdf-1"), store.objects["2024/HDFC/good.pdf"])
}

func TestArchiver_UploadNothing(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	a := &Archiver{client: store, bucket: "statements", logger: testutil.DiscardLogger()}

	n, err := a.Upload(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.made)
}

func TestObjectName(t *testing.T) {
	a := &Archiver{}
	assert.Equal(t, "IDFC/IDFC_x.pdf",
		a.ObjectName(model.DownloadedFile{Bank: model.BankIDFC, Filename: "IDFC_x.pdf"}))
}

func TestNew(t *testing.T) {
	a, err := New(model.ArchiveConfig{
		Endpoint:  "localhost:9000",
		Bucket:    "statements",
		AccessKey: "minio",
	}, "minio-secret", testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, "statements", a.bucket)
}
