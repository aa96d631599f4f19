// Package s3 provides an objectdb.Database backed by S3-compatible object
// storage, for sandboxes whose settings blobs live in a bucket.
package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mwantia/prefs/objectdb"
)

// S3Database is an objectdb.Database storing one object per blob path.
type S3Database struct {
	mu sync.RWMutex

	client     *minio.Client
	bucketName string
	closed     bool
}

func NewS3Database(endpoint, bucketName, accessKey, secretKey string, useSsl bool) (*S3Database, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSsl,
	})
	if err != nil {
		return nil, err
	}

	return &S3Database{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Open verifies the configured bucket exists.
func (s *S3Database) Open(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return objectdb.ErrClosed
	}

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return objectdb.ErrNotExist
	}

	return nil
}

func (s *S3Database) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, objectdb.ErrClosed
	}

	_, err := s.client.StatObject(ctx, s.bucketName, objectName(path), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (s *S3Database) Load(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectdb.ErrClosed
	}

	object, err := s.client.GetObject(ctx, s.bucketName, objectName(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	blob, err := io.ReadAll(object)
	if err != nil {
		if isNotFound(err) {
			return nil, objectdb.ErrNotExist
		}
		return nil, err
	}

	return blob, nil
}

func (s *S3Database) Store(ctx context.Context, path string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectdb.ErrClosed
	}

	_, err := s.client.PutObject(ctx, s.bucketName, objectName(path),
		bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})

	return err
}

func (s *S3Database) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectdb.ErrClosed
	}

	return s.client.RemoveObject(ctx, s.bucketName, objectName(path), minio.RemoveObjectOptions{})
}

func (s *S3Database) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// objectName maps a blob path to its bucket key. S3 keys never start with a
// separator.
func objectName(path string) string {
	return strings.TrimPrefix(path, "/")
}

func isNotFound(err error) bool {
	response := minio.ToErrorResponse(err)
	return response.Code == "NoSuchKey" || response.Code == "NoSuchBucket" || response.StatusCode == 404
}
