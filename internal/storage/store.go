// Package storage writes pipeline outputs to object storage: S3 in
// deployment, the local filesystem for development, an in-memory store
// for tests.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/logger"
)

const contentTypeJSON = "application/json"

// ObjectStore writes self-describing documents at deterministic keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// NewFromConfig picks the S3 store when an endpoint is configured and
// the local filesystem store otherwise.
func NewFromConfig(cfg *config.Config, log *logger.Logger) (ObjectStore, error) {
	if cfg.Storage.Endpoint != "" {
		return NewS3(cfg, log)
	}
	return NewLocal(cfg.Storage.LocalDir, log), nil
}

// S3Store writes to an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// NewS3 creates an S3-backed object store.
func NewS3(cfg *config.Config, log *logger.Logger) (*S3Store, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &S3Store{
		client: client,
		bucket: cfg.Storage.Bucket,
		logger: log.WithComponent("storage"),
	}, nil
}

// Put uploads one object.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("%w: put %s failed: %v", contracts.ErrStorageUnavailable, key, err)
	}
	s.logger.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(body),
	}).Debug("Object uploaded")
	return nil
}

// LocalStore writes objects under a base directory, mirroring the key
// hierarchy as subdirectories.
type LocalStore struct {
	baseDir string
	logger  *logger.Logger
}

// NewLocal creates a filesystem-backed object store.
func NewLocal(baseDir string, log *logger.Logger) *LocalStore {
	return &LocalStore{
		baseDir: baseDir,
		logger:  log.WithComponent("storage"),
	}
}

// Put writes one object to disk.
func (s *LocalStore) Put(_ context.Context, key string, body []byte, _ string) error {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s failed: %v", contracts.ErrStorageUnavailable, key, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("%w: write %s failed: %v", contracts.ErrStorageUnavailable, key, err)
	}
	s.logger.WithField("path", path).Debug("Object written")
	return nil
}

// MemoryStore holds objects in a map. Test double.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failing bool
}

// NewMemory creates an in-memory object store.
func NewMemory() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores one object, or fails when SetFailing(true) was called.
func (s *MemoryStore) Put(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return fmt.Errorf("%w: memory store failing", contracts.ErrStorageUnavailable)
	}
	buf := make([]byte, len(body))
	copy(buf, body)
	s.objects[key] = buf
	return nil
}

// Get returns a stored object.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	return body, ok
}

// Keys returns every stored key.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// SetFailing toggles simulated storage unavailability.
func (s *MemoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}
