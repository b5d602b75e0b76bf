package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Store is the external media store consumed by the chat engine. Group
// images live under "{chatId}/pfp" and file messages under
// "{chatId}/{messageId}"; deleting a chat purges the "{chatId}/" prefix.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// NewStore builds a filesystem-backed store, or a noop store when no base
// directory is configured.
func NewStore(baseDir string, log *logrus.Entry) Store {
	if baseDir == "" {
		log.Warn("blob storage disabled, using noop store")
		return noopStore{log: log}
	}
	return &fileStore{baseDir: baseDir}
}

// fileStore keeps blobs on local disk, keyed by their relative path.
type fileStore struct {
	baseDir string
}

func (s *fileStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer file.Close()
	if _, err := io.Copy(file, body); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return "blob://" + key, nil
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *fileStore) DeletePrefix(ctx context.Context, prefix string) error {
	path, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete blob prefix: %w", err)
	}
	return nil
}

// resolve rejects keys that would escape the base directory.
func (s *fileStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// KeyFromRef recovers the blob key from a stored reference.
func KeyFromRef(ref string) string {
	return strings.TrimPrefix(ref, "blob://")
}

type noopStore struct {
	log *logrus.Entry
}

func (s noopStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	// Drain so multipart uploads complete even without storage.
	_, _ = io.Copy(io.Discard, body)
	s.log.WithField("key", key).Debug("noop blob put")
	return "blob://" + key, nil
}

func (s noopStore) Delete(ctx context.Context, key string) error { return nil }

func (s noopStore) DeletePrefix(ctx context.Context, prefix string) error { return nil }
