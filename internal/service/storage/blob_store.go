package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/logger"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrInvalidURL     = errors.New("invalid or expired signature")
)

// BlobStore is the object storage used for rendered artifacts and clips.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, key string) error
	// PresignedURL returns ErrObjectNotFound when key does not exist.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// LocalBlobStore keeps objects as files under a root directory and hands
// out HMAC-signed URLs served by the blob handler.
type LocalBlobStore struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
	logger  *logger.Logger
	mu      sync.Mutex
}

// NewLocalBlobStore creates a LocalBlobStore rooted at cfg.BlobDirectory.
func NewLocalBlobStore(cfg *config.Config, logger *logger.Logger) *LocalBlobStore {
	return &LocalBlobStore{
		root:    cfg.BlobDirectory,
		baseURL: cfg.PublicBaseURL,
		secret:  []byte(cfg.BlobSigningKey),
		now:     time.Now,
		logger:  logger,
	}
}

// Upload writes data at key, replacing any previous object atomically.
func (s *LocalBlobStore) Upload(ctx context.Context, data []byte, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullpath, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullpath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullpath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, fullpath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	if s.logger != nil {
		s.logger.Info("Stored object %s (%d bytes)", key, len(data))
	}
	return nil
}

// PresignedURL signs a time-limited retrieval URL for an existing object.
func (s *LocalBlobStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.Stat(key); err != nil {
		return "", err
	}

	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.sign(key, expires))

	return fmt.Sprintf("%s/blobs/%s?%s", s.baseURL, escapeKey(key), q.Encode()), nil
}

// Verify checks a signature produced by PresignedURL.
func (s *LocalBlobStore) Verify(key, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidURL
	}
	if s.now().Unix() > exp {
		return ErrInvalidURL
	}

	want := s.sign(key, exp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrInvalidURL
	}
	return nil
}

// Stat returns file info for key or ErrObjectNotFound.
func (s *LocalBlobStore) Stat(key string) (os.FileInfo, error) {
	fullpath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullpath)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return info, nil
}

// Path resolves key to its file on disk.
func (s *LocalBlobStore) Path(key string) (string, error) {
	return s.path(key)
}

func (s *LocalBlobStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalBlobStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
