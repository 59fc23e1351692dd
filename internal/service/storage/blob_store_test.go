package storage

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petwatch/internal/config"
)

func newTestStore(t *testing.T) *LocalBlobStore {
	t.Helper()
	cfg := &config.Config{
		BlobDirectory:  t.TempDir(),
		PublicBaseURL:  "http://example.test",
		BlobSigningKey: "secret",
	}
	return NewLocalBlobStore(cfg, nil)
}

func TestLocalBlobStore_UploadOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Upload(ctx, []byte("first"), "heatmap/20250501/SN1_heatmap.png"))
	require.NoError(t, s.Upload(ctx, []byte("second"), "heatmap/20250501/SN1_heatmap.png"))

	p, err := s.Path("heatmap/20250501/SN1_heatmap.png")
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalBlobStore_PresignedURLMissingObject(t *testing.T) {
	_, err := newTestStore(t).PresignedURL(context.Background(), "heatmap/none.png", time.Hour)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalBlobStore_PresignAndVerify(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	key := "stream/SN1/20250501/SN1_20250501_101500.mp4"
	require.NoError(t, s.Upload(ctx, []byte("clip"), key))

	raw, err := s.PresignedURL(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "http://example.test/blobs/"+key+"?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	expires, sig := u.Query().Get("expires"), u.Query().Get("signature")

	assert.NoError(t, s.Verify(key, expires, sig))
	assert.ErrorIs(t, s.Verify("stream/other.mp4", expires, sig), ErrInvalidURL)
	assert.ErrorIs(t, s.Verify(key, "abc", sig), ErrInvalidURL)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.Verify(key, expires, sig), ErrInvalidURL)
}

func TestLocalBlobStore_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", "a//b", "."} {
		err := s.Upload(context.Background(), []byte("x"), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
