package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog(t *testing.T) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("test", t.Name())
}

func TestFileStoreRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, testLog(t))
	ctx := context.Background()

	ref, err := store.Put(ctx, "c1/pfp", strings.NewReader("image-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "blob://c1/pfp", ref)
	assert.Equal(t, "c1/pfp", KeyFromRef(ref))

	data, err := os.ReadFile(filepath.Join(dir, "c1", "pfp"))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "c1/pfp"))
	_, err = os.Stat(filepath.Join(dir, "c1", "pfp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreDeleteMissingIsNoop(t *testing.T) {
	store := NewStore(t.TempDir(), testLog(t))

	assert.NoError(t, store.Delete(context.Background(), "c1/missing"))
}

func TestFileStoreDeletePrefix(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, testLog(t))
	ctx := context.Background()

	_, err := store.Put(ctx, "c1/pfp", strings.NewReader("a"), "image/png")
	require.NoError(t, err)
	_, err = store.Put(ctx, "c1/m1", strings.NewReader("b"), "application/octet-stream")
	require.NoError(t, err)
	_, err = store.Put(ctx, "c2/pfp", strings.NewReader("c"), "image/png")
	require.NoError(t, err)

	require.NoError(t, store.DeletePrefix(ctx, "c1/"))

	_, err = os.Stat(filepath.Join(dir, "c1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "c2", "pfp"))
	assert.NoError(t, err)
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	store := NewStore(t.TempDir(), testLog(t))
	ctx := context.Background()

	_, err := store.Put(ctx, "../outside", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)

	err = store.Delete(ctx, "c1/../../etc/passwd")
	assert.Error(t, err)
}

func TestNoopStoreDrainsBody(t *testing.T) {
	store := NewStore("", testLog(t))

	body := strings.NewReader("payload")
	ref, err := store.Put(context.Background(), "c1/m1", body, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "blob://c1/m1", ref)
	assert.Zero(t, body.Len())
}
