package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docufind/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()

	root := t.TempDir()
	store, err := NewLocalStore(config.StorageConfig{
		TempDir:  filepath.Join(root, "tmp"),
		CasesDir: filepath.Join(root, "cases"),
	})
	require.NoError(t, err)
	return store
}

func writeTempFile(t *testing.T, store *LocalStore, key, content string) {
	t.Helper()
	path := filepath.Join(store.tempDir, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	writeTempFile(t, store, "upload-1.jpg", "photo bytes")

	exists, err := store.FileExists(ctx, "upload-1.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.FileExists(ctx, "never-uploaded.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileExistsRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	// Cleaning anchors the key under the temp dir, so a traversal attempt
	// resolves to a path inside the bucket and simply does not exist.
	exists, err := store.FileExists(context.Background(), "../../etc/passwd")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMoveToCaseBucket(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	writeTempFile(t, store, "upload-2.pdf", "police report")

	newKey, err := store.MoveToCaseBucket(ctx, "upload-2.pdf", "case-abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("case-abc", "upload-2.pdf"), newKey)

	moved, err := os.ReadFile(filepath.Join(store.casesDir, newKey))
	require.NoError(t, err)
	assert.Equal(t, "police report", string(moved))

	exists, err := store.FileExists(ctx, "upload-2.pdf")
	require.NoError(t, err)
	assert.False(t, exists, "source must leave the temp bucket")
}

func TestSweepTemp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	writeTempFile(t, store, "stale.jpg", "old")
	writeTempFile(t, store, "fresh.jpg", "new")

	stalePath := filepath.Join(store.tempDir, "stale.jpg")
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stalePath, old, old))

	removed, err := store.SweepTemp(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	exists, err := store.FileExists(ctx, "stale.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.FileExists(ctx, "fresh.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}
