package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docufind/backend/internal/config"
)

// BlobStore is the file storage surface the claim workflow needs: checking
// that claimed attachment keys exist in the temporary bucket and moving them
// into per-case permanent storage once the claim is accepted.
type BlobStore interface {
	FileExists(ctx context.Context, key string) (bool, error)
	MoveToCaseBucket(ctx context.Context, key, caseDir string) (string, error)
}

// LocalStore implements BlobStore on the local filesystem. The temp and cases
// directories stand in for the temporary and per-case object-store buckets.
type LocalStore struct {
	tempDir  string
	casesDir string
}

// NewLocalStore creates a filesystem-backed blob store.
func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	for _, dir := range []string{cfg.TempDir, cfg.CasesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &LocalStore{tempDir: cfg.TempDir, casesDir: cfg.CasesDir}, nil
}

// FileExists reports whether the key exists in the temporary bucket.
func (s *LocalStore) FileExists(ctx context.Context, key string) (bool, error) {
	path, err := s.tempPath(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", key, err)
}

// MoveToCaseBucket moves a temporary object into the case directory and
// returns its new key.
func (s *LocalStore) MoveToCaseBucket(ctx context.Context, key, caseDir string) (string, error) {
	src, err := s.tempPath(key)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(s.casesDir, filepath.Clean("/"+caseDir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create case dir: %w", err)
	}

	dest := filepath.Join(destDir, filepath.Base(key))
	if err := os.Rename(src, dest); err != nil {
		// Rename fails across filesystems; fall back to copy+remove.
		if copyErr := copyFile(src, dest); copyErr != nil {
			return "", fmt.Errorf("move %s: %w", key, copyErr)
		}
		_ = os.Remove(src)
	}

	return filepath.Join(caseDir, filepath.Base(key)), nil
}

// SweepTemp deletes temporary objects older than the cutoff and returns how
// many were removed. Uploads that never became a claim attachment are the
// only things living in the temp bucket, so age is a safe criterion.
func (s *LocalStore) SweepTemp(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	err := filepath.WalkDir(s.tempDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("sweep temp storage: %w", err)
	}
	return removed, nil
}

func (s *LocalStore) tempPath(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.tempDir, clean), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
