package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/google/uuid"
)

// Asset is a downloaded puzzle image owned by exactly one session. The file
// is deleted at most once no matter how many exit paths call Remove.
type Asset struct {
	path string
	once sync.Once
}

func (asset *Asset) Path() string {
	return asset.path
}

func (asset *Asset) Bytes() ([]byte, error) {
	return os.ReadFile(asset.path)
}

func (asset *Asset) Remove() error {
	var err error
	asset.once.Do(func() {
		err = os.Remove(asset.path)
	})
	return err
}

// Store downloads level images into a local cache directory under random
// names, one file per live session.
type Store struct {
	dir    string
	client heimdall.Doer
}

func NewStore(dir string, client heimdall.Doer) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir, client: client}, nil
}

func (store *Store) Fetch(ctx context.Context, url string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := store.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}

	path := filepath.Join(store.dir, uuid.NewString()+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &Asset{path: path}, nil
}

// Sweep deletes cached files older than maxAge. Live sessions refresh their
// asset every level, so anything old enough to trip this was leaked by a
// crash path.
func (store *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(store.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(store.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
