package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/ruleforge/pkg/models"
)

// ProcessedEventRepository stores one marker file per idempotency key. Keys are hashed into
// file names; O_EXCL creation makes marking atomic even across processes sharing the directory.
type ProcessedEventRepository struct {
	dir string
}

func NewProcessedEventRepository(root string) *ProcessedEventRepository {
	return &ProcessedEventRepository{dir: filepath.Join(root, "processed_events")}
}

func (r *ProcessedEventRepository) path(key string) string {
	sum := sha256.Sum256([]byte(key))

	return filepath.Join(r.dir, hex.EncodeToString(sum[:])+".json")
}

func (r *ProcessedEventRepository) MarkProcessed(_ context.Context, key string, at time.Time) (bool, error) {
	err := os.MkdirAll(r.dir, 0750)
	if err != nil {
		return false, fmt.Errorf("failed to create processed events directory: %w", err)
	}

	file, err := os.OpenFile(r.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create marker for %s: %w", key, err)
	}

	defer func() {
		_ = file.Close()
	}()

	err = json.NewEncoder(file).Encode(models.ProcessedEvent{EventKey: key, ProcessedAt: at})
	if err != nil {
		return true, fmt.Errorf("failed to write marker for %s: %w", key, err)
	}

	return true, nil
}

func (r *ProcessedEventRepository) IsProcessed(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(r.path(key))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat marker for %s: %w", key, err)
}
