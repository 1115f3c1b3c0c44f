// Package file provides file-based persistence for automation rules, run logs, idempotency
// markers and approval requests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/ruleforge/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root            string
	ruleRepo        *RuleRepository
	runLogRepo      *RunLogRepository
	processedEvents *ProcessedEventRepository
	approvalRepo    *ApprovalRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:            cleanRoot,
		ruleRepo:        NewRuleRepository(cleanRoot),
		runLogRepo:      NewRunLogRepository(cleanRoot),
		processedEvents: NewProcessedEventRepository(cleanRoot),
		approvalRepo:    NewApprovalRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) RuleRepository() persistence.RuleRepository {
	return fp.ruleRepo
}

func (fp *Persistence) RunLogRepository() persistence.RunLogRepository {
	return fp.runLogRepo
}

func (fp *Persistence) ProcessedEventRepository() persistence.ProcessedEventRepository {
	return fp.processedEvents
}

func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvalRepo
}

// documents stores one JSON document per identifier under a directory.
type documents[T any] struct {
	dir string
}

// validateID validates that the identifier is safe for file operations.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: identifier cannot be empty", persistence.ErrInvalidIdentifier)
	}

	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return fmt.Errorf("%w: identifier contains invalid characters", persistence.ErrInvalidIdentifier)
	}

	return nil
}

func (d documents[T]) path(id string) string {
	return filepath.Join(d.dir, id+".json")
}

func (d documents[T]) write(id string, value *T) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(d.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", d.dir, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	err = os.WriteFile(d.path(id), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	return nil
}

// read returns os.ErrNotExist (wrapped) when the document is missing.
func (d documents[T]) read(id string) (*T, error) {
	err := validateID(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.path(id))
	if err != nil {
		return nil, err
	}

	var value T

	err = json.Unmarshal(data, &value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return &value, nil
}

func (d documents[T]) exists(id string) bool {
	_, err := os.Stat(d.path(id))

	return err == nil
}

func (d documents[T]) all() ([]*T, error) {
	files, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*T{}, nil
		}

		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	values := make([]*T, 0, len(files))

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		value, err := d.read(strings.TrimSuffix(file.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, nil
}
