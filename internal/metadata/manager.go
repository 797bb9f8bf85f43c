// Package metadata keeps one JSON record per snapshot, outside the snapshot
// directory itself. Records are auxiliary: a missing or unreadable record means
// "no details", never a failed operation.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"savemanager/internal/logging"
	"savemanager/internal/utils"
	"savemanager/pkg/models"
)

type Manager struct {
	dir string
	log logging.Sink
	mu  sync.RWMutex
}

func NewManager(dir string, log logging.Sink) *Manager {
	if log == nil {
		log = logging.Discard
	}
	return &Manager{dir: dir, log: log}
}

// Path returns where the record for name lives.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name+".json")
}

// Write stores rec as pretty-printed JSON under name, creating the metadata
// directory if needed.
func (m *Manager) Write(name string, rec models.SnapshotMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := utils.EnsureDirectoryExists(m.dir); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	if rec.Files == nil {
		rec.Files = []string{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	metadataPath := m.Path(name)
	tempPath := metadataPath + ".tmp"

	// Write to temp file first
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tempPath, metadataPath); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	logging.Logf(m.log, logging.InfoLevel, "Metadata written: %s", metadataPath)
	return nil
}

// Read loads the record for name. The bool is false when the record is
// missing or cannot be parsed.
func (m *Manager) Read(name string) (models.SnapshotMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rec models.SnapshotMetadata

	data, err := os.ReadFile(m.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return rec, false
	}
	if err != nil {
		logging.Logf(m.log, logging.WarnLevel, "Failed to read metadata for %s: %v", name, err)
		return rec, false
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		logging.Logf(m.log, logging.WarnLevel, "Ignoring unreadable metadata for %s: %v", name, err)
		return models.SnapshotMetadata{}, false
	}

	return rec, true
}
