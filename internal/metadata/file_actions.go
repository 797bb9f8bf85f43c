package metadata

import (
	"errors"
	"os"
	"sort"
	"strings"

	"savemanager/internal/logging"
)

// Delete removes the record for name. A missing record is not an error.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.Path(name)
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	logging.Logf(m.log, logging.InfoLevel, "Deleted metadata file: %s", path)
	return nil
}

func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Names lists every snapshot name that has a record, sorted.
func (m *Manager) Names() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
