package snapshot

import (
	"os"

	"savemanager/internal/logging"
	"savemanager/internal/utils"
)

// swapped in tests
var removeAll = os.RemoveAll

// Delete removes the snapshot directory and then its metadata record. Either
// may already be gone. Only a failure to remove the directory is returned.
func (m *Manager) Delete(name string) error {
	m.logf(logging.InfoLevel, "DeleteSave started: %s", name)

	if err := m.checkName(name); err != nil {
		m.logf(logging.ErrorLevel, "DeleteSave error: %v", err)
		return err
	}

	dir := m.Path(name)
	if utils.Exists(dir) {
		if err := removeAll(dir); err != nil {
			err = ioErr("remove", dir, err)
			m.logf(logging.ErrorLevel, "DeleteSave error: %v", err)
			return err
		}
		m.logf(logging.InfoLevel, "Deleted save directory: %s", dir)
	}

	if err := m.metadata.Delete(name); err != nil {
		m.logf(logging.WarnLevel, "Failed to delete metadata for %s: %v", name, err)
	}

	m.logf(logging.InfoLevel, "DeleteSave completed: %s", name)
	return nil
}
