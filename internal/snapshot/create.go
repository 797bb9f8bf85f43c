package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"savemanager/internal/copier"
	"savemanager/internal/logging"
	"savemanager/internal/utils"
	"savemanager/pkg/models"
)

// Create copies the tree at src into a new snapshot and returns its name.
// With an empty name the next free "save", "save_2", ... is used.
//
// A failed copy leaves the partially written snapshot directory in place.
func (m *Manager) Create(src, name string, progress copier.ProgressFunc) (string, error) {
	m.logf(logging.InfoLevel, "CreateSave started | src=%s, targetDir=%s, name=%s", src, m.savesDir, name)

	saveName, err := m.create(src, name, progress)
	if err != nil {
		m.logf(logging.ErrorLevel, "CreateSave error: %v", err)
		return "", err
	}

	m.logf(logging.InfoLevel, "CreateSave completed: %s", saveName)
	return saveName, nil
}

func (m *Manager) create(src, name string, progress copier.ProgressFunc) (string, error) {
	if !utils.IsDirectory(src) {
		return "", fmt.Errorf("%w: source folder %s", ErrNotFound, src)
	}

	if err := utils.EnsureDirectoryExists(m.savesDir); err != nil {
		return "", ioErr("create", m.savesDir, err)
	}

	saveName := name
	if saveName == "" {
		saveName = NextName(m.savesDir, DefaultBase)
	}
	if err := m.checkName(saveName); err != nil {
		return "", err
	}

	dest := m.Path(saveName)
	if err := os.Mkdir(dest, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: save %s", ErrAlreadyExists, saveName)
		}
		return "", ioErr("create", dest, err)
	}
	m.logf(logging.InfoLevel, "Created save directory: %s", dest)

	copied, err := copier.CopyTree(src, dest, progressLogger(m, progress))
	if err != nil {
		if errors.Is(err, copier.ErrSourceNotFound) {
			return "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return "", ioErr("copy", src, err)
	}
	m.logf(logging.InfoLevel, "Copied %d files successfully", copied)

	files, err := utils.ScanFiles(dest)
	if err != nil {
		m.logf(logging.WarnLevel, "Failed to list files of %s: %v", dest, err)
		files = []string{}
	}

	source := src
	if abs, err := filepath.Abs(src); err == nil {
		source = abs
	}

	rec := models.SnapshotMetadata{
		Name:      saveName,
		CreatedAt: m.now().UTC(),
		Source:    source,
		Files:     files,
	}
	if err := m.metadata.Write(saveName, rec); err != nil {
		m.logf(logging.ErrorLevel, "WriteMetadata error: %v", err)
	}

	return saveName, nil
}
