package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"savemanager/internal/copier"
	"savemanager/internal/logging"
	"savemanager/internal/utils"
)

const BackupPrefix = "backup_before_restore_"

// Restore copies the snapshot name over target. Files in target that the
// snapshot does not contain are left alone.
//
// With makeBackup set, the current contents of target are first copied into
// a sibling directory backup_before_restore_<unix seconds>, whose path is
// returned. Without it the returned path is empty.
func (m *Manager) Restore(name, target string, makeBackup bool, progress copier.ProgressFunc) (string, error) {
	m.logf(logging.InfoLevel, "RestoreSave started: %s to %s", name, target)

	backupPath, err := m.restore(name, target, makeBackup, progress)
	if err != nil {
		m.logf(logging.ErrorLevel, "RestoreSave error: %v", err)
		return backupPath, err
	}

	m.logf(logging.InfoLevel, "RestoreSave completed: %s", name)
	return backupPath, nil
}

func (m *Manager) restore(name, target string, makeBackup bool, progress copier.ProgressFunc) (string, error) {
	if err := m.checkName(name); err != nil {
		return "", err
	}

	src := m.Path(name)
	if !utils.IsDirectory(src) {
		return "", fmt.Errorf("%w: save %s", ErrNotFound, name)
	}
	if !utils.IsDirectory(target) {
		return "", fmt.Errorf("%w: target path %s", ErrNotFound, target)
	}
	// restoring a save into itself would truncate its own files
	if utils.IsWithin(src, target) {
		return "", fmt.Errorf("%w: %s is inside save %s", ErrInvalidTarget, target, name)
	}

	var backupPath string
	if makeBackup {
		path, err := m.backup(target)
		if err != nil {
			return path, err
		}
		backupPath = path
	}

	restored, err := copier.CopyTree(src, target, progressLogger(m, progress))
	if err != nil {
		if errors.Is(err, copier.ErrSourceNotFound) {
			return backupPath, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return backupPath, ioErr("restore", target, err)
	}
	m.logf(logging.InfoLevel, "Restored %d files successfully", restored)

	return backupPath, nil
}

// backup copies target into a fresh sibling directory and returns its path.
func (m *Manager) backup(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", ioErr("resolve", target, err)
	}
	parent := filepath.Dir(filepath.Clean(abs))

	// two restores within the same second get _2, _3, ...
	base := BackupPrefix + strconv.FormatInt(m.now().UTC().Unix(), 10)
	backupPath := filepath.Join(parent, NextName(parent, base))

	if err := utils.EnsureDirectoryExists(backupPath); err != nil {
		return "", ioErr("create", backupPath, err)
	}
	m.logf(logging.InfoLevel, "Creating backup at: %s", backupPath)

	backedUp, err := copier.CopyTree(abs, backupPath, nil)
	if err != nil {
		return backupPath, ioErr("backup", abs, err)
	}
	m.logf(logging.InfoLevel, "Backed up %d files", backedUp)

	return backupPath, nil
}
