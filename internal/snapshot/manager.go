/*
Package snapshot is the save lifecycle engine.

A snapshot is a plain copy of a source directory tree stored as
<saves>/<name>/..., with a JSON record at <metadata>/<name>.json.

 1. Create()  - copy a source tree into a new named snapshot and record it
 2. List()    - names of the snapshot directories
 3. Restore() - copy a snapshot back over a target, optionally backing the target up first
 4. Delete()  - remove the snapshot directory and its record
 5. Orphans() - records left behind without a snapshot directory

All operations block until done. The Manager takes no locks: callers run one
operation at a time.
*/
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"savemanager/internal/copier"
	"savemanager/internal/logging"
	"savemanager/internal/metadata"
	"savemanager/internal/utils"
	"savemanager/pkg/models"
)

type Options struct {
	// SavesDir holds one subdirectory per snapshot.
	SavesDir string
	// MetadataDir holds one <name>.json record per snapshot.
	MetadataDir string
	Logger      logging.Sink
	// Now defaults to time.Now.
	Now func() time.Time
}

type Manager struct {
	savesDir    string
	metadataDir string
	metadata    *metadata.Manager
	log         logging.Sink
	now         func() time.Time
}

func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logging.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		savesDir:    opts.SavesDir,
		metadataDir: opts.MetadataDir,
		metadata:    metadata.NewManager(opts.MetadataDir, log),
		log:         log,
		now:         now,
	}
}

func (m *Manager) SavesDir() string {
	return m.savesDir
}

// Path returns the directory of the named snapshot.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.savesDir, name)
}

// List returns the names of the snapshot directories, sorted by name. The
// saves directory is created if it does not exist yet.
func (m *Manager) List() ([]string, error) {
	if err := utils.EnsureDirectoryExists(m.savesDir); err != nil {
		return nil, ioErr("create", m.savesDir, err)
	}

	entries, err := os.ReadDir(m.savesDir)
	if err != nil {
		return nil, ioErr("read", m.savesDir, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	m.logf(logging.InfoLevel, "Found %d saves", len(names))
	return names, nil
}

// Details returns the metadata record of a snapshot together with its file
// count. The bool is false when no record is available.
func (m *Manager) Details(name string) (models.SnapshotDetails, bool) {
	rec, ok := m.metadata.Read(name)
	if !ok {
		return models.SnapshotDetails{}, false
	}
	return models.SnapshotDetails{
		SnapshotMetadata: rec,
		FileCount:        len(rec.Files),
	}, true
}

// Exists reports whether a snapshot directory named name exists.
func (m *Manager) Exists(name string) bool {
	return utils.IsDirectory(m.Path(name))
}

// HasRecord reports whether a metadata record exists for name, with or
// without a snapshot directory.
func (m *Manager) HasRecord(name string) bool {
	return m.metadata.Exists(name)
}

// Orphans returns the names of metadata records whose snapshot directory is
// gone, sorted. Delete removes such a record.
func (m *Manager) Orphans() ([]string, error) {
	names, err := m.metadata.Names()
	if err != nil {
		return nil, ioErr("read", m.metadataDir, err)
	}

	orphans := []string{}
	for _, name := range names {
		if !m.Exists(name) {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}

func (m *Manager) checkName(name string) error {
	if err := utils.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}

func (m *Manager) logf(level, format string, args ...any) {
	logging.Logf(m.log, level, format, args...)
}

func progressLogger(m *Manager, progress copier.ProgressFunc) copier.ProgressFunc {
	return func(done, total int, rel string) {
		if done == total || done%100 == 0 {
			m.logf(logging.DebugLevel, "Copied %d/%d files", done, total)
		}
		if progress != nil {
			progress(done, total, rel)
		}
	}
}
