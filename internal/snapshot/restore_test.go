package snapshot

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savemanager/internal/utils"
)

func TestRestoreWithoutBackup(t *testing.T) {
	f := newFixture(t)
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "game")
	require.NoError(t, os.Mkdir(target, 0755))

	backup, err := f.m.Restore(name, target, false, nil)
	require.NoError(t, err)
	assert.Empty(t, backup)

	assert.Equal(t, "alpha", readFile(t, filepath.Join(target, "a.txt")))
	assert.Equal(t, "bravo", readFile(t, filepath.Join(target, "sub", "b.txt")))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no backup directory expected")
}

func TestRestoreLeavesExtraFiles(t *testing.T) {
	f := newFixture(t)
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	target := t.TempDir()
	writeFile(t, filepath.Join(target, "a.txt"), "progressed too far")
	writeFile(t, filepath.Join(target, "options.cfg"), "volume=3")

	_, err = f.m.Restore(name, target, false, nil)
	require.NoError(t, err)

	report, err := f.m.Diff(name, target)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 2, report.Same)
	assert.Equal(t, []string{"options.cfg"}, report.Extra)

	assert.Equal(t, "volume=3", readFile(t, filepath.Join(target, "options.cfg")))
}

func TestRestoreWithBackup(t *testing.T) {
	f := newFixture(t)
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	parent := t.TempDir()
	target := filepath.Join(parent, "game")
	writeFile(t, filepath.Join(target, "a.txt"), "current progress")
	writeFile(t, filepath.Join(target, "deep", "c.txt"), "charlie")

	before := map[string]string{}
	files, err := utils.ScanFiles(target)
	require.NoError(t, err)
	for _, rel := range files {
		before[rel] = readFile(t, filepath.Join(target, filepath.FromSlash(rel)))
	}

	backup, err := f.m.Restore(name, target, true, nil)
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	assert.Equal(t, parent, filepath.Dir(backup))
	assert.True(t, strings.HasPrefix(filepath.Base(backup), BackupPrefix))
	_, err = strconv.ParseInt(strings.TrimPrefix(filepath.Base(backup), BackupPrefix), 10, 64)
	assert.NoError(t, err, "suffix should be unix seconds")

	// the backup holds the pre-restore state byte for byte
	backedUp, err := utils.ScanFiles(backup)
	require.NoError(t, err)
	assert.ElementsMatch(t, files, backedUp)
	for rel, content := range before {
		assert.Equal(t, content, readFile(t, filepath.Join(backup, filepath.FromSlash(rel))))
	}

	assert.Equal(t, "alpha", readFile(t, filepath.Join(target, "a.txt")))
}

func TestRestoreBackupNamesDoNotCollide(t *testing.T) {
	f := newFixture(t)
	f.m.now = func() time.Time { return f.now }
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "game")
	require.NoError(t, os.Mkdir(target, 0755))

	first, err := f.m.Restore(name, target, true, nil)
	require.NoError(t, err)
	second, err := f.m.Restore(name, target, true, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Base(first)+"_2", filepath.Base(second))
}

func TestRestoreMissingSnapshot(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Restore("ghost", t.TempDir(), true, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreMissingTarget(t *testing.T) {
	f := newFixture(t)
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "not-created")
	backup, err := f.m.Restore(name, target, true, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, backup)
	assert.NoDirExists(t, target)
}

func TestRestoreIntoOwnSave(t *testing.T) {
	f := newFixture(t)
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	for _, target := range []string{f.m.Path(name), filepath.Join(f.m.Path(name), "sub")} {
		backup, err := f.m.Restore(name, target, true, nil)
		assert.ErrorIs(t, err, ErrInvalidTarget)
		assert.Empty(t, backup)
	}

	assert.Equal(t, "alpha", readFile(t, filepath.Join(f.m.Path(name), "a.txt")))
	assert.Equal(t, "bravo", readFile(t, filepath.Join(f.m.Path(name), "sub", "b.txt")))

	entries, err := os.ReadDir(f.m.SavesDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no backup directory expected")
}

func TestCreateSkipsLinkedDirectory(t *testing.T) {
	f := newFixture(t)
	src := gameSource(t)
	if err := os.Symlink(t.TempDir(), filepath.Join(src, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	name, err := f.m.Create(src, "", nil)
	require.NoError(t, err)

	details, ok := f.m.Details(name)
	require.True(t, ok)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, details.Files)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	src := gameSource(t)

	name, err := f.m.Create(src, "", nil)
	require.NoError(t, err)
	require.Equal(t, "save", name)

	details, ok := f.m.Details("save")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a.txt", "sub/b.txt"}, details.Files)

	target := t.TempDir()
	backup, err := f.m.Restore("save", target, false, nil)
	require.NoError(t, err)
	assert.Empty(t, backup)

	assert.Equal(t, readFile(t, filepath.Join(src, "a.txt")), readFile(t, filepath.Join(target, "a.txt")))
	assert.Equal(t, readFile(t, filepath.Join(src, "sub", "b.txt")), readFile(t, filepath.Join(target, "sub", "b.txt")))
}

func TestDiff(t *testing.T) {
	f := newFixture(t)
	name, err := f.m.Create(gameSource(t), "", nil)
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "different")
	writeFile(t, filepath.Join(dir, "new.txt"), "n")

	report, err := f.m.Diff(name, dir)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []string{"sub/b.txt"}, report.Missing)
	assert.Equal(t, []string{"a.txt"}, report.Modified)
	assert.Equal(t, []string{"new.txt"}, report.Extra)
	assert.Equal(t, 0, report.Same)

	_, err = f.m.Diff("ghost", dir)
	assert.ErrorIs(t, err, ErrNotFound)
}
