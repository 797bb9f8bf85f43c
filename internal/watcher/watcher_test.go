package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string, exclude ...string) *Watcher {
	t.Helper()
	w, err := NewWatcher(Options{
		Debounce: 20 * time.Millisecond,
		Quiet:    100 * time.Millisecond,
		Exclude:  exclude,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.AddWatch(root))
	w.Start()
	return w
}

func TestSettleAfterBurst(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "save.dat"), []byte{byte(i)}, 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "options.cfg"), []byte("x"), 0644))

	select {
	case ev := <-w.Settled():
		assert.Equal(t, root, ev.Root)
		assert.GreaterOrEqual(t, ev.Changes, 1)
		assert.False(t, ev.Last.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no settle event")
	}

	select {
	case ev := <-w.Settled():
		t.Fatalf("unexpected second settle event: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	sub := filepath.Join(root, "slot1")
	require.NoError(t, os.Mkdir(sub, 0755))

	assert.Eventually(t, func() bool {
		for _, d := range w.WatchedDirs() {
			if d == sub {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestExcludedDirectory(t *testing.T) {
	root := t.TempDir()
	saves := filepath.Join(root, "saves")
	require.NoError(t, os.Mkdir(saves, 0755))

	w := newTestWatcher(t, root, saves)
	assert.NotContains(t, w.WatchedDirs(), saves)
	assert.True(t, w.excluded(filepath.Join(saves, "save", "a.txt")))
	assert.False(t, w.excluded(filepath.Join(root, "savestate")))
}

func TestRelativeRootExcludesSaves(t *testing.T) {
	root := t.TempDir()
	saves := filepath.Join(root, "saves")
	require.NoError(t, os.Mkdir(saves, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "slot1"), 0755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	relRoot, err := filepath.Rel(wd, root)
	require.NoError(t, err)

	w := newTestWatcher(t, relRoot, saves)
	assert.Equal(t, root, w.root)
	assert.Contains(t, w.WatchedDirs(), filepath.Join(root, "slot1"))
	assert.NotContains(t, w.WatchedDirs(), saves)
	assert.True(t, w.excluded(filepath.Join(relRoot, "saves", "save", "a.txt")))
}

func TestExcludedRootIsRejected(t *testing.T) {
	data := t.TempDir()
	saves := filepath.Join(data, "saves")
	game := filepath.Join(data, "game")
	require.NoError(t, os.MkdirAll(filepath.Join(saves, "save"), 0755))
	require.NoError(t, os.Mkdir(game, 0755))

	w, err := NewWatcher(Options{Exclude: []string{saves}})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.AddWatch(filepath.Join(saves, "save")))
	// a sibling of the saves folder under the same data root is fine
	require.NoError(t, w.AddWatch(game))
	assert.Contains(t, w.WatchedDirs(), game)
}

func TestDebounceRearmDuringCallback(t *testing.T) {
	w, err := NewWatcher(Options{Debounce: 200 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	pending := func() int {
		w.debounceMu.Lock()
		defer w.debounceMu.Unlock()
		return len(w.debouncer)
	}

	rearmed := make(chan struct{})
	fired := make(chan struct{})
	w.debouncedSend("save.dat", func() {
		w.debouncedSend("save.dat", func() { close(fired) })
		close(rearmed)
	})

	<-rearmed
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, pending(), "re-armed timer must stay tracked")

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("re-armed timer did not fire")
	}
	assert.Eventually(t, func() bool { return pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestScheduler(t *testing.T) {
	_, err := NewScheduler("not a schedule", func() {})
	assert.Error(t, err)

	s, err := NewScheduler("0 * * * *", func() {})
	require.NoError(t, err)

	from := time.Date(2026, 10, 19, 10, 15, 0, 0, time.Local)
	assert.True(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.Local).Equal(s.Next(from)))

	every, err := NewScheduler("@every 30m", func() {})
	require.NoError(t, err)
	assert.True(t, from.Add(30*time.Minute).Equal(every.Next(from)))
}

func TestSchedulerRuns(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := NewScheduler("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
