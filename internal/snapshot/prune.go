package snapshot

import (
	"os"
	"sort"
	"strings"
	"time"

	"savemanager/internal/logging"
)

type dated struct {
	name string
	at   time.Time
}

// Prune keeps the newest keep snapshots whose name starts with prefix and
// deletes the rest, returning the deleted names. Age comes from the metadata
// record, or the directory mod time when there is none.
func (m *Manager) Prune(prefix string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}

	names, err := m.List()
	if err != nil {
		return nil, err
	}

	var candidates []dated
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		candidates = append(candidates, dated{name: name, at: m.createdAt(name)})
	}

	if len(candidates) <= keep {
		return []string{}, nil
	}

	// newest first
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].at.After(candidates[j].at)
	})

	deleted := []string{}
	for _, c := range candidates[keep:] {
		if err := m.Delete(c.name); err != nil {
			m.logf(logging.ErrorLevel, "retention: failed to delete %s: %v", c.name, err)
			continue
		}
		deleted = append(deleted, c.name)
	}

	m.logf(logging.InfoLevel, "retention: kept %d, deleted %d saves with prefix %q", keep, len(deleted), prefix)
	return deleted, nil
}

func (m *Manager) createdAt(name string) time.Time {
	if rec, ok := m.metadata.Read(name); ok && !rec.CreatedAt.IsZero() {
		return rec.CreatedAt
	}
	if info, err := os.Stat(m.Path(name)); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}
