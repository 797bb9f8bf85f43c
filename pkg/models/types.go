package models

import "time"

// SnapshotMetadata is the record stored as metadata/<name>.json
type SnapshotMetadata struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created"`
	Source    string    `json:"source"`
	Files     []string  `json:"files"`
}

// SnapshotDetails is what the catalog shows for a selected save.
type SnapshotDetails struct {
	SnapshotMetadata
	FileCount int `json:"file_count"`
}

type DiffReport struct {
	Missing  []string `json:"missing"`
	Modified []string `json:"modified"`
	Extra    []string `json:"extra"`
	Same     int      `json:"same"`
}

// Clean reports whether every file of the snapshot is present and identical.
// Extra files in the compared directory do not count, restore never prunes them.
func (d DiffReport) Clean() bool {
	return len(d.Missing) == 0 && len(d.Modified) == 0
}

type FileEvent struct {
	Path      string
	Operation string // CREATE, MODIFY, DELETE, RENAME
	Timestamp time.Time
}

// SettleEvent is emitted once the watched tree has been quiet for the debounce window.
type SettleEvent struct {
	Root    string
	Changes int
	Last    time.Time
}
