package snapshot

import (
	"fmt"
	"path/filepath"

	"savemanager/internal/utils"
	"savemanager/pkg/models"
)

// Diff compares the snapshot name against dir by content hash. It is a
// read-only report; no operation depends on it.
func (m *Manager) Diff(name, dir string) (models.DiffReport, error) {
	report := models.DiffReport{Missing: []string{}, Modified: []string{}, Extra: []string{}}

	if err := m.checkName(name); err != nil {
		return report, err
	}
	src := m.Path(name)
	if !utils.IsDirectory(src) {
		return report, fmt.Errorf("%w: save %s", ErrNotFound, name)
	}
	if !utils.IsDirectory(dir) {
		return report, fmt.Errorf("%w: directory %s", ErrNotFound, dir)
	}

	want, err := utils.ScanFiles(src)
	if err != nil {
		return report, ioErr("scan", src, err)
	}
	have, err := utils.ScanFiles(dir)
	if err != nil {
		return report, ioErr("scan", dir, err)
	}

	present := make(map[string]bool, len(have))
	for _, rel := range have {
		present[rel] = true
	}

	for _, rel := range want {
		if !present[rel] {
			report.Missing = append(report.Missing, rel)
			continue
		}
		delete(present, rel)

		same, err := sameContent(filepath.Join(src, filepath.FromSlash(rel)), filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return report, ioErr("hash", rel, err)
		}
		if same {
			report.Same++
		} else {
			report.Modified = append(report.Modified, rel)
		}
	}

	for _, rel := range have {
		if present[rel] {
			report.Extra = append(report.Extra, rel)
		}
	}

	return report, nil
}

func sameContent(a, b string) (bool, error) {
	ha, err := utils.CalculateFileHash(a)
	if err != nil {
		return false, err
	}
	hb, err := utils.CalculateFileHash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
