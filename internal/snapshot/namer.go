package snapshot

import (
	"path/filepath"
	"strconv"

	"savemanager/internal/utils"
)

const DefaultBase = "save"

// NextName returns the first of base, base_2, base_3, ... with no directory
// of that name under dir. There is never a base_1. The listing is checked on
// every call.
func NextName(dir, base string) string {
	if base == "" {
		base = DefaultBase
	}

	candidate := base
	for n := 2; utils.Exists(filepath.Join(dir, candidate)); n++ {
		candidate = base + "_" + strconv.Itoa(n)
	}
	return candidate
}
