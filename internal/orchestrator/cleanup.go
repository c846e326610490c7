package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// tempPrefix marks temporary files created by this service.
const tempPrefix = "cvexport-"

// CleanupTemps removes cvexport-* temp files in dir older than maxAge.
// An empty dir means os.TempDir().
func CleanupTemps(dir string, maxAge time.Duration) int {
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Str("dir", dir).Int("removed", removed).Msg("cleaned stale temp files")
	}
	return removed
}
