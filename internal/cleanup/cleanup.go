package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"mepbackend/internal/logger"
)

const maxDeletionPerRun = 25 // Maximum artifacts to delete per run

// PruneExports removes export artifacts older than the retention window.
// Runs once at startup; the tool has no background jobs. Only files
// matching the deterministic checklist_*.txt naming are touched.
func PruneExports(dir string, retentionDays int) {
	if retentionDays <= 0 {
		logger.LogInfo("Export pruning disabled (retention <= 0)")
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		logger.LogError("Failed to read export directory %s: %v", dir, err)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	cleaned := 0

	for _, entry := range entries {
		if cleaned >= maxDeletionPerRun {
			logger.LogWarn("Export pruning hit per-run limit of %d, remaining files kept until next start", maxDeletionPerRun)
			break
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "checklist_") || !strings.HasSuffix(name, ".txt") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.LogWarn("Failed to stat export artifact %s: %v", name, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logger.LogError("Failed to remove old export artifact %s: %v", path, err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		logger.LogInfo("Pruned %d export artifacts older than %d days", cleaned, retentionDays)
	}
}
