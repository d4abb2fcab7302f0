package catalog

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"mepbackend/internal/logger"
)

// SeedWatcher reloads the catalog when the seed file changes on disk, so
// a kitchen can edit the product list without restarting the server.
type SeedWatcher struct {
	service  *Service
	seedPath string
	onReload func()
	watcher  *fsnotify.Watcher
}

// NewSeedWatcher watches the directory holding the seed file. Editors
// replace files by rename, so watching the file itself would lose the
// watch after the first save. onReload, if non-nil, runs after each
// successful reload (used to persist the new catalog).
func NewSeedWatcher(seedPath string, service *Service, onReload func()) (*SeedWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(filepath.Dir(seedPath)); err != nil {
		w.Close()
		return nil, err
	}

	return &SeedWatcher{service: service, seedPath: seedPath, onReload: onReload, watcher: w}, nil
}

func (sw *SeedWatcher) Watch() {
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(sw.seedPath) {
				continue
			}
			logger.LogInfo("Seed file changed: %s", event.Name)
			if err := sw.service.LoadFromSeedFile(sw.seedPath); err != nil {
				logger.LogError("Failed to reload seed file: %v", err)
				continue
			}
			if sw.onReload != nil {
				sw.onReload()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			logger.LogError("Seed watcher error: %v", err)
		}
	}
}

func (sw *SeedWatcher) Close() error {
	return sw.watcher.Close()
}
