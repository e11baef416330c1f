package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/internal/hostpage"
)

// SpoolSource feeds region snapshots from a watched directory. Agents that
// cannot reach the HTTP API drop snapshot JSON files there instead; ingested
// files are removed.
type SpoolSource struct {
	dir     string
	feed    *hostpage.Feed
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewSpoolSource creates a spool watcher over dir.
func NewSpoolSource(dir string, feed *hostpage.Feed, logger *zap.Logger) (*SpoolSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	return &SpoolSource{dir: dir, feed: feed, watcher: watcher, logger: logger}, nil
}

// Start ingests pre-existing spool files and then monitors the directory
// until the context is cancelled.
func (s *SpoolSource) Start(ctx context.Context) error {
	s.logger.Info("spool source started", zap.String("dir", s.dir))

	s.drainExisting()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("spool source stopped")
			return ctx.Err()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create == fsnotify.Create && s.isSnapshotFile(event.Name) {
				// Small delay to ensure the file is fully written.
				time.Sleep(100 * time.Millisecond)
				s.ingest(event.Name)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.logger.Error("spool watcher error", zap.Error(err))
		}
	}
}

// Stop closes the directory watcher.
func (s *SpoolSource) Stop() error {
	return s.watcher.Close()
}

func (s *SpoolSource) isSnapshotFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func (s *SpoolSource) drainExisting() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("failed to read spool dir", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !s.isSnapshotFile(entry.Name()) {
			continue
		}
		s.ingest(filepath.Join(s.dir, entry.Name()))
	}
}

func (s *SpoolSource) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read spool file", zap.String("path", path), zap.Error(err))
		return
	}

	var snap hostpage.RegionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Error("invalid spool snapshot", zap.String("path", path), zap.Error(err))
		return
	}

	s.feed.PublishRegion(snap)

	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove ingested spool file", zap.String("path", path), zap.Error(err))
	}
}
