package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aouyang1/ratedisplay/api/client"
	"github.com/aouyang1/ratedisplay/util"
)

const defaultLocalScanInterval = time.Minute

// LocalManager keeps the media table in step with files copied straight into the
// media upload directory.
type LocalManager struct {
	path     string
	interval time.Duration

	registry     fileRegistry
	trackedFiles mapset.Set[string]

	Updated chan bool
}

func NewLocalManager(path string, displayClient *client.DisplayClient, interval time.Duration) (*LocalManager, error) {
	if interval <= 0 {
		interval = defaultLocalScanInterval
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	l := &LocalManager{
		path:         path,
		interval:     interval,
		registry:     mediaRegistry{dc: displayClient},
		trackedFiles: mapset.NewSet[string](),
		Updated:      make(chan bool, 1),
	}

	currentFiles, err := listFiles(l.path, util.MediaExt)
	if err != nil {
		slog.Warn("error reading local directory on initialization", "path", l.path, "error", err)
		return nil, err
	}
	l.trackedFiles = currentFiles

	return l, nil
}

func (l *LocalManager) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// Initial scan
	l.scanAndRegister(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scanAndRegister(ctx)
		}
	}
}

func (l *LocalManager) scanAndRegister(ctx context.Context) {
	currentFiles, err := listFiles(l.path, util.MediaExt)
	if err != nil {
		slog.Warn("error reading local directory", "path", l.path, "error", err)
		return
	}

	newFiles := currentFiles.Difference(l.trackedFiles)
	removedFiles := l.trackedFiles.Difference(currentFiles)
	l.trackedFiles = currentFiles

	changed := reconcileDir(ctx, l.registry, l.path, currentFiles)

	// Signal update if files changed
	if changed || newFiles.Cardinality() > 0 || removedFiles.Cardinality() > 0 {
		select {
		case l.Updated <- true:
		default:
			// update already pending
		}
	}
}
