package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"docqa/internal/domain"
	"docqa/internal/service"
)

// FileIngester is the part of the service the watcher drives.
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (domain.IngestReport, error)
	RemoveFile(ctx context.Context, path string) (int, error)
}

// DefaultMergeDelay groups bursts of events for one file into a single re-ingestion.
const DefaultMergeDelay = 300 * time.Millisecond

// Watcher keeps the corpus in step with the supported files under a directory.
type Watcher struct {
	log        *slog.Logger
	root       string
	files      FileIngester
	mergeDelay time.Duration
}

func New(root string, files FileIngester, mergeDelay time.Duration, log *slog.Logger) *Watcher {
	if mergeDelay <= 0 {
		mergeDelay = DefaultMergeDelay
	}
	return &Watcher{log: log, root: root, files: files, mergeDelay: mergeDelay}
}

// Sync ingests every supported file under the root and returns how many
// files were ingested.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	n := 0
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !service.SupportedFile(path) {
			return nil
		}
		if _, err := w.files.IngestFile(ctx, path); err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		n++
		return nil
	})
	return n, err
}

// Watch re-ingests supported files when they are created or written and
// removes their chunks when they are removed or renamed. It returns when
// ctx is canceled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.mergeDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.log.Warn("failed to watch directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if !service.SupportedFile(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.mergeDelay)
		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			report, err := w.files.IngestFile(ctx, p)
			if err != nil {
				w.log.Error("failed to ingest file", "file", p, "error", err)
				continue
			}
			w.log.Info("file ingested", "file", p, "stored", report.Stored, "failed", report.Failed)
		case errors.Is(err, os.ErrNotExist):
			n, err := w.files.RemoveFile(ctx, p)
			if err != nil {
				w.log.Error("failed to remove file", "file", p, "error", err)
				continue
			}
			w.log.Info("file removed", "file", p, "chunks", n)
		default:
			w.log.Warn("failed to stat file", "file", p, "error", err)
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
