// Package spool ingests snapshot files dropped into a local directory.
// Capture agents that cannot reach the HTTP endpoint directly (batch
// re-scrapes, offline crawls) write one JSON payload per file; the watcher
// feeds them through the same ingestion orchestrator and removes them.
package spool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/accessaurus/semantify/internal/pipeline"
)

// payload mirrors the ingest endpoint's request body.
type payload struct {
	OrgID    string `json:"orgId"`
	PageURL  string `json:"pageUrl"`
	HTML     string `json:"html"`
	Skeleton string `json:"skeleton,omitempty"`
	Hash     string `json:"hash,omitempty"`
}

// settleDelay gives writers time to finish a file before it is read.
const settleDelay = 200 * time.Millisecond

// Watch processes existing spool files, then watches dir for new ones until
// ctx is cancelled. Processed files are removed; failed files are renamed
// with a .err suffix so they are inspectable and never retried.
func Watch(ctx context.Context, svc *pipeline.Service, dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("spool: started", slog.String("dir", dir))

	// Drain anything that accumulated while the service was down.
	sweep(ctx, svc, dir, logger)

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("spool: stopped")
			return nil

		case <-settleCh:
			for path := range pending {
				delete(pending, path)
				process(ctx, svc, path, logger)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isSpoolFile(ev.Name) {
				continue
			}
			schedule(ev.Name)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("spool: watcher error", slog.String("error", err.Error()))
		}
	}
}

func isSpoolFile(path string) bool {
	return strings.HasSuffix(path, ".json")
}

// sweep processes every spool file already present in dir.
func sweep(ctx context.Context, svc *pipeline.Service, dir string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("spool: sweep failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isSpoolFile(e.Name()) {
			continue
		}
		process(ctx, svc, filepath.Join(dir, e.Name()), logger)
	}
}

func process(ctx context.Context, svc *pipeline.Service, path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("spool: read failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		quarantine(path, logger, "invalid JSON")
		return
	}

	result, err := svc.Ingest(ctx, pipeline.IngestRequest{
		OrgID:    p.OrgID,
		PageURL:  p.PageURL,
		HTML:     p.HTML,
		Skeleton: p.Skeleton,
		Hash:     p.Hash,
	})
	if err != nil {
		quarantine(path, logger, err.Error())
		return
	}

	if err := os.Remove(path); err != nil {
		logger.Warn("spool: remove failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	logger.Info("spool: ingested",
		slog.String("path", path),
		slog.String("status", result.Status),
		slog.String("transform_id", result.TransformID))
}

// quarantine renames a failed file out of the watched extension.
func quarantine(path string, logger *slog.Logger, reason string) {
	logger.Warn("spool: quarantined", slog.String("path", path), slog.String("reason", reason))
	if err := os.Rename(path, path+".err"); err != nil {
		logger.Warn("spool: quarantine failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
