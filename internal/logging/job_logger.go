// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// fanOutHandler is a slog.Handler that dispatches each record to two
// handlers. NewJobLogger uses it to write simultaneously to the global
// logger and to a tick's dedicated log file.
type fanOutHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h *fanOutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h *fanOutHandler) Handle(ctx context.Context, r slog.Record) error {
	// Check each handler's Enabled() individually so a DEBUG record
	// reaches the file handler even when the primary only accepts INFO+.
	if h.primary.Enabled(ctx, r.Level) {
		if err := h.primary.Handle(ctx, r); err != nil {
			return err
		}
	}
	// A write failure on the job log must not take down the global log.
	if h.secondary.Enabled(ctx, r.Level) {
		_ = h.secondary.Handle(ctx, r)
	}
	return nil
}

func (h *fanOutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fanOutHandler{
		primary:   h.primary.WithAttrs(attrs),
		secondary: h.secondary.WithAttrs(attrs),
	}
}

func (h *fanOutHandler) WithGroup(name string) slog.Handler {
	return &fanOutHandler{
		primary:   h.primary.WithGroup(name),
		secondary: h.secondary.WithGroup(name),
	}
}

// maxRetainedJobLogs caps how many per-run log files NewJobLogger keeps
// for a single job. A scheduled job accumulates one of these every tick
// forever, unlike a one-off backup session; without a cap the log
// directory grows without bound over a long-lived parfio-cron process.
const maxRetainedJobLogs = 20

// NewJobLogger creates a logger that writes to both the base (global)
// logger and a file dedicated to one scheduler tick, at:
//
//	{jobLogDir}/{jobName}/{runID}.log
//
// Every record written through the returned logger carries "job" and
// "run_id" attributes, so grepping the combined log for either value
// finds every line belonging to that tick even outside its dedicated
// file. After opening the new file, NewJobLogger prunes that job's
// directory down to the maxRetainedJobLogs most recent runs -- callers
// never need to remember to clean up after a tick themselves.
//
// Returns the enriched logger, an io.Closer to close the per-tick file,
// and the file's path (jobLogDir joined with the parts above). The Closer must be called when the tick
// finishes. If jobLogDir is empty, the base logger is returned unchanged
// and pruning never runs.
func NewJobLogger(baseLogger *slog.Logger, jobLogDir, jobName, runID string) (*slog.Logger, io.Closer, string, error) {
	if jobLogDir == "" {
		return baseLogger, io.NopCloser(nil), "", nil
	}

	dir := filepath.Join(jobLogDir, jobName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, "", fmt.Errorf("creating job log directory %s: %w", dir, err)
	}

	logPath := filepath.Join(dir, runID+".log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("opening job log file %s: %w", logPath, err)
	}

	// The per-tick file always uses JSON at DEBUG for maximum capture,
	// independent of whatever level the global logger is set to.
	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	combined := &fanOutHandler{
		primary:   baseLogger.Handler(),
		secondary: fileHandler,
	}

	logger := slog.New(combined).With("job", jobName, "run_id", runID)

	if err := pruneJobLogs(dir, maxRetainedJobLogs); err != nil {
		logger.Warn("pruning old job logs", "dir", dir, "error", err)
	}

	return logger, f, logPath, nil
}

// pruneJobLogs deletes the oldest entries in dir once it holds more than
// keep files, oldest-by-name first. Run IDs are timestamp-derived
// (see scheduler.executeJob), so lexical order is chronological order.
func pruneJobLogs(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) <= keep {
		return nil
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
