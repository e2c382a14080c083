// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scheduler runs parfio-cron's configured read/write jobs on a
// cron schedule. Each tick is an independent pipeline invocation -- the
// scheduler never shares buffers or channels across ticks, it only tracks
// run/skip/result bookkeeping per job.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nishisan-dev/parfio/internal/config"
	"github.com/nishisan-dev/parfio/internal/logging"
)

// JobResult records the outcome of one job tick.
type JobResult struct {
	Status           string
	DurationSeconds  float64
	BytesTransferred int64
	Timestamp        time.Time
}

// Job pairs a configured job with the run-guard state that keeps a slow
// tick from overlapping the next one.
type Job struct {
	Entry config.Job

	mu         sync.Mutex
	running    bool
	LastResult *JobResult
}

// RunFunc executes one job tick and reports bytes moved.
type RunFunc func(ctx context.Context, entry config.Job, logger *slog.Logger) (bytesTransferred int64, err error)

// Runner wires cron/v3 to a set of Jobs, one cron entry per configured
// job, mirroring the teacher's Scheduler/BackupJob shape
// (internal/agent/scheduler.go) with backup-specific fields dropped.
type Runner struct {
	cron      *cron.Cron
	logger    *slog.Logger
	jobs      []*Job
	runFn     RunFunc
	jobLogDir string
}

// NewRunner registers one cron entry per job in cfg.Jobs.
func NewRunner(cfg *config.Config, logger *slog.Logger, runFn RunFunc) (*Runner, error) {
	r := &Runner{
		logger:    logger,
		runFn:     runFn,
		jobLogDir: cfg.Logging.JobLogDir,
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	for _, entry := range cfg.Jobs {
		job := &Job{Entry: entry}
		r.jobs = append(r.jobs, job)

		jobRef := job
		entryRef := entry
		if _, err := c.AddFunc(entry.Schedule, func() {
			r.executeJob(jobRef, entryRef)
		}); err != nil {
			return nil, fmt.Errorf("adding cron job %q: %w", entry.Name, err)
		}

		logger.Info("registered job",
			"job", entry.Name,
			"mode", entry.Mode,
			"file", entry.File,
			"schedule", entry.Schedule,
		)
	}

	r.cron = c
	return r, nil
}

// Start begins dispatching ticks.
func (r *Runner) Start() {
	r.logger.Info("scheduler started", "jobs", len(r.jobs))
	r.cron.Start()
}

// Stop asks the cron scheduler to finish any in-flight tick, giving up
// at ctx's deadline.
func (r *Runner) Stop(ctx context.Context) {
	r.logger.Info("scheduler stopping")
	stopCtx := r.cron.Stop()

	select {
	case <-stopCtx.Done():
		r.logger.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		r.logger.Warn("scheduler stop timed out")
	}
}

// Jobs returns the registered jobs, for a status/health reporter.
func (r *Runner) Jobs() []*Job {
	return r.jobs
}

func (r *Runner) executeJob(job *Job, entry config.Job) {
	baseLogger := r.logger.With("mode", entry.Mode, "file", entry.File)

	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		baseLogger.Warn("job already running, skipping scheduled tick", "job", entry.Name)
		job.LastResult = &JobResult{Status: "skipped", Timestamp: time.Now()}
		return
	}
	job.running = true
	job.mu.Unlock()

	defer func() {
		job.mu.Lock()
		job.running = false
		job.mu.Unlock()
	}()

	start := time.Now()
	runID := start.UTC().Format("20060102T150405.000000000")

	jobLogger, closer, logPath, err := logging.NewJobLogger(baseLogger, r.jobLogDir, entry.Name, runID)
	if err != nil {
		baseLogger.Error("opening per-tick job log, falling back to the global logger", "job", entry.Name, "error", err)
		jobLogger = baseLogger.With("job", entry.Name, "run_id", runID)
		closer = io.NopCloser(nil)
	}
	defer closer.Close()
	if logPath != "" {
		jobLogger = jobLogger.With("log_file", logPath)
	}

	jobLogger.Info("scheduled job triggered")

	bytesTransferred, err := r.runFn(context.Background(), entry, jobLogger)
	duration := time.Since(start)

	if err != nil {
		jobLogger.Error("job failed", "error", err, "duration", duration)
		job.LastResult = &JobResult{Status: "failed", DurationSeconds: duration.Seconds(), Timestamp: time.Now()}
		return
	}

	jobLogger.Info("job completed", "duration", duration, "bytes", bytesTransferred)
	job.LastResult = &JobResult{
		Status:           "completed",
		DurationSeconds:  duration.Seconds(),
		BytesTransferred: bytesTransferred,
		Timestamp:        time.Now(),
	}
}
