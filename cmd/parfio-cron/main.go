// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command parfio-cron loads a list of recurring read/write jobs from a
// YAML config and runs them under internal/scheduler until interrupted.
//
//	parfio-cron <config.yaml>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nishisan-dev/parfio"
	"github.com/nishisan-dev/parfio/internal/config"
	"github.com/nishisan-dev/parfio/internal/logging"
	"github.com/nishisan-dev/parfio/internal/posio"
	"github.com/nishisan-dev/parfio/internal/scheduler"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: parfio-cron <config.yaml>")
		os.Exit(2)
	}
	configPath := os.Args[1]

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	if err := run(configPath, cfg, logger); err != nil {
		logger.Error("parfio-cron exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting parfio-cron", "jobs", len(cfg.Jobs))

	runFn := func(ctx context.Context, entry config.Job, entryLogger *slog.Logger) (int64, error) {
		return runJob(ctx, entry, entryLogger)
	}

	sched, err := scheduler.NewRunner(cfg, logger, runFn)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for {
		sig := <-sigCh

		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading config", "path", configPath)
			newCfg, loadErr := config.Load(configPath)
			if loadErr != nil {
				logger.Error("reload failed, keeping current config", "error", loadErr)
				continue
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			sched.Stop(stopCtx)
			stopCancel()

			cfg = newCfg
			sched, err = scheduler.NewRunner(cfg, logger, runFn)
			if err != nil {
				return fmt.Errorf("reload scheduler: %w", err)
			}
			sched.Start()
			logger.Info("config reloaded successfully", "jobs", len(cfg.Jobs))
			continue
		}

		logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		sched.Stop(ctx)
		cancel()
		return nil
	}
}

// runJob dispatches one tick to ReadFile or WriteToFile depending on the
// job's configured mode.
func runJob(ctx context.Context, entry config.Job, logger *slog.Logger) (int64, error) {
	switch entry.Mode {
	case config.ModeRead:
		return runReadJob(ctx, entry, logger)
	case config.ModeWrite:
		return runWriteJob(ctx, entry, logger)
	default:
		return 0, fmt.Errorf("unknown job mode %q", entry.Mode)
	}
}

func runReadJob(ctx context.Context, entry config.Job, logger *slog.Logger) (int64, error) {
	src, err := posio.OpenLocalRead(entry.File)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", entry.File, err)
	}
	defer src.Close()

	opts := parfio.ReadOptions{
		Producers:          entry.Producers,
		Consumers:          entry.Consumers,
		ChunksPerProducer:  entry.ChunksPerProducer,
		BuffersPerProducer: entry.BuffersPerProducer,
	}
	result, err := parfio.ReadFile(ctx, src, opts, nil, func(data []byte, userTag any, chunkID, numChunks int, offset int64) (int, error) {
		return len(data), nil
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, r := range result.Results {
		if r.Err == nil {
			total += int64(r.Value)
		}
	}
	logger.Info("read job tick complete", "bytes", total)
	return total, nil
}

func runWriteJob(ctx context.Context, entry config.Job, logger *slog.Logger) (int64, error) {
	dst, err := posio.CreateLocalWrite(entry.File)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", entry.File, err)
	}
	defer dst.Close()

	opts := parfio.WriteOptions{
		Producers:          entry.Producers,
		Consumers:          entry.Consumers,
		ChunksPerProducer:  entry.ChunksPerProducer,
		BuffersPerProducer: entry.BuffersPerProducer,
		BufferSize:         int(entry.BufferSizeRaw),
	}
	result, err := parfio.WriteToFile(ctx, dst, opts, nil, func(buf []byte, userTag any, offset int64) (int, error) {
		for i := range buf {
			buf[i] = byte(offset % 256)
		}
		return len(buf), nil
	})
	if err != nil {
		return 0, err
	}
	logger.Info("write job tick complete", "bytes", result.BytesWritten)
	return result.BytesWritten, nil
}
