// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewCLILogger builds the logger the one-shot drivers (parfio-read,
// parfio-write) use. It writes text-formatted logs to stderr so they
// never interleave with the per-chunk summary and byte totals those
// drivers print to stdout.
func NewCLILogger() *slog.Logger {
	handler := newHandler(slog.LevelInfo, "text", os.Stderr)
	return slog.New(handler)
}

// NewLogger builds parfio-cron's logger from its config-driven level,
// format and optional file path. Unlike the CLI drivers, parfio-cron
// owns stdout entirely (it prints nothing but logs), so its default
// stream stays stdout; filePath, when set, additionally tees every
// record to a file via io.MultiWriter. The returned io.Closer must be
// called on shutdown to flush and close that file; it is a no-op when
// filePath is empty.
func NewLogger(level, format, filePath string) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stdout
	closer := io.NopCloser(nil)

	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: could not open log file %q: %v (logging to stdout only)\n", filePath, err)
		} else {
			w = io.MultiWriter(os.Stdout, f)
			closer = f
		}
	}

	handler := newHandler(parseLevel(level), format, w)
	return slog.New(handler), closer
}

// newHandler builds the slog.Handler shared by both constructors above:
// JSON by default, text on request, at the given minimum level.
func newHandler(lvl slog.Level, format string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config string onto a slog.Level, defaulting to info
// for anything it doesn't recognize.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
