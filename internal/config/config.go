// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the YAML configuration parfio-cron runs from: a
// list of recurring read/write jobs plus logging options, mirroring the
// teacher's AgentConfig/ServerConfig shape (typed structs with yaml tags,
// a Load function, zero-value defaults applied after unmarshal).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode names which ioengine entry point a Job drives.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// Config is the top-level parfio-cron document.
type Config struct {
	Jobs    []Job         `yaml:"jobs"`
	Logging LoggingConfig `yaml:"logging"`
}

// Job describes one scheduled pipeline run.
type Job struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // standard 5-field cron expression
	Mode     Mode   `yaml:"mode"`     // "read" or "write"
	File     string `yaml:"file"`

	Producers          int `yaml:"producers"`
	Consumers          int `yaml:"consumers"`
	ChunksPerProducer  int `yaml:"chunks_per_producer"`
	BuffersPerProducer int `yaml:"buffers_per_producer"`

	BufferSize    string `yaml:"buffer_size"` // e.g. "256kb", "1mb"; only used in write mode
	BufferSizeRaw int64  `yaml:"-"`

	// BandwidthLimit (e.g. "10mb") is parsed into BandwidthLimitRaw only;
	// parfio-cron's job runner does not apply it, so no throttling happens.
	BandwidthLimit    string `yaml:"bandwidth_limit"`
	BandwidthLimitRaw int64  `yaml:"-"`
}

// LoggingConfig mirrors the teacher's LoggingInfo.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`

	// JobLogDir, if set, gives every scheduled tick its own log file
	// under JobLogDir/<job name>/<run id>.log, in addition to the global
	// stream above. Empty disables per-tick log files entirely.
	JobLogDir string `yaml:"job_log_dir"`
}

// Load reads and validates path, applying defaults for any zero-value
// field the teacher's config packages also default after unmarshal.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parfio-cron config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing parfio-cron config: %w", err)
	}
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return nil, fmt.Errorf("validating parfio-cron config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaultsAndValidate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("jobs must have at least one entry")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	for i := range c.Jobs {
		job := &c.Jobs[i]
		if job.Name == "" {
			return fmt.Errorf("jobs[%d].name is required", i)
		}
		if job.Schedule == "" {
			return fmt.Errorf("jobs[%d].schedule is required", i)
		}
		if job.File == "" {
			return fmt.Errorf("jobs[%d].file is required", i)
		}
		if job.Mode != ModeRead && job.Mode != ModeWrite {
			return fmt.Errorf("jobs[%d].mode must be %q or %q, got %q", i, ModeRead, ModeWrite, job.Mode)
		}
		if job.Producers <= 0 {
			job.Producers = 1
		}
		if job.Consumers <= 0 {
			job.Consumers = 1
		}
		if job.ChunksPerProducer <= 0 {
			job.ChunksPerProducer = 1
		}
		if job.BuffersPerProducer <= 0 {
			job.BuffersPerProducer = 1
		}
		if job.BuffersPerProducer > job.ChunksPerProducer {
			return fmt.Errorf("jobs[%d].buffers_per_producer (%d) must be <= chunks_per_producer (%d)", i, job.BuffersPerProducer, job.ChunksPerProducer)
		}

		if job.Mode == ModeWrite {
			if job.BufferSize == "" {
				job.BufferSize = "1mb"
			}
			parsed, err := ParseByteSize(job.BufferSize)
			if err != nil {
				return fmt.Errorf("jobs[%d].buffer_size: %w", i, err)
			}
			job.BufferSizeRaw = parsed
		}

		if job.BandwidthLimit != "" {
			parsed, err := ParseByteSize(job.BandwidthLimit)
			if err != nil {
				return fmt.Errorf("jobs[%d].bandwidth_limit: %w", i, err)
			}
			job.BandwidthLimitRaw = parsed
		}
	}

	return nil
}

// ParseByteSize converts human-readable sizes like "256mb", "1gb" into
// bytes, the same suffix table the teacher's config package uses.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type suffix struct {
		s string
		m int64
	}
	// Longest suffix first so "mb" never matches the "b" entry.
	suffixes := []suffix{
		{"gb", 1024 * 1024 * 1024},
		{"mb", 1024 * 1024},
		{"kb", 1024},
		{"b", 1},
	}

	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.s) {
			numStr := strings.TrimSuffix(s, sfx.s)
			num, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q: %w", numStr, err)
			}
			return num * sfx.m, nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown size format %q", s)
	}
	return num, nil
}
