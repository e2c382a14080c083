// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import "testing"

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../../configs/parfio-cron.example.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(cfg.Jobs))
	}

	read := cfg.Jobs[0]
	if read.Mode != ModeRead || read.Producers != 4 || read.ChunksPerProducer != 8 {
		t.Errorf("unexpected read job: %+v", read)
	}

	write := cfg.Jobs[1]
	if write.Mode != ModeWrite {
		t.Fatalf("expected job 2 to be write mode, got %q", write.Mode)
	}
	if write.BufferSizeRaw != 1024*1024 {
		t.Errorf("expected buffer_size to parse to 1MiB, got %d", write.BufferSizeRaw)
	}
	if write.BandwidthLimitRaw != 50*1024*1024 {
		t.Errorf("expected bandwidth_limit to parse to 50MiB, got %d", write.BandwidthLimitRaw)
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Logging.JobLogDir != "/var/log/parfio/jobs" {
		t.Errorf("expected job_log_dir to parse, got %q", cfg.Logging.JobLogDir)
	}
}

func TestLoad_MissingJobsRejected(t *testing.T) {
	cfg := &Config{}
	if err := cfg.applyDefaultsAndValidate(); err == nil {
		t.Fatal("expected an error for a config with no jobs")
	}
}

func TestLoad_InvalidModeRejected(t *testing.T) {
	cfg := &Config{Jobs: []Job{{Name: "x", Schedule: "@hourly", File: "f", Mode: "append"}}}
	if err := cfg.applyDefaultsAndValidate(); err == nil {
		t.Fatal("expected an error for an invalid mode")
	}
}

func TestLoad_BuffersPerProducerExceedsChunksRejected(t *testing.T) {
	cfg := &Config{Jobs: []Job{{
		Name: "x", Schedule: "@hourly", File: "f", Mode: ModeRead,
		ChunksPerProducer: 2, BuffersPerProducer: 5,
	}}}
	if err := cfg.applyDefaultsAndValidate(); err == nil {
		t.Fatal("expected an error when buffers_per_producer > chunks_per_producer")
	}
}

func TestLoad_DefaultsAppliedWhenZero(t *testing.T) {
	cfg := &Config{Jobs: []Job{{Name: "x", Schedule: "@hourly", File: "f", Mode: ModeRead}}}
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		t.Fatalf("applyDefaultsAndValidate: %v", err)
	}
	job := cfg.Jobs[0]
	if job.Producers != 1 || job.Consumers != 1 || job.ChunksPerProducer != 1 || job.BuffersPerProducer != 1 {
		t.Errorf("expected all concurrency fields to default to 1, got %+v", job)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/path/parfio-cron.yaml"); err == nil {
		t.Fatal("expected an error for a non-existent file")
	}
}

func TestParseByteSize(t *testing.T) {
	cases := map[string]int64{
		"1b":   1,
		"1kb":  1024,
		"4mb":  4 * 1024 * 1024,
		"2gb":  2 * 1024 * 1024 * 1024,
		"1024": 1024,
	}
	for in, want := range cases {
		got, err := ParseByteSize(in)
		if err != nil {
			t.Errorf("ParseByteSize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", in, got, want)
		}
	}

	if _, err := ParseByteSize("not-a-size"); err == nil {
		t.Error("expected an error for a malformed size string")
	}
}
