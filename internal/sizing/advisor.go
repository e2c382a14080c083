// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sizing recommends a (P, C, K, B) tuple for callers of
// ioengine.ReadFile/WriteToFile that don't want to hand-pick their own
// concurrency parameters. It runs once, before a pipeline starts; it
// never observes or adjusts a pipeline already in flight (spec.md's
// Non-goals rule out dynamic resizing mid-call).
package sizing

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
)

// targetChunkSize is the chunk size Recommend aims for when picking K;
// it is a starting point for typical spinning/SSD-backed local files, not
// a hard limit enforced anywhere in ioengine.
const targetChunkSize = 4 * 1024 * 1024

// minBuffersPerProducer bounds how small B is allowed to go once a
// caller has at least two chunks per producer, so a producer never runs
// fully synchronous (B=1) unless K itself is 1.
const minBuffersPerProducer = 2

// Recommend inspects logical CPU count and 1-minute load average to
// suggest a (P, C, K, B) tuple sized to fileLen. It always returns values
// >= 1; a gopsutil sampling failure falls back to runtime.NumCPU()-only
// sizing rather than propagating the error, since a caller asking for a
// recommendation has no better fallback to hand it anyway.
func Recommend(fileLen int64) (p, c, k, b int) {
	cores := logicalCores()
	headroom := loadHeadroom(cores)

	p = headroom
	c = headroom
	if p < 1 {
		p = 1
	}
	if c < 1 {
		c = 1
	}

	k = chunksPerProducer(fileLen, p)
	b = buffersPerProducer(k)
	return p, c, k, b
}

// logicalCores asks gopsutil for the logical CPU count, falling back to
// runtime.NumCPU() when the sample fails or reports nothing usable.
func logicalCores() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts < 1 {
		return runtime.NumCPU()
	}
	return counts
}

// loadHeadroom scales cores down when the 1-minute load average already
// exceeds the core count, so Recommend doesn't suggest piling more
// concurrent I/O onto a host that's already saturated. A failed sample is
// treated as "no extra load information" and returns cores unchanged.
func loadHeadroom(cores int) int {
	avg, err := load.Avg()
	if err != nil || avg.Load1 <= float64(cores) {
		return cores
	}

	ratio := float64(cores) / avg.Load1
	scaled := int(float64(cores) * ratio)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// chunksPerProducer picks K so that each producer's chunks land near
// targetChunkSize, with a floor of 1 (a file smaller than P*targetChunkSize
// still yields one chunk per producer; planner.go's tie-break rule takes
// it from there).
func chunksPerProducer(fileLen int64, p int) int {
	if fileLen <= 0 || p < 1 {
		return 1
	}
	perProducer := fileLen / int64(p)
	k := int(perProducer / targetChunkSize)
	if k < 1 {
		k = 1
	}
	return k
}

// buffersPerProducer keeps B comfortably below K so a producer can stay
// ahead of its consumers without allocating a buffer per chunk.
func buffersPerProducer(k int) int {
	if k <= 1 {
		return 1
	}
	b := k / 2
	if b < minBuffersPerProducer {
		b = minBuffersPerProducer
	}
	if b > k {
		b = k
	}
	return b
}
