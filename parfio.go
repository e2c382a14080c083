// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parfio is a thin public facade over internal/ioengine: a
// parallel file I/O engine built around a producer-consumer pipeline
// that recycles a fixed pool of buffers per producer instead of
// allocating one per chunk.
//
// ReadFile fans a file out across P producers, each covering K chunks,
// and routes filled buffers to C consumers through a shared queue.
// WriteToFile runs the mirror pipeline: producers fill buffers via a
// caller callback, consumers persist them to the destination.
//
// PositionalSource/PositionalSink are the seams internal/posio plugs
// into — a local file by default, or an S3 object via ranged GETs and a
// multipart upload.
package parfio

import (
	"context"

	"github.com/nishisan-dev/parfio/internal/ioengine"
)

// PositionalSource is anything ReadFile can read chunks from at
// arbitrary, possibly-concurrent offsets.
type PositionalSource = ioengine.Source

// PositionalSink is anything WriteToFile can write chunks to at
// arbitrary, possibly-concurrent offsets.
type PositionalSink = ioengine.Sink

// ReadOptions configures a ReadFile call's concurrency shape.
type ReadOptions = ioengine.ReadOptions

// WriteOptions configures a WriteToFile call's concurrency shape.
type WriteOptions = ioengine.WriteOptions

// ReadCallback processes one chunk's bytes and returns a per-chunk
// value T that ends up in the corresponding ChunkResult.
type ReadCallback[T any] = ioengine.ReadCallback[T]

// WriteCallback fills a chunk's buffer and reports how many bytes of it
// should actually be persisted.
type WriteCallback = ioengine.WriteCallback

// ChunkResult carries one chunk's callback outcome.
type ChunkResult[T any] = ioengine.ChunkResult[T]

// ReadResult aggregates every chunk's ChunkResult from one ReadFile call.
type ReadResult[T any] = ioengine.ReadResult[T]

// WriteResult reports the aggregate outcome of one WriteToFile call.
type WriteResult = ioengine.WriteResult

// SetupError, ProducerError, and ConsumerError are the error taxonomy
// ReadFile/WriteToFile return; use errors.As to distinguish them.
type SetupError = ioengine.SetupError
type ProducerError = ioengine.ProducerError
type ConsumerError = ioengine.ConsumerError

// ReadFile partitions src into opts.Producers * opts.ChunksPerProducer
// chunks, reads each one into a recycled buffer, and invokes cb on its
// bytes. See internal/ioengine.ReadFile for the full contract.
func ReadFile[T any](ctx context.Context, src PositionalSource, opts ReadOptions, userTag any, cb ReadCallback[T]) (ReadResult[T], error) {
	return ioengine.ReadFile(ctx, src, opts, userTag, cb)
}

// WriteToFile truncates dst to opts.Producers * opts.ChunksPerProducer *
// opts.BufferSize bytes, then fills and persists each chunk via cb. See
// internal/ioengine.WriteToFile for the full contract.
func WriteToFile(ctx context.Context, dst PositionalSink, opts WriteOptions, userTag any, cb WriteCallback) (WriteResult, error) {
	return ioengine.WriteToFile(ctx, dst, opts, userTag, cb)
}
