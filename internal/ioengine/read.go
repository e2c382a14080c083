// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioengine

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ReadFile partitions src into P*K chunks, reads them with P producer
// goroutines, and hands each filled buffer to one of C consumer
// goroutines for processing via cb. It returns one ChunkResult per chunk,
// in producer-interleaved order (spec.md §4.7 -- callers that need file
// order must sort by (producer_id, chunk_id) or by Offset themselves).
//
// A producer-side read failure aborts the whole operation and is
// returned as err; cb failures are not fatal and travel back inside the
// corresponding ChunkResult instead.
func ReadFile[T any](ctx context.Context, src Source, opts ReadOptions, userTag any, cb ReadCallback[T]) (ReadResult[T], error) {
	p, c, k, b := opts.Producers, opts.Consumers, opts.ChunksPerProducer, opts.BuffersPerProducer
	if err := validateCounts(p, c, k, b); err != nil {
		return ReadResult[T]{}, err
	}

	fileLen, err := src.Size()
	if err != nil {
		return ReadResult[T]{}, &SetupError{Op: "stat", Err: err}
	}
	if fileLen <= 0 {
		return ReadResult[T]{}, &SetupError{Op: "stat", Err: errors.New("file is empty")}
	}

	chunksByProducer, _ := plan(fileLen, p, k)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := newFirstError()
	workCh := make(chan workItem, c)

	var producers sync.WaitGroup
	for _, chunks := range chunksByProducer {
		producers.Add(1)
		go func(chunks []Chunk) {
			defer producers.Done()
			readProducer(runCtx, src, chunks, b, workCh, errs, cancel)
		}(chunks)
	}
	go func() {
		producers.Wait()
		close(workCh)
	}()

	type consumerOut struct {
		results []ChunkResult[T]
	}
	outCh := make(chan consumerOut, c)
	var consumers sync.WaitGroup
	for i := 0; i < c; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			outCh <- consumerOut{results: readConsumer(runCtx, workCh, userTag, cb)}
		}()
	}
	go func() {
		consumers.Wait()
		close(outCh)
	}()

	var all []ChunkResult[T]
	for out := range outCh {
		all = append(all, out.results...)
	}

	if err := errs.get(); err != nil {
		return ReadResult[T]{}, err
	}
	return ReadResult[T]{Results: all}, nil
}

// readProducer owns B buffers and reads its assigned chunks in order,
// one positional read per chunk, handing each filled buffer to the
// shared consumer queue.
func readProducer(ctx context.Context, src Source, chunks []Chunk, b int, workCh chan<- workItem, errs *firstError, abort func()) {
	pool := newBufferPool(b, maxChunkSize(chunks))

	for _, chunk := range chunks {
		buf, err := pool.acquire(ctx)
		if err != nil {
			// Either another worker's failure already triggered abort(), or
			// the caller's own ctx was cancelled directly -- only the
			// latter has nothing recorded yet, so report it without
			// clobbering a real failure that got here first.
			if errs.get() == nil {
				errs.report(contextDoneErr(ctx))
			}
			return
		}

		n, err := src.ReadAt(buf.data[:chunk.Size], chunk.Offset)
		if err != nil && !(errors.Is(err, io.EOF) && n == chunk.Size) {
			errs.report(&ProducerError{Message: err.Error(), Offset: chunk.Offset})
			abort()
			return
		}
		buf.n = n

		item := workItem{chunk: chunk, buf: buf, numChunksPerProducer: len(chunks), returnTo: pool.free}
		select {
		case workCh <- item:
		case <-ctx.Done():
			if errs.get() == nil {
				errs.report(contextDoneErr(ctx))
			}
			return
		}
	}

	pool.drain(ctx, b)
	if ctx.Err() != nil && errs.get() == nil {
		errs.report(contextDoneErr(ctx))
	}
}

// readConsumer repeatedly pulls a filled buffer off the shared queue,
// invokes cb, records the outcome locally, and returns the buffer to its
// originating producer.
func readConsumer[T any](ctx context.Context, workCh <-chan workItem, userTag any, cb ReadCallback[T]) []ChunkResult[T] {
	var local []ChunkResult[T]
	for {
		select {
		case item, ok := <-workCh:
			if !ok {
				return local
			}
			value, err := cb(item.buf.data[:item.buf.n], userTag, item.chunk.ChunkID, item.numChunksPerProducer, item.chunk.Offset)
			local = append(local, ChunkResult[T]{
				ChunkID:    item.chunk.ChunkID,
				ProducerID: item.chunk.ProducerID,
				Value:      value,
				Err:        err,
			})
			item.returnTo <- item.buf
		case <-ctx.Done():
			return local
		}
	}
}
