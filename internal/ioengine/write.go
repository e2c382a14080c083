// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioengine

import (
	"context"
	"errors"
	"sync"
)

// WriteToFile partitions dst into P*K uniformly-sized chunks of
// BufferSize bytes, invokes cb once per chunk on P producer goroutines to
// fill a buffer, and hands each filled buffer to one of C consumer
// goroutines to persist via dst.WriteAt. Both producer- and consumer-side
// failures are fatal: the first one observed is returned and every other
// worker joins after draining what it can.
func WriteToFile(ctx context.Context, dst Sink, opts WriteOptions, userTag any, cb WriteCallback) (WriteResult, error) {
	p, c, k, b := opts.Producers, opts.Consumers, opts.ChunksPerProducer, opts.BuffersPerProducer
	if err := validateCounts(p, c, k, b); err != nil {
		return WriteResult{}, err
	}
	if opts.BufferSize <= 0 {
		return WriteResult{}, &SetupError{Op: "validate", Err: errors.New("buffer_size must be > 0")}
	}

	fileLen := int64(p) * int64(k) * int64(opts.BufferSize)
	if err := dst.Truncate(fileLen); err != nil {
		return WriteResult{}, &SetupError{Op: "truncate", Err: err}
	}

	chunksByProducer := planUniform(p, k, opts.BufferSize)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := newFirstError()
	workCh := make(chan workItem, c)

	var producers sync.WaitGroup
	for _, chunks := range chunksByProducer {
		producers.Add(1)
		go func(chunks []Chunk) {
			defer producers.Done()
			writeProducer(runCtx, chunks, b, opts.BufferSize, userTag, cb, workCh, errs, cancel)
		}(chunks)
	}
	go func() {
		producers.Wait()
		close(workCh)
	}()

	totalsCh := make(chan int64, c)
	var consumers sync.WaitGroup
	for i := 0; i < c; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			totalsCh <- writeConsumer(runCtx, dst, workCh, errs, cancel)
		}()
	}
	go func() {
		consumers.Wait()
		close(totalsCh)
	}()

	var total int64
	for n := range totalsCh {
		total += n
	}

	if err := errs.get(); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{BytesWritten: total}, nil
}

// planUniform lays out P*K chunks of exactly chunkSize bytes each,
// sequentially: producer p, chunk k starts at (p*K+k)*chunkSize. Unlike
// read mode's plan(), there is no remainder to absorb -- the destination
// was pre-truncated to exactly P*K*chunkSize bytes.
func planUniform(p, k, chunkSize int) [][]Chunk {
	chunks := make([][]Chunk, p)
	for producer := 0; producer < p; producer++ {
		row := make([]Chunk, k)
		for chunkID := 0; chunkID < k; chunkID++ {
			offset := int64(producer*k+chunkID) * int64(chunkSize)
			row[chunkID] = Chunk{
				ProducerID: producer,
				ChunkID:    chunkID,
				Offset:     offset,
				Size:       chunkSize,
			}
		}
		chunks[producer] = row
	}
	return chunks
}

// writeProducer owns B buffers of capacity bufferSize. For each assigned
// chunk it fills a buffer via cb and dispatches it; a callback failure is
// broadcast to every consumer and aborts the run.
func writeProducer(ctx context.Context, chunks []Chunk, b, bufferSize int, userTag any, cb WriteCallback, workCh chan<- workItem, errs *firstError, abort func()) {
	pool := newBufferPool(b, bufferSize)

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

		n, err := cb(buf.data, userTag, chunk.Offset)
		if err != nil {
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

// writeConsumer persists buffers to dst until the shared queue closes or
// the run is aborted, returning the total bytes it personally wrote.
func writeConsumer(ctx context.Context, dst Sink, workCh <-chan workItem, errs *firstError, abort func()) int64 {
	var total int64
	for {
		select {
		case item, ok := <-workCh:
			if !ok {
				return total
			}
			if _, err := dst.WriteAt(item.buf.data[:item.buf.n], item.chunk.Offset); err != nil {
				errs.report(&ConsumerError{Message: err.Error()})
				abort()
				return total
			}
			total += int64(item.buf.n)
			select {
			case item.returnTo <- item.buf:
			case <-ctx.Done():
			}
		case <-ctx.Done():
			return total
		}
	}
}
