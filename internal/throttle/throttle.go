// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package throttle gates the byte rate a positional Source or Sink is
// allowed to sustain. It is a pure decorator: the core ioengine pipeline
// never knows a throttle exists, it just sees a slower Source/Sink.
package throttle

import (
	"context"

	"golang.org/x/time/rate"
)

// maxBurstSize caps how many bytes a single ReadAt/WriteAt call can
// reserve from the limiter at once, mirroring the teacher's
// ThrottledWriter (internal/agent/throttle.go), which chunks any write
// larger than the burst rather than requesting one enormous reservation.
const maxBurstSize = 256 * 1024

// Source mirrors ioengine.Source / posio.Source, declared independently
// so throttle has no dependency on either.
type Source interface {
	Size() (int64, error)
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// Sink mirrors ioengine.Sink / posio.Sink.
type Sink interface {
	Truncate(size int64) error
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}

// newLimiter builds a byte-rate token bucket with its burst capped at
// maxBurstSize. NewSource and NewSink each build their own; NewLimiter
// exposes it for callers that want one shared bucket.
func newLimiter(bytesPerSec int64) *rate.Limiter {
	burst := int(bytesPerSec)
	if burst > maxBurstSize {
		burst = maxBurstSize
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// NewLimiter exposes newLimiter's construction so one Limiter can be
// passed to both NewSourceWithLimiter and NewSinkWithLimiter, giving the
// wrapped Source and Sink a single combined byte-rate budget.
func NewLimiter(bytesPerSec int64) *rate.Limiter {
	return newLimiter(bytesPerSec)
}

// throttledSource wraps a Source and gates every ReadAt against limiter.
// It is constructed via NewSource or NewSourceWithLimiter; ctx bounds how long a call will wait for
// tokens before giving up, mirroring the pipeline's own cancellation.
type throttledSource struct {
	ctx     context.Context
	src     Source
	limiter *rate.Limiter
}

// NewSource wraps src with limiter. If bytesPerSec <= 0, src is returned
// unwrapped (the teacher's NewThrottledWriter bypass-on-zero behavior).
func NewSource(ctx context.Context, src Source, bytesPerSec int64) Source {
	if bytesPerSec <= 0 {
		return src
	}
	return &throttledSource{ctx: ctx, src: src, limiter: newLimiter(bytesPerSec)}
}

// NewSourceWithLimiter wraps src with a caller-supplied limiter, letting
// several sources/sinks share one rate budget.
func NewSourceWithLimiter(ctx context.Context, src Source, limiter *rate.Limiter) Source {
	if limiter == nil {
		return src
	}
	return &throttledSource{ctx: ctx, src: src, limiter: limiter}
}

func (t *throttledSource) Size() (int64, error) { return t.src.Size() }
func (t *throttledSource) Close() error         { return t.src.Close() }

// ReadAt waits for enough tokens before issuing the underlying read, in
// burst-sized slices so a single oversize chunk cannot starve the bucket
// for every other concurrent caller.
func (t *throttledSource) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		chunk := len(p) - total
		if chunk > t.limiter.Burst() {
			chunk = t.limiter.Burst()
		}
		if err := t.limiter.WaitN(t.ctx, chunk); err != nil {
			return total, err
		}
		n, err := t.src.ReadAt(p[total:total+chunk], off+int64(total))
		total += n
		if err != nil {
			return total, err
		}
		if n < chunk {
			break
		}
	}
	return total, nil
}

type throttledSink struct {
	ctx     context.Context
	sink    Sink
	limiter *rate.Limiter
}

// NewSink wraps sink with limiter. If bytesPerSec <= 0, sink is returned
// unwrapped.
func NewSink(ctx context.Context, sink Sink, bytesPerSec int64) Sink {
	if bytesPerSec <= 0 {
		return sink
	}
	return &throttledSink{ctx: ctx, sink: sink, limiter: newLimiter(bytesPerSec)}
}

// NewSinkWithLimiter wraps sink with a caller-supplied limiter.
func NewSinkWithLimiter(ctx context.Context, sink Sink, limiter *rate.Limiter) Sink {
	if limiter == nil {
		return sink
	}
	return &throttledSink{ctx: ctx, sink: sink, limiter: limiter}
}

func (t *throttledSink) Truncate(size int64) error { return t.sink.Truncate(size) }
func (t *throttledSink) Close() error              { return t.sink.Close() }

func (t *throttledSink) WriteAt(p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		chunk := len(p) - total
		if chunk > t.limiter.Burst() {
			chunk = t.limiter.Burst()
		}
		if err := t.limiter.WaitN(t.ctx, chunk); err != nil {
			return total, err
		}
		n, err := t.sink.WriteAt(p[total:total+chunk], off+int64(total))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
