// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioengine

import (
	"fmt"
	"sync"
)

// SetupError wraps a failure that happens before the pipeline starts
// running: statting the source (or finding it empty), truncating the
// sink, or validating the caller's P/C/K/B and BufferSize parameters.
// Opening the file is the caller's job and is not wrapped here.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("parfio: setup: %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ProducerError carries a fatal failure raised on the producer side: a
// failed positional read (read mode) or a failed fill callback (write
// mode). It is always fatal and aborts the whole operation.
type ProducerError struct {
	Message string
	Offset  int64
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("parfio: producer error at offset %d: %s", e.Offset, e.Message)
}

// ConsumerError carries a fatal failure raised on the consumer side: a
// failed positional write (write mode). In read mode, consumer-callback
// failures are not fatal and never become a ConsumerError — they travel
// back inside the per-chunk result instead (see ReadResult).
type ConsumerError struct {
	Message string
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("parfio: consumer error: %s", e.Message)
}

// firstError keeps the first error reported by any worker and discards
// the rest, per spec.md §7's propagation policy ("the first observed
// error is reported; subsequent errors are discarded"). A ProducerError
// takes precedence over an already-recorded ConsumerError when both
// arrive, since §4.7 ranks producer errors first.
type firstError struct {
	mu  sync.Mutex
	err error
}

func newFirstError() *firstError {
	return &firstError{}
}

func (f *firstError) report(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err == nil {
		f.err = err
		return
	}
	if _, isProducerErr := err.(*ProducerError); isProducerErr {
		if _, wasProducerErr := f.err.(*ProducerError); !wasProducerErr {
			f.err = err
		}
	}
}

// get returns the recorded error, or nil if none was reported.
func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
