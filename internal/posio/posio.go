// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package posio provides the positional I/O backends that plug into the
// parfio pipeline: a local file (spec.md's "read_at"/"write_at" syscall
// layer taken literally) and an S3 object accessed through ranged GETs
// and a multipart upload.
package posio

// Source mirrors ioengine.Source; it is declared independently so posio
// has no dependency on the engine package. The method sets match, so
// callers (the cmd/ drivers) pass posio values straight to
// parfio.ReadFile/WriteToFile.
type Source interface {
	Size() (int64, error)
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// Sink mirrors ioengine.Sink.
type Sink interface {
	Truncate(size int64) error
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}
