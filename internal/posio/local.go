// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package posio

import "os"

// LocalFile wraps an *os.File as a Source/Sink. ReadAt/WriteAt map
// directly onto pread(2)/pwrite(2) on Unix via the Go runtime -- no file
// cursor is touched, so concurrent callers with non-overlapping ranges
// need no locking (spec.md §5).
type LocalFile struct {
	f *os.File
}

// OpenLocalRead opens path for positional reads.
func OpenLocalRead(path string) (*LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &LocalFile{f: f}, nil
}

// CreateLocalWrite opens path for positional writes, creating it if it
// does not exist; an existing file is opened as is, not truncated.
// The caller still must call Truncate to the pipeline's computed final
// size before writing -- Create here only establishes the file handle.
func CreateLocalWrite(path string) (*LocalFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &LocalFile{f: f}, nil
}

func (l *LocalFile) Size() (int64, error) {
	info, err := l.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *LocalFile) ReadAt(p []byte, off int64) (int, error) {
	return l.f.ReadAt(p, off)
}

func (l *LocalFile) Truncate(size int64) error {
	return l.f.Truncate(size)
}

func (l *LocalFile) WriteAt(p []byte, off int64) (int, error) {
	return l.f.WriteAt(p, off)
}

func (l *LocalFile) Close() error {
	return l.f.Close()
}
