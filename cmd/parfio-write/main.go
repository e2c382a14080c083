// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command parfio-write fills a file in parallel with a deterministic
// test pattern and reports the total bytes written.
//
//	parfio-write <file> <bufferSize> <P> <C> <K> [B]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/nishisan-dev/parfio"
	"github.com/nishisan-dev/parfio/internal/logging"
	"github.com/nishisan-dev/parfio/internal/posio"
)

func main() {
	if len(os.Args) < 6 {
		fmt.Fprintln(os.Stderr, "usage: parfio-write <file> <bufferSize> <P> <C> <K> [B]")
		os.Exit(2)
	}

	path := os.Args[1]
	bufferSize := mustAtoi(os.Args[2])
	p := mustAtoi(os.Args[3])
	c := mustAtoi(os.Args[4])
	k := mustAtoi(os.Args[5])
	b := k
	if len(os.Args) > 6 {
		b = mustAtoi(os.Args[6])
	}

	logger := logging.NewCLILogger()

	dst, err := posio.CreateLocalWrite(path)
	if err != nil {
		logger.Error("opening file", "file", path, "error", err)
		os.Exit(1)
	}
	defer dst.Close()

	opts := parfio.WriteOptions{Producers: p, Consumers: c, ChunksPerProducer: k, BuffersPerProducer: b, BufferSize: bufferSize}
	result, err := parfio.WriteToFile(context.Background(), dst, opts, nil, fillPattern)
	if err != nil {
		logger.Error("write failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("total bytes written: %d\n", result.BytesWritten)
}

// fillPattern fills the whole buffer with one byte value derived from
// the chunk's offset (offset / len(buf), modulo 256), so every chunk's
// contents are predictable from its position in the file.
func fillPattern(buf []byte, userTag any, offset int64) (int, error) {
	value := byte((offset / int64(len(buf))) % 256)
	for i := range buf {
		buf[i] = value
	}
	return len(buf), nil
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid integer %q: %v\n", s, err)
		os.Exit(2)
	}
	return n
}
