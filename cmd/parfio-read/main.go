// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command parfio-read reads a file in parallel and prints a per-chunk
// summary plus the aggregate byte total.
//
//	parfio-read <file> <P> <C> <K> [B]
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
	if len(os.Args) < 5 {
		fmt.Fprintln(os.Stderr, "usage: parfio-read <file> <P> <C> <K> [B]")
		os.Exit(2)
	}

	path := os.Args[1]
	p := mustAtoi(os.Args[2])
	c := mustAtoi(os.Args[3])
	k := mustAtoi(os.Args[4])
	b := k
	if len(os.Args) > 5 {
		b = mustAtoi(os.Args[5])
	}

	logger := logging.NewCLILogger()

	src, err := posio.OpenLocalRead(path)
	if err != nil {
		logger.Error("opening file", "file", path, "error", err)
		os.Exit(1)
	}
	defer src.Close()

	opts := parfio.ReadOptions{Producers: p, Consumers: c, ChunksPerProducer: k, BuffersPerProducer: b}
	result, err := parfio.ReadFile(context.Background(), src, opts, nil, summarizeChunk)
	if err != nil {
		logger.Error("read failed", "error", err)
		os.Exit(1)
	}

	var total int64
	for _, r := range result.Results {
		if r.Err != nil {
			logger.Error("chunk failed", "producer", r.ProducerID, "chunk", r.ChunkID, "error", r.Err)
			continue
		}
		fmt.Printf("producer=%d chunk=%d offset=%d length=%d\n", r.ProducerID, r.ChunkID, r.Value.offset, r.Value.length)
		total += int64(r.Value.length)
	}
	fmt.Printf("total bytes read: %d\n", total)
}

type chunkSummary struct {
	offset int64
	length int
}

func summarizeChunk(data []byte, userTag any, chunkID, numChunksPerProducer int, offset int64) (chunkSummary, error) {
	return chunkSummary{offset: offset, length: len(data)}, nil
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid integer %q: %v\n", s, err)
		os.Exit(2)
	}
	return n
}
