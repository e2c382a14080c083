// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioengine

// plan partitions [0, fileLen) into P groups of K chunks each. The base
// chunk size is b = fileLen / (P*K); the very last chunk (producer P-1,
// chunk K-1) absorbs the remainder so that the sum of all chunk sizes is
// always exactly fileLen (spec.md §3, "partition exactness").
//
// maxChunkSize is also returned: the largest chunk in the whole plan.
// ReadFile does not use it; readProducer sizes each producer's buffers
// from that producer's own chunks via the maxChunkSize helper in
// buffer.go.
func plan(fileLen int64, p, k int) (chunks [][]Chunk, maxChunkSize int) {
	total := p * k
	base := fileLen / int64(total)
	remainder := fileLen - base*int64(total)

	chunks = make([][]Chunk, p)
	offset := int64(0)
	for producer := 0; producer < p; producer++ {
		row := make([]Chunk, k)
		for chunkID := 0; chunkID < k; chunkID++ {
			size := base
			isLast := producer == p-1 && chunkID == k-1
			if isLast {
				size += remainder
			}
			row[chunkID] = Chunk{
				ProducerID: producer,
				ChunkID:    chunkID,
				Offset:     offset,
				Size:       int(size),
			}
			if int(size) > maxChunkSize {
				maxChunkSize = int(size)
			}
			offset += size
		}
		chunks[producer] = row
	}
	return chunks, maxChunkSize
}
