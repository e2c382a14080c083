// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package posio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of *s3.Client that S3Source/S3MultipartSink depend
// on, narrowed so a fake can stand in for tests without reaching the
// network (the teacher repo has no S3 code of its own to ground a test
// fixture on -- this interface plays the role its hand-rolled mockConn
// fakes play for net.Conn in internal/agent/dispatcher_test.go).
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3Source reads a range of an S3 object per call, the ranged-GET
// equivalent of pread(2). Each ReadAt issues its own GetObject with a
// Range header, so concurrent producers never share a connection or a
// read cursor -- the same non-overlapping-range independence LocalFile
// gets for free from the OS.
type S3Source struct {
	ctx    context.Context
	client s3API
	bucket string
	key    string
}

// NewS3Source opens bucket/key for positional ranged reads using client.
func NewS3Source(ctx context.Context, client *s3.Client, bucket, key string) *S3Source {
	return &S3Source{ctx: ctx, client: client, bucket: bucket, key: key}
}

func (s *S3Source) Size() (int64, error) {
	out, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return 0, fmt.Errorf("head %s/%s: %w", s.bucket, s.key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// ReadAt fetches len(p) bytes starting at off via a byte-range GET.
// S3 returns fewer bytes than requested only at end-of-object, which
// ioengine's producers already treat like a short local read.
func (s *S3Source) ReadAt(p []byte, off int64) (int, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return 0, fmt.Errorf("get %s/%s %s: %w", s.bucket, s.key, rangeHeader, err)
	}
	defer out.Body.Close()

	total := 0
	for total < len(p) {
		n, readErr := out.Body.Read(p[total:])
		total += n
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return total, readErr
		}
	}
	return total, nil
}

func (s *S3Source) Close() error { return nil }

// S3MultipartSink is a Sink backed by an S3 multipart upload. Parfio's
// write mode dispatches fixed-size chunks to a bounded set of buffers, a
// shape that lines up with S3's own part model; each WriteAt becomes one
// UploadPart. Parts must be uploaded in chunk-size-aligned, non-overlapping
// ranges with part numbers assigned by offset, which write mode already
// guarantees (spec.md §4.3 truncates write targets to exactly P*K*BufferSize
// up front, so offsets never straddle a part boundary).
type S3MultipartSink struct {
	ctx      context.Context
	client   s3API
	bucket   string
	key      string
	partSize int64
	uploadID string
	mu       sync.Mutex
	parts    []s3PartRecord
}

// minPartSize is S3's floor for every part except the last one in a
// multipart upload. Parfio's write mode makes every part the same size
// (BufferSize), so a partSize below this floor would only work for a
// single-part upload. A var, not a const, so tests can shrink it rather
// than construct megabyte-sized fixtures.
var minPartSize int64 = 5 * 1024 * 1024

type s3PartRecord struct {
	partNumber int32
	etag       string
}

// NewS3MultipartSink prepares (but does not yet start) a multipart upload
// of bucket/key. partSize must equal the pipeline's WriteOptions.BufferSize
// so each chunk maps to exactly one part.
func NewS3MultipartSink(ctx context.Context, client *s3.Client, bucket, key string, partSize int64) *S3MultipartSink {
	return &S3MultipartSink{ctx: ctx, client: client, bucket: bucket, key: key, partSize: partSize}
}

// Truncate starts the multipart upload. S3 has no notion of pre-sizing an
// object, so this only validates that size is a whole number of parts and
// records the upload ID every subsequent UploadPart call needs.
func (s *S3MultipartSink) Truncate(size int64) error {
	if s.partSize <= 0 || size%s.partSize != 0 {
		return fmt.Errorf("size %d is not a multiple of part size %d", size, s.partSize)
	}
	numParts := size / s.partSize
	if numParts > 1 && s.partSize < minPartSize {
		return fmt.Errorf("part size %d is below S3's %d byte minimum for a %d-part upload", s.partSize, minPartSize, numParts)
	}
	out, err := s.client.CreateMultipartUpload(s.ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("create multipart upload for %s/%s: %w", s.bucket, s.key, err)
	}
	s.uploadID = aws.ToString(out.UploadId)
	return nil
}

// WriteAt uploads p as the part covering offset off. off must be a
// multiple of partSize, which write mode's chunk layout guarantees.
func (s *S3MultipartSink) WriteAt(p []byte, off int64) (int, error) {
	if off%s.partSize != 0 {
		return 0, fmt.Errorf("offset %d is not aligned to part size %d", off, s.partSize)
	}
	partNumber := int32(off/s.partSize) + 1

	out, err := s.client.UploadPart(s.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key),
		UploadId:   aws.String(s.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       &byteReader{data: p},
	})
	if err != nil {
		return 0, fmt.Errorf("upload part %d of %s/%s: %w", partNumber, s.bucket, s.key, err)
	}

	s.mu.Lock()
	s.parts = append(s.parts, s3PartRecord{partNumber: partNumber, etag: aws.ToString(out.ETag)})
	s.mu.Unlock()

	return len(p), nil
}

// Close completes the multipart upload, assembling parts in part-number
// order as S3 requires. If no parts were ever uploaded -- the whole
// operation aborted before any chunk reached the sink -- the upload is
// aborted instead of completed with zero parts, which S3 rejects anyway.
func (s *S3MultipartSink) Close() error {
	s.mu.Lock()
	parts := append([]s3PartRecord(nil), s.parts...)
	s.mu.Unlock()

	if len(parts) == 0 {
		_, err := s.client.AbortMultipartUpload(s.ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(s.key),
			UploadId: aws.String(s.uploadID),
		})
		return err
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].partNumber < parts[j].partNumber })
	completed := make([]s3.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = s3.CompletedPart{ETag: aws.String(p.etag), PartNumber: aws.Int32(p.partNumber)}
	}

	_, err := s.client.CompleteMultipartUpload(s.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: aws.String(s.uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return fmt.Errorf("complete multipart upload for %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// byteReader adapts a []byte to io.ReadSeeker, which the SDK needs to
// retry a part upload and to compute its content length.
type byteReader struct {
	data []byte
	pos  int64
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *byteReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case 0:
		abs = offset
	case 1:
		abs = r.pos + offset
	case 2:
		abs = int64(len(r.data)) + offset
	default:
		return 0, fmt.Errorf("byteReader: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("byteReader: negative position")
	}
	r.pos = abs
	return abs, nil
}
