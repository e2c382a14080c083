// Copyright (c) 2026 The Parfio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package posio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 is a hand-rolled stand-in for *s3.Client, in the style of the
// teacher's mockConn (internal/agent/dispatcher_test.go) -- no real
// network call, no SDK-specific test double library.
type fakeS3 struct {
	object     []byte
	uploadID   string
	parts      map[int32][]byte
	aborted    bool
	failUpload bool
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(f.object)))}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	start, end, err := parseTestRange(aws.ToString(in.Range), int64(len(f.object)))
	if err != nil {
		return nil, err
	}
	body := io.NopCloser(bytes.NewReader(f.object[start:end]))
	return &s3.GetObjectOutput{Body: body, ContentLength: aws.Int64(end - start)}, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.uploadID = "fake-upload-1"
	f.parts = make(map[int32][]byte)
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(f.uploadID)}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if f.failUpload {
		return nil, errors.New("simulated upload failure")
	}
	buf, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.parts[aws.ToInt32(in.PartNumber)] = buf
	return &s3.UploadPartOutput{ETag: aws.String("etag-" + string(rune('a'+aws.ToInt32(in.PartNumber))))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	total := 0
	for i := int32(1); i <= int32(len(f.parts)); i++ {
		total += len(f.parts[i])
	}
	assembled := make([]byte, 0, total)
	for i := int32(1); i <= int32(len(f.parts)); i++ {
		assembled = append(assembled, f.parts[i]...)
	}
	f.object = assembled
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.aborted = true
	return &s3.AbortMultipartUploadOutput{}, nil
}

// parseTestRange parses a "bytes=START-END" header into a [start, end)
// slice bound, clamped to size.
func parseTestRange(header string, size int64) (int64, int64, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, errors.New("malformed range header: " + header)
	}
	parts := strings.SplitN(header[len(prefix):], "-", 2)
	if len(parts) != 2 {
		return 0, 0, errors.New("malformed range header: " + header)
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if end+1 > size {
		end = size - 1
	}
	return start, end + 1, nil
}

func TestS3Source_ReadAtUsesRangeHeader(t *testing.T) {
	fake := &fakeS3{object: []byte("0123456789abcdef")}
	src := &S3Source{ctx: context.Background(), client: fake, bucket: "b", key: "k"}

	size, err := src.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 16 {
		t.Fatalf("expected size 16, got %d", size)
	}

	buf := make([]byte, 4)
	n, err := src.ReadAt(buf, 10)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 4 || string(buf) != "abcd" {
		t.Errorf("expected %q, got %q", "abcd", buf)
	}
}

func TestS3MultipartSink_WriteThenComplete(t *testing.T) {
	defer overrideMinPartSize(1)()
	fake := &fakeS3{}
	sink := &S3MultipartSink{ctx: context.Background(), client: fake, bucket: "b", key: "k", partSize: 4}

	if err := sink.Truncate(8); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if _, err := sink.WriteAt([]byte("beef"), 4); err != nil {
		t.Fatalf("WriteAt part 2: %v", err)
	}
	if _, err := sink.WriteAt([]byte("dead"), 0); err != nil {
		t.Fatalf("WriteAt part 1: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if string(fake.object) != "deadbeef" {
		t.Errorf("expected assembled object %q, got %q", "deadbeef", fake.object)
	}
}

func TestS3MultipartSink_MisalignedOffsetRejected(t *testing.T) {
	defer overrideMinPartSize(1)()
	fake := &fakeS3{}
	sink := &S3MultipartSink{ctx: context.Background(), client: fake, bucket: "b", key: "k", partSize: 4}
	if err := sink.Truncate(8); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if _, err := sink.WriteAt([]byte("xx"), 1); err == nil {
		t.Fatal("expected an error for a misaligned offset")
	}
}

func TestS3MultipartSink_AbortsWhenNoPartsUploaded(t *testing.T) {
	defer overrideMinPartSize(1)()
	fake := &fakeS3{}
	sink := &S3MultipartSink{ctx: context.Background(), client: fake, bucket: "b", key: "k", partSize: 4}
	if err := sink.Truncate(8); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fake.aborted {
		t.Error("expected the multipart upload to be aborted when no parts were written")
	}
}

func TestS3MultipartSink_UploadFailurePropagates(t *testing.T) {
	defer overrideMinPartSize(1)()
	fake := &fakeS3{failUpload: true}
	sink := &S3MultipartSink{ctx: context.Background(), client: fake, bucket: "b", key: "k", partSize: 4}
	if err := sink.Truncate(8); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if _, err := sink.WriteAt([]byte("dead"), 0); err == nil {
		t.Fatal("expected WriteAt to propagate the simulated upload failure")
	}
}

func TestS3MultipartSink_RejectsUndersizedPartsForMultiPartUpload(t *testing.T) {
	fake := &fakeS3{}
	sink := &S3MultipartSink{ctx: context.Background(), client: fake, bucket: "b", key: "k", partSize: 4}
	if err := sink.Truncate(8); err == nil {
		t.Fatal("expected Truncate to reject a multi-part upload with parts under the S3 minimum")
	}
}

func TestS3MultipartSink_SinglePartBelowMinimumAllowed(t *testing.T) {
	fake := &fakeS3{}
	sink := &S3MultipartSink{ctx: context.Background(), client: fake, bucket: "b", key: "k", partSize: 4}
	if err := sink.Truncate(4); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
}

// overrideMinPartSize lowers the package's S3 minimum part size for the
// duration of a test and returns a function that restores it.
func overrideMinPartSize(n int64) func() {
	prev := minPartSize
	minPartSize = n
	return func() { minPartSize = prev }
}
