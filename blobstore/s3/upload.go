package s3

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/annex/blobstore"
)

// UploadConfig tunes multipart uploads.
type UploadConfig struct {
	// PartSize is the size of each uploaded part. Default: 8MB.
	PartSize int64
	// Concurrency is the number of parts uploaded in parallel. Default: 5.
	Concurrency int
	// EnableChecksum asks S3 to validate every part with CRC32C.
	EnableChecksum bool
	// LeavePartsOnError keeps the parts of a failed upload instead of
	// aborting it.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the settings NewStore uses.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// writableBlob pipes writes into an upload running in the background. The
// object appears only once Close has returned nil. Abort fails the upload,
// which makes the uploader abort the multipart upload.
type writableBlob struct {
	pw   *io.PipeWriter
	done chan error

	mu       sync.Mutex
	finished bool
	err      error
}

func newWritableBlob(ctx context.Context, uploader *manager.Uploader, bucket, key string, checksum bool) *writableBlob {
	pr, pw := io.Pipe()
	b := &writableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	}
	if checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := uploader.Upload(ctx, input)
		_ = pr.CloseWithError(err)
		b.done <- err
	}()
	return b
}

func (b *writableBlob) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

// Sync is a no-op: data is committed on Close.
func (b *writableBlob) Sync() error {
	return nil
}

func (b *writableBlob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return b.err
	}
	b.finished = true
	_ = b.pw.Close()
	b.err = <-b.done
	return b.err
}

func (b *writableBlob) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return nil
	}
	b.finished = true
	b.err = blobstore.ErrAborted
	_ = b.pw.CloseWithError(blobstore.ErrAborted)
	<-b.done
	return nil
}
