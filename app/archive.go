package app

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/advdv/broute/multipart"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrArchiveDisabled is returned by the archiver when no bucket is configured.
var ErrArchiveDisabled = errors.New("archiving is disabled, set BR_ARCHIVE_BUCKET")

// Archiver copies a part of a decoded multipart form to durable storage and returns the key it was stored
// under. Handlers typically archive parts of a retained form before clearing it.
type Archiver interface {
	Archive(ctx context.Context, form *multipart.Form, part *multipart.Part) (string, error)
}

// S3API is the subset of the S3 client used for archiving.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads parts to an S3 bucket.
type S3Archiver struct {
	client S3API
	bucket string
	logs   *zap.Logger
}

// NewS3Archiver inits an archiver for bucket.
func NewS3Archiver(client S3API, bucket string, logs *zap.Logger) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, logs: logs}
}

// Archive implements [Archiver]. Keys have the form "<uuid>/<file name or field name>".
func (a *S3Archiver) Archive(ctx context.Context, form *multipart.Form, part *multipart.Part) (string, error) {
	if part == nil {
		return "", errors.New("no part to archive")
	}

	file, err := os.Open(form.SpoolPath)
	if err != nil {
		return "", errors.Wrap(err, "open spool file")
	}
	defer file.Close()

	name := part.FileName
	if name == "" {
		name = part.Name
	}

	key := path.Join(uuid.NewString(), path.Base(name))
	contentType := part.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var body io.ReadSeeker = io.NewSectionReader(file, part.Offset, part.Length)
	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(part.Length),
		ContentType:   aws.String(contentType),
	}); err != nil {
		return "", errors.Wrapf(err, "put object %q", key)
	}

	a.logs.Info("archived multipart part",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.String("field", part.Name),
		zap.Int64("size", part.Length))

	return key, nil
}

type disabledArchiver struct{}

func (disabledArchiver) Archive(context.Context, *multipart.Form, *multipart.Part) (string, error) {
	return "", ErrArchiveDisabled
}

// NewArchiver returns an S3 archiver for BR_ARCHIVE_BUCKET, or one that always fails with
// [ErrArchiveDisabled] when the bucket is not set.
func NewArchiver(env Environment, cfg aws.Config, logs *zap.Logger) Archiver {
	if env.archiveBucket() == "" {
		return disabledArchiver{}
	}

	return NewS3Archiver(s3.NewFromConfig(cfg), env.archiveBucket(), logs.Named("archive"))
}
