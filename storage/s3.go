package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jathurchan/davlock/etag"
	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/types"
)

// S3Source reads entity tags from object metadata in an S3 bucket. The
// server-relative path /a/b maps to the key prefix + "a/b".
type S3Source struct {
	client s3.HeadObjectAPIClient
	bucket string
	prefix string
}

// NewS3Source returns a source reading objects of bucket under prefix.
func NewS3Source(client s3.HeadObjectAPIClient, bucket, prefix string) (*S3Source, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil S3 client", ErrInvalidConfig)
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: empty S3 bucket", ErrInvalidConfig)
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Source{client: client, bucket: bucket, prefix: prefix}, nil
}

// Key returns the object key for path.
func (s *S3Source) Key(path string) string {
	return s.prefix + strings.TrimPrefix(types.CleanPath(path), "/")
}

// EntityTag implements EntityTagSource.
func (s *S3Source) EntityTag(ctx context.Context, path string) (etag.EntityTag, bool, error) {
	if err := ctx.Err(); err != nil {
		return etag.EntityTag{}, false, err
	}

	key := s.Key(path)
	if key == "" || strings.HasSuffix(key, "/") {
		return etag.EntityTag{}, false, nil
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return etag.EntityTag{}, false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return etag.EntityTag{}, false, ctxErr
		}
		return etag.EntityTag{}, false, fmt.Errorf("%w: head s3://%s/%s: %w", ErrSourceUnavailable, s.bucket, key, err)
	}

	raw := aws.ToString(out.ETag)
	if raw == "" {
		return etag.EntityTag{}, false, fmt.Errorf("%w: s3://%s/%s has no ETag", ErrSourceUnavailable, s.bucket, key)
	}
	tag, err := header.ParseEntityTag(raw)
	if err != nil {
		// Some S3-compatible stores return the tag unquoted.
		return etag.New(strings.Trim(raw, `"`)), true, nil
	}
	return tag, true, nil
}

func isS3NotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
