package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used to read mirrored archives.
// The [s3.Client] type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS credential chain
// (environment, shared config, instance role).
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// fetchS3 streams s3://bucket/key into destPath.
func (d *Downloader) fetchS3(ctx context.Context, u *url.URL, destPath string) (int64, error) {
	rawURL := u.String()
	if d.s3 == nil {
		return 0, &TransportError{URL: rawURL, Err: fmt.Errorf("%w: no S3 client configured", ErrInvalidURL)}
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return 0, &TransportError{URL: rawURL, Err: fmt.Errorf("%w: s3 URL must be s3://bucket/key", ErrInvalidURL)}
	}

	hopCtx, cancel := context.WithTimeout(ctx, d.hopTimeout)
	defer cancel()

	out, err := d.s3.GetObject(hopCtx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, &TransportError{URL: rawURL, Status: http.StatusNotFound, Err: err}
		}
		return 0, &TransportError{URL: rawURL, Err: err}
	}
	defer out.Body.Close()

	total := int64(-1)
	if out.ContentLength != nil {
		total = aws.ToInt64(out.ContentLength)
	}
	return d.writeBody(&Session{SourceURL: rawURL, DestPath: destPath, Expected: total}, out.Body)
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
