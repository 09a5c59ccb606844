package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of *s3.Client used by the S3 transport.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads s3://bucket/key URLs, used for dataset mirrors.
type S3 struct {
	client ObjectGetter
}

// NewS3 wraps an existing client.
func NewS3(client ObjectGetter) *S3 {
	return &S3{client: client}
}

// NewS3FromConfig builds a client from the default AWS credential chain.
// A non-empty endpoint switches to path-style addressing for MinIO and
// other S3-compatible stores.
func NewS3FromConfig(ctx context.Context, region, endpoint string) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("fetch: load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3(s3.NewFromConfig(awsCfg, opts...)), nil
}

// Open fetches the object named by rawURL.
func (s *S3) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: s3 get %s/%s: %w", bucket, key, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("fetch: parse url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("fetch: not an s3 url: %s", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("fetch: s3 url needs bucket and key: %s", rawURL)
	}
	return u.Host, key, nil
}

// lazyS3 defers building the AWS client until an s3:// URL is first opened,
// so plain HTTP downloads never touch the AWS credential chain. A failed
// build is not cached; the next Open tries again.
type lazyS3 struct {
	region, endpoint string
	build            func(ctx context.Context, region, endpoint string) (*S3, error)

	mu sync.Mutex
	s3 *S3
}

func (l *lazyS3) client(ctx context.Context) (*S3, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.s3 != nil {
		return l.s3, nil
	}
	build := l.build
	if build == nil {
		build = NewS3FromConfig
	}
	// The client outlives this call, so it must not inherit its cancellation.
	s, err := build(context.WithoutCancel(ctx), l.region, l.endpoint)
	if err != nil {
		return nil, err
	}
	l.s3 = s
	return s, nil
}

func (l *lazyS3) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	s, err := l.client(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.Open(ctx, rawURL)
}
