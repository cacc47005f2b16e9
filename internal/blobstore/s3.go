package blobstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"vaultd/internal/models"
)

// S3Options carries the connection parameters for the remote backend.
// Endpoint and ForcePathStyle support MinIO-compatible deployments.
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3 stores objects in a single bucket of an S3-compatible backend and
// exposes the URLSigner capability. The SDK client is constructed on
// first use so selecting the local driver never touches AWS config.
type S3 struct {
	opts S3Options

	mu        sync.Mutex
	client    *s3.Client
	clientErr error
	now       func() time.Time
}

var _ URLSigner = (*S3)(nil)

// NewS3 validates options; it does not dial anything.
func NewS3(opts S3Options) (*S3, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(opts.Region) == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	return &S3{opts: opts, now: time.Now}, nil
}

func (d *S3) Kind() string {
	return string(models.StorageKindS3)
}

func (d *S3) lazyClient(ctx context.Context) (*s3.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil || d.clientErr != nil {
		return d.client, d.clientErr
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(d.opts.Region),
	}
	if d.opts.AccessKeyID != "" && d.opts.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(d.opts.AccessKeyID, d.opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		d.clientErr = fmt.Errorf("s3 backend unavailable: load aws config: %w", err)
		return nil, d.clientErr
	}

	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.opts.Endpoint)
		}
		o.UsePathStyle = d.opts.ForcePathStyle
	})
	return d.client, nil
}

func (d *S3) Put(ctx context.Context, objectKey string, body io.Reader, contentType string) error {
	client, err := d.lazyClient(ctx)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(d.opts.Bucket),
		Key:    aws.String(objectKey),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", d.opts.Bucket, objectKey, err)
	}
	return nil
}

func (d *S3) Get(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	client, err := d.lazyClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.opts.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectKey)
		}
		return nil, fmt.Errorf("get object s3://%s/%s: %w", d.opts.Bucket, objectKey, err)
	}
	return resp.Body, nil
}

func (d *S3) Delete(ctx context.Context, objectKey string) error {
	client, err := d.lazyClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.opts.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("delete object s3://%s/%s: %w", d.opts.Bucket, objectKey, err)
	}
	return nil
}

// SignGetURL mints a presigned GET link for direct download.
func (d *S3) SignGetURL(ctx context.Context, objectKey string, ttl time.Duration) (SignedURL, error) {
	client, err := d.lazyClient(ctx)
	if err != nil {
		return SignedURL{}, fmt.Errorf("signed url capability unavailable: %w", err)
	}
	presigner := s3.NewPresignClient(client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.opts.Bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return SignedURL{}, fmt.Errorf("presign s3://%s/%s: %w", d.opts.Bucket, objectKey, err)
	}
	return SignedURL{URL: req.URL, ExpiresAt: d.now().UTC().Add(ttl)}, nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if stderrors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := strings.TrimSpace(apiErr.ErrorCode())
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}
