package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gridetl/internal/config"
	"gridetl/internal/logging"
)

// ContentType of uploaded reports.
const ContentType = "text/html"

// DefaultExpiry of presigned report URLs.
const DefaultExpiry = 7 * 24 * time.Hour

// PutAPI is the subset of the S3 client used for uploads.
type PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PresignAPI is the subset of the presign client used for report links.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 uploads reports to a bucket and returns presigned GET URLs.
type S3 struct {
	client   PutAPI
	presign  PresignAPI
	bucket   string
	prefix   string
	endpoint string
	expiry   time.Duration
	now      func() time.Time
}

// NewS3 builds an uploader from static credentials. A custom endpoint
// (MinIO and similar) switches to path-style addressing.
func NewS3(ctx context.Context, cfg config.S3Config) (*S3, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("upload: load aws config: %w", err)
	}
	endpoint := endpointURL(cfg.EndpointURL, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, s3.NewPresignClient(client), cfg), nil
}

// NewS3WithClient wires explicit clients; tests pass fakes.
func NewS3WithClient(client PutAPI, presign PresignAPI, cfg config.S3Config) *S3 {
	expiry := cfg.URLExpiration
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = ReportDir
	}
	return &S3{
		client:   client,
		presign:  presign,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(prefix, "/"),
		endpoint: endpointURL(cfg.EndpointURL, cfg.UseSSL),
		expiry:   expiry,
		now:      time.Now,
	}
}

// endpointURL adds a scheme to a bare host endpoint.
func endpointURL(raw string, useSSL bool) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	if useSSL {
		return "https://" + raw
	}
	return "http://" + raw
}

// Key returns the object key of filename uploaded at t:
// <prefix>/<YYYY>/<MM>/<DD>/<filename>.
func (u *S3) Key(filename string, t time.Time) string {
	return path.Join(u.prefix, t.UTC().Format("2006/01/02"), filename)
}

// Upload implements Uploader.
func (u *S3) Upload(ctx context.Context, filename string, body []byte) (Result, error) {
	key := u.Key(filename, u.now())
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return Result{}, fmt.Errorf("upload: put s3://%s/%s: %w", u.bucket, key, err)
	}

	res := Result{Target: TargetS3, Key: key, Size: int64(len(body))}
	req, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.expiry))
	if err != nil {
		log := logging.For("upload")
		log.Warn().Err(err).Str("key", key).Msg("presign failed, using direct url")
		res.URL = u.DirectURL(key)
		return res, nil
	}
	res.URL = req.URL
	return res, nil
}

// DirectURL is the unsigned object URL: path style on a custom endpoint,
// virtual-hosted style on AWS.
func (u *S3) DirectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if u.endpoint != "" {
		return u.endpoint + "/" + u.bucket + "/" + escaped
	}
	return "https://" + u.bucket + ".s3.amazonaws.com/" + escaped
}
