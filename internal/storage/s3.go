package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the settings needed to reach an S3-compatible backend.
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Provider stores objects in an S3-compatible bucket (MinIO in dev).
type S3Provider struct {
	client *s3.Client
	bucket string
	base   string
}

// NewS3Provider builds a client with static credentials against the
// configured endpoint.
func NewS3Provider(ctx context.Context, cfg S3Config) (*S3Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("error loading S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Provider{client: client, bucket: cfg.Bucket, base: strings.TrimRight(cfg.BaseEndpoint, "/")}, nil
}

// Put uploads the payload and returns its descriptor. The secure URL points
// at the object's path-style address on the configured endpoint.
func (p *S3Provider) Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (Resource, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return Resource{}, fmt.Errorf("error storing object %s: %w", key, err)
	}

	return Resource{
		PublicID:     key,
		SecureURL:    p.objectURL(key),
		ResourceKind: KindForKey(key),
		Bytes:        size,
	}, nil
}

// List returns the objects stored under the given key prefix.
func (p *S3Provider) List(ctx context.Context, prefix string) ([]Resource, error) {
	var resources []Resource

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			r := Resource{
				PublicID:     key,
				SecureURL:    p.objectURL(key),
				ResourceKind: KindForKey(key),
				Bytes:        aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				r.CreatedAt = *obj.LastModified
			}
			resources = append(resources, r)
		}
	}

	return resources, nil
}

func (p *S3Provider) objectURL(key string) string {
	escaped := url.PathEscape(key)
	// PathEscape encodes "/" as well, keep the key's path separators.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return fmt.Sprintf("%s/%s/%s", p.base, p.bucket, escaped)
}
