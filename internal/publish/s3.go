package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the object storage publisher.
type S3Config struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicBase string
}

// S3Publisher persists artifacts to S3-compatible object storage.
type S3Publisher struct {
	client     *minio.Client
	bucket     string
	region     string
	publicBase string
	initOnce   sync.Once
	initErr    error
}

// NewS3Publisher initializes an S3 publisher. The bucket is created lazily on
// first publish if it does not exist.
func NewS3Publisher(cfg S3Config) (*S3Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "ap-northeast-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBase), "/")
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	return &S3Publisher{
		client:     client,
		bucket:     bucket,
		region:     region,
		publicBase: publicBase,
	}, nil
}

func (p *S3Publisher) ensureBucket(ctx context.Context) error {
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = err
			return
		}
		if exists {
			return
		}
		p.initErr = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	})
	return p.initErr
}

// Publish uploads the artifact under key and returns its stable reference.
func (p *S3Publisher) Publish(ctx context.Context, key, mime string, data []byte) (Object, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return Object{}, fmt.Errorf("publish: key is required")
	}
	if len(data) == 0 {
		return Object{}, fmt.Errorf("publish: empty artifact")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return Object{}, fmt.Errorf("publish: ensure bucket: %w", err)
	}

	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return Object{}, fmt.Errorf("publish: put object: %w", err)
	}

	return Object{Key: key, URL: p.publicBase + "/" + key}, nil
}

var _ Publisher = (*S3Publisher)(nil)
