package minio

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/faeln1/go-onebot-guard/pkg/storage"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
	// Prefix is prepended to every object key, e.g. "onebot-events".
	Prefix string
}

type Client struct {
	core      *minio.Client
	bucket    string
	prefix    string
	publicURL string
}

// New conecta ao endpoint S3 compatível e garante que o bucket exista.
func New(ctx context.Context, cfg Config) (*Client, error) {
	core, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := core.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := core.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		core:      core,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (c *Client) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.prefix == "" {
		return key
	}
	return path.Join(c.prefix, key)
}

func (c *Client) PutObject(ctx context.Context, in storage.UploadInput) (string, error) {
	key := c.objectKey(in.Key)
	opts := minio.PutObjectOptions{ContentType: in.ContentType}
	if _, err := c.core.PutObject(ctx, c.bucket, key, in.Body, in.Size, opts); err != nil {
		return "", err
	}
	return c.objectURL(key), nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	return c.core.RemoveObject(ctx, c.bucket, c.objectKey(key), minio.RemoveObjectOptions{})
}

func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.core.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", c.bucket)
	}
	return nil
}

func (c *Client) objectURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	if endpoint := c.core.EndpointURL(); endpoint != nil {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint.String(), "/"), c.bucket, key)
	}
	return "/" + c.bucket + "/" + key
}

var _ storage.Service = (*Client)(nil)
