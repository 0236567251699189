package authz

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectSourceConfig points at a permission-table artifact stored in an
// S3-compatible bucket.
type ObjectSourceConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Object    string
}

// FetchObject retrieves the raw artifact bytes from object storage.
func FetchObject(ctx context.Context, cfg ObjectSourceConfig) ([]byte, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.Object == "" {
		return nil, fmt.Errorf("authz: object source config incomplete")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("authz: minio new: %w", err)
	}
	obj, err := mc.GetObject(ctx, cfg.Bucket, cfg.Object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("authz: fetch %s/%s: %w", cfg.Bucket, cfg.Object, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("authz: read %s/%s: %w", cfg.Bucket, cfg.Object, err)
	}
	return data, nil
}

// LoadObject fetches the permission-table artifact from object storage and
// parses it. Used when deployments ship the table next to other config
// artifacts instead of baking it into the image.
func LoadObject(ctx context.Context, cfg ObjectSourceConfig) (*Table, error) {
	data, err := FetchObject(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
