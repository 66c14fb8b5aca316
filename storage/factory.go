package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/cppla/inkblog/config"
)

// LocalURLPrefix is where the router serves the local driver's directory.
const LocalURLPrefix = "/static/uploads"

// New builds the Store selected by cfg.StorageDriver.
func New(ctx context.Context, cfg config.AppConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", "local":
		base := cfg.StoragePublicBaseURL
		if base == "" {
			base = LocalURLPrefix
		}
		return NewLocalStore(cfg.StorageLocalDir, base)
	case "s3", "r2", "minio":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.StorageBucket,
			Region:          cfg.StorageRegion,
			Endpoint:        cfg.StorageEndpoint,
			AccessKeyID:     cfg.StorageAccessKeyID,
			SecretAccessKey: cfg.StorageSecretAccessKey,
			PublicBaseURL:   cfg.StoragePublicBaseURL,
			UsePathStyle:    cfg.StorageUsePathStyle,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
	}
}
