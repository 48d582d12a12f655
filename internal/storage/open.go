package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/xelth-com/loci/internal/config"
)

// Open returns the asset store selected by cfg.Backend
func Open(ctx context.Context, cfg config.StorageConfig) (AssetStore, error) {
	switch cfg.Backend {
	case "", "file":
		store, err := NewFileStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, err
		}
		log.Printf("📁 Floorplan images stored in %s", store.Root())
		return store, nil
	case "minio":
		store, err := NewMinioStore(ctx, MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		log.Printf("🪣 Floorplan images stored in bucket %s", cfg.MinioBucket)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
