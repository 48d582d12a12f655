package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/config"
	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/database"
	"github.com/xelth-com/loci/internal/loci"
	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/storage"
)

// Deps holds what the database commands work with
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Service *loci.Service
}

// withDeps loads config, connects and migrates the database, then calls fn.
// The connection (and embedded PostgreSQL, if started) is closed afterwards.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db.DB); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	svc, err := newService(ctx, db.DB, cfg.Storage)
	if err != nil {
		return err
	}
	return fn(&Deps{Config: cfg, DB: db.DB, Service: svc})
}

// newService wires a service without live broadcast: the CLI has no
// websocket subscribers of its own.
func newService(ctx context.Context, db *gorm.DB, storageCfg config.StorageConfig) (*loci.Service, error) {
	registry := content.NewRegistry()
	if err := registry.Register("device", content.GormResolver[models.Device](db)); err != nil {
		return nil, fmt.Errorf("registering content kind: %w", err)
	}
	assets, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("opening asset store: %w", err)
	}
	return loci.NewService(db, assets, nil, registry), nil
}
