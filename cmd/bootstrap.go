package cmd

import (
	"fmt"
	"time"

	"license-reconciler/core/breaker"
	"license-reconciler/core/config"
	"license-reconciler/core/database"
	"license-reconciler/core/retry"
	"license-reconciler/core/storage"
	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license"
	"license-reconciler/feature/license/dedupe"
	licmodels "license-reconciler/feature/license/models"
	"license-reconciler/feature/sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// engine bundles the wired components shared by the server and the CLI
// commands.
type engine struct {
	cfg      *config.Config
	db       *gorm.DB
	breaker  *breaker.Breaker
	licRepo  *license.Repository
	licSvc   *license.Service
	detector *dedupe.Detector
	syncSvc  *sync.Service
}

// buildEngine connects the database, migrates the schema, and wires the
// reconciliation engine from configuration.
func buildEngine(cfg *config.Config, logg *zap.Logger) (*engine, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.AutoMigrate(
		&licmodels.License{},
		&licmodels.ReviewItem{},
		&licmodels.ConsolidationDecision{},
		&extlicense.SnapshotRecord{},
		&sync.Operation{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	br := breaker.New(cfg.Breaker.FailureThreshold,
		time.Duration(cfg.Breaker.CooldownSeconds)*time.Second)
	pol := retry.New(
		time.Duration(cfg.Retry.BaseMs)*time.Millisecond,
		time.Duration(cfg.Retry.CapMs)*time.Millisecond,
		cfg.Retry.MaxRetries,
	)
	client := extlicense.NewHTTPClient(
		cfg.External.BaseURL,
		cfg.External.ApiKey,
		time.Duration(cfg.External.TimeoutSeconds)*time.Second,
		br, pol, logg,
	)

	var archiver *extlicense.Archiver
	if cfg.Sync.SnapshotArchive {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		archiver = extlicense.NewArchiver(store, cfg.Storage.Bucket, logg)
	}

	detector := dedupe.NewDetector(dedupe.Config{
		FuzzyRatio:      cfg.Sync.FuzzyRatio,
		AutoThreshold:   cfg.Sync.AutoThreshold,
		ReviewThreshold: cfg.Sync.ReviewThreshold,
	}, logg)

	licRepo := license.NewRepository(db)
	licSvc := license.NewService(licRepo, detector, logg)
	syncSvc := sync.NewService(cfg.Sync, client, extlicense.NewRepository(db),
		licRepo, licSvc, detector, archiver, br, sync.NewRepository(db), logg)

	return &engine{
		cfg:      cfg,
		db:       db,
		breaker:  br,
		licRepo:  licRepo,
		licSvc:   licSvc,
		detector: detector,
		syncSvc:  syncSvc,
	}, nil
}
