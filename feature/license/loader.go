package license

import (
	"license-reconciler/feature/license/dedupe"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new License feature.
func NewFeature(db *gorm.DB, detector *dedupe.Detector, logger *zap.Logger) *Feature {
	svc := NewService(NewRepository(db), detector, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "license"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the feature's service for other features and the CLI.
func (f *Feature) Service() *Service {
	return f.service
}
