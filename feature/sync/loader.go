package sync

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
	enabled bool
}

// NewFeature creates a new Sync feature. It is disabled when no external
// API base URL is configured, so the server can run as a plain license
// store.
func NewFeature(service *Service, enabled bool, logger *zap.Logger) *Feature {
	h := NewHandler(service, logger)
	return &Feature{service: service, handler: h, enabled: enabled}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "sync"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the coordinator for the CLI and the scheduler.
func (f *Feature) Service() *Service {
	return f.service
}
