package sync

import (
	"context"
	"errors"

	"license-reconciler/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/external-licenses")
	group.Post("/sync", h.HandleTriggerSync)
	group.Get("/sync/status", h.HandleSyncStatus)
	group.Get("/sync/history", h.HandleSyncHistory)
}

// HandleTriggerSync runs a sync and returns its result.
// @Summary Trigger Sync
// @Description Run an external license sync and return the final counts. Rejected with 409 while another run is in flight.
// @Tags sync
// @Produce json
// @Param comprehensive query bool false "Run full duplicate analysis"
// @Param detectDuplicates query bool false "Enable duplicate detection"
// @Param dryRun query bool false "Compute without persisting"
// @Success 202 {object} Result "Sync result"
// @Failure 409 {object} map[string]string "Sync already in progress"
// @Router /external-licenses/sync [post]
func (h *Handler) HandleTriggerSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	opts := Options{
		Comprehensive:    c.QueryBool("comprehensive"),
		DetectDuplicates: c.QueryBool("detectDuplicates"),
		DryRun:           c.QueryBool("dryRun"),
	}

	// The run outlives the request's own deadline budget; it is bounded by
	// the sync timeout, not by the client hanging up.
	result, err := h.service.Run(context.Background(), opts)
	if errors.Is(err, ErrSyncInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": ErrSyncInProgress.Error(),
		})
	}
	if err != nil {
		l.Error("Sync trigger failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if !result.Success {
		l.Warn("Sync completed with failure", zap.String("operation_id", result.OperationID), zap.String("error", result.Error))
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}

// HandleSyncStatus reports progress and the last result.
// @Summary Sync Status
// @Description Poll the current sync progress, the last result, and the circuit breaker state.
// @Tags sync
// @Produce json
// @Success 200 {object} StatusReport "Status"
// @Router /external-licenses/sync/status [get]
func (h *Handler) HandleSyncStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// HandleSyncHistory lists past sync operations.
// @Summary Sync History
// @Description List past sync operations, newest first.
// @Tags sync
// @Produce json
// @Param limit query int false "Maximum results"
// @Success 200 {array} Operation "Operations"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /external-licenses/sync/history [get]
func (h *Handler) HandleSyncHistory(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	ops, err := h.service.History(c.Context(), c.QueryInt("limit"))
	if err != nil {
		l.Error("Sync history lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(ops)
}
