package license

import (
	"strconv"

	"license-reconciler/core/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for licenses and duplicate management.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// RegisterRoutes registers the license routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/licenses")
	group.Get("/", h.HandleListLicenses)
	group.Get("/duplicates/check", h.HandleCheckDuplicates)
	group.Post("/duplicates/consolidate", h.HandleConsolidate)
	group.Get("/duplicates/reviews", h.HandleListReviews)
	group.Post("/duplicates/reviews/:id/approve", h.HandleApproveReview)
	group.Post("/duplicates/reviews/:id/reject", h.HandleRejectReview)
	group.Get("/:id", h.HandleGetLicense)
}

// HandleListLicenses lists licenses, optionally filtered.
// @Summary List Licenses
// @Description List internal licenses, filtered by status, product, or dba.
// @Tags licenses
// @Produce json
// @Param status query string false "Lifecycle status"
// @Param product query string false "Product"
// @Param dba query string false "DBA substring"
// @Param unlinked query bool false "Only licenses without an external link"
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.License "Licenses"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /licenses [get]
func (h *Handler) HandleListLicenses(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	f := Filter{
		Status:       c.Query("status"),
		Product:      c.Query("product"),
		DBA:          c.Query("dba"),
		UnlinkedOnly: c.QueryBool("unlinked"),
		Limit:        c.QueryInt("limit"),
	}
	licenses, err := h.service.ListLicenses(c.Context(), f)
	if err != nil {
		l.Error("License listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(licenses)
}

// HandleGetLicense returns one license.
// @Summary Get License
// @Description Get a single license by ID.
// @Tags licenses
// @Produce json
// @Param id path int true "License ID"
// @Success 200 {object} models.License "License"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /licenses/{id} [get]
func (h *Handler) HandleGetLicense(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid license id",
		})
	}
	lic, err := h.service.GetLicense(c.Context(), uint(id))
	if err != nil {
		l.Error("License lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if lic == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "license not found",
		})
	}
	return c.JSON(lic)
}

// HandleCheckDuplicates scores a dba/email probe against stored licenses.
// @Summary Check Duplicates
// @Description Score a business name and email against stored licenses and return ranked potential duplicates, best first.
// @Tags licenses
// @Produce json
// @Param dba query string false "Business name"
// @Param email query string false "Email"
// @Param threshold query int false "Minimum confidence score"
// @Success 200 {array} dedupe.Candidate "Matches"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /licenses/duplicates/check [get]
func (h *Handler) HandleCheckDuplicates(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	dba := c.Query("dba")
	email := c.Query("email")
	if dba == "" && email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "at least one of dba or email is required",
		})
	}

	matches, err := h.service.CheckDuplicates(c.Context(), dba, email, c.QueryInt("threshold"))
	if err != nil {
		l.Error("Duplicate check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"potentialDuplicates": matches,
		"count":               len(matches),
	})
}

// HandleConsolidate merges duplicate licenses into a master.
// @Summary Consolidate Duplicates
// @Description Merge duplicate licenses into a surviving master record and write an audit decision.
// @Tags licenses
// @Accept json
// @Produce json
// @Param request body ConsolidateRequest true "Consolidation request"
// @Success 200 {object} models.ConsolidationDecision "Decision"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 422 {object} map[string]string "Unprocessable Entity"
// @Router /licenses/duplicates/consolidate [post]
func (h *Handler) HandleConsolidate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req ConsolidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	decision, err := h.service.Consolidate(c.Context(), req)
	if err != nil {
		l.Error("Consolidation failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(decision)
}

// HandleListReviews lists pending duplicate reviews.
// @Summary List Pending Reviews
// @Description List duplicate candidates queued for manual review, highest confidence first.
// @Tags licenses
// @Produce json
// @Success 200 {array} models.ReviewItem "Pending reviews"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /licenses/duplicates/reviews [get]
func (h *Handler) HandleListReviews(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	items, err := h.service.PendingReviews(c.Context())
	if err != nil {
		l.Error("Review listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(items)
}

// HandleApproveReview approves a queued candidate and consolidates it.
// @Summary Approve Review
// @Description Approve a queued duplicate candidate and consolidate its members per the request body.
// @Tags licenses
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body ConsolidateRequest true "Consolidation request"
// @Success 200 {object} models.ConsolidationDecision "Decision"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 422 {object} map[string]string "Unprocessable Entity"
// @Router /licenses/duplicates/reviews/{id}/approve [post]
func (h *Handler) HandleApproveReview(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid review id",
		})
	}

	var req ConsolidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	decision, err := h.service.ApproveReview(c.Context(), uint(id), req)
	if err != nil {
		l.Error("Review approval failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(decision)
}

// HandleRejectReview closes a queued candidate without merging.
// @Summary Reject Review
// @Description Reject a queued duplicate candidate; nothing is merged.
// @Tags licenses
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} map[string]string "Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /licenses/duplicates/reviews/{id}/reject [post]
func (h *Handler) HandleRejectReview(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid review id",
		})
	}
	if err := h.service.RejectReview(c.Context(), uint(id)); err != nil {
		l.Error("Review rejection failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "rejected"})
}
