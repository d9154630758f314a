package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/middleware"
	"github.com/kashmirtrails/packages-backend/internal/models"
	"github.com/kashmirtrails/packages-backend/internal/services"
)

// PackageHandler handles travel package lifecycle endpoints
type PackageHandler struct {
	packages *services.PackageService
	logger   *logrus.Logger
}

// NewPackageHandler creates a new PackageHandler
func NewPackageHandler(packages *services.PackageService, logger *logrus.Logger) *PackageHandler {
	return &PackageHandler{packages: packages, logger: logger}
}

// Generate creates a new travel package from trip parameters
// @Summary Generate a travel package
// @Description Build a multi-day itinerary with hotels, transport and weather for the requested destinations
// @Tags Packages
// @Accept json
// @Produce json
// @Param request body models.GeneratePackageRequest true "Generation request"
// @Success 200 {object} models.Package "Package generated"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/v1/packages/generate [post]
func (h *PackageHandler) Generate(c *gin.Context) {
	var req models.GeneratePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	pkg, violations, err := h.packages.Generate(c.Request.Context(), &req, middleware.CallerID(c))
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Package generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate package"})
		return
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid generation request", "violations": violations})
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// Get returns a package by ID
// @Summary Get a package
// @Description Fetch a package with its full itinerary. Private packages are visible to their owner only.
// @Tags Packages
// @Produce json
// @Param id path string true "Package ID"
// @Success 200 {object} models.Package "Package"
// @Failure 403 {object} map[string]interface{} "Not allowed"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /api/v1/packages/{id} [get]
func (h *PackageHandler) Get(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	pkg, err := h.packages.Get(c.Request.Context(), id, middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// Update applies a configuration patch to a package
// @Summary Update a package
// @Description Swap the cab, per-day hotels or activities, change visibility, or reschedule to a new start date
// @Tags Packages
// @Accept json
// @Produce json
// @Param id path string true "Package ID"
// @Param request body models.UpdatePackageRequest true "Patch"
// @Success 200 {object} models.Package "Updated package"
// @Failure 400 {object} map[string]interface{} "Invalid patch"
// @Failure 403 {object} map[string]interface{} "Not allowed or already booked"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /api/v1/packages/{id} [patch]
func (h *PackageHandler) Update(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	var req models.UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	pkg, err := h.packages.Update(c.Request.Context(), id, middleware.CallerID(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// Clone regenerates a package at a new start date
// @Summary Clone a package
// @Description Rebuild a public (or owned) package's itinerary at a new start date under the caller's ownership
// @Tags Packages
// @Accept json
// @Produce json
// @Param id path string true "Source package ID"
// @Param request body models.ClonePackageRequest true "Clone request"
// @Success 201 {object} models.Package "Cloned package"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 403 {object} map[string]interface{} "Not allowed"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /api/v1/packages/{id}/clone [post]
func (h *PackageHandler) Clone(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	var req models.ClonePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.StartDate == nil || *req.StartDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date is required"})
		return
	}

	clone, err := h.packages.Clone(c.Request.Context(), id, middleware.CallerID(c), *req.StartDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, clone)
}

// Book attempts to book a package
// @Summary Book a package
// @Description Run the booking workflow. The response status reflects how far the attempt got: 401 needs sign-in, 403 needs phone verification, 202 is held pending KYC, 409 is an ownership conflict, 200 is booked.
// @Tags Packages
// @Accept json
// @Produce json
// @Param id path string true "Package ID"
// @Param request body models.BookPackageRequest false "Optional same-call configuration"
// @Success 200 {object} map[string]interface{} "Booked"
// @Success 202 {object} map[string]interface{} "Held pending KYC"
// @Failure 401 {object} map[string]interface{} "Authentication required"
// @Failure 403 {object} map[string]interface{} "Phone verification required"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Failure 409 {object} map[string]interface{} "Owned by another user"
// @Router /api/v1/packages/{id}/book [post]
func (h *PackageHandler) Book(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	var req models.BookPackageRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	pkg, decision, err := h.packages.Book(c.Request.Context(), id, middleware.CallerID(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(bookingStatusCode(decision.Outcome), gin.H{
		"outcome":        decision.Outcome,
		"booking_status": pkg.BookingStatus,
		"message":        decision.Message,
		"package":        pkg,
	})
}

// History lists the caller's recent packages
// @Summary Package history
// @Description List the caller's most recent packages, newest first
// @Tags Packages
// @Produce json
// @Success 200 {object} map[string]interface{} "Package summaries"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Security BearerAuth
// @Router /api/v1/packages/history [get]
func (h *PackageHandler) History(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	summaries, err := h.packages.History(userCtx.UserID)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to list package history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list packages"})
		return
	}

	if summaries == nil {
		summaries = []models.PackageSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"packages": summaries, "count": len(summaries)})
}

// packageID parses the :id path parameter, writing the 400 response itself on
// failure.
func packageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package ID"})
		return uuid.Nil, false
	}
	return id, true
}

// bookingStatusCode maps a booking outcome to its HTTP status. Every outcome
// carries a body; only the code differs.
func bookingStatusCode(outcome services.BookingOutcome) int {
	switch outcome {
	case services.OutcomeAuthRequired:
		return http.StatusUnauthorized
	case services.OutcomeOwnershipConflict:
		return http.StatusConflict
	case services.OutcomeVerificationRequired:
		return http.StatusForbidden
	case services.OutcomeKYCPending:
		return http.StatusAccepted
	default:
		return http.StatusOK
	}
}

// respondError maps service sentinel errors to HTTP statuses.
func (h *PackageHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPackageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this package"})
	case errors.Is(err, services.ErrPackageBooked):
		c.JSON(http.StatusForbidden, gin.H{"error": "Booked packages cannot be modified"})
	case errors.Is(err, services.ErrDayNotFound),
		errors.Is(err, services.ErrHotelNotOffered),
		errors.Is(err, services.ErrCabNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithField("error", err.Error()).Error("Package request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
