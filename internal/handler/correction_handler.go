package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/internal/service"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
	"github.com/timecard-io/timecard-api/pkg/response"
)

// CorrectionHandler serves the stamp correction request workflow.
type CorrectionHandler struct {
	corrections *service.CorrectionService
}

// NewCorrectionHandler constructs a new CorrectionHandler.
func NewCorrectionHandler(corrections *service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{corrections: corrections}
}

// Submit godoc
// @Summary Submit a correction request
// @Description Files a pending correction against one attendance record
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body dto.CorrectionSubmitRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/{id}/corrections [post]
// @Security BearerAuth
func (h *CorrectionHandler) Submit(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	var req dto.CorrectionSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid correction payload"))
		return
	}

	created, err := h.corrections.Submit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"request_id": created.ID, "status": "pending"})
}

// List godoc
// @Summary List correction requests
// @Description Pending or approved requests visible to the actor
// @Tags Corrections
// @Produce json
// @Param tab query string false "pending or approved (defaults to pending)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /corrections [get]
// @Security BearerAuth
func (h *CorrectionHandler) List(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	tab := models.CorrectionTab(c.DefaultQuery("tab", string(models.TabPending)))
	if tab != models.TabPending && tab != models.TabApproved {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tab must be pending or approved"))
		return
	}

	items, err := h.corrections.List(c.Request.Context(), actor, tab)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Detail godoc
// @Summary Correction request detail
// @Description One correction request with original and corrected values
// @Tags Corrections
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /corrections/{id} [get]
// @Security BearerAuth
func (h *CorrectionHandler) Detail(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	res, err := h.corrections.Detail(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Approve godoc
// @Summary Approve a correction request
// @Description Applies the requested write set to the attendance record
// @Tags Corrections
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /corrections/{id}/approve [post]
// @Security BearerAuth
func (h *CorrectionHandler) Approve(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	res, err := h.corrections.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
