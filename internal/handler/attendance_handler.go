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

// AttendanceHandler serves the stamp screen and attendance listings.
type AttendanceHandler struct {
	stamps     *service.StampService
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs a new AttendanceHandler.
func NewAttendanceHandler(stamps *service.StampService, attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{stamps: stamps, attendance: attendance}
}

// Today godoc
// @Summary Current stamp state
// @Description Returns today's attendance record and the user's position in the stamp cycle
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /attendance/today [get]
// @Security BearerAuth
func (h *AttendanceHandler) Today(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	res, err := h.attendance.Today(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Stamp godoc
// @Summary Record a stamp event
// @Description Records clock-in, break-start, break-end or clock-out for the current user
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.StampRequest true "Stamp payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/stamps [post]
// @Security BearerAuth
func (h *AttendanceHandler) Stamp(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	var req dto.StampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid stamp payload"))
		return
	}

	att, err := h.stamps.RecordStamp(c.Request.Context(), actor, models.StampType(req.StampType))
	if err != nil {
		response.Error(c, err)
		return
	}

	res := dto.StampResponse{
		AttendanceID: att.ID,
		Date:         att.Date.Format("2006-01-02"),
		StampType:    req.StampType,
		State:        att.State(),
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ListMonth godoc
// @Summary Monthly attendance list
// @Description Full calendar of one month for the current user, or another user when permitted
// @Tags Attendance
// @Produce json
// @Param month query string false "Target month (YYYY-MM, defaults to current month)"
// @Param user_id query string false "Target user (defaults to the current user)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance [get]
// @Security BearerAuth
func (h *AttendanceHandler) ListMonth(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	res, err := h.attendance.ListMonth(c.Request.Context(), actor, c.Query("user_id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Detail godoc
// @Summary Attendance detail
// @Description One attendance record with breaks and edit affordance
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [get]
// @Security BearerAuth
func (h *AttendanceHandler) Detail(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	res, err := h.attendance.Detail(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
