package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/service"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
	"github.com/timecard-io/timecard-api/pkg/response"
)

// AdminHandler serves the administrator screens: daily roster, staff
// directory, direct record edits and exports.
type AdminHandler struct {
	attendance *service.AttendanceService
	exports    *service.ExportService
}

// NewAdminHandler constructs a new AdminHandler.
func NewAdminHandler(attendance *service.AttendanceService, exports *service.ExportService) *AdminHandler {
	return &AdminHandler{attendance: attendance, exports: exports}
}

// Daily godoc
// @Summary Daily attendance roster
// @Description All records the administrator may see for one date
// @Tags Admin
// @Produce json
// @Param date query string false "Target date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/attendance [get]
// @Security BearerAuth
func (h *AdminHandler) Daily(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	day, err := h.attendance.DayOrToday(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.attendance.DailyList(c.Request.Context(), actor, day)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// UpdateAttendance godoc
// @Summary Directly edit an attendance record
// @Description Replaces clock times and breaks without going through a correction request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body dto.AdminUpdateRequest true "Replacement values"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/attendance/{id} [put]
// @Security BearerAuth
func (h *AdminHandler) UpdateAttendance(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	var req dto.AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	res, err := h.attendance.UpdateByAdmin(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Staff godoc
// @Summary Staff directory
// @Description Users whose attendance the administrator manages
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/staff [get]
// @Security BearerAuth
func (h *AdminHandler) Staff(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	items, err := h.attendance.ListStaff(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// StaffMonthly godoc
// @Summary Staff member's monthly attendance
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Param month query string false "Target month (YYYY-MM, defaults to current month)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/staff/{id}/attendance [get]
// @Security BearerAuth
func (h *AdminHandler) StaffMonthly(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	res, err := h.attendance.ListMonth(c.Request.Context(), actor, c.Param("id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Export godoc
// @Summary Export a staff member's monthly attendance
// @Description Streams the month as a CSV or PDF attachment
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "User ID"
// @Param month query string false "Target month (YYYY-MM, defaults to current month)"
// @Param format query string false "csv or pdf (defaults to csv)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/staff/{id}/attendance/export [get]
// @Security BearerAuth
func (h *AdminHandler) Export(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}

	var (
		file *service.ExportFile
		err  error
	)
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		file, err = h.exports.MonthlyCSV(c.Request.Context(), actor, c.Param("id"), c.Query("month"))
	case "pdf":
		file, err = h.exports.MonthlyPDF(c.Request.Context(), actor, c.Param("id"), c.Query("month"))
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
