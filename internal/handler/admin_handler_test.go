package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timecard-io/timecard-api/internal/middleware"
)

func TestAdminExportRejectsUnknownFormat(t *testing.T) {
	h := NewAdminHandler(nil, nil)

	c, w := newTestContext(t, http.MethodGet, "/admin/staff/u1/attendance/export", nil)
	c.Request.URL.RawQuery = "format=xlsx"
	c.Set(middleware.ContextAccountKey, testAccount())

	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUpdateInvalidBody(t *testing.T) {
	h := NewAdminHandler(nil, nil)

	c, w := newTestContext(t, http.MethodPut, "/admin/attendance/att-1", []byte(`invalid`))
	c.Set(middleware.ContextAccountKey, testAccount())

	h.UpdateAttendance(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDailyWithoutAccount(t *testing.T) {
	h := NewAdminHandler(nil, nil)

	c, w := newTestContext(t, http.MethodGet, "/admin/attendance", nil)

	h.Daily(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
