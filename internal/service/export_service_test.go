package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/pkg/export"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
)

func TestMonthlyCSV(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{
		byID:    map[string]*models.Attendance{"att-1": att},
		monthly: map[string][]models.Attendance{"u1": {*att}},
	}
	users := seedUsers()
	attendanceSvc := newAttendanceService(atts, users, &mockCorrectionRepo{})
	svc := NewExportService(attendanceSvc, export.NewCSVExporter(), export.NewPDFExporter(), true, nil)

	file, err := svc.MonthlyCSV(context.Background(), users.users["u1"], "", "2026-03")
	require.NoError(t, err)

	assert.Equal(t, "attendance_u1_20260301.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte{0xEF, 0xBB, 0xBF}), "spreadsheet apps need the BOM")

	body := string(file.Data[3:])
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 32, "header plus one row per calendar day")
	assert.Equal(t, "Date,Clock In,Clock Out,Break Time,Work Time", strings.TrimSpace(lines[0]))
	assert.Equal(t, "2026-03-02,09:00,18:00,1:00,8:00", strings.TrimSpace(lines[2]))
	assert.Equal(t, "2026-03-01,,,,", strings.TrimSpace(lines[1]), "empty day still gets a row")
}

func TestMonthlyCSVScopeEnforced(t *testing.T) {
	users := seedUsers()
	attendanceSvc := newAttendanceService(&mockAttendanceRepo{monthly: map[string][]models.Attendance{}}, users, &mockCorrectionRepo{})
	svc := NewExportService(attendanceSvc, export.NewCSVExporter(), nil, false, nil)

	_, err := svc.MonthlyCSV(context.Background(), users.users["u2"], "u1", "2026-03")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMonthlyPDF(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{
		byID:    map[string]*models.Attendance{"att-1": att},
		monthly: map[string][]models.Attendance{"u1": {*att}},
	}
	users := seedUsers()
	attendanceSvc := newAttendanceService(atts, users, &mockCorrectionRepo{})

	svc := NewExportService(attendanceSvc, export.NewCSVExporter(), export.NewPDFExporter(), true, nil)
	file, err := svc.MonthlyPDF(context.Background(), users.users["adm"], "u1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "attendance_u1_20260301.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	disabled := NewExportService(attendanceSvc, export.NewCSVExporter(), export.NewPDFExporter(), false, nil)
	_, err = disabled.MonthlyPDF(context.Background(), users.users["adm"], "u1", "2026-03")
	require.Error(t, err)
}

func TestMonthlyDatasetKeysRowsByHeader(t *testing.T) {
	list := &dto.MonthlyListResponse{
		UserID: "u1",
		Month:  "2026-03",
		Rows: []dto.MonthlyRow{
			{Date: "2026-03-02", ClockIn: "09:00", ClockOut: "18:00", BreakTime: "1:00", WorkTime: "8:00"},
			{Date: "2026-03-03"},
		},
	}

	ds := monthlyDataset(list)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, map[string]string{
		"Date":       "2026-03-02",
		"Clock In":   "09:00",
		"Clock Out":  "18:00",
		"Break Time": "1:00",
		"Work Time":  "8:00",
	}, ds.Rows[0])
	assert.Equal(t, "2026-03-03", ds.Rows[1]["Date"])
	assert.Empty(t, ds.Rows[1]["Clock In"])
}
