package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timecard-io/timecard-api/internal/models"
)

func TestFindPendingByAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	now := time.Now()
	reqDate := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "attendance_id", "user_id", "request_date", "original_clock_in", "original_clock_out", "corrected_clock_in", "corrected_clock_out", "note", "approved_by", "approved_at", "created_at", "updated_at"}).
		AddRow("r1", "a1", "u1", reqDate, "09:12:00", "18:03:00", "09:00:00", "18:00:00", "forgot to stamp", nil, nil, now, now)
	mock.ExpectQuery("SELECT .+ FROM stamp_correction_requests WHERE attendance_id = \\$1 AND approved_at IS NULL").
		WithArgs("a1").
		WillReturnRows(rows)
	breakRows := sqlmock.NewRows([]string{"id", "stamp_correction_request_id", "break_time_id", "original_break_start", "original_break_end", "corrected_break_start", "corrected_break_end", "created_at", "updated_at"}).
		AddRow("bc1", "r1", "b1", "12:05:00", "13:05:00", "12:00:00", "13:00:00", now, now)
	mock.ExpectQuery("SELECT .+ FROM break_correction_requests WHERE stamp_correction_request_id = \\$1").
		WithArgs("r1").
		WillReturnRows(breakRows)

	req, err := repo.FindPendingByAttendance(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, req.IsPending())
	require.Len(t, req.BreakCorrections, 1)
	assert.True(t, req.BreakCorrections[0].IsModification())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPendingByAttendanceNone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM stamp_correction_requests WHERE attendance_id = \\$1 AND approved_at IS NULL").
		WithArgs("a1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPendingByAttendance(context.Background(), "a1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithBreaks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO stamp_correction_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO break_correction_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	start := models.NewClockTime(12, 0, 0)
	end := models.NewClockTime(13, 0, 0)
	req := &models.StampCorrectionRequest{
		AttendanceID: "a1",
		UserID:       "u1",
		RequestDate:  time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Note:         "forgot to stamp",
	}
	err := repo.CreateWithBreaks(context.Background(), req, []models.BreakCorrectionRequest{
		{CorrectedBreakStart: &start, CorrectedBreakEnd: &end},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	require.Len(t, req.BreakCorrections, 1)
	assert.Equal(t, req.ID, req.BreakCorrections[0].StampCorrectionRequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyApproval(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stamp_correction_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE attendances SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE break_times SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO break_times").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	clockIn := models.NewClockTime(9, 30, 0)
	err := repo.ApplyApproval(context.Background(), ApprovalApplication{
		RequestID:    "r1",
		AttendanceID: "a1",
		ApproverID:   "admin-1",
		ApprovedAt:   time.Now(),
		ClockIn:      &clockIn,
		BreakUpdates: []BreakWrite{{BreakTimeID: "b1", Start: models.NewClockTime(12, 0, 0), End: models.NewClockTime(13, 0, 0)}},
		BreakCreates: []BreakWrite{{Start: models.NewClockTime(15, 0, 0), End: models.NewClockTime(15, 15, 0)}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyApprovalAlreadyApproved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stamp_correction_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyApproval(context.Background(), ApprovalApplication{
		RequestID:    "r1",
		AttendanceID: "a1",
		ApproverID:   "admin-1",
		ApprovedAt:   time.Now(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingScopedToUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	now := time.Now()
	reqDate := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	targetDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "attendance_id", "user_id", "request_date", "original_clock_in", "original_clock_out", "corrected_clock_in", "corrected_clock_out", "note", "approved_by", "approved_at", "created_at", "updated_at", "user_name", "target_date"}).
		AddRow("r1", "a1", "u1", reqDate, nil, nil, "09:00:00", nil, "note", nil, nil, now, now, "Sato", targetDate)
	mock.ExpectQuery("SELECT .+ FROM stamp_correction_requests r\\s+JOIN users u ON u.id = r.user_id\\s+JOIN attendances a ON a.id = r.attendance_id\\s+WHERE r.approved_at IS NULL AND r.user_id = ANY").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.CorrectionFilter{
		Tab:     models.TabPending,
		UserIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sato", list[0].UserName)
	assert.Equal(t, targetDate, list[0].TargetDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
