package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timecard-io/timecard-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByUserAndDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	attRows := sqlmock.NewRows([]string{"id", "user_id", "date", "clock_in", "clock_out", "note", "last_modified_by", "last_modified_at", "created_at", "updated_at"}).
		AddRow("a1", "u1", date, "09:00:00", nil, nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT .+ FROM attendances WHERE user_id = \\$1 AND date = \\$2 LIMIT 1").
		WithArgs("u1", date).
		WillReturnRows(attRows)

	breakRows := sqlmock.NewRows([]string{"id", "attendance_id", "break_start", "break_end", "created_at", "updated_at"}).
		AddRow("b1", "a1", "12:00:00", nil, now, now)
	mock.ExpectQuery("SELECT .+ FROM break_times WHERE attendance_id = \\$1").
		WithArgs("a1").
		WillReturnRows(breakRows)

	att, err := repo.FindByUserAndDate(context.Background(), "u1", date)
	require.NoError(t, err)
	require.NotNil(t, att.ClockIn)
	assert.Equal(t, "09:00", att.ClockIn.Short())
	assert.Nil(t, att.ClockOut)
	require.Len(t, att.BreakTimes, 1)
	assert.Equal(t, models.StateOnBreak, att.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithDayLockCommitsOnSuccess(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("attendance:u1:2026-03-02").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM attendances WHERE user_id = \\$1 AND date = \\$2 FOR UPDATE").
		WithArgs("u1", date).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO attendances").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.WithDayLock(context.Background(), "u1", date, func(ctx context.Context, m AttendanceMutator) error {
		_, err := m.FindByUserAndDate(ctx, "u1", date)
		require.ErrorIs(t, err, sql.ErrNoRows)
		clockIn := models.NewClockTime(9, 0, 0)
		return m.CreateAttendance(ctx, &models.Attendance{UserID: "u1", Date: date, ClockIn: &clockIn})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithDayLockRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	sentinel := assert.AnError
	err := repo.WithDayLock(context.Background(), "u1", date, func(ctx context.Context, m AttendanceMutator) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDayPrunesUnlistedBreaks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	clockIn := models.NewClockTime(9, 0, 0)
	clockOut := models.NewClockTime(18, 0, 0)
	note := "corrected"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendances").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE break_times SET break_start = $2, break_end = $3, updated_at = NOW() WHERE id = $1 AND attendance_id = $4")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO break_times").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM break_times WHERE attendance_id = \\$1 AND NOT").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ReplaceDay(context.Background(), DayReplacement{
		AttendanceID: "a1",
		ClockIn:      &clockIn,
		ClockOut:     &clockOut,
		Note:         &note,
		ModifiedBy:   "admin-1",
		ModifiedAt:   time.Now(),
		Breaks: []BreakWrite{
			{BreakTimeID: "b1", Start: models.NewClockTime(12, 0, 0), End: models.NewClockTime(13, 0, 0)},
			{Start: models.NewClockTime(15, 0, 0), End: models.NewClockTime(15, 15, 0)},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDayMissingAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendances").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReplaceDay(context.Background(), DayReplacement{AttendanceID: "missing"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMonth(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "date", "clock_in", "clock_out", "note", "last_modified_by", "last_modified_at", "created_at", "updated_at"}).
		AddRow("a1", "u1", date, "09:00:00", "18:00:00", nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT .+ FROM attendances WHERE user_id = \\$1 AND date >= \\$2 AND date < \\$3").
		WillReturnRows(rows)
	breakRows := sqlmock.NewRows([]string{"id", "attendance_id", "break_start", "break_end", "created_at", "updated_at"}).
		AddRow("b1", "a1", "12:00:00", "13:00:00", now, now)
	mock.ExpectQuery("SELECT .+ FROM break_times WHERE attendance_id = ANY").
		WillReturnRows(breakRows)

	list, err := repo.ListMonth(context.Background(), "u1", date)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 60, list[0].TotalBreakMinutes())
	assert.Equal(t, 480, list[0].WorkMinutes())
	assert.NoError(t, mock.ExpectationsWereMet())
}
