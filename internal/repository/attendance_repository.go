package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/timecard-io/timecard-api/internal/models"
)

const (
	attendanceColumns = "id, user_id, date, clock_in, clock_out, note, last_modified_by, last_modified_at, created_at, updated_at"
	breakColumns      = "id, attendance_id, break_start, break_end, created_at, updated_at"
)

// QueryObserver receives per-query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// AttendanceRepository handles persistence for attendance records and their
// break intervals.
type AttendanceRepository struct {
	db  *sqlx.DB
	obs QueryObserver
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Instrument attaches a query observer.
func (r *AttendanceRepository) Instrument(obs QueryObserver) {
	r.obs = obs
}

func (r *AttendanceRepository) observe(label string, start time.Time) {
	if r.obs != nil {
		r.obs.ObserveDBQuery(label, time.Since(start))
	}
}

// AttendanceMutator is the write surface available while a (user, date) day
// lock is held.
type AttendanceMutator interface {
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error)
	CreateAttendance(ctx context.Context, att *models.Attendance) error
	SetClockIn(ctx context.Context, attendanceID string, at models.ClockTime) error
	SetClockOut(ctx context.Context, attendanceID string, at models.ClockTime) error
	CreateBreak(ctx context.Context, bt *models.BreakTime) error
	CloseBreak(ctx context.Context, breakID string, end models.ClockTime) error
}

// WithDayLock runs fn inside a transaction holding an advisory lock on the
// (user, date) pair. The lock serializes concurrent stamps for the same user
// and day, including the first clock-in when no attendance row exists yet to
// row-lock; the unique constraint on (user_id, date) is the backstop.
func (r *AttendanceRepository) WithDayLock(ctx context.Context, userID string, date time.Time, fn func(ctx context.Context, m AttendanceMutator) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	key := fmt.Sprintf("attendance:%s:%s", userID, date.Format("2006-01-02"))
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1)::bigint)", key); err != nil {
		return fmt.Errorf("acquire day lock: %w", err)
	}

	if err := fn(ctx, &attendanceTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	committed = true
	return nil
}

type attendanceTx struct {
	tx *sqlx.Tx
}

func (t *attendanceTx) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE user_id = $1 AND date = $2 FOR UPDATE", attendanceColumns)
	var att models.Attendance
	if err := t.tx.GetContext(ctx, &att, query, userID, date); err != nil {
		return nil, err
	}
	breaksQuery := fmt.Sprintf("SELECT %s FROM break_times WHERE attendance_id = $1 ORDER BY created_at ASC", breakColumns)
	if err := t.tx.SelectContext(ctx, &att.BreakTimes, breaksQuery, att.ID); err != nil {
		return nil, fmt.Errorf("load break times: %w", err)
	}
	return &att, nil
}

func (t *attendanceTx) CreateAttendance(ctx context.Context, att *models.Attendance) error {
	now := time.Now().UTC()
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	att.CreatedAt = now
	att.UpdatedAt = now
	query := `INSERT INTO attendances (id, user_id, date, clock_in, clock_out, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := t.tx.ExecContext(ctx, query, att.ID, att.UserID, att.Date, att.ClockIn, att.ClockOut, att.Note, att.CreatedAt, att.UpdatedAt); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

func (t *attendanceTx) SetClockIn(ctx context.Context, attendanceID string, at models.ClockTime) error {
	query := "UPDATE attendances SET clock_in = $2, updated_at = NOW() WHERE id = $1"
	if _, err := t.tx.ExecContext(ctx, query, attendanceID, at); err != nil {
		return fmt.Errorf("set clock in: %w", err)
	}
	return nil
}

func (t *attendanceTx) SetClockOut(ctx context.Context, attendanceID string, at models.ClockTime) error {
	query := "UPDATE attendances SET clock_out = $2, updated_at = NOW() WHERE id = $1"
	if _, err := t.tx.ExecContext(ctx, query, attendanceID, at); err != nil {
		return fmt.Errorf("set clock out: %w", err)
	}
	return nil
}

func (t *attendanceTx) CreateBreak(ctx context.Context, bt *models.BreakTime) error {
	now := time.Now().UTC()
	if bt.ID == "" {
		bt.ID = uuid.NewString()
	}
	bt.CreatedAt = now
	bt.UpdatedAt = now
	query := `INSERT INTO break_times (id, attendance_id, break_start, break_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := t.tx.ExecContext(ctx, query, bt.ID, bt.AttendanceID, bt.BreakStart, bt.BreakEnd, bt.CreatedAt, bt.UpdatedAt); err != nil {
		return fmt.Errorf("create break time: %w", err)
	}
	return nil
}

func (t *attendanceTx) CloseBreak(ctx context.Context, breakID string, end models.ClockTime) error {
	query := "UPDATE break_times SET break_end = $2, updated_at = NOW() WHERE id = $1"
	if _, err := t.tx.ExecContext(ctx, query, breakID, end); err != nil {
		return fmt.Errorf("close break time: %w", err)
	}
	return nil
}

// FindByID loads an attendance record with its break intervals.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	defer r.observe("attendance_find_by_id", time.Now())
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE id = $1 LIMIT 1", attendanceColumns)
	var att models.Attendance
	if err := r.db.GetContext(ctx, &att, query, id); err != nil {
		return nil, err
	}
	breaksQuery := fmt.Sprintf("SELECT %s FROM break_times WHERE attendance_id = $1 ORDER BY created_at ASC", breakColumns)
	if err := r.db.SelectContext(ctx, &att.BreakTimes, breaksQuery, att.ID); err != nil {
		return nil, fmt.Errorf("load break times: %w", err)
	}
	return &att, nil
}

// FindByUserAndDate loads one user's record for one day without locking.
func (r *AttendanceRepository) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error) {
	defer r.observe("attendance_find_by_user_date", time.Now())
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE user_id = $1 AND date = $2 LIMIT 1", attendanceColumns)
	var att models.Attendance
	if err := r.db.GetContext(ctx, &att, query, userID, date); err != nil {
		return nil, err
	}
	breaksQuery := fmt.Sprintf("SELECT %s FROM break_times WHERE attendance_id = $1 ORDER BY created_at ASC", breakColumns)
	if err := r.db.SelectContext(ctx, &att.BreakTimes, breaksQuery, att.ID); err != nil {
		return nil, fmt.Errorf("load break times: %w", err)
	}
	return &att, nil
}

// ListMonth returns one user's records for a calendar month, breaks loaded,
// ordered by date.
func (r *AttendanceRepository) ListMonth(ctx context.Context, userID string, month time.Time) ([]models.Attendance, error) {
	defer r.observe("attendance_list_month", time.Now())
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	next := first.AddDate(0, 1, 0)
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE user_id = $1 AND date >= $2 AND date < $3 ORDER BY date ASC", attendanceColumns)
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, userID, first, next); err != nil {
		return nil, fmt.Errorf("list month attendance: %w", err)
	}
	if err := r.attachBreaks(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByDate returns records for one day across the given users (nil means
// all users), joined with owner metadata.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time, userIDs []string) ([]models.AttendanceWithUser, error) {
	defer r.observe("attendance_list_by_date", time.Now())
	where := []string{"a.date = $1"}
	args := []interface{}{date}
	if userIDs != nil {
		where = append(where, fmt.Sprintf("a.user_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(userIDs))
	}
	query := fmt.Sprintf(`SELECT a.id, a.user_id, a.date, a.clock_in, a.clock_out, a.note,
a.last_modified_by, a.last_modified_at, a.created_at, a.updated_at,
u.name AS user_name, u.department_code AS user_department_code
FROM attendances a
JOIN users u ON u.id = a.user_id
WHERE %s
ORDER BY u.name ASC`, strings.Join(where, " AND "))

	var rows []models.AttendanceWithUser
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}

	plain := make([]models.Attendance, len(rows))
	for i := range rows {
		plain[i] = rows[i].Attendance
	}
	if err := r.attachBreaks(ctx, plain); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].BreakTimes = plain[i].BreakTimes
	}
	return rows, nil
}

func (r *AttendanceRepository) attachBreaks(ctx context.Context, rows []models.Attendance) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query := fmt.Sprintf("SELECT %s FROM break_times WHERE attendance_id = ANY($1) ORDER BY created_at ASC", breakColumns)
	var breaks []models.BreakTime
	if err := r.db.SelectContext(ctx, &breaks, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load break times: %w", err)
	}
	byAttendance := make(map[string][]models.BreakTime, len(rows))
	for _, b := range breaks {
		byAttendance[b.AttendanceID] = append(byAttendance[b.AttendanceID], b)
	}
	for i := range rows {
		rows[i].BreakTimes = byAttendance[rows[i].ID]
	}
	return nil
}

// BreakWrite carries one break interval inside a day replacement. An empty
// BreakTimeID means a new interval.
type BreakWrite struct {
	BreakTimeID string
	Start       models.ClockTime
	End         models.ClockTime
}

// DayReplacement is an admin direct edit write-set: clocks and note are
// overwritten and the break set is fully replaced, deleting intervals not
// listed.
type DayReplacement struct {
	AttendanceID string
	ClockIn      *models.ClockTime
	ClockOut     *models.ClockTime
	Note         *string
	ModifiedBy   string
	ModifiedAt   time.Time
	Breaks       []BreakWrite
}

// ReplaceDay applies a DayReplacement atomically.
func (r *AttendanceRepository) ReplaceDay(ctx context.Context, rep DayReplacement) error {
	defer r.observe("attendance_replace_day", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace day: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := `UPDATE attendances
SET clock_in = $2, clock_out = $3, note = $4, last_modified_by = $5, last_modified_at = $6, updated_at = NOW()
WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, rep.AttendanceID, rep.ClockIn, rep.ClockOut, rep.Note, rep.ModifiedBy, rep.ModifiedAt)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	kept := make([]string, 0, len(rep.Breaks))
	now := time.Now().UTC()
	for _, b := range rep.Breaks {
		if b.BreakTimeID != "" {
			updateQuery := "UPDATE break_times SET break_start = $2, break_end = $3, updated_at = NOW() WHERE id = $1 AND attendance_id = $4"
			if _, err := tx.ExecContext(ctx, updateQuery, b.BreakTimeID, b.Start, b.End, rep.AttendanceID); err != nil {
				return fmt.Errorf("update break time: %w", err)
			}
			kept = append(kept, b.BreakTimeID)
			continue
		}
		id := uuid.NewString()
		insertQuery := `INSERT INTO break_times (id, attendance_id, break_start, break_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, insertQuery, id, rep.AttendanceID, b.Start, b.End, now, now); err != nil {
			return fmt.Errorf("insert break time: %w", err)
		}
		kept = append(kept, id)
	}

	deleteQuery := "DELETE FROM break_times WHERE attendance_id = $1 AND NOT (id = ANY($2))"
	if _, err := tx.ExecContext(ctx, deleteQuery, rep.AttendanceID, pq.Array(kept)); err != nil {
		return fmt.Errorf("prune break times: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace day: %w", err)
	}
	committed = true
	return nil
}

// IsUniqueViolation reports whether err is the unique constraint backstop
// firing, e.g. two concurrent first clock-ins.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
