package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/timecard-io/timecard-api/internal/models"
)

const (
	correctionColumns = "id, attendance_id, user_id, request_date, original_clock_in, original_clock_out, corrected_clock_in, corrected_clock_out, note, approved_by, approved_at, created_at, updated_at"
	breakCorrColumns  = "id, stamp_correction_request_id, break_time_id, original_break_start, original_break_end, corrected_break_start, corrected_break_end, created_at, updated_at"
)

// CorrectionRepository handles persistence for stamp correction requests and
// their break corrections.
type CorrectionRepository struct {
	db *sqlx.DB
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db *sqlx.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// FindByID loads a request with its break corrections.
func (r *CorrectionRepository) FindByID(ctx context.Context, id string) (*models.StampCorrectionRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM stamp_correction_requests WHERE id = $1 LIMIT 1", correctionColumns)
	var req models.StampCorrectionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	if err := r.loadBreakCorrections(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindPendingByAttendance returns the pending request for an attendance, or
// sql.ErrNoRows when none exists.
func (r *CorrectionRepository) FindPendingByAttendance(ctx context.Context, attendanceID string) (*models.StampCorrectionRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM stamp_correction_requests WHERE attendance_id = $1 AND approved_at IS NULL LIMIT 1", correctionColumns)
	var req models.StampCorrectionRequest
	if err := r.db.GetContext(ctx, &req, query, attendanceID); err != nil {
		return nil, err
	}
	if err := r.loadBreakCorrections(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *CorrectionRepository) loadBreakCorrections(ctx context.Context, req *models.StampCorrectionRequest) error {
	query := fmt.Sprintf("SELECT %s FROM break_correction_requests WHERE stamp_correction_request_id = $1 ORDER BY created_at ASC", breakCorrColumns)
	if err := r.db.SelectContext(ctx, &req.BreakCorrections, query, req.ID); err != nil {
		return fmt.Errorf("load break corrections: %w", err)
	}
	return nil
}

// CreateWithBreaks persists a request and its break corrections as one unit.
func (r *CorrectionRepository) CreateWithBreaks(ctx context.Context, req *models.StampCorrectionRequest, breaks []models.BreakCorrectionRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create correction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	query := `INSERT INTO stamp_correction_requests
(id, attendance_id, user_id, request_date, original_clock_in, original_clock_out, corrected_clock_in, corrected_clock_out, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := tx.ExecContext(ctx, query,
		req.ID, req.AttendanceID, req.UserID, req.RequestDate,
		req.OriginalClockIn, req.OriginalClockOut, req.CorrectedClockIn, req.CorrectedClockOut,
		req.Note, req.CreatedAt, req.UpdatedAt); err != nil {
		return fmt.Errorf("create correction request: %w", err)
	}

	breakQuery := `INSERT INTO break_correction_requests
(id, stamp_correction_request_id, break_time_id, original_break_start, original_break_end, corrected_break_start, corrected_break_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range breaks {
		bc := &breaks[i]
		if bc.ID == "" {
			bc.ID = uuid.NewString()
		}
		bc.StampCorrectionRequestID = req.ID
		bc.CreatedAt = now
		bc.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, breakQuery,
			bc.ID, bc.StampCorrectionRequestID, bc.BreakTimeID,
			bc.OriginalBreakStart, bc.OriginalBreakEnd,
			bc.CorrectedBreakStart, bc.CorrectedBreakEnd,
			bc.CreatedAt, bc.UpdatedAt); err != nil {
			return fmt.Errorf("create break correction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create correction: %w", err)
	}
	committed = true
	req.BreakCorrections = breaks
	return nil
}

// List returns requests matching the filter joined with submitter names and
// the dates of the attendance records they target. Pending requests order by
// request date; approved ones by approval time.
func (r *CorrectionRepository) List(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionWithUser, error) {
	where := []string{}
	args := []interface{}{}
	if filter.Tab == models.TabApproved {
		where = append(where, "r.approved_at IS NOT NULL")
	} else {
		where = append(where, "r.approved_at IS NULL")
	}
	if filter.UserIDs != nil {
		where = append(where, fmt.Sprintf("r.user_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.UserIDs))
	}
	order := "r.request_date DESC, r.created_at DESC"
	if filter.Tab == models.TabApproved {
		order = "r.approved_at DESC, r.request_date DESC"
	}
	query := fmt.Sprintf(`SELECT r.id, r.attendance_id, r.user_id, r.request_date,
r.original_clock_in, r.original_clock_out, r.corrected_clock_in, r.corrected_clock_out,
r.note, r.approved_by, r.approved_at, r.created_at, r.updated_at,
u.name AS user_name, a.date AS target_date
FROM stamp_correction_requests r
JOIN users u ON u.id = r.user_id
JOIN attendances a ON a.id = r.attendance_id
WHERE %s
ORDER BY %s`, strings.Join(where, " AND "), order)

	var rows []models.CorrectionWithUser
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list correction requests: %w", err)
	}
	return rows, nil
}

// ApprovalApplication is the write-set applied when a request is approved.
// Nil clock or note values leave the attendance field unchanged. Breaks on
// the attendance not referenced here are left untouched.
type ApprovalApplication struct {
	RequestID    string
	AttendanceID string
	ApproverID   string
	ApprovedAt   time.Time
	ClockIn      *models.ClockTime
	ClockOut     *models.ClockTime
	Note         *string
	BreakUpdates []BreakWrite
	BreakCreates []BreakWrite
}

// ApplyApproval marks the request approved and applies its write-set to the
// attendance record atomically. It returns sql.ErrNoRows when the request
// was already approved by a concurrent actor.
func (r *CorrectionRepository) ApplyApproval(ctx context.Context, app ApprovalApplication) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// The approved_at guard makes a second concurrent approval observe zero
	// affected rows and fail cleanly instead of double-applying.
	guard := `UPDATE stamp_correction_requests
SET approved_by = $2, approved_at = $3, updated_at = NOW()
WHERE id = $1 AND approved_at IS NULL`
	result, err := tx.ExecContext(ctx, guard, app.RequestID, app.ApproverID, app.ApprovedAt)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	sets := []string{"last_modified_by = $2", "last_modified_at = $3", "updated_at = NOW()"}
	args := []interface{}{app.AttendanceID, app.ApproverID, app.ApprovedAt}
	if app.ClockIn != nil {
		sets = append(sets, fmt.Sprintf("clock_in = $%d", len(args)+1))
		args = append(args, *app.ClockIn)
	}
	if app.ClockOut != nil {
		sets = append(sets, fmt.Sprintf("clock_out = $%d", len(args)+1))
		args = append(args, *app.ClockOut)
	}
	if app.Note != nil {
		sets = append(sets, fmt.Sprintf("note = $%d", len(args)+1))
		args = append(args, *app.Note)
	}
	attendanceQuery := fmt.Sprintf("UPDATE attendances SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := tx.ExecContext(ctx, attendanceQuery, args...); err != nil {
		return fmt.Errorf("apply attendance correction: %w", err)
	}

	for _, b := range app.BreakUpdates {
		updateQuery := "UPDATE break_times SET break_start = $2, break_end = $3, updated_at = NOW() WHERE id = $1 AND attendance_id = $4"
		if _, err := tx.ExecContext(ctx, updateQuery, b.BreakTimeID, b.Start, b.End, app.AttendanceID); err != nil {
			return fmt.Errorf("apply break correction: %w", err)
		}
	}
	now := time.Now().UTC()
	for _, b := range app.BreakCreates {
		insertQuery := `INSERT INTO break_times (id, attendance_id, break_start, break_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), app.AttendanceID, b.Start, b.End, now, now); err != nil {
			return fmt.Errorf("add corrected break: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}
	committed = true
	return nil
}
