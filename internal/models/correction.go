package models

import "time"

// StampCorrectionRequest proposes changes to an attendance record's clock
// times. Original values are snapshotted at submission as an audit trail.
// A null ApprovedAt marks the request as pending; at most one pending
// request may exist per attendance.
type StampCorrectionRequest struct {
	ID                string     `db:"id" json:"id"`
	AttendanceID      string     `db:"attendance_id" json:"attendance_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	RequestDate       time.Time  `db:"request_date" json:"request_date"`
	OriginalClockIn   *ClockTime `db:"original_clock_in" json:"original_clock_in,omitempty"`
	OriginalClockOut  *ClockTime `db:"original_clock_out" json:"original_clock_out,omitempty"`
	CorrectedClockIn  *ClockTime `db:"corrected_clock_in" json:"corrected_clock_in,omitempty"`
	CorrectedClockOut *ClockTime `db:"corrected_clock_out" json:"corrected_clock_out,omitempty"`
	Note              string     `db:"note" json:"note"`
	ApprovedBy        *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	BreakCorrections []BreakCorrectionRequest `db:"-" json:"break_corrections,omitempty"`
}

// IsPending reports whether the request still awaits approval.
func (r *StampCorrectionRequest) IsPending() bool {
	return r.ApprovedAt == nil
}

// IsApproved reports whether the request has been approved.
func (r *StampCorrectionRequest) IsApproved() bool {
	return r.ApprovedAt != nil
}

// BreakCorrectionRequest proposes one break interval inside a correction
// request. A null BreakTimeID means a new break to add on approval; a set
// one means a modification of that existing break.
type BreakCorrectionRequest struct {
	ID                       string     `db:"id" json:"id"`
	StampCorrectionRequestID string     `db:"stamp_correction_request_id" json:"stamp_correction_request_id"`
	BreakTimeID              *string    `db:"break_time_id" json:"break_time_id,omitempty"`
	OriginalBreakStart       *ClockTime `db:"original_break_start" json:"original_break_start,omitempty"`
	OriginalBreakEnd         *ClockTime `db:"original_break_end" json:"original_break_end,omitempty"`
	CorrectedBreakStart      *ClockTime `db:"corrected_break_start" json:"corrected_break_start,omitempty"`
	CorrectedBreakEnd        *ClockTime `db:"corrected_break_end" json:"corrected_break_end,omitempty"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// IsModification reports whether the entry targets an existing break.
func (b *BreakCorrectionRequest) IsModification() bool {
	return b.BreakTimeID != nil
}

// CorrectionTab selects pending or approved requests on list screens.
type CorrectionTab string

const (
	TabPending  CorrectionTab = "pending"
	TabApproved CorrectionTab = "approved"
)

// CorrectionFilter scopes correction request listings.
type CorrectionFilter struct {
	Tab CorrectionTab
	// UserIDs limits results to requests submitted by the given users.
	// Nil means no user scoping (full access).
	UserIDs []string
}

// CorrectionWithUser extends a request with submitter metadata and the
// attendance date the request targets, for list screens.
type CorrectionWithUser struct {
	StampCorrectionRequest
	UserName   string    `db:"user_name" json:"user_name"`
	TargetDate time.Time `db:"target_date" json:"target_date"`
}
