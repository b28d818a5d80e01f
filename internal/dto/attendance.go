package dto

import (
	"time"

	"github.com/timecard-io/timecard-api/internal/models"
)

// StampRequest is the body of a stamp event.
type StampRequest struct {
	StampType string `json:"stamp_type" validate:"required,oneof=clock_in break_start break_end clock_out"`
}

// StampResponse acknowledges a recorded stamp event.
type StampResponse struct {
	AttendanceID string                 `json:"attendance_id"`
	Date         string                 `json:"date"`
	StampType    string                 `json:"stamp_type"`
	State        models.AttendanceState `json:"state"`
}

// BreakEntry is one break interval on a response payload.
type BreakEntry struct {
	ID         string `json:"id,omitempty"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

// TodayResponse reports the user's current position in the stamp cycle.
type TodayResponse struct {
	Date       string                 `json:"date"`
	State      models.AttendanceState `json:"state"`
	Attendance *AttendanceDetail      `json:"attendance,omitempty"`
}

// MonthlyRow is one calendar day in a monthly listing. Days without an
// attendance record carry empty clock fields.
type MonthlyRow struct {
	Date         string `json:"date"`
	AttendanceID string `json:"attendance_id,omitempty"`
	ClockIn      string `json:"clock_in,omitempty"`
	ClockOut     string `json:"clock_out,omitempty"`
	BreakTime    string `json:"break_time,omitempty"`
	WorkTime     string `json:"work_time,omitempty"`
}

// MonthlyListResponse is a user's month of attendance.
type MonthlyListResponse struct {
	UserID   string       `json:"user_id"`
	UserName string       `json:"user_name,omitempty"`
	Month    string       `json:"month"`
	Rows     []MonthlyRow `json:"rows"`
}

// AttendanceDetail is the full record for the detail screen.
type AttendanceDetail struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	UserName   string       `json:"user_name,omitempty"`
	Date       string       `json:"date"`
	State      string       `json:"state"`
	ClockIn    string       `json:"clock_in,omitempty"`
	ClockOut   string       `json:"clock_out,omitempty"`
	Note       string       `json:"note,omitempty"`
	BreakTimes []BreakEntry `json:"break_times"`
	// CanEdit tells the client whether a save goes through the direct edit
	// path or must be submitted as a correction request.
	CanEdit        bool       `json:"can_edit"`
	PendingRequest *string    `json:"pending_request_id,omitempty"`
	LastModifiedBy *string    `json:"last_modified_by,omitempty"`
	LastModifiedAt *time.Time `json:"last_modified_at,omitempty"`
}

// BreakEntryInput is one break interval as submitted on an edit or
// correction form. Times use the "15:04" form; empty strings mean unset.
type BreakEntryInput struct {
	ID         string `json:"id"`
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
}

// AdminUpdateRequest is an admin direct edit of one attendance record.
// Empty clock strings keep the existing values; the break list replaces the
// record's break set entirely.
type AdminUpdateRequest struct {
	ClockIn    string            `json:"clock_in"`
	ClockOut   string            `json:"clock_out"`
	Note       string            `json:"note" validate:"required,max=255"`
	BreakTimes []BreakEntryInput `json:"break_times" validate:"omitempty,dive"`
}

// DailyRow is one user's attendance on the admin daily screen.
type DailyRow struct {
	AttendanceID   string `json:"attendance_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	DepartmentCode *int   `json:"department_code,omitempty"`
	ClockIn        string `json:"clock_in,omitempty"`
	ClockOut       string `json:"clock_out,omitempty"`
	BreakTime      string `json:"break_time,omitempty"`
	WorkTime       string `json:"work_time,omitempty"`
}

// DailyListResponse is the admin view of every visible record on one date.
type DailyListResponse struct {
	Date time.Time  `json:"date"`
	Rows []DailyRow `json:"rows"`
}

// StaffItem is one row on the admin staff listing.
type StaffItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	DepartmentCode *int   `json:"department_code,omitempty"`
}
