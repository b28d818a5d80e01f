package dto

import "time"

// CorrectionSubmitRequest proposes new clock and break values for one
// attendance record. Empty clock strings leave the stored value in place.
type CorrectionSubmitRequest struct {
	ClockIn    string            `json:"clock_in"`
	ClockOut   string            `json:"clock_out"`
	Note       string            `json:"note" validate:"required,max=255"`
	BreakTimes []BreakEntryInput `json:"break_times" validate:"omitempty,dive"`
}

// CorrectionListItem is one row on the pending or approved tab.
type CorrectionListItem struct {
	ID           string     `json:"id"`
	AttendanceID string     `json:"attendance_id"`
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name"`
	RequestDate  string     `json:"request_date"`
	TargetDate   string     `json:"target_date"`
	Note         string     `json:"note"`
	Status       string     `json:"status"`
	RequestedAt  time.Time  `json:"requested_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
}

// BreakCorrectionDetail shows one proposed break alongside its snapshot.
type BreakCorrectionDetail struct {
	BreakTimeID    *string `json:"break_time_id,omitempty"`
	OriginalStart  string  `json:"original_break_start,omitempty"`
	OriginalEnd    string  `json:"original_break_end,omitempty"`
	CorrectedStart string  `json:"corrected_break_start,omitempty"`
	CorrectedEnd   string  `json:"corrected_break_end,omitempty"`
}

// CorrectionDetailResponse is the approval screen payload.
type CorrectionDetailResponse struct {
	ID                string                  `json:"id"`
	AttendanceID      string                  `json:"attendance_id"`
	UserID            string                  `json:"user_id"`
	UserName          string                  `json:"user_name,omitempty"`
	RequestDate       string                  `json:"request_date"`
	TargetDate        string                  `json:"target_date"`
	Status            string                  `json:"status"`
	Note              string                  `json:"note"`
	OriginalClockIn   string                  `json:"original_clock_in,omitempty"`
	OriginalClockOut  string                  `json:"original_clock_out,omitempty"`
	CorrectedClockIn  string                  `json:"corrected_clock_in,omitempty"`
	CorrectedClockOut string                  `json:"corrected_clock_out,omitempty"`
	BreakCorrections  []BreakCorrectionDetail `json:"break_corrections"`
	RequestedAt       time.Time               `json:"requested_at"`
	ApprovedBy        *string                 `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time              `json:"approved_at,omitempty"`
}
