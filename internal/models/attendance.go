package models

import "time"

// AttendanceState is the per-day position in the stamp state machine.
type AttendanceState string

const (
	StateOffDuty    AttendanceState = "OFF_DUTY"
	StateWorking    AttendanceState = "WORKING"
	StateOnBreak    AttendanceState = "ON_BREAK"
	StateClockedOut AttendanceState = "CLOCKED_OUT"
)

// StampType identifies a clock or break event.
type StampType string

const (
	StampClockIn    StampType = "clock_in"
	StampBreakStart StampType = "break_start"
	StampBreakEnd   StampType = "break_end"
	StampClockOut   StampType = "clock_out"
)

// Valid returns true when the stamp type is a supported value.
func (s StampType) Valid() bool {
	switch s {
	case StampClockIn, StampBreakStart, StampBreakEnd, StampClockOut:
		return true
	default:
		return false
	}
}

// Attendance is one user's record for one calendar day. A user has at most
// one row per date.
type Attendance struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	Date           time.Time  `db:"date" json:"date"`
	ClockIn        *ClockTime `db:"clock_in" json:"clock_in,omitempty"`
	ClockOut       *ClockTime `db:"clock_out" json:"clock_out,omitempty"`
	Note           *string    `db:"note" json:"note,omitempty"`
	LastModifiedBy *string    `db:"last_modified_by" json:"last_modified_by,omitempty"`
	LastModifiedAt *time.Time `db:"last_modified_at" json:"last_modified_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	BreakTimes []BreakTime `db:"-" json:"break_times,omitempty"`
}

// BreakTime is a single break interval on an attendance record. BreakEnd is
// null while the break is in progress.
type BreakTime struct {
	ID           string     `db:"id" json:"id"`
	AttendanceID string     `db:"attendance_id" json:"attendance_id"`
	BreakStart   *ClockTime `db:"break_start" json:"break_start,omitempty"`
	BreakEnd     *ClockTime `db:"break_end" json:"break_end,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// OpenBreak returns the break in progress, or nil. At most one break per
// attendance may be open at any time.
func (a *Attendance) OpenBreak() *BreakTime {
	for i := range a.BreakTimes {
		b := &a.BreakTimes[i]
		if b.BreakStart != nil && b.BreakEnd == nil {
			return b
		}
	}
	return nil
}

// State derives the stamp state machine position from the record.
func (a *Attendance) State() AttendanceState {
	if a == nil || a.ClockIn == nil {
		return StateOffDuty
	}
	if a.ClockOut != nil {
		return StateClockedOut
	}
	if a.OpenBreak() != nil {
		return StateOnBreak
	}
	return StateWorking
}

// TotalBreakMinutes sums all closed break intervals.
func (a *Attendance) TotalBreakMinutes() int {
	total := 0
	for _, b := range a.BreakTimes {
		if b.BreakStart != nil && b.BreakEnd != nil {
			total += b.BreakStart.MinutesUntil(*b.BreakEnd)
		}
	}
	return total
}

// WorkMinutes returns the clocked span minus breaks, clamped at zero. It is
// zero until both clock times are set.
func (a *Attendance) WorkMinutes() int {
	if a.ClockIn == nil || a.ClockOut == nil {
		return 0
	}
	worked := a.ClockIn.MinutesUntil(*a.ClockOut) - a.TotalBreakMinutes()
	if worked < 0 {
		return 0
	}
	return worked
}

// AttendanceWithUser extends the record with owner metadata for admin lists.
type AttendanceWithUser struct {
	Attendance
	UserName           string `db:"user_name" json:"user_name"`
	UserDepartmentCode *int   `db:"user_department_code" json:"user_department_code,omitempty"`
}
