package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(h, m int) *ClockTime {
	c := NewClockTime(h, m, 0)
	return &c
}

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30", c.Short())
	assert.Equal(t, "09:30:00", c.String())

	c, err = ParseClockTime("18:45:30")
	require.NoError(t, err)
	assert.Equal(t, 18, c.Hour())
	assert.Equal(t, 45, c.Minute())
	assert.Equal(t, 30, c.Second())

	_, err = ParseClockTime("25:00")
	assert.Error(t, err)
}

func TestClockTimeOfTruncatesToSeconds(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 15, 42, 999_000_000, time.UTC)
	assert.Equal(t, "09:15:42", ClockTimeOf(at).String())
}

func TestAttendanceState(t *testing.T) {
	att := &Attendance{}
	assert.Equal(t, StateOffDuty, att.State())

	att.ClockIn = clock(9, 0)
	assert.Equal(t, StateWorking, att.State())

	att.BreakTimes = []BreakTime{{BreakStart: clock(12, 0)}}
	assert.Equal(t, StateOnBreak, att.State())

	att.BreakTimes[0].BreakEnd = clock(13, 0)
	assert.Equal(t, StateWorking, att.State())

	att.ClockOut = clock(18, 0)
	assert.Equal(t, StateClockedOut, att.State())
}

func TestOpenBreakIgnoresClosedBreaks(t *testing.T) {
	att := &Attendance{
		ClockIn: clock(9, 0),
		BreakTimes: []BreakTime{
			{ID: "b1", BreakStart: clock(10, 0), BreakEnd: clock(10, 15)},
			{ID: "b2", BreakStart: clock(12, 0)},
		},
	}
	open := att.OpenBreak()
	require.NotNil(t, open)
	assert.Equal(t, "b2", open.ID)
}

func TestWorkMinutes(t *testing.T) {
	att := &Attendance{
		ClockIn:  clock(9, 0),
		ClockOut: clock(18, 0),
		BreakTimes: []BreakTime{
			{BreakStart: clock(12, 0), BreakEnd: clock(13, 0)},
		},
	}
	assert.Equal(t, 60, att.TotalBreakMinutes())
	assert.Equal(t, 8*60, att.WorkMinutes())
}

func TestWorkMinutesClampsAtZero(t *testing.T) {
	att := &Attendance{
		ClockIn:  clock(9, 0),
		ClockOut: clock(10, 0),
		BreakTimes: []BreakTime{
			{BreakStart: clock(9, 0), BreakEnd: clock(11, 0)},
		},
	}
	assert.Equal(t, 0, att.WorkMinutes())
}

func TestWorkMinutesZeroWhileIncomplete(t *testing.T) {
	att := &Attendance{ClockIn: clock(9, 0)}
	assert.Equal(t, 0, att.WorkMinutes())
}

func TestMinutesAsClock(t *testing.T) {
	assert.Equal(t, "1:30", MinutesAsClock(90))
	assert.Equal(t, "0:05", MinutesAsClock(5))
	assert.Equal(t, "0:00", MinutesAsClock(-10))
}

func TestUserAccessHelpers(t *testing.T) {
	one, two := 1, 2
	full := &User{Role: RoleAdmin, DepartmentCode: &one}
	dept := &User{Role: RoleAdmin, DepartmentCode: &two}
	general := &User{Role: RoleGeneral, DepartmentCode: &two}

	assert.True(t, full.HasFullAccess())
	assert.False(t, full.HasDepartmentAccess())
	assert.True(t, dept.HasDepartmentAccess())
	assert.False(t, dept.HasFullAccess())
	assert.False(t, general.HasFullAccess())
	assert.False(t, general.HasDepartmentAccess())
	assert.True(t, dept.SameDepartment(general))
	assert.False(t, full.SameDepartment(dept))
}
