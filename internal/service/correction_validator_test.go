package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timecard-io/timecard-api/internal/models"
)

func ct(h, m int) *models.ClockTime {
	c := models.NewClockTime(h, m, 0)
	return &c
}

func pb(idx int, start, end *models.ClockTime) ProposedBreak {
	return ProposedBreak{Index: idx, Start: start, End: end}
}

func codes(errs []FieldError) []ValidationCode {
	out := make([]ValidationCode, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateAcceptsConsistentDay(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(12, 0), ct(13, 0)),
		pb(1, ct(15, 0), ct(15, 15)),
	}, ActorSelfService)

	assert.Empty(t, errs)
}

func TestValidateClockOrderShortCircuits(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(18, 0), ct(9, 0), []ProposedBreak{
		pb(0, ct(12, 0), nil),
	}, ActorSelfService)

	require.Len(t, errs, 1)
	assert.Equal(t, "corrected_clock_in", errs[0].Field)
	assert.Equal(t, CodeClockOrderInvalid, errs[0].Code)
	assert.Equal(t, "clock-in time is invalid", errs[0].Message())

	errs = v.Validate(ct(9, 0), ct(9, 0), nil, ActorAdminEdit)
	require.Len(t, errs, 1)
	assert.Equal(t, "clock-in or clock-out time is invalid", errs[0].Message(), "equal clocks rejected")
}

func TestValidateOneSidedBreaks(t *testing.T) {
	v := NewCorrectionValidator()
	breaks := []ProposedBreak{
		pb(0, ct(12, 0), nil),
		pb(1, nil, ct(13, 0)),
		pb(2, nil, nil),
	}

	errs := v.Validate(ct(9, 0), ct(18, 0), breaks, ActorSelfService)
	require.Len(t, errs, 2)
	assert.Equal(t, "break_times.0.break_end", errs[0].Field)
	assert.Equal(t, CodeBreakEndRequired, errs[0].Code)
	assert.Equal(t, "break_times.1.break_start", errs[1].Field)
	assert.Equal(t, CodeBreakStartRequired, errs[1].Code)

	errs = v.Validate(ct(9, 0), ct(18, 0), breaks, ActorAdminEdit)
	assert.Empty(t, errs, "admin form drops half-filled rows")
}

func TestValidateBreakEndNotAfterStart(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(13, 0), ct(12, 0)),
		pb(1, ct(14, 0), ct(14, 0)),
	}, ActorAdminEdit)

	require.Len(t, errs, 2)
	assert.Equal(t, "break_times.0.break_end", errs[0].Field)
	assert.Equal(t, CodeBreakEndNotAfterStart, errs[0].Code)
	assert.Equal(t, "break_times.1.break_end", errs[1].Field)
}

func TestValidateBreakOutsideWindow(t *testing.T) {
	v := NewCorrectionValidator()

	// With both clocks set, the per-clock pass and the windowed pass each
	// report the early start, so the start field carries two entries.
	errs := v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(8, 0), ct(8, 30)),
	}, ActorSelfService)
	require.Len(t, errs, 3)
	assert.Equal(t, CodeBreakBeforeClockIn, errs[0].Code)
	assert.Equal(t, "break_times.0.break_start", errs[0].Field)
	assert.Equal(t, "break time is invalid", errs[0].Message())
	assert.Equal(t, errs[0], errs[1])
	assert.Equal(t, CodeBreakEndBeforeClockIn, errs[2].Code)
	assert.Equal(t, "break end time is invalid", errs[2].Message())

	errs = v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(8, 0), ct(8, 30)),
	}, ActorAdminEdit)
	require.Len(t, errs, 3)
	assert.Equal(t, "break time or clock-in time is invalid", errs[0].Message())
	assert.Equal(t, errs[0], errs[1])
	assert.Equal(t, "break time or clock-in time is invalid", errs[2].Message())

	errs = v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(18, 30), ct(19, 0)),
	}, ActorAdminEdit)
	require.Len(t, errs, 3)
	assert.Equal(t, CodeBreakEndAfterClockOut, errs[0].Code)
	assert.Equal(t, "break_times.0.break_end", errs[0].Field)
	assert.Equal(t, CodeBreakAfterClockOut, errs[1].Code)
	assert.Equal(t, "break time is invalid", errs[1].Message())
	assert.Equal(t, CodeBreakEndAfterClockOut, errs[2].Code)
	assert.Equal(t, "break time or clock-out time is invalid", errs[2].Message())
}

func TestValidatePartialClockStillChecksBreaks(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(9, 0), nil, []ProposedBreak{
		pb(0, ct(8, 0), ct(8, 30)),
	}, ActorSelfService)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeBreakBeforeClockIn, errs[0].Code)

	errs = v.Validate(nil, ct(18, 0), []ProposedBreak{
		pb(0, ct(17, 0), ct(19, 0)),
	}, ActorSelfService)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeBreakEndAfterClockOut, errs[0].Code)
}

func TestValidateOverlappingBreaks(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(13, 30), ct(14, 30)),
		pb(1, ct(12, 0), ct(14, 0)),
	}, ActorSelfService)

	require.Len(t, errs, 1)
	assert.Equal(t, CodeBreakOverlap, errs[0].Code)
	assert.Equal(t, "break_times.1.break_end", errs[0].Field, "attributed to the earlier break after ordering by start")
	assert.Equal(t, "break end time (14:00) must come before the next break start time (13:30)", errs[0].Message())

	// Touching intervals are allowed.
	errs = v.Validate(ct(9, 0), ct(18, 0), []ProposedBreak{
		pb(0, ct(12, 0), ct(13, 0)),
		pb(1, ct(13, 0), ct(14, 0)),
	}, ActorSelfService)
	assert.Empty(t, errs)
}

func TestValidateOverlapWithoutClocks(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(nil, nil, []ProposedBreak{
		pb(0, ct(12, 0), ct(13, 0)),
		pb(1, ct(12, 30), ct(14, 0)),
	}, ActorAdminEdit)

	require.Len(t, errs, 1)
	assert.Equal(t, CodeBreakOverlap, errs[0].Code)
	assert.Equal(t, "break end time (13:00) must come before the next break start time (12:30)", errs[0].Message())
}

func TestValidateTotalBreakExceedsSpan(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(9, 0), ct(10, 0), []ProposedBreak{
		pb(0, ct(9, 0), ct(9, 40)),
		pb(1, ct(9, 40), ct(10, 30)),
	}, ActorSelfService)

	require.NotEmpty(t, errs)
	last := errs[len(errs)-1]
	assert.Equal(t, "break_times", last.Field)
	assert.Equal(t, CodeBreakExceedsWork, last.Code)
	assert.Contains(t, codes(errs), CodeBreakEndAfterClockOut)
}

func TestValidateTotalBreakEqualToSpanAllowed(t *testing.T) {
	v := NewCorrectionValidator()

	errs := v.Validate(ct(9, 0), ct(10, 0), []ProposedBreak{
		pb(0, ct(9, 0), ct(10, 0)),
	}, ActorSelfService)

	assert.Empty(t, errs)
}
