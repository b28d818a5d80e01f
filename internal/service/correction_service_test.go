package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/models"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
)

func newCorrectionService(corr *mockCorrectionRepo, atts *mockAttendanceRepo, users *mockUserRepo) *CorrectionService {
	svc := NewCorrectionService(corr, atts, users, NewAccessPolicy(), nil, time.UTC, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestSubmitSnapshotsCurrentValues(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	corr := &mockCorrectionRepo{}
	svc := newCorrectionService(corr, atts, users)

	req := dto.CorrectionSubmitRequest{
		ClockIn: "08:30",
		Note:    "forgot to clock in on arrival",
		BreakTimes: []dto.BreakEntryInput{
			{ID: "b1", BreakStart: "12:00", BreakEnd: "12:45"},
			{BreakStart: "15:00", BreakEnd: "15:15"},
		},
	}
	created, err := svc.Submit(context.Background(), users.users["u1"], "att-1", req)
	require.NoError(t, err)
	require.NotNil(t, corr.created)

	assert.Equal(t, "att-1", created.AttendanceID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), created.RequestDate, "dated on the submission day, not the record's day")
	assert.Equal(t, "09:00", created.OriginalClockIn.Short())
	assert.Equal(t, "18:00", created.OriginalClockOut.Short())
	assert.Equal(t, "08:30", created.CorrectedClockIn.Short())
	assert.Nil(t, created.CorrectedClockOut, "untouched clock stays nil")

	require.Len(t, created.BreakCorrections, 2)
	modify := created.BreakCorrections[0]
	require.NotNil(t, modify.BreakTimeID)
	assert.Equal(t, "b1", *modify.BreakTimeID)
	assert.Equal(t, "12:00", modify.OriginalBreakStart.Short())
	assert.Equal(t, "13:00", modify.OriginalBreakEnd.Short())
	assert.Equal(t, "12:45", modify.CorrectedBreakEnd.Short())

	addition := created.BreakCorrections[1]
	assert.Nil(t, addition.BreakTimeID)
	assert.Equal(t, "15:00", addition.CorrectedBreakStart.Short())
}

func TestSubmitSecondPendingRejected(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	corr := &mockCorrectionRepo{pending: map[string]*models.StampCorrectionRequest{"att-1": {ID: "req-1"}}}
	svc := newCorrectionService(corr, atts, users)

	_, err := svc.Submit(context.Background(), users.users["u1"], "att-1", dto.CorrectionSubmitRequest{Note: "again"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPendingRequest.Code, appErrors.FromError(err).Code)
	assert.Nil(t, corr.created)
}

func TestSubmitValidatesAgainstEffectiveValues(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	svc := newCorrectionService(&mockCorrectionRepo{}, atts, users)

	// Proposed clock-in lands after the stored clock-out.
	req := dto.CorrectionSubmitRequest{ClockIn: "19:00", Note: "typo"}
	_, err := svc.Submit(context.Background(), users.users["u1"], "att-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	details, ok := appErr.Details.([]ValidationDetail)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "corrected_clock_in", details[0].Field)
	assert.Equal(t, "clock-in time is invalid", details[0].Message)
}

func TestSubmitPeerRecordConcealed(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	svc := newCorrectionService(&mockCorrectionRepo{}, atts, users)

	_, err := svc.Submit(context.Background(), users.users["u2"], "att-1", dto.CorrectionSubmitRequest{Note: "not mine"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmitRequiresNote(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	svc := newCorrectionService(&mockCorrectionRepo{}, atts, users)

	_, err := svc.Submit(context.Background(), users.users["u1"], "att-1", dto.CorrectionSubmitRequest{ClockIn: "08:30"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListScopesBySubmitter(t *testing.T) {
	users := seedUsers()
	corr := &mockCorrectionRepo{}
	svc := newCorrectionService(corr, &mockAttendanceRepo{}, users)

	_, err := svc.List(context.Background(), users.users["u1"], models.TabPending)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, corr.filter.UserIDs)
	assert.Equal(t, models.TabPending, corr.filter.Tab)

	_, err = svc.List(context.Background(), users.users["dadm"], models.TabApproved)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "dadm"}, corr.filter.UserIDs)
	assert.Equal(t, models.TabApproved, corr.filter.Tab)

	_, err = svc.List(context.Background(), users.users["adm"], models.TabPending)
	require.NoError(t, err)
	assert.Nil(t, corr.filter.UserIDs)
}

func TestListKeepsRequestAndTargetDatesApart(t *testing.T) {
	users := seedUsers()
	corr := &mockCorrectionRepo{listed: []models.CorrectionWithUser{{
		StampCorrectionRequest: *pendingRequest(),
		UserName:               "User One",
		TargetDate:             time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}}}
	svc := newCorrectionService(corr, &mockAttendanceRepo{}, users)

	items, err := svc.List(context.Background(), users.users["adm"], models.TabPending)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2026-03-04", items[0].RequestDate)
	assert.Equal(t, "2026-03-02", items[0].TargetDate, "the attendance record's day")
}

func pendingRequest() *models.StampCorrectionRequest {
	b1 := "b1"
	return &models.StampCorrectionRequest{
		ID:                "req-1",
		AttendanceID:      "att-1",
		UserID:            "u1",
		RequestDate:       time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		OriginalClockIn:   clockAt(9, 0),
		CorrectedClockIn:  clockAt(8, 30),
		CorrectedClockOut: nil,
		Note:              "forgot to clock in",
		BreakCorrections: []models.BreakCorrectionRequest{
			{BreakTimeID: &b1, CorrectedBreakStart: clockAt(12, 0), CorrectedBreakEnd: clockAt(12, 45)},
			{CorrectedBreakStart: clockAt(15, 0), CorrectedBreakEnd: clockAt(15, 15)},
		},
	}
}

func TestApproveAppliesWriteSet(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	corr := &mockCorrectionRepo{requests: map[string]*models.StampCorrectionRequest{"req-1": pendingRequest()}}
	svc := newCorrectionService(corr, atts, users)

	detail, err := svc.Approve(context.Background(), users.users["adm"], "req-1")
	require.NoError(t, err)

	app := corr.applied
	require.NotNil(t, app)
	assert.Equal(t, "req-1", app.RequestID)
	assert.Equal(t, "att-1", app.AttendanceID)
	assert.Equal(t, "adm", app.ApproverID)
	assert.Equal(t, "08:30", app.ClockIn.Short())
	assert.Nil(t, app.ClockOut, "unrequested clock stays untouched")
	require.NotNil(t, app.Note)
	assert.Equal(t, "forgot to clock in", *app.Note)
	require.Len(t, app.BreakUpdates, 1)
	assert.Equal(t, "b1", app.BreakUpdates[0].BreakTimeID)
	require.Len(t, app.BreakCreates, 1)
	assert.Equal(t, "15:00", app.BreakCreates[0].Start.Short())

	assert.Equal(t, "approved", detail.Status)
	require.NotNil(t, detail.ApprovedBy)
	assert.Equal(t, "adm", *detail.ApprovedBy)
}

func TestApproveSelfRejected(t *testing.T) {
	users := seedUsers()
	req := pendingRequest()
	req.UserID = "dadm"
	att := &models.Attendance{ID: "att-1", UserID: "dadm", Date: req.RequestDate}
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	corr := &mockCorrectionRepo{requests: map[string]*models.StampCorrectionRequest{"req-1": req}}
	svc := newCorrectionService(corr, atts, users)

	_, err := svc.Approve(context.Background(), users.users["dadm"], "req-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "you cannot approve your own request", appErr.Message)
	assert.Nil(t, corr.applied)
}

func TestApproveByGeneralUserRejected(t *testing.T) {
	users := seedUsers()
	corr := &mockCorrectionRepo{requests: map[string]*models.StampCorrectionRequest{"req-1": pendingRequest()}}
	svc := newCorrectionService(corr, &mockAttendanceRepo{}, users)

	req := corr.requests["req-1"]
	req.UserID = "u2"

	_, err := svc.Approve(context.Background(), users.users["u2"], "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApproveAlreadyApproved(t *testing.T) {
	users := seedUsers()
	req := pendingRequest()
	ts := time.Now().UTC()
	req.ApprovedAt = &ts
	corr := &mockCorrectionRepo{requests: map[string]*models.StampCorrectionRequest{"req-1": req}}
	svc := newCorrectionService(corr, &mockAttendanceRepo{}, users)

	_, err := svc.Approve(context.Background(), users.users["adm"], "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyApproved.Code, appErrors.FromError(err).Code)
}

func TestApproveRaceFallsBackToConflict(t *testing.T) {
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	users := seedUsers()
	corr := &mockCorrectionRepo{
		requests: map[string]*models.StampCorrectionRequest{"req-1": pendingRequest()},
		raced:    true,
	}
	svc := newCorrectionService(corr, atts, users)

	_, err := svc.Approve(context.Background(), users.users["adm"], "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyApproved.Code, appErrors.FromError(err).Code)
}

func TestDetailConcealedOutsideScope(t *testing.T) {
	users := seedUsers()
	att := seedAttendance(clockAt(9, 0), clockAt(18, 0))
	atts := &mockAttendanceRepo{byID: map[string]*models.Attendance{"att-1": att}}
	corr := &mockCorrectionRepo{requests: map[string]*models.StampCorrectionRequest{"req-1": pendingRequest()}}
	svc := newCorrectionService(corr, atts, users)

	detail, err := svc.Detail(context.Background(), users.users["u1"], "req-1")
	require.NoError(t, err, "submitters see their own requests")
	assert.Equal(t, "pending", detail.Status)
	assert.Equal(t, "08:30", detail.CorrectedClockIn)
	assert.Equal(t, "2026-03-02", detail.TargetDate, "taken from the attendance record")
	assert.Equal(t, "2026-03-04", detail.RequestDate)

	_, err = svc.Detail(context.Background(), users.users["u9"], "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
