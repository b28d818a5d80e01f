package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/internal/repository"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
)

type correctionStore interface {
	FindByID(ctx context.Context, id string) (*models.StampCorrectionRequest, error)
	FindPendingByAttendance(ctx context.Context, attendanceID string) (*models.StampCorrectionRequest, error)
	CreateWithBreaks(ctx context.Context, req *models.StampCorrectionRequest, breaks []models.BreakCorrectionRequest) error
	List(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionWithUser, error)
	ApplyApproval(ctx context.Context, app repository.ApprovalApplication) error
}

type attendanceFinder interface {
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
}

// CorrectionService runs the submit and approve sides of the correction
// workflow.
type CorrectionService struct {
	corrections correctionStore
	attendances attendanceFinder
	users       userReader
	policy      *AccessPolicy
	checker     *CorrectionValidator
	validator   *validator.Validate
	cache       *CacheService
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
}

// NewCorrectionService constructs CorrectionService. loc is the business
// timezone that decides which calendar day a submission is dated with.
func NewCorrectionService(corrections correctionStore, attendances attendanceFinder, users userReader, policy *AccessPolicy, cache *CacheService, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *CorrectionService {
	if policy == nil {
		policy = NewAccessPolicy()
	}
	if loc == nil {
		loc = time.Local
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionService{
		corrections: corrections,
		attendances: attendances,
		users:       users,
		policy:      policy,
		checker:     NewCorrectionValidator(),
		validator:   validate,
		cache:       cache,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
	}
}

func requestNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "correction request not found")
}

// Submit records a correction request against one attendance record. The
// stored request snapshots current values so approvers see both sides.
func (s *CorrectionService) Submit(ctx context.Context, actor *models.User, attendanceID string, req dto.CorrectionSubmitRequest) (*models.StampCorrectionRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}

	att, owner, err := s.loadVisibleAttendance(ctx, actor, attendanceID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRequestCorrection(actor, owner) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot request corrections for this record")
	}

	if _, err := s.corrections.FindPendingByAttendance(ctx, att.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrPendingRequest, "a correction request is awaiting approval for this record")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}

	var fieldErrs []FieldError
	clockIn := parseClockField(req.ClockIn, "corrected_clock_in", CodeClockInFormat, ActorSelfService, &fieldErrs)
	clockOut := parseClockField(req.ClockOut, "corrected_clock_out", CodeClockOutFormat, ActorSelfService, &fieldErrs)
	proposed := parseBreakInputs(req.BreakTimes, ActorSelfService, &fieldErrs)
	if len(fieldErrs) > 0 {
		return nil, validationError(fieldErrs)
	}

	effectiveIn := coalesceClock(clockIn, att.ClockIn)
	effectiveOut := coalesceClock(clockOut, att.ClockOut)
	if errs := s.checker.Validate(effectiveIn, effectiveOut, proposed, ActorSelfService); len(errs) > 0 {
		return nil, validationError(errs)
	}

	existingBreaks := make(map[string]*models.BreakTime, len(att.BreakTimes))
	for i := range att.BreakTimes {
		existingBreaks[att.BreakTimes[i].ID] = &att.BreakTimes[i]
	}
	breakReqs := make([]models.BreakCorrectionRequest, 0, len(proposed))
	for _, p := range proposed {
		if p.Start == nil || p.End == nil {
			continue
		}
		bc := models.BreakCorrectionRequest{
			CorrectedBreakStart: p.Start,
			CorrectedBreakEnd:   p.End,
		}
		if existing, ok := existingBreaks[p.BreakTimeID]; ok {
			id := existing.ID
			bc.BreakTimeID = &id
			bc.OriginalBreakStart = existing.BreakStart
			bc.OriginalBreakEnd = existing.BreakEnd
		}
		breakReqs = append(breakReqs, bc)
	}

	today := s.now().In(s.loc)
	request := &models.StampCorrectionRequest{
		AttendanceID:      att.ID,
		UserID:            actor.ID,
		RequestDate:       time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		OriginalClockIn:   att.ClockIn,
		OriginalClockOut:  att.ClockOut,
		CorrectedClockIn:  clockIn,
		CorrectedClockOut: clockOut,
		Note:              req.Note,
	}
	if err := s.corrections.CreateWithBreaks(ctx, request, breakReqs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create correction request")
	}

	s.logger.Info("correction request submitted",
		zap.String("request_id", request.ID),
		zap.String("attendance_id", att.ID),
		zap.String("submitted_by", actor.ID))
	return request, nil
}

// List returns the pending or approved requests visible to the actor.
func (s *CorrectionService) List(ctx context.Context, actor *models.User, tab models.CorrectionTab) ([]dto.CorrectionListItem, error) {
	filter := models.CorrectionFilter{Tab: tab}
	switch {
	case actor.HasFullAccess():
	case actor.HasDepartmentAccess():
		ids, err := s.users.ListIDsByDepartment(ctx, *actor.DepartmentCode)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department members")
		}
		filter.UserIDs = ids
	default:
		filter.UserIDs = []string{actor.ID}
	}

	rows, err := s.corrections.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list correction requests")
	}

	items := make([]dto.CorrectionListItem, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		items = append(items, dto.CorrectionListItem{
			ID:           r.ID,
			AttendanceID: r.AttendanceID,
			UserID:       r.UserID,
			UserName:     r.UserName,
			RequestDate:  r.RequestDate.Format("2006-01-02"),
			TargetDate:   r.TargetDate.Format("2006-01-02"),
			Note:         r.Note,
			Status:       statusOf(&r.StampCorrectionRequest),
			RequestedAt:  r.CreatedAt,
			ApprovedAt:   r.ApprovedAt,
		})
	}
	return items, nil
}

// Detail returns one request with its snapshots for the approval screen.
func (s *CorrectionService) Detail(ctx context.Context, actor *models.User, requestID string) (*dto.CorrectionDetailResponse, error) {
	request, submitter, err := s.loadVisibleRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	att, err := s.attendances.FindByID(ctx, request.AttendanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return s.toDetail(request, submitter, att.Date), nil
}

// Approve applies a pending request to its attendance record. Clock and note
// changes overwrite; break corrections update or add only the intervals the
// request names, leaving the rest of the record's breaks untouched.
func (s *CorrectionService) Approve(ctx context.Context, actor *models.User, requestID string) (*dto.CorrectionDetailResponse, error) {
	request, submitter, err := s.loadVisibleRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if request.IsApproved() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyApproved, "correction request already approved")
	}
	if !s.policy.CanApprove(actor, request, submitter) {
		if request.UserID == actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot approve your own request")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}

	att, err := s.attendances.FindByID(ctx, request.AttendanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	app := repository.ApprovalApplication{
		RequestID:    request.ID,
		AttendanceID: request.AttendanceID,
		ApproverID:   actor.ID,
		ApprovedAt:   s.now().UTC(),
		ClockIn:      request.CorrectedClockIn,
		ClockOut:     request.CorrectedClockOut,
	}
	if request.Note != "" {
		note := request.Note
		app.Note = &note
	}
	for _, bc := range request.BreakCorrections {
		if bc.CorrectedBreakStart == nil || bc.CorrectedBreakEnd == nil {
			continue
		}
		write := repository.BreakWrite{Start: *bc.CorrectedBreakStart, End: *bc.CorrectedBreakEnd}
		if bc.IsModification() {
			write.BreakTimeID = *bc.BreakTimeID
			app.BreakUpdates = append(app.BreakUpdates, write)
		} else {
			app.BreakCreates = append(app.BreakCreates, write)
		}
	}

	if err := s.corrections.ApplyApproval(ctx, app); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyApproved, "correction request already approved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply correction")
	}

	if s.cache != nil {
		s.cache.InvalidateUser(ctx, att.UserID)
	}
	s.logger.Info("correction request approved",
		zap.String("request_id", request.ID),
		zap.String("attendance_id", request.AttendanceID),
		zap.String("approved_by", actor.ID))

	approverID := actor.ID
	approvedAt := app.ApprovedAt
	request.ApprovedBy = &approverID
	request.ApprovedAt = &approvedAt
	return s.toDetail(request, submitter, att.Date), nil
}

func (s *CorrectionService) loadVisibleAttendance(ctx context.Context, actor *models.User, attendanceID string) (*models.Attendance, *models.User, error) {
	att, err := s.attendances.FindByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, notFound()
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	owner := actor
	if att.UserID != actor.ID {
		owner, err = s.users.FindByID(ctx, att.UserID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record owner")
		}
	}
	if !s.policy.CanView(actor, owner) {
		return nil, nil, notFound()
	}
	return att, owner, nil
}

func (s *CorrectionService) loadVisibleRequest(ctx context.Context, actor *models.User, requestID string) (*models.StampCorrectionRequest, *models.User, error) {
	request, err := s.corrections.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, requestNotFound()
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction request")
	}
	submitter := actor
	if request.UserID != actor.ID {
		submitter, err = s.users.FindByID(ctx, request.UserID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submitter")
		}
	}
	if !s.policy.CanView(actor, submitter) {
		return nil, nil, requestNotFound()
	}
	return request, submitter, nil
}

func (s *CorrectionService) toDetail(request *models.StampCorrectionRequest, submitter *models.User, targetDate time.Time) *dto.CorrectionDetailResponse {
	detail := &dto.CorrectionDetailResponse{
		ID:                request.ID,
		AttendanceID:      request.AttendanceID,
		UserID:            request.UserID,
		RequestDate:       request.RequestDate.Format("2006-01-02"),
		TargetDate:        targetDate.Format("2006-01-02"),
		Status:            statusOf(request),
		Note:              request.Note,
		OriginalClockIn:   shortClock(request.OriginalClockIn),
		OriginalClockOut:  shortClock(request.OriginalClockOut),
		CorrectedClockIn:  shortClock(request.CorrectedClockIn),
		CorrectedClockOut: shortClock(request.CorrectedClockOut),
		BreakCorrections:  make([]dto.BreakCorrectionDetail, 0, len(request.BreakCorrections)),
		RequestedAt:       request.CreatedAt,
		ApprovedBy:        request.ApprovedBy,
		ApprovedAt:        request.ApprovedAt,
	}
	if submitter != nil {
		detail.UserName = submitter.Name
	}
	for _, bc := range request.BreakCorrections {
		detail.BreakCorrections = append(detail.BreakCorrections, dto.BreakCorrectionDetail{
			BreakTimeID:    bc.BreakTimeID,
			OriginalStart:  shortClock(bc.OriginalBreakStart),
			OriginalEnd:    shortClock(bc.OriginalBreakEnd),
			CorrectedStart: shortClock(bc.CorrectedBreakStart),
			CorrectedEnd:   shortClock(bc.CorrectedBreakEnd),
		})
	}
	return detail
}

func statusOf(r *models.StampCorrectionRequest) string {
	if r.IsApproved() {
		return "approved"
	}
	return "pending"
}
