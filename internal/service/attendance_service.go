package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/internal/repository"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
)

type attendanceReader interface {
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error)
	ListMonth(ctx context.Context, userID string, month time.Time) ([]models.Attendance, error)
	ListByDate(ctx context.Context, date time.Time, userIDs []string) ([]models.AttendanceWithUser, error)
	ReplaceDay(ctx context.Context, rep repository.DayReplacement) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListIDsByDepartment(ctx context.Context, departmentCode int) ([]string, error)
}

type pendingReader interface {
	FindPendingByAttendance(ctx context.Context, attendanceID string) (*models.StampCorrectionRequest, error)
}

// ValidationDetail is one field failure carried on a validation error
// response.
type ValidationDetail struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func validationError(errs []FieldError) error {
	details := make([]ValidationDetail, 0, len(errs))
	for _, e := range errs {
		details = append(details, ValidationDetail{Field: e.Field, Code: string(e.Code), Message: e.Message()})
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "correction validation failed"), details)
}

// AttendanceService serves the read surface and the admin direct edit path.
type AttendanceService struct {
	attendances attendanceReader
	users       userReader
	corrections pendingReader
	policy      *AccessPolicy
	checker     *CorrectionValidator
	validator   *validator.Validate
	cache       *CacheService
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendances attendanceReader, users userReader, corrections pendingReader, policy *AccessPolicy, cache *CacheService, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if policy == nil {
		policy = NewAccessPolicy()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceService{
		attendances: attendances,
		users:       users,
		corrections: corrections,
		policy:      policy,
		checker:     NewCorrectionValidator(),
		validator:   validate,
		cache:       cache,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
	}
}

// notFound conceals records the actor may not see. An unauthorized probe and
// a genuinely missing record are indistinguishable to the caller.
func notFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
}

// Today reports the actor's current stamp state and record for today.
func (s *AttendanceService) Today(ctx context.Context, actor *models.User) (*dto.TodayResponse, error) {
	now := s.now().In(s.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	att, err := s.attendances.FindByUserAndDate(ctx, actor.ID, day)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	resp := &dto.TodayResponse{
		Date:  day.Format("2006-01-02"),
		State: att.State(),
	}
	if att != nil {
		resp.Attendance = s.toDetail(att, actor, nil, false)
	}
	return resp, nil
}

// ListMonth returns targetUserID's attendance for the month, one row per
// calendar day. month uses the "2006-01" form.
func (s *AttendanceService) ListMonth(ctx context.Context, actor *models.User, targetUserID, month string) (*dto.MonthlyListResponse, error) {
	target, err := s.resolveTarget(ctx, actor, targetUserID)
	if err != nil {
		return nil, err
	}
	if month == "" {
		month = s.now().In(s.loc).Format("2006-01")
	}
	start, err := parseMonth(month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM form")
	}

	key := MonthlyListKey(target.ID, start)
	var cached dto.MonthlyListResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	records, err := s.attendances.ListMonth(ctx, target.ID, start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	byDate := make(map[string]*models.Attendance, len(records))
	for i := range records {
		byDate[records[i].Date.Format("2006-01-02")] = &records[i]
	}

	resp := &dto.MonthlyListResponse{
		UserID:   target.ID,
		UserName: target.Name,
		Month:    start.Format("2006-01"),
		Rows:     make([]dto.MonthlyRow, 0, 31),
	}
	for d := start; d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
		dateKey := d.Format("2006-01-02")
		row := dto.MonthlyRow{Date: dateKey}
		if att, ok := byDate[dateKey]; ok {
			row.AttendanceID = att.ID
			row.ClockIn = shortClock(att.ClockIn)
			row.ClockOut = shortClock(att.ClockOut)
			row.BreakTime = models.MinutesAsClock(att.TotalBreakMinutes())
			row.WorkTime = models.MinutesAsClock(att.WorkMinutes())
		}
		resp.Rows = append(resp.Rows, row)
	}

	_ = s.cache.Set(ctx, key, resp, 0)
	return resp, nil
}

// Detail returns one attendance record with edit affordances for the actor.
func (s *AttendanceService) Detail(ctx context.Context, actor *models.User, attendanceID string) (*dto.AttendanceDetail, error) {
	att, owner, err := s.loadVisible(ctx, actor, attendanceID)
	if err != nil {
		return nil, err
	}

	pending, err := s.findPending(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	canEdit := s.policy.CanDirectEdit(actor, owner) && pending == nil
	return s.toDetail(att, owner, pending, canEdit), nil
}

// UpdateByAdmin applies an admin direct edit: clocks and note are merged
// over existing values, the break set is replaced wholesale. Rejected when a
// pending correction request exists for the record.
func (s *AttendanceService) UpdateByAdmin(ctx context.Context, actor *models.User, attendanceID string, req dto.AdminUpdateRequest) (*dto.AttendanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	att, owner, err := s.loadVisible(ctx, actor, attendanceID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanDirectEdit(actor, owner) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submit a correction request for this record")
	}

	if pending, err := s.findPending(ctx, att.ID); err != nil {
		return nil, err
	} else if pending != nil {
		return nil, appErrors.Clone(appErrors.ErrPendingRequest, "a correction request is awaiting approval for this record")
	}

	var fieldErrs []FieldError
	clockIn := parseClockField(req.ClockIn, "clock_in", CodeClockInFormat, ActorAdminEdit, &fieldErrs)
	clockOut := parseClockField(req.ClockOut, "clock_out", CodeClockOutFormat, ActorAdminEdit, &fieldErrs)
	proposed := parseBreakInputs(req.BreakTimes, ActorAdminEdit, &fieldErrs)
	if len(fieldErrs) > 0 {
		return nil, validationError(fieldErrs)
	}

	// Absent clocks keep their stored values; validation runs on the
	// effective record, not just the submitted fragment.
	effectiveIn := coalesceClock(clockIn, att.ClockIn)
	effectiveOut := coalesceClock(clockOut, att.ClockOut)
	if errs := s.checker.Validate(effectiveIn, effectiveOut, proposed, ActorAdminEdit); len(errs) > 0 {
		return nil, validationError(errs)
	}

	existing := make(map[string]bool, len(att.BreakTimes))
	for _, b := range att.BreakTimes {
		existing[b.ID] = true
	}
	writes := make([]repository.BreakWrite, 0, len(proposed))
	for _, p := range proposed {
		if p.Start == nil || p.End == nil {
			continue
		}
		w := repository.BreakWrite{Start: *p.Start, End: *p.End}
		if existing[p.BreakTimeID] {
			w.BreakTimeID = p.BreakTimeID
		}
		writes = append(writes, w)
	}

	note := req.Note
	modifiedAt := s.now().UTC()
	rep := repository.DayReplacement{
		AttendanceID: att.ID,
		ClockIn:      effectiveIn,
		ClockOut:     effectiveOut,
		Note:         &note,
		ModifiedBy:   actor.ID,
		ModifiedAt:   modifiedAt,
		Breaks:       writes,
	}
	if err := s.attendances.ReplaceDay(ctx, rep); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}

	if s.cache != nil {
		s.cache.InvalidateUser(ctx, owner.ID)
	}
	s.logger.Info("attendance edited",
		zap.String("attendance_id", att.ID),
		zap.String("owner_id", owner.ID),
		zap.String("edited_by", actor.ID))

	updated, err := s.attendances.FindByID(ctx, att.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload attendance")
	}
	return s.toDetail(updated, owner, nil, true), nil
}

// DailyList returns every record the actor may see for one date.
func (s *AttendanceService) DailyList(ctx context.Context, actor *models.User, date time.Time) (*dto.DailyListResponse, error) {
	userIDs, err := s.visibleUserIDs(ctx, actor)
	if err != nil {
		return nil, err
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	records, err := s.attendances.ListByDate(ctx, day, userIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	resp := &dto.DailyListResponse{Date: day, Rows: make([]dto.DailyRow, 0, len(records))}
	for i := range records {
		rec := &records[i]
		resp.Rows = append(resp.Rows, dto.DailyRow{
			AttendanceID:   rec.ID,
			UserID:         rec.UserID,
			UserName:       rec.UserName,
			DepartmentCode: rec.UserDepartmentCode,
			ClockIn:        shortClock(rec.ClockIn),
			ClockOut:       shortClock(rec.ClockOut),
			BreakTime:      models.MinutesAsClock(rec.TotalBreakMinutes()),
			WorkTime:       models.MinutesAsClock(rec.WorkMinutes()),
		})
	}
	return resp, nil
}

// DayOrToday parses a YYYY-MM-DD value, defaulting to the current business
// day when the value is empty.
func (s *AttendanceService) DayOrToday(value string) (time.Time, error) {
	if value == "" {
		now := s.now().In(s.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD form")
	}
	return t, nil
}

// ListStaff returns the users whose attendance the actor administers.
func (s *AttendanceService) ListStaff(ctx context.Context, actor *models.User) ([]dto.StaffItem, error) {
	filter := models.UserFilter{}
	switch {
	case actor.HasFullAccess():
	case actor.HasDepartmentAccess():
		filter.DepartmentCode = actor.DepartmentCode
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}

	users, _, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	items := make([]dto.StaffItem, 0, len(users))
	for _, u := range users {
		items = append(items, dto.StaffItem{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Role:           string(u.Role),
			DepartmentCode: u.DepartmentCode,
		})
	}
	return items, nil
}

func (s *AttendanceService) loadVisible(ctx context.Context, actor *models.User, attendanceID string) (*models.Attendance, *models.User, error) {
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

func (s *AttendanceService) resolveTarget(ctx context.Context, actor *models.User, targetUserID string) (*models.User, error) {
	if targetUserID == "" || targetUserID == actor.ID {
		return actor, nil
	}
	target, err := s.users.FindByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !s.policy.CanView(actor, target) {
		return nil, notFound()
	}
	return target, nil
}

func (s *AttendanceService) visibleUserIDs(ctx context.Context, actor *models.User) ([]string, error) {
	switch {
	case actor.HasFullAccess():
		return nil, nil
	case actor.HasDepartmentAccess():
		ids, err := s.users.ListIDsByDepartment(ctx, *actor.DepartmentCode)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department members")
		}
		return ids, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
}

func (s *AttendanceService) findPending(ctx context.Context, attendanceID string) (*models.StampCorrectionRequest, error) {
	pending, err := s.corrections.FindPendingByAttendance(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	return pending, nil
}

func (s *AttendanceService) toDetail(att *models.Attendance, owner *models.User, pending *models.StampCorrectionRequest, canEdit bool) *dto.AttendanceDetail {
	detail := &dto.AttendanceDetail{
		ID:             att.ID,
		UserID:         att.UserID,
		Date:           att.Date.Format("2006-01-02"),
		State:          string(att.State()),
		ClockIn:        shortClock(att.ClockIn),
		ClockOut:       shortClock(att.ClockOut),
		BreakTimes:     make([]dto.BreakEntry, 0, len(att.BreakTimes)),
		CanEdit:        canEdit,
		LastModifiedBy: att.LastModifiedBy,
		LastModifiedAt: att.LastModifiedAt,
	}
	if owner != nil {
		detail.UserName = owner.Name
	}
	if att.Note != nil {
		detail.Note = *att.Note
	}
	if pending != nil {
		id := pending.ID
		detail.PendingRequest = &id
	}
	for _, b := range att.BreakTimes {
		detail.BreakTimes = append(detail.BreakTimes, dto.BreakEntry{
			ID:         b.ID,
			BreakStart: shortClock(b.BreakStart),
			BreakEnd:   shortClock(b.BreakEnd),
		})
	}
	return detail
}

func shortClock(c *models.ClockTime) string {
	if c == nil {
		return ""
	}
	return c.Short()
}

func coalesceClock(preferred, fallback *models.ClockTime) *models.ClockTime {
	if preferred != nil {
		return preferred
	}
	return fallback
}

func parseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// parseClockField parses a "15:04" form value. Empty means unset; a parse
// failure records a field error and yields nil.
func parseClockField(value, field string, code ValidationCode, actor ActorKind, errs *[]FieldError) *models.ClockTime {
	if value == "" {
		return nil
	}
	c, err := models.ParseClockTime(value)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Code: code, Actor: actor})
		return nil
	}
	return &c
}

func parseBreakInputs(inputs []dto.BreakEntryInput, actor ActorKind, errs *[]FieldError) []ProposedBreak {
	proposed := make([]ProposedBreak, 0, len(inputs))
	for i, in := range inputs {
		p := ProposedBreak{Index: i, BreakTimeID: in.ID}
		p.Start = parseClockField(in.BreakStart, fmt.Sprintf("break_times.%d.break_start", i), CodeBreakStartFormat, actor, errs)
		p.End = parseClockField(in.BreakEnd, fmt.Sprintf("break_times.%d.break_end", i), CodeBreakEndFormat, actor, errs)
		proposed = append(proposed, p)
	}
	return proposed
}
