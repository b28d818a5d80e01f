package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/internal/repository"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
)

type stampStore interface {
	WithDayLock(ctx context.Context, userID string, date time.Time, fn func(ctx context.Context, m repository.AttendanceMutator) error) error
}

// StampService records clock and break events. All decisions run inside the
// per-user-per-day lock so concurrent stamps serialize; the loser of a race
// re-reads state and is rejected by the same transition rules as a
// sequential duplicate.
type StampService struct {
	store   stampStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewStampService constructs StampService. loc is the business timezone that
// decides which calendar day a stamp lands on.
func NewStampService(store stampStore, cache *CacheService, metrics *MetricsService, loc *time.Location, logger *zap.Logger) *StampService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StampService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

func rejectStamp(message string) error {
	return appErrors.Clone(appErrors.ErrStampRejected, message)
}

// RecordStamp applies one stamp event for the user at the current time. The
// returned attendance reflects the record after the event.
func (s *StampService) RecordStamp(ctx context.Context, user *models.User, stampType models.StampType) (*models.Attendance, error) {
	if !stampType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid stamp type")
	}

	now := s.now().In(s.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	clock := models.ClockTimeOf(now)

	var result *models.Attendance
	err := s.store.WithDayLock(ctx, user.ID, day, func(ctx context.Context, m repository.AttendanceMutator) error {
		att, err := m.FindByUserAndDate(ctx, user.ID, day)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		applied, err := s.applyStamp(ctx, m, user.ID, day, att, stampType, clock)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// Race on first clock-in lost despite the advisory lock.
			err = rejectStamp("you are already clocked in")
		}
		s.metrics.RecordStamp(stampType, false)
		return nil, err
	}

	s.metrics.RecordStamp(stampType, true)
	if s.cache != nil {
		s.cache.InvalidateUser(ctx, user.ID)
	}
	s.logger.Info("stamp recorded",
		zap.String("user_id", user.ID),
		zap.String("type", string(stampType)),
		zap.String("date", day.Format("2006-01-02")))
	return result, nil
}

func (s *StampService) applyStamp(ctx context.Context, m repository.AttendanceMutator, userID string, day time.Time, att *models.Attendance, stampType models.StampType, clock models.ClockTime) (*models.Attendance, error) {
	if stampType == models.StampClockIn {
		if att != nil && att.ClockIn != nil {
			return nil, rejectStamp("you are already clocked in")
		}
		if att == nil {
			att = &models.Attendance{UserID: userID, Date: day, ClockIn: &clock}
			if err := m.CreateAttendance(ctx, att); err != nil {
				return nil, err
			}
			return att, nil
		}
		if err := m.SetClockIn(ctx, att.ID, clock); err != nil {
			return nil, err
		}
		att.ClockIn = &clock
		return att, nil
	}

	if att == nil || att.ClockIn == nil {
		return nil, rejectStamp("you have not clocked in yet")
	}
	// break_end is exempt from the clocked-out guard; with the day closed no
	// break can be open, so it falls through to the not-on-break rejection.
	if att.ClockOut != nil && stampType != models.StampBreakEnd {
		return nil, rejectStamp("you are already clocked out")
	}

	switch stampType {
	case models.StampBreakStart:
		if att.OpenBreak() != nil {
			return nil, rejectStamp("you are already on a break")
		}
		bt := &models.BreakTime{AttendanceID: att.ID, BreakStart: &clock}
		if err := m.CreateBreak(ctx, bt); err != nil {
			return nil, err
		}
		att.BreakTimes = append(att.BreakTimes, *bt)
	case models.StampBreakEnd:
		open := att.OpenBreak()
		if open == nil {
			return nil, rejectStamp("you are not on a break")
		}
		if err := m.CloseBreak(ctx, open.ID, clock); err != nil {
			return nil, err
		}
		open.BreakEnd = &clock
	case models.StampClockOut:
		if att.OpenBreak() != nil {
			return nil, rejectStamp("end your break before clocking out")
		}
		if err := m.SetClockOut(ctx, att.ID, clock); err != nil {
			return nil, err
		}
		att.ClockOut = &clock
	}
	return att, nil
}
