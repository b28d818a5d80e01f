package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/timecard-io/timecard-api/internal/dto"
	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/pkg/export"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders monthly attendance for download. Files are built in
// memory and streamed back; nothing is persisted server side.
type ExportService struct {
	attendance *AttendanceService
	csv        csvRenderer
	pdf        pdfRenderer
	pdfEnabled bool
	logger     *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(attendance *AttendanceService, csv csvRenderer, pdf pdfRenderer, pdfEnabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance: attendance,
		csv:        csv,
		pdf:        pdf,
		pdfEnabled: pdfEnabled,
		logger:     logger,
	}
}

// MonthlyCSV renders one user's month as CSV, one row per calendar day.
func (s *ExportService) MonthlyCSV(ctx context.Context, actor *models.User, targetUserID, month string) (*ExportFile, error) {
	list, err := s.attendance.ListMonth(ctx, actor, targetUserID, month)
	if err != nil {
		return nil, err
	}

	data, err := s.csv.Render(monthlyDataset(list))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("attendance exported",
		zap.String("user_id", list.UserID),
		zap.String("month", list.Month),
		zap.String("format", "csv"))
	return &ExportFile{
		Filename:    exportFilename(list.UserID, list.Month, "csv"),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// MonthlyPDF renders the same dataset as a PDF table.
func (s *ExportService) MonthlyPDF(ctx context.Context, actor *models.User, targetUserID, month string) (*ExportFile, error) {
	if !s.pdfEnabled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pdf export is disabled")
	}
	list, err := s.attendance.ListMonth(ctx, actor, targetUserID, month)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Attendance %s %s", list.UserName, list.Month)
	data, err := s.pdf.Render(monthlyDataset(list), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("attendance exported",
		zap.String("user_id", list.UserID),
		zap.String("month", list.Month),
		zap.String("format", "pdf"))
	return &ExportFile{
		Filename:    exportFilename(list.UserID, list.Month, "pdf"),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func monthlyDataset(list *dto.MonthlyListResponse) export.Dataset {
	ds := export.Dataset{
		Headers: []string{"Date", "Clock In", "Clock Out", "Break Time", "Work Time"},
		Rows:    make([]map[string]string, 0, len(list.Rows)),
	}
	for _, row := range list.Rows {
		ds.Rows = append(ds.Rows, map[string]string{
			"Date":       row.Date,
			"Clock In":   row.ClockIn,
			"Clock Out":  row.ClockOut,
			"Break Time": row.BreakTime,
			"Work Time":  row.WorkTime,
		})
	}
	return ds
}

func exportFilename(userID, month, ext string) string {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return fmt.Sprintf("attendance_%s.%s", userID, ext)
	}
	return fmt.Sprintf("attendance_%s_%s.%s", userID, first.Format("20060102"), ext)
}
