package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
	"github.com/noah-isme/radio-schedule-api/pkg/export"
)

// ExportFormat selects the rendering of a schedule export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var scheduleExportHeaders = []string{"Date", "Weekday", "Start", "End", "Type", "Title", "Details"}

type weekReader interface {
	Week(ctx context.Context, start time.Time) (*models.WeekSchedule, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ScheduleExportService renders a week of the schedule as CSV or PDF.
type ScheduleExportService struct {
	schedule weekReader
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewScheduleExportService constructs a ScheduleExportService.
func NewScheduleExportService(schedule weekReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ScheduleExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ScheduleExportService{schedule: schedule, csv: csv, pdf: pdf, logger: logger}
}

// ExportWeek renders the seven days starting at start.
func (s *ScheduleExportService) ExportWeek(ctx context.Context, start time.Time, format ExportFormat) (*ExportFile, error) {
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	week, err := s.schedule.Week(ctx, start)
	if err != nil {
		return nil, err
	}
	dataset := WeekDataset(week)

	var (
		data        []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		data, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}

	filename := fmt.Sprintf("schedule_%s.%s", week.StartDate.Format(dateLayout), format)
	s.logger.Debug("schedule exported", zap.String("file", filename), zap.Int("bytes", len(data)))
	return &ExportFile{Filename: filename, ContentType: contentType, Data: data}, nil
}

// WeekDataset flattens a week into one row per item.
func WeekDataset(week *models.WeekSchedule) export.Dataset {
	dataset := export.Dataset{
		Title:   "Weekly Schedule",
		Headers: scheduleExportHeaders,
		Rows:    [][]string{},
		Widths:  []float64{1.2, 1.2, 0.7, 0.7, 1, 2.6, 3.6},
	}
	if week == nil {
		return dataset
	}
	last := week.StartDate.AddDate(0, 0, models.DaysInWeek-1)
	dataset.Subtitle = fmt.Sprintf("%s to %s", week.StartDate.Format(dateLayout), last.Format(dateLayout))

	for _, day := range week.Days {
		for _, item := range day.Items {
			end := item.EndTime().Format("15:04")
			if item.EndTime().Equal(day.End()) {
				end = "24:00"
			}
			dataset.Rows = append(dataset.Rows, []string{
				day.Date.Format(dateLayout),
				day.Date.Weekday().String(),
				item.StartTime.Format("15:04"),
				end,
				strings.Trim(typeLabel(item.Type), "[]"),
				item.Title,
				itemDetails(item),
			})
		}
	}
	return dataset
}

func itemDetails(item models.ContentItem) string {
	switch {
	case item.Music != nil:
		return "Genre: " + item.Music.Genre
	case item.Reportage != nil:
		return fmt.Sprintf("%s (%s)", item.Reportage.Topic, item.Reportage.Reporter)
	case item.Live != nil:
		details := "Hosts: " + strings.Join(item.Live.Hosts, ", ")
		if len(item.Live.Guests) > 0 {
			details += "; Guests: " + strings.Join(item.Live.Guests, ", ")
		}
		return details + "; " + string(item.Live.Studio)
	}
	return ""
}
