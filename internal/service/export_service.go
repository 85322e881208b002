package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
	"github.com/noah-isme/tutorbot/pkg/export"
)

type gradebookSource interface {
	Gradebook(ctx context.Context) ([]models.GradebookRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	CleanupOlderThan(cutoff time.Time) ([]string, error)
}

// ExportFormat is the gradebook file type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts "csv" or "pdf"; empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportPDF:
		return ExportPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// ExportFile is a rendered gradebook ready to send.
type ExportFile struct {
	Name   string
	Format ExportFormat
	Data   []byte
	Rows   int
}

var gradebookHeaders = []string{"Задание", "Ученик", "Username", "Сдано", "Оценка", "Комментарий", "Проверено"}

// ExportService renders the teacher gradebook and archives each export.
type ExportService struct {
	source    gradebookSource
	csv       csvRenderer
	pdf       pdfRenderer
	storage   fileStorage
	retention time.Duration
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService creates an instance of ExportService. storage may be nil
// to skip archiving.
func NewExportService(source gradebookSource, csv csvRenderer, pdf pdfRenderer, storage fileStorage, retention time.Duration, loc *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{source: source, csv: csv, pdf: pdf, storage: storage, retention: retention, loc: loc, logger: logger, now: time.Now}
}

// Gradebook renders every submission in the requested format.
func (s *ExportService) Gradebook(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	rows, err := s.source.Gradebook(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	data := export.Dataset{
		Title:   "Журнал оценок " + FormatLocal(now, s.loc),
		Headers: gradebookHeaders,
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		graded := ""
		if r.GradedAt != nil {
			graded = FormatLocal(*r.GradedAt, s.loc)
		}
		data.Rows = append(data.Rows, []string{
			r.AssignmentTitle,
			r.StudentName,
			r.StudentUsername,
			FormatLocal(r.SubmittedAt, s.loc),
			deref(r.Grade),
			deref(r.Feedback),
			graded,
		})
	}

	var payload []byte
	switch format {
	case ExportPDF:
		payload, err = s.pdf.Render(data)
	default:
		format = ExportCSV
		payload, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook")
	}

	file := &ExportFile{
		Name:   fmt.Sprintf("gradebook-%s.%s", now.In(s.loc).Format("20060102-1504"), format),
		Format: format,
		Data:   payload,
		Rows:   len(rows),
	}
	s.archive(file)
	return file, nil
}

func (s *ExportService) archive(file *ExportFile) {
	if s.storage == nil {
		return
	}
	if _, err := s.storage.Save(file.Name, file.Data); err != nil {
		s.logger.Warn("gradebook not archived", zap.String("file", file.Name), zap.Error(err))
		return
	}
	if s.retention <= 0 {
		return
	}
	deleted, err := s.storage.CleanupOlderThan(s.now().Add(-s.retention))
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("old exports removed", zap.Strings("files", deleted))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
