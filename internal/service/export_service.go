package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	"github.com/noah-isme/exam-analytics-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders leaderboards into downloadable files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

var leaderboardColumns = []export.Column{
	{Title: "Rank", Numeric: true},
	{Title: "Student ID", Numeric: true, Width: 1.5},
	{Title: "Name", Width: 3},
	{Title: "Class"},
	{Title: "Section"},
	{Title: "Tests", Numeric: true},
	{Title: "Total Score", Numeric: true, Width: 1.5},
}

// LeaderboardDataset flattens leaderboard entries into an export dataset.
func LeaderboardDataset(entries []models.LeaderboardEntry) export.Dataset {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		section := ""
		if entry.Section != nil {
			section = *entry.Section
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Rank),
			strconv.FormatInt(entry.StudentID, 10),
			entry.StudentName,
			entry.StudentClass,
			section,
			strconv.Itoa(entry.TestsTaken),
			strconv.FormatFloat(entry.TotalScore, 'f', -1, 64),
		})
	}
	return export.Dataset{Columns: leaderboardColumns, Rows: rows}
}

// Leaderboard renders entries in the requested format.
func (s *ExportService) Leaderboard(entries []models.LeaderboardEntry, format string) (*dto.ExportFile, error) {
	dataset := LeaderboardDataset(entries)
	stamp := s.now().UTC().Format("20060102-150405")

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		data, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset, "Overall Leaderboard")
		contentType = "application/pdf"
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		s.logger.Error("render leaderboard export", zap.String("format", format), zap.Error(err))
		return nil, err
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("leaderboard-%s.%s", stamp, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}
