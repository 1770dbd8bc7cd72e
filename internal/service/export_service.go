package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/ta-presence-api/internal/dto"
	appErrors "github.com/noah-isme/ta-presence-api/pkg/errors"
	"github.com/noah-isme/ta-presence-api/pkg/export"
)

// ExportService renders daily detail tables into downloadable documents.
type ExportService struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewExportService constructs the export service.
func NewExportService() *ExportService {
	return &ExportService{csv: export.NewCSVExporter(), pdf: export.NewPDFExporter()}
}

var detailHeaders = []string{"Teacher ID", "Name", "Department", "Status"}

// RenderDetail renders the detail rows in the requested format and returns
// the payload together with its content type.
func (s *ExportService) RenderDetail(rows []dto.TeacherStatusRow, date, format string) ([]byte, string, error) {
	dataset := export.Dataset{Headers: detailHeaders}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Teacher ID": row.TeacherID,
			"Name":       row.Name,
			"Department": row.Department,
			"Status":     string(row.Status),
		})
	}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", fmt.Errorf("render detail csv: %w", err)
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Attendance %s", date))
		if err != nil {
			return nil, "", fmt.Errorf("render detail pdf: %w", err)
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}
