package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ta-presence-api/internal/dto"
	appErrors "github.com/noah-isme/ta-presence-api/pkg/errors"
)

func detailRows() []dto.TeacherStatusRow {
	return []dto.TeacherStatusRow{
		{TeacherID: "T1", Name: "Ana", Department: "Math", Status: "Present"},
		{TeacherID: "T2", Name: "Budi", Department: "Science", Status: "On Leave"},
	}
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc := NewExportService()

	payload, contentType, err := svc.RenderDetail(detailRows(), "2026-03-10", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Teacher ID,Name,Department,Status", lines[0])
	assert.Equal(t, "T1,Ana,Math,Present", lines[1])
	assert.Equal(t, "T2,Budi,Science,On Leave", lines[2])
}

func TestExportServiceDefaultsToCSV(t *testing.T) {
	svc := NewExportService()

	_, contentType, err := svc.RenderDetail(detailRows(), "2026-03-10", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc := NewExportService()

	payload, contentType, err := svc.RenderDetail(detailRows(), "2026-03-10", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService()

	_, _, err := svc.RenderDetail(detailRows(), "2026-03-10", "xlsx")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
