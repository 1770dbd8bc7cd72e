package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ta-presence-api/internal/dto"
	"github.com/noah-isme/ta-presence-api/internal/middleware"
	appErrors "github.com/noah-isme/ta-presence-api/pkg/errors"
	"github.com/noah-isme/ta-presence-api/pkg/response"
)

const dateLayout = "2006-01-02"

type attendanceService interface {
	Summary(ctx context.Context, date time.Time) (*dto.DailySummary, bool, error)
	History(ctx context.Context, days int) ([]dto.DailySummary, error)
	Detail(ctx context.Context, date time.Time) ([]dto.TeacherStatusRow, bool, error)
	RecordScan(ctx context.Context, req dto.RecordScanRequest) (*dto.RecordScanResponse, error)
}

type detailExporter interface {
	RenderDetail(rows []dto.TeacherStatusRow, date, format string) ([]byte, string, error)
}

// AttendanceHandler wires the aggregation engine to HTTP endpoints.
type AttendanceHandler struct {
	service  attendanceService
	exporter detailExporter
	now      func() time.Time
}

// NewAttendanceHandler constructs the handler. The clock resolves the
// default report date and may be overridden for testing.
func NewAttendanceHandler(service attendanceService, exporter detailExporter, now func() time.Time) *AttendanceHandler {
	if now == nil {
		now = time.Now
	}
	return &AttendanceHandler{service: service, exporter: exporter, now: now}
}

// Summary godoc
// @Summary Aggregated attendance counts for one day
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	date, err := h.reportDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// History godoc
// @Summary Daily summaries for a trailing window ending today
// @Tags Attendance
// @Produce json
// @Param days query integer false "Trailing days before today (default 14)"
// @Success 200 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	// Malformed day counts are normalized downstream, never rejected.
	days, err := strconv.Atoi(c.DefaultQuery("days", ""))
	if err != nil {
		days = 0
	}
	series, err := h.service.History(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, middleware.ExtractMeta(c))
}

// Detail godoc
// @Summary Per-teacher status for one day
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/detail [get]
func (h *AttendanceHandler) Detail(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	date, err := h.reportDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, cacheHit, err := h.service.Detail(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, rows, middleware.ExtractMeta(c))
}

// ExportDetail godoc
// @Summary Download the per-teacher status table as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Param format query string false "csv or pdf (default csv)"
// @Router /attendance/detail/export [get]
func (h *AttendanceHandler) ExportDetail(c *gin.Context) {
	if h.service == nil || h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	date, err := h.reportDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, _, err := h.service.Detail(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.TrimSpace(c.Query("format"))
	day := date.Format(dateLayout)
	payload, contentType, err := h.exporter.RenderDetail(rows, day, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if strings.EqualFold(format, "pdf") {
		ext = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%s.%s", day, ext))
	c.Data(http.StatusOK, contentType, payload)
}

// RecordScan godoc
// @Summary Record a simulated check-in scan
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RecordScanRequest false "Scan payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/scans [post]
func (h *AttendanceHandler) RecordScan(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.RecordScanRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid scan payload"))
			return
		}
	}
	// Query-param fallback kept for device simulators.
	if req.TeacherID == "" {
		req.TeacherID = strings.TrimSpace(c.Query("teacher"))
	}
	result, err := h.service.RecordScan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *AttendanceHandler) reportDate(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return h.now(), nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return parsed, nil
}
