package dto

import (
	"time"

	"github.com/noah-isme/ta-presence-api/internal/models"
)

// DailySummary is the aggregated attendance breakdown for a single day.
// Derived on demand, never stored.
type DailySummary struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	OnLeave int    `json:"on_leave"`
}

// TeacherStatusRow is one detail entry: a roster member and their status.
type TeacherStatusRow struct {
	TeacherID  string                  `json:"teacher_id"`
	Name       string                  `json:"name"`
	Department string                  `json:"department"`
	Status     models.AttendanceStatus `json:"status"`
}

// RecordScanRequest describes the simulate-scan payload.
type RecordScanRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	DeviceID  string `json:"device_id"`
}

// RecordScanResponse confirms a recorded scan.
type RecordScanResponse struct {
	OK        bool      `json:"ok"`
	TeacherID string    `json:"teacher_id"`
	Timestamp time.Time `json:"ts"`
}
