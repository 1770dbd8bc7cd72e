package models

import "time"

// AttendanceStatus is the derived status of one teacher on one report day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusOnLeave AttendanceStatus = "On Leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusOnLeave:
		return true
	default:
		return false
	}
}

// ScanDirection tags a biometric log entry as entering or leaving.
type ScanDirection string

const (
	DirectionIn  ScanDirection = "in"
	DirectionOut ScanDirection = "out"
)

// Valid returns true when the direction is a supported value.
func (d ScanDirection) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Teacher is a roster member. Rows are created at seed time and are
// read-only afterwards.
type Teacher struct {
	TeacherID  string `db:"teacher_id" json:"teacher_id"`
	Name       string `db:"name" json:"name"`
	Department string `db:"department" json:"department"`
}

// LeaveRecord is an inclusive closed date range during which a teacher is
// excused from presence tracking. Overlapping records are allowed.
type LeaveRecord struct {
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason"`
}

// ActiveOn reports whether the record covers the given calendar day.
// Both bounds are inclusive.
func (l LeaveRecord) ActiveOn(date time.Time) bool {
	day := Day(date)
	return !day.Before(Day(l.StartDate)) && !day.After(Day(l.EndDate))
}

// BiometricLog is a single append-only scan event from a badge or
// biometric device.
type BiometricLog struct {
	ID        string        `db:"id" json:"id"`
	TeacherID string        `db:"teacher_id" json:"teacher_id"`
	Timestamp time.Time     `db:"ts" json:"ts"`
	Direction ScanDirection `db:"direction" json:"direction"`
	DeviceID  string        `db:"device_id" json:"device_id"`
}

// TeacherStatus pairs a roster member with their status for a report day.
type TeacherStatus struct {
	TeacherID  string           `db:"teacher_id" json:"teacher_id"`
	Name       string           `db:"name" json:"name"`
	Department string           `db:"department" json:"department"`
	Status     AttendanceStatus `db:"status" json:"status"`
}

// Day truncates a timestamp to midnight in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
