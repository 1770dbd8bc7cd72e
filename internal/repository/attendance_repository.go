package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ta-presence-api/internal/models"
)

// AttendanceRepository handles reads over the roster, leave records and
// biometric logs, plus the scan append. All reads are safe to issue
// concurrently; serialisation of writes is left to the database.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CountTeachers returns the roster size.
func (r *AttendanceRepository) CountTeachers(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teachers`); err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return total, nil
}

// CountPresentOn returns how many distinct teachers have at least one scan
// dated the given calendar day.
func (r *AttendanceRepository) CountPresentOn(ctx context.Context, date time.Time) (int, error) {
	var present int
	query := `SELECT COUNT(DISTINCT teacher_id) FROM biometric_logs WHERE ts::date = $1::date`
	if err := r.db.GetContext(ctx, &present, query, models.Day(date)); err != nil {
		return 0, fmt.Errorf("count present on %s: %w", date.Format("2006-01-02"), err)
	}
	return present, nil
}

// CountOnLeaveOn returns how many distinct teachers have a leave record
// whose inclusive range covers the given day.
func (r *AttendanceRepository) CountOnLeaveOn(ctx context.Context, date time.Time) (int, error) {
	var onLeave int
	query := `SELECT COUNT(DISTINCT teacher_id) FROM leave_records WHERE start_date <= $1 AND end_date >= $1`
	if err := r.db.GetContext(ctx, &onLeave, query, models.Day(date)); err != nil {
		return 0, fmt.Errorf("count on leave on %s: %w", date.Format("2006-01-02"), err)
	}
	return onLeave, nil
}

// ListRoster returns every teacher ordered by department then name.
func (r *AttendanceRepository) ListRoster(ctx context.Context) ([]models.Teacher, error) {
	var roster []models.Teacher
	query := `SELECT teacher_id, name, department FROM teachers ORDER BY department, name`
	if err := r.db.SelectContext(ctx, &roster, query); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

// PresentSetOn returns the distinct teacher ids with a scan dated the given day.
func (r *AttendanceRepository) PresentSetOn(ctx context.Context, date time.Time) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT teacher_id FROM biometric_logs WHERE ts::date = $1::date`
	if err := r.db.SelectContext(ctx, &ids, query, models.Day(date)); err != nil {
		return nil, fmt.Errorf("present set on %s: %w", date.Format("2006-01-02"), err)
	}
	return ids, nil
}

// OnLeaveSetOn returns the distinct teacher ids with an active leave record
// on the given day.
func (r *AttendanceRepository) OnLeaveSetOn(ctx context.Context, date time.Time) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT teacher_id FROM leave_records WHERE start_date <= $1 AND end_date >= $1`
	if err := r.db.SelectContext(ctx, &ids, query, models.Day(date)); err != nil {
		return nil, fmt.Errorf("on leave set on %s: %w", date.Format("2006-01-02"), err)
	}
	return ids, nil
}

// InsertScan appends a biometric log entry.
func (r *AttendanceRepository) InsertScan(ctx context.Context, log *models.BiometricLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	query := `INSERT INTO biometric_logs (id, teacher_id, ts, direction, device_id)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.TeacherID, log.Timestamp, log.Direction, log.DeviceID); err != nil {
		return fmt.Errorf("insert scan for %s: %w", log.TeacherID, err)
	}
	return nil
}
