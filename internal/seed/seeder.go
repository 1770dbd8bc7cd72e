package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ta-presence-api/internal/models"
)

const dateLayout = "2006-01-02"

// Row is one normalized attendance line from the import CSV.
type Row struct {
	TeacherID  string
	Name       string
	Department string
	Date       time.Time
	Status     string
}

// Stats summarises a completed import.
type Stats struct {
	Rows     int
	Teachers int
	Scans    int
	Leaves   int
	Skipped  int
}

// Seeder performs the one-time CSV import into the attendance store. It is
// an ingestion pipeline separate from the aggregation engine.
type Seeder struct {
	db     *sqlx.DB
	logger *zap.Logger
	rng    *rand.Rand
}

// New constructs a seeder.
func New(db *sqlx.DB, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		db:     db,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run imports the CSV at path: creates the schema, inserts the unique
// roster, expands present rows into in/out scan pairs and leave rows into
// single-day leave records. Absent rows produce nothing.
func (s *Seeder) Run(ctx context.Context, path string) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer file.Close()

	rows, skipped, err := ParseCSV(file)
	if err != nil {
		return Stats{}, err
	}

	if err := s.ensureSchema(ctx); err != nil {
		return Stats{}, err
	}

	stats := Stats{Rows: len(rows), Skipped: skipped}

	roster := map[string]models.Teacher{}
	for _, row := range rows {
		if _, seen := roster[row.TeacherID]; seen {
			continue
		}
		name := row.Name
		if name == "" {
			name = fmt.Sprintf("Teacher-%s", row.TeacherID)
		}
		department := row.Department
		if department == "" {
			department = "General"
		}
		roster[row.TeacherID] = models.Teacher{TeacherID: row.TeacherID, Name: name, Department: department}
	}
	for _, teacher := range roster {
		if err := s.insertTeacher(ctx, teacher); err != nil {
			return stats, err
		}
		stats.Teachers++
	}

	for _, row := range rows {
		switch StatusKind(row.Status) {
		case KindPresent:
			in, out := s.scanTimes(row.Date)
			for _, scan := range []models.BiometricLog{
				{TeacherID: row.TeacherID, Timestamp: in, Direction: models.DirectionIn, DeviceID: s.deviceID()},
				{TeacherID: row.TeacherID, Timestamp: out, Direction: models.DirectionOut, DeviceID: s.deviceID()},
			} {
				if err := s.insertScan(ctx, scan); err != nil {
					return stats, err
				}
				stats.Scans++
			}
		case KindLeave:
			leave := models.LeaveRecord{
				TeacherID: row.TeacherID,
				StartDate: models.Day(row.Date),
				EndDate:   models.Day(row.Date),
				Reason:    "dataset-leave",
			}
			if err := s.insertLeave(ctx, leave); err != nil {
				return stats, err
			}
			stats.Leaves++
		}
	}

	s.logger.Sugar().Infow("seed complete",
		"rows", stats.Rows, "teachers", stats.Teachers,
		"scans", stats.Scans, "leaves", stats.Leaves, "skipped", stats.Skipped)
	return stats, nil
}

// StatusCategory buckets raw CSV status strings.
type StatusCategory int

const (
	KindAbsent StatusCategory = iota
	KindPresent
	KindLeave
)

// StatusKind maps the permissive status vocabulary of the source dataset.
func StatusKind(raw string) StatusCategory {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(status, "leave"):
		return KindLeave
	case strings.Contains(status, "present"), status == "1", status == "p":
		return KindPresent
	default:
		return KindAbsent
	}
}

// ParseCSV reads the import file, tolerating the header aliases found in the
// source dataset. Lines without a teacher id or a parseable date are counted
// as skipped, not failed.
func ParseCSV(r io.Reader) ([]Row, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	index := map[string]int{}
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	field := func(record []string, names ...string) string {
		for _, name := range names {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
		}
		return ""
	}

	var rows []Row
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read csv record: %w", err)
		}

		teacherID := field(record, "teacher_id", "teacher", "id")
		rawDate := field(record, "date", "timestamp", "attendance_date")
		if teacherID == "" || rawDate == "" {
			skipped++
			continue
		}
		date, err := parseDate(rawDate)
		if err != nil {
			skipped++
			continue
		}

		rows = append(rows, Row{
			TeacherID:  teacherID,
			Name:       field(record, "name"),
			Department: field(record, "department"),
			Date:       date,
			Status:     field(record, "status", "att_status"),
		})
	}
	return rows, skipped, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02 15:04:05", "02/01/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func (s *Seeder) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS teachers (
	teacher_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	department TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS leave_records (
	id SERIAL PRIMARY KEY,
	teacher_id TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	reason TEXT
)`,
		`CREATE TABLE IF NOT EXISTS biometric_logs (
	id TEXT PRIMARY KEY,
	teacher_id TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	direction TEXT NOT NULL,
	device_id TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_biometric_logs_ts ON biometric_logs ((ts::date))`,
		`CREATE INDEX IF NOT EXISTS idx_leave_records_range ON leave_records (start_date, end_date)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *Seeder) insertTeacher(ctx context.Context, t models.Teacher) error {
	query := `INSERT INTO teachers (teacher_id, name, department)
VALUES ($1, $2, $3)
ON CONFLICT (teacher_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, t.TeacherID, t.Name, t.Department); err != nil {
		return fmt.Errorf("insert teacher %s: %w", t.TeacherID, err)
	}
	return nil
}

func (s *Seeder) insertScan(ctx context.Context, log models.BiometricLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	query := `INSERT INTO biometric_logs (id, teacher_id, ts, direction, device_id)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, query, log.ID, log.TeacherID, log.Timestamp, log.Direction, log.DeviceID); err != nil {
		return fmt.Errorf("insert scan for %s: %w", log.TeacherID, err)
	}
	return nil
}

func (s *Seeder) insertLeave(ctx context.Context, leave models.LeaveRecord) error {
	query := `INSERT INTO leave_records (teacher_id, start_date, end_date, reason)
VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, leave.TeacherID, leave.StartDate, leave.EndDate, leave.Reason); err != nil {
		return fmt.Errorf("insert leave for %s: %w", leave.TeacherID, err)
	}
	return nil
}

// scanTimes fabricates a plausible in/out pair for a present day: arrival
// between 08:00 and 09:59, departure between 14:00 and 16:59.
func (s *Seeder) scanTimes(date time.Time) (time.Time, time.Time) {
	day := models.Day(date)
	in := day.Add(time.Duration(8+s.rng.Intn(2))*time.Hour + time.Duration(s.rng.Intn(60))*time.Minute)
	out := day.Add(time.Duration(14+s.rng.Intn(3))*time.Hour + time.Duration(s.rng.Intn(60))*time.Minute)
	return in, out
}

func (s *Seeder) deviceID() string {
	return fmt.Sprintf("D-%d", 1+s.rng.Intn(3))
}
