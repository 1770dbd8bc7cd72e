package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ta-presence-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT teacher_id) FROM biometric_logs WHERE ts::date = $1::date")).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT teacher_id) FROM leave_records WHERE start_date <= $1 AND end_date >= $1")).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	total, err := repo.CountTeachers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, total)

	present, err := repo.CountPresentOn(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 30, present)

	onLeave, err := repo.CountOnLeaveOn(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 5, onLeave)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryRosterAndSets(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id, name, department FROM teachers ORDER BY department, name")).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "name", "department"}).
			AddRow("T1", "Ana", "Math").
			AddRow("T2", "Budi", "Science"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT teacher_id FROM biometric_logs WHERE ts::date = $1::date")).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow("T1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT teacher_id FROM leave_records WHERE start_date <= $1 AND end_date >= $1")).
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow("T2"))

	roster, err := repo.ListRoster(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ana", roster[0].Name)

	scanned, err := repo.PresentSetOn(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, scanned)

	onLeave, err := repo.OnLeaveSetOn(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, onLeave)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountPresentTruncatesToDay(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)
	at := time.Date(2026, 3, 10, 17, 45, 12, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT teacher_id) FROM biometric_logs WHERE ts::date = $1::date")).
		WithArgs(models.Day(at)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	present, err := repo.CountPresentOn(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, 7, present)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertScan(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	ts := time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO biometric_logs").
		WithArgs(sqlmock.AnyArg(), "T1", ts, string(models.DirectionIn), "SIM-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.BiometricLog{TeacherID: "T1", Timestamp: ts, Direction: models.DirectionIn, DeviceID: "SIM-1"}
	require.NoError(t, repo.InsertScan(context.Background(), log))
	assert.NotEmpty(t, log.ID, "id assigned when absent")
	assert.NoError(t, mock.ExpectationsWereMet())
}
