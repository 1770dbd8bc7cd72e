package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ta-presence-api/internal/dto"
	"github.com/noah-isme/ta-presence-api/internal/models"
	appErrors "github.com/noah-isme/ta-presence-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	mu sync.Mutex

	total        int
	presentByDay map[string]int
	leaveByDay   map[string]int
	roster       []models.Teacher
	presentIDs   map[string][]string
	leaveIDs     map[string][]string

	countTeachersErr error
	countPresentErr  error
	insertErr        error

	scans []models.BiometricLog
}

func day(t time.Time) string { return t.Format("2006-01-02") }

func (f *fakeAttendanceRepo) CountTeachers(context.Context) (int, error) {
	if f.countTeachersErr != nil {
		return 0, f.countTeachersErr
	}
	return f.total, nil
}

func (f *fakeAttendanceRepo) CountPresentOn(_ context.Context, date time.Time) (int, error) {
	if f.countPresentErr != nil {
		return 0, f.countPresentErr
	}
	return f.presentByDay[day(date)], nil
}

func (f *fakeAttendanceRepo) CountOnLeaveOn(_ context.Context, date time.Time) (int, error) {
	return f.leaveByDay[day(date)], nil
}

func (f *fakeAttendanceRepo) ListRoster(context.Context) ([]models.Teacher, error) {
	return f.roster, nil
}

func (f *fakeAttendanceRepo) PresentSetOn(_ context.Context, date time.Time) ([]string, error) {
	return f.presentIDs[day(date)], nil
}

func (f *fakeAttendanceRepo) OnLeaveSetOn(_ context.Context, date time.Time) ([]string, error) {
	return f.leaveIDs[day(date)], nil
}

func (f *fakeAttendanceRepo) InsertScan(_ context.Context, log *models.BiometricLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, *log)
	f.presentByDay[day(log.Timestamp)]++
	return nil
}

type fakeGauge struct {
	mu     sync.Mutex
	values []int
}

func (f *fakeGauge) SetPresentToday(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, count)
}

func (f *fakeGauge) last() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0, false
	}
	return f.values[len(f.values)-1], true
}

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestService(repo *fakeAttendanceRepo, gauge *fakeGauge, cfg AttendanceServiceConfig) *AttendanceService {
	return NewAttendanceService(AttendanceServiceParams{
		Repo:   repo,
		Cache:  NewCacheService(nil, nil, time.Minute, zap.NewNop(), false),
		Gauge:  gauge,
		Logger: zap.NewNop(),
		Clock:  func() time.Time { return testNow },
		Config: cfg,
	})
}

func TestClassifyPrecedence(t *testing.T) {
	onLeave := map[string]struct{}{"T2": {}, "T4": {}}
	scanned := map[string]struct{}{"T1": {}, "T4": {}}

	assert.Equal(t, models.StatusPresent, Classify("T1", onLeave, scanned))
	assert.Equal(t, models.StatusOnLeave, Classify("T2", onLeave, scanned))
	assert.Equal(t, models.StatusAbsent, Classify("T3", onLeave, scanned))
	// Leave wins over a stray scan on the same day.
	assert.Equal(t, models.StatusOnLeave, Classify("T4", onLeave, scanned))
}

func TestSummaryCountsAndGauge(t *testing.T) {
	repo := &fakeAttendanceRepo{
		total:        3,
		presentByDay: map[string]int{day(testNow): 1},
		leaveByDay:   map[string]int{day(testNow): 1},
	}
	gauge := &fakeGauge{}
	svc := newTestService(repo, gauge, AttendanceServiceConfig{})

	summary, hit, err := svc.Summary(context.Background(), testNow)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, &dto.DailySummary{
		Date:    "2026-03-10",
		Total:   3,
		Present: 1,
		Absent:  1,
		OnLeave: 1,
	}, summary)

	published, ok := gauge.last()
	require.True(t, ok)
	assert.Equal(t, 1, published)

	// Same inputs, same answer.
	again, _, err := svc.Summary(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}

func TestSummaryPastDateSkipsGauge(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	repo := &fakeAttendanceRepo{
		total:        3,
		presentByDay: map[string]int{day(yesterday): 2},
		leaveByDay:   map[string]int{},
	}
	gauge := &fakeGauge{}
	svc := newTestService(repo, gauge, AttendanceServiceConfig{})

	summary, _, err := svc.Summary(context.Background(), yesterday)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Present)

	_, ok := gauge.last()
	assert.False(t, ok)
}

func TestSummaryClampsNegativeAbsent(t *testing.T) {
	repo := &fakeAttendanceRepo{
		total:        1,
		presentByDay: map[string]int{day(testNow): 2},
		leaveByDay:   map[string]int{day(testNow): 1},
	}
	svc := newTestService(repo, &fakeGauge{}, AttendanceServiceConfig{})

	summary, _, err := svc.Summary(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Absent)
}

func TestHistoryWindow(t *testing.T) {
	presentByDay := map[string]int{}
	for i := 0; i <= 3; i++ {
		presentByDay[day(testNow.AddDate(0, 0, -i))] = 10 - i
	}
	repo := &fakeAttendanceRepo{
		total:        12,
		presentByDay: presentByDay,
		leaveByDay:   map[string]int{},
	}
	gauge := &fakeGauge{}
	svc := newTestService(repo, gauge, AttendanceServiceConfig{HistoryConcurrency: 2})

	series, err := svc.History(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, series, 4)

	assert.Equal(t, "2026-03-07", series[0].Date)
	assert.Equal(t, "2026-03-10", series[3].Date)
	for i, summary := range series {
		assert.Equal(t, 7+i, summary.Present, "slot %d", i)
	}

	published, ok := gauge.last()
	require.True(t, ok)
	assert.Equal(t, 10, published)
}

func TestHistoryNormalizesDayCount(t *testing.T) {
	repo := &fakeAttendanceRepo{
		total:        5,
		presentByDay: map[string]int{},
		leaveByDay:   map[string]int{},
	}
	svc := newTestService(repo, &fakeGauge{}, AttendanceServiceConfig{DefaultHistoryDays: 2})

	for _, days := range []int{0, -5} {
		series, err := svc.History(context.Background(), days)
		require.NoError(t, err)
		assert.Len(t, series, 3, "days=%d", days)
	}
}

func TestHistoryAbortsOnQueryFailure(t *testing.T) {
	repo := &fakeAttendanceRepo{
		total:           5,
		presentByDay:    map[string]int{},
		leaveByDay:      map[string]int{},
		countPresentErr: errors.New("connection reset"),
	}
	gauge := &fakeGauge{}
	svc := newTestService(repo, gauge, AttendanceServiceConfig{})

	_, err := svc.History(context.Background(), 3)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrQuery.Code, appErr.Code)

	_, ok := gauge.last()
	assert.False(t, ok)
}

func TestDetailClassifiesRoster(t *testing.T) {
	today := day(testNow)
	repo := &fakeAttendanceRepo{
		roster: []models.Teacher{
			{TeacherID: "T1", Name: "Ana", Department: "Math"},
			{TeacherID: "T2", Name: "Budi", Department: "Math"},
			{TeacherID: "T3", Name: "Citra", Department: "Science"},
		},
		presentIDs: map[string][]string{today: {"T1"}},
		leaveIDs:   map[string][]string{today: {"T3"}},
	}
	svc := newTestService(repo, &fakeGauge{}, AttendanceServiceConfig{})

	rows, hit, err := svc.Detail(context.Background(), testNow)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, rows, 3)
	assert.Equal(t, models.StatusPresent, rows[0].Status)
	assert.Equal(t, models.StatusAbsent, rows[1].Status)
	assert.Equal(t, models.StatusOnLeave, rows[2].Status)
}

func TestRecordScan(t *testing.T) {
	repo := &fakeAttendanceRepo{
		total:        3,
		presentByDay: map[string]int{},
		leaveByDay:   map[string]int{},
	}
	gauge := &fakeGauge{}
	svc := newTestService(repo, gauge, AttendanceServiceConfig{})

	resp, err := svc.RecordScan(context.Background(), dto.RecordScanRequest{TeacherID: "T9"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "T9", resp.TeacherID)
	assert.Equal(t, testNow, resp.Timestamp)

	require.Len(t, repo.scans, 1)
	assert.Equal(t, models.DirectionIn, repo.scans[0].Direction)
	assert.Equal(t, "SIM-1", repo.scans[0].DeviceID)

	published, ok := gauge.last()
	require.True(t, ok)
	assert.Equal(t, 1, published)
}

func TestRecordScanRequiresTeacher(t *testing.T) {
	svc := newTestService(&fakeAttendanceRepo{}, &fakeGauge{}, AttendanceServiceConfig{})

	_, err := svc.RecordScan(context.Background(), dto.RecordScanRequest{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRecordScanSurvivesGaugeRecountFailure(t *testing.T) {
	repo := &fakeAttendanceRepo{
		total:           3,
		presentByDay:    map[string]int{},
		leaveByDay:      map[string]int{},
		countPresentErr: errors.New("connection reset"),
	}
	gauge := &fakeGauge{}
	svc := newTestService(repo, gauge, AttendanceServiceConfig{})

	// Recount failures must not lose the already durable scan.
	resp, err := svc.RecordScan(context.Background(), dto.RecordScanRequest{TeacherID: "T1", DeviceID: "D-2"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "D-2", repo.scans[0].DeviceID)

	_, ok := gauge.last()
	assert.False(t, ok)
}
