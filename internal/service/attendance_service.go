package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/ta-presence-api/internal/dto"
	"github.com/noah-isme/ta-presence-api/internal/models"
	appErrors "github.com/noah-isme/ta-presence-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type attendanceRepository interface {
	CountTeachers(ctx context.Context) (int, error)
	CountPresentOn(ctx context.Context, date time.Time) (int, error)
	CountOnLeaveOn(ctx context.Context, date time.Time) (int, error)
	ListRoster(ctx context.Context) ([]models.Teacher, error)
	PresentSetOn(ctx context.Context, date time.Time) ([]string, error)
	OnLeaveSetOn(ctx context.Context, date time.Time) ([]string, error)
	InsertScan(ctx context.Context, log *models.BiometricLog) error
}

// PresencePublisher receives the present-today count after any computation
// that touches the current day. Single value, last write wins.
type PresencePublisher interface {
	SetPresentToday(count int)
}

// AttendanceServiceConfig tunes aggregation behaviour.
type AttendanceServiceConfig struct {
	DefaultHistoryDays int
	HistoryConcurrency int
	CacheTTL           time.Duration
}

// AttendanceService is the attendance status aggregation engine: it derives
// daily summaries, multi-day history series and per-teacher detail from the
// roster, leave records and biometric logs.
type AttendanceService struct {
	repo      attendanceRepository
	cache     *CacheService
	metrics   *MetricsService
	gauge     PresencePublisher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       AttendanceServiceConfig
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Repo      attendanceRepository
	Cache     *CacheService
	Metrics   *MetricsService
	Gauge     PresencePublisher
	Validator *validator.Validate
	Logger    *zap.Logger
	Clock     func() time.Time
	Config    AttendanceServiceConfig
}

// NewAttendanceService constructs an AttendanceService with sane defaults.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	cfg := params.Config
	if cfg.DefaultHistoryDays <= 0 {
		cfg.DefaultHistoryDays = 14
	}
	if cfg.HistoryConcurrency <= 0 {
		cfg.HistoryConcurrency = 8
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AttendanceService{
		repo:      params.Repo,
		cache:     params.Cache,
		metrics:   params.Metrics,
		gauge:     params.Gauge,
		validator: validate,
		logger:    logger,
		now:       clock,
		cfg:       cfg,
	}
}

// Classify resolves one teacher's status for a report day given the id sets
// active that day. An approved leave overrides any stray scan on the same
// date; a scan without leave means present; otherwise absent.
func Classify(teacherID string, onLeave, scanned map[string]struct{}) models.AttendanceStatus {
	if _, ok := onLeave[teacherID]; ok {
		return models.StatusOnLeave
	}
	if _, ok := scanned[teacherID]; ok {
		return models.StatusPresent
	}
	return models.StatusAbsent
}

// Summary returns the aggregated counts for one day. The boolean indicates
// whether the payload came from cache. When the date is the current day the
// present count is republished to the gauge.
func (s *AttendanceService) Summary(ctx context.Context, date time.Time) (*dto.DailySummary, bool, error) {
	summary, hit, err := s.daySummary(ctx, date)
	if err != nil {
		return nil, false, err
	}
	s.publishIfToday(date, summary.Present)
	return summary, hit, nil
}

// History returns one summary per day for the trailing window ending today:
// days prior days plus today, ascending by date. A non-positive day count is
// normalized to the configured default instead of rejected. Per-day
// summaries are computed concurrently; the first failure aborts the call.
func (s *AttendanceService) History(ctx context.Context, days int) ([]dto.DailySummary, error) {
	if days < 1 {
		days = s.cfg.DefaultHistoryDays
	}
	today := models.Day(s.now())

	// Each task writes exactly one pre-sized slot keyed by its offset, so
	// completion order never leaks into the series.
	series := make([]dto.DailySummary, days+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.HistoryConcurrency)
	for i := 0; i <= days; i++ {
		slot := i
		date := today.AddDate(0, 0, -(days - i))
		g.Go(func() error {
			summary, _, err := s.daySummary(gctx, date)
			if err != nil {
				return err
			}
			series[slot] = *summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.publishIfToday(today, series[days].Present)
	return series, nil
}

// Detail classifies every roster member for one day, ordered by department
// then name. The boolean indicates whether the payload came from cache.
func (s *AttendanceService) Detail(ctx context.Context, date time.Time) ([]dto.TeacherStatusRow, bool, error) {
	cacheKey := fmt.Sprintf("att:detail:%s", date.Format(dateLayout))
	var cached []dto.TeacherStatusRow
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return cached, true, nil
	}

	start := time.Now()
	roster, err := s.repo.ListRoster(ctx)
	if err != nil {
		return nil, false, queryFailure(err)
	}
	onLeaveIDs, err := s.repo.OnLeaveSetOn(ctx, date)
	if err != nil {
		return nil, false, queryFailure(err)
	}
	scannedIDs, err := s.repo.PresentSetOn(ctx, date)
	if err != nil {
		return nil, false, queryFailure(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("attendance_detail", time.Since(start))
	}

	onLeave := toSet(onLeaveIDs)
	scanned := toSet(scannedIDs)
	rows := make([]dto.TeacherStatusRow, 0, len(roster))
	for _, teacher := range roster {
		rows = append(rows, dto.TeacherStatusRow{
			TeacherID:  teacher.TeacherID,
			Name:       teacher.Name,
			Department: teacher.Department,
			Status:     Classify(teacher.TeacherID, onLeave, scanned),
		})
	}

	s.persistCache(ctx, cacheKey, rows)
	return rows, false, nil
}

// RecordScan appends a scan for the teacher at the current instant, then
// recomputes and republishes today's present count. The write itself is a
// pass-through; only the gauge notification is aggregation concern.
func (s *AttendanceService) RecordScan(ctx context.Context, req dto.RecordScanRequest) (*dto.RecordScanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = "SIM-1"
	}

	ts := s.now()
	log := &models.BiometricLog{
		TeacherID: req.TeacherID,
		Timestamp: ts,
		Direction: models.DirectionIn,
		DeviceID:  deviceID,
	}
	if err := s.repo.InsertScan(ctx, log); err != nil {
		return nil, queryFailure(err)
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "att:*"); err != nil {
			s.logger.Warn("attendance cache invalidate failed", zap.Error(err))
		}
	}

	// Gauge refresh is best effort: the scan is already durable.
	if present, err := s.repo.CountPresentOn(ctx, models.Day(ts)); err != nil {
		s.logger.Warn("present recount after scan failed", zap.Error(err))
	} else if s.gauge != nil {
		s.gauge.SetPresentToday(present)
	}

	return &dto.RecordScanResponse{OK: true, TeacherID: req.TeacherID, Timestamp: ts}, nil
}

// daySummary computes (or loads from cache) the summary for one day without
// touching the gauge. Three independent counts, combined with the absent
// clamp: inconsistent inputs yield absent=0 rather than a negative count.
func (s *AttendanceService) daySummary(ctx context.Context, date time.Time) (*dto.DailySummary, bool, error) {
	cacheKey := fmt.Sprintf("att:summary:%s", date.Format(dateLayout))
	var cached dto.DailySummary
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	start := time.Now()
	total, err := s.repo.CountTeachers(ctx)
	if err != nil {
		return nil, false, queryFailure(err)
	}
	present, err := s.repo.CountPresentOn(ctx, date)
	if err != nil {
		return nil, false, queryFailure(err)
	}
	onLeave, err := s.repo.CountOnLeaveOn(ctx, date)
	if err != nil {
		return nil, false, queryFailure(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("attendance_summary", time.Since(start))
	}

	absent := total - present - onLeave
	if absent < 0 {
		absent = 0
	}
	summary := &dto.DailySummary{
		Date:    date.Format(dateLayout),
		Total:   total,
		Present: present,
		Absent:  absent,
		OnLeave: onLeave,
	}

	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *AttendanceService) publishIfToday(date time.Time, present int) {
	if s.gauge == nil {
		return
	}
	if date.Format(dateLayout) == s.now().Format(dateLayout) {
		s.gauge.SetPresentToday(present)
	}
}

// tryCache is a best-effort lookup: lookup failures degrade to recomputation.
func (s *AttendanceService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if !s.cache.Enabled() {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("attendance cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *AttendanceService) persistCache(ctx context.Context, key string, value interface{}) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("attendance cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func queryFailure(err error) error {
	return appErrors.Wrap(err, appErrors.ErrQuery.Code, appErrors.ErrQuery.Status, appErrors.ErrQuery.Message)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
