package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/jobs"
)

// neutralAverageMark is returned when a lesson has no student check-ins.
// Kept for compatibility with historical statistics exports.
const neutralAverageMark = 3.0

type checkinStatsRepository interface {
	CountStudentCheckins(ctx context.Context, lessonID int64) (int, error)
	AverageStudentMark(ctx context.Context, lessonID int64) (float64, bool, error)
}

type enrollmentCounter interface {
	CountStudents(ctx context.Context, subjectID int64) (int, error)
}

type statsLessonReader interface {
	FindByID(ctx context.Context, id int64) (*models.Lesson, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type cacheObserver interface {
	ObserveCacheLookup(hit bool)
}

// StatsService serves derived attendance metrics with a Redis cache in
// front of the aggregate queries.
type StatsService struct {
	checkins    checkinStatsRepository
	enrollments enrollmentCounter
	lessons     statsLessonReader
	cache       statsCache
	queue       jobEnqueuer
	metrics     cacheObserver
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewStatsService constructs StatsService. The queue and metrics
// observer are optional.
func NewStatsService(checkins checkinStatsRepository, enrollments enrollmentCounter, lessons statsLessonReader, cache statsCache, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StatsService{
		checkins:    checkins,
		enrollments: enrollments,
		lessons:     lessons,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// SetQueue wires the background refresh queue.
func (s *StatsService) SetQueue(queue jobEnqueuer) { s.queue = queue }

// SetMetrics wires the cache hit/miss observer.
func (s *StatsService) SetMetrics(metrics cacheObserver) { s.metrics = metrics }

func statsCacheKey(lessonID int64) string {
	return fmt.Sprintf("lesson_stats:%d", lessonID)
}

// LessonStats returns the attendance metrics for a lesson, from cache
// when fresh enough.
func (s *StatsService) LessonStats(ctx context.Context, lessonID int64) (*models.LessonStats, error) {
	if s.cache != nil {
		var cached models.LessonStats
		err := s.cache.Get(ctx, statsCacheKey(lessonID), &cached)
		if err == nil {
			s.observeLookup(true)
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache lookup failed", zap.Int64("lesson_id", lessonID), zap.Error(err))
		}
		s.observeLookup(false)
	}

	stats, err := s.compute(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey(lessonID), stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache store failed", zap.Int64("lesson_id", lessonID), zap.Error(err))
		}
	}
	return stats, nil
}

// compute derives the metrics from storage. A subject with no enrolled
// students counts as fully attended, and a lesson with no student
// check-ins reports the neutral average mark.
func (s *StatsService) compute(ctx context.Context, lessonID int64) (*models.LessonStats, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	enrolled, err := s.enrollments.CountStudents(ctx, lesson.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	attended, err := s.checkins.CountStudentCheckins(ctx, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count check-ins")
	}

	percent := 100.0
	if enrolled > 0 {
		percent = round2(100 * float64(attended) / float64(enrolled))
	}

	avg, ok, err := s.checkins.AverageStudentMark(ctx, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average marks")
	}
	mark := neutralAverageMark
	if ok {
		mark = round2(avg)
	}

	return &models.LessonStats{
		LessonID:       lessonID,
		EnrolledCount:  enrolled,
		CheckinCount:   attended,
		CheckinPercent: percent,
		AverageMark:    mark,
	}, nil
}

// NotifyCheckIn schedules an asynchronous refresh of a lesson's cached
// stats. Best effort: a full queue only means the cache stays stale
// until its TTL expires.
func (s *StatsService) NotifyCheckIn(lessonID int64) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "stats_refresh",
		Payload: lessonID,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue stats refresh", zap.Int64("lesson_id", lessonID), zap.Error(err))
	}
}

// HandleRefreshJob is the queue handler recomputing cached stats.
func (s *StatsService) HandleRefreshJob(ctx context.Context, job jobs.Job) error {
	lessonID, ok := job.Payload.(int64)
	if !ok {
		s.logger.Warn("stats refresh job with bad payload", zap.String("job_id", job.ID))
		return nil
	}
	stats, err := s.compute(ctx, lessonID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, statsCacheKey(lessonID), stats, s.cacheTTL)
}

func (s *StatsService) observeLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCacheLookup(hit)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
