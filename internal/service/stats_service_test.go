package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/jobs"
)

type mockCheckinStats struct {
	counts map[int64]int
	avgs   map[int64]float64
}

func (m *mockCheckinStats) CountStudentCheckins(ctx context.Context, lessonID int64) (int, error) {
	return m.counts[lessonID], nil
}

func (m *mockCheckinStats) AverageStudentMark(ctx context.Context, lessonID int64) (float64, bool, error) {
	avg, ok := m.avgs[lessonID]
	return avg, ok, nil
}

type mockEnrollCounter struct {
	counts map[int64]int
}

func (m *mockEnrollCounter) CountStudents(ctx context.Context, subjectID int64) (int, error) {
	return m.counts[subjectID], nil
}

type mockStatsCache struct {
	entries map[string]models.LessonStats
	gets    int
	sets    int
}

func (m *mockStatsCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	stats, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.LessonStats) = stats
	return nil
}

func (m *mockStatsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]models.LessonStats)
	}
	m.entries[key] = *value.(*models.LessonStats)
	m.sets++
	return nil
}

func (m *mockStatsCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
	err  error
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func newStatsFixture() (*StatsService, *mockCheckinStats, *mockEnrollCounter, *mockStatsCache) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	checkins := &mockCheckinStats{counts: map[int64]int{}, avgs: map[int64]float64{}}
	enrollments := &mockEnrollCounter{counts: map[int64]int{}}
	lessons := &mockCheckinLessonRepo{lessons: map[int64]models.Lesson{
		1: lessonAt(1, 7, 5, now.Add(-time.Hour), now),
	}}
	cache := &mockStatsCache{}
	svc := NewStatsService(checkins, enrollments, lessons, cache, time.Minute, zap.NewNop())
	return svc, checkins, enrollments, cache
}

func TestLessonStatsCompute(t *testing.T) {
	svc, checkins, enrollments, _ := newStatsFixture()
	enrollments.counts[7] = 30
	checkins.counts[1] = 20
	checkins.avgs[1] = 4.25

	stats, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.EnrolledCount)
	assert.Equal(t, 20, stats.CheckinCount)
	assert.InDelta(t, 66.67, stats.CheckinPercent, 0.001)
	assert.InDelta(t, 4.25, stats.AverageMark, 0.001)
}

func TestLessonStatsZeroEnrolled(t *testing.T) {
	svc, checkins, _, _ := newStatsFixture()
	checkins.counts[1] = 2

	stats, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EnrolledCount)
	assert.InDelta(t, 100, stats.CheckinPercent, 0.001)
}

func TestLessonStatsNoMarks(t *testing.T) {
	svc, _, enrollments, _ := newStatsFixture()
	enrollments.counts[7] = 10

	stats, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 3, stats.AverageMark, 0.001)
}

func TestLessonStatsCached(t *testing.T) {
	svc, checkins, enrollments, cache := newStatsFixture()
	enrollments.counts[7] = 10
	checkins.counts[1] = 5

	first, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Underlying data changes, but the cached page is still served.
	checkins.counts[1] = 9

	second, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first.CheckinCount, second.CheckinCount)
	assert.Equal(t, 1, cache.sets)
}

func TestLessonStatsUnknownLesson(t *testing.T) {
	svc, _, _, _ := newStatsFixture()

	_, err := svc.LessonStats(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotifyCheckInEnqueues(t *testing.T) {
	svc, _, _, _ := newStatsFixture()
	queue := &mockQueue{}
	svc.SetQueue(queue)

	svc.NotifyCheckIn(1)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "stats_refresh", queue.jobs[0].Type)
	assert.Equal(t, int64(1), queue.jobs[0].Payload)
}

func TestHandleRefreshJobRewritesCache(t *testing.T) {
	svc, checkins, enrollments, cache := newStatsFixture()
	enrollments.counts[7] = 10
	checkins.counts[1] = 5

	_, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)

	checkins.counts[1] = 9
	require.NoError(t, svc.HandleRefreshJob(context.Background(), jobs.Job{ID: "j1", Type: "stats_refresh", Payload: int64(1)}))

	// The job recomputes and rewrites the cached entry in place.
	assert.Equal(t, 2, cache.sets)
	assert.Equal(t, 9, cache.entries["lesson_stats:1"].CheckinCount)

	stats, err := svc.LessonStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 9, stats.CheckinCount)
}
