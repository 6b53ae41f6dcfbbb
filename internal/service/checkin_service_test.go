package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	"github.com/urjc-apps/checkin-api/internal/repository"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
)

type mockCheckinRepo struct {
	existing map[string]struct{}
	created  []models.CheckIn
}

func checkinKey(userID string, lessonID int64) string {
	return fmt.Sprintf("%s:%d", userID, lessonID)
}

func (m *mockCheckinRepo) Create(ctx context.Context, checkin *models.CheckIn) error {
	if m.existing == nil {
		m.existing = make(map[string]struct{})
	}
	key := checkinKey(checkin.UserID, checkin.LessonID)
	if _, ok := m.existing[key]; ok {
		return repository.ErrDuplicate
	}
	m.existing[key] = struct{}{}
	checkin.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *checkin)
	return nil
}

func (m *mockCheckinRepo) ListByLesson(ctx context.Context, lessonID int64) ([]models.CheckIn, error) {
	var out []models.CheckIn
	for _, c := range m.created {
		if c.LessonID == lessonID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockCheckinLessonRepo struct {
	lessons      map[int64]models.Lesson
	headcounts   map[int64]int
	headcountErr error
}

func (m *mockCheckinLessonRepo) FindByID(ctx context.Context, id int64) (*models.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCheckinLessonRepo) UpdateStudentsCounted(ctx context.Context, id int64, counted int) error {
	if m.headcountErr != nil {
		return m.headcountErr
	}
	if m.headcounts == nil {
		m.headcounts = make(map[int64]int)
	}
	m.headcounts[id] = counted
	return nil
}

type mockProfileReader struct {
	profiles map[string]models.UserProfile
}

func (m *mockProfileReader) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentReader struct {
	enrolled map[string]bool
}

func (m *mockEnrollmentReader) Exists(ctx context.Context, userID string, subjectID int64) (bool, error) {
	return m.enrolled[userID], nil
}

type mockStatsNotifier struct {
	notified []int64
}

func (m *mockStatsNotifier) NotifyCheckIn(lessonID int64) {
	m.notified = append(m.notified, lessonID)
}

func newCheckinFixture() (*CheckInService, *mockCheckinRepo, *mockCheckinLessonRepo, *mockStatsNotifier, time.Time) {
	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	checkins := &mockCheckinRepo{}
	lessons := &mockCheckinLessonRepo{lessons: map[int64]models.Lesson{
		// Open: started half an hour ago, ends in half an hour.
		1: lessonAt(1, 7, 5, now.Add(-30*time.Minute), now.Add(30*time.Minute)),
	}}
	profiles := &mockProfileReader{profiles: map[string]models.UserProfile{
		"student-1": {UserID: "student-1", IsStudent: true},
		"teacher-1": {UserID: "teacher-1", IsStudent: false},
	}}
	enrollments := &mockEnrollmentReader{enrolled: map[string]bool{"student-1": true, "teacher-1": true}}
	stats := &mockStatsNotifier{}
	svc := NewCheckInService(checkins, lessons, profiles, enrollments, stats, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, checkins, lessons, stats, now
}

func TestCheckInSubmit(t *testing.T) {
	svc, checkins, _, stats, _ := newCheckinFixture()

	checkin, err := svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 1, Mark: 4})
	require.NoError(t, err)
	assert.NotZero(t, checkin.ID)
	assert.Len(t, checkins.created, 1)
	assert.Contains(t, stats.notified, int64(1))
}

func TestCheckInSubmitDuplicate(t *testing.T) {
	svc, _, _, _, _ := newCheckinFixture()

	_, err := svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 1, Mark: 4})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 1, Mark: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateCheckIn.Code, appErrors.FromError(err).Code)
}

func TestCheckInSubmitBeforeOpen(t *testing.T) {
	svc, _, lessons, _, now := newCheckinFixture()
	lessons.lessons[2] = lessonAt(2, 7, 5, now.Add(time.Hour), now.Add(2*time.Hour))

	_, err := svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestCheckInSubmitAfterClose(t *testing.T) {
	svc, _, lessons, _, now := newCheckinFixture()
	// The window is half-open: end_time itself is already closed.
	lessons.lessons[2] = lessonAt(2, 7, 5, now.Add(-time.Hour), now)

	_, err := svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestCheckInSubmitNotEnrolled(t *testing.T) {
	svc, _, _, _, _ := newCheckinFixture()

	// No profile on record reads as an unknown user.
	_, err := svc.Submit(context.Background(), "outsider", models.RoleStudent, SubmitCheckInRequest{LessonID: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCheckInSubmitNotEnrolledWithProfile(t *testing.T) {
	svc, _, _, _, _ := newCheckinFixture()
	svc.profiles.(*mockProfileReader).profiles["outsider"] = models.UserProfile{UserID: "outsider", IsStudent: true}

	_, err := svc.Submit(context.Background(), "outsider", models.RoleStudent, SubmitCheckInRequest{LessonID: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCheckInSubmitAdminBypassesEnrollment(t *testing.T) {
	svc, _, _, _, _ := newCheckinFixture()
	svc.profiles.(*mockProfileReader).profiles["admin-1"] = models.UserProfile{UserID: "admin-1", IsStudent: false}

	_, err := svc.Submit(context.Background(), "admin-1", models.RoleAdmin, SubmitCheckInRequest{LessonID: 1})
	require.NoError(t, err)
}

func TestCheckInTeacherHeadcount(t *testing.T) {
	svc, _, lessons, _, _ := newCheckinFixture()
	headcount := 28

	_, err := svc.Submit(context.Background(), "teacher-1", models.RoleTeacher, SubmitCheckInRequest{LessonID: 1, Mark: 5, Headcount: &headcount})
	require.NoError(t, err)
	assert.Equal(t, 28, lessons.headcounts[1])
}

func TestCheckInStudentHeadcountIgnored(t *testing.T) {
	svc, _, lessons, _, _ := newCheckinFixture()
	headcount := 28

	_, err := svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 1, Mark: 5, Headcount: &headcount})
	require.NoError(t, err)
	assert.Empty(t, lessons.headcounts)
}

func TestCheckInNegativeHeadcountIgnored(t *testing.T) {
	svc, _, lessons, _, _ := newCheckinFixture()
	headcount := -3

	_, err := svc.Submit(context.Background(), "teacher-1", models.RoleTeacher, SubmitCheckInRequest{LessonID: 1, Mark: 5, Headcount: &headcount})
	require.NoError(t, err)
	assert.Empty(t, lessons.headcounts)
}

func TestCheckInHeadcountFailureDoesNotFailSubmit(t *testing.T) {
	svc, checkins, lessons, _, _ := newCheckinFixture()
	lessons.headcountErr = errors.New("column gone")
	headcount := 28

	_, err := svc.Submit(context.Background(), "teacher-1", models.RoleTeacher, SubmitCheckInRequest{LessonID: 1, Mark: 5, Headcount: &headcount})
	require.NoError(t, err)
	assert.Len(t, checkins.created, 1)
}

func TestCheckInMarkOutOfRange(t *testing.T) {
	svc, _, _, _, _ := newCheckinFixture()

	_, err := svc.Submit(context.Background(), "student-1", models.RoleStudent, SubmitCheckInRequest{LessonID: 1, Mark: 9})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
