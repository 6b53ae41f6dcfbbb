package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
)

type mockFeedCommentRepo struct {
	lessonComments []models.LessonComment
	forumComments  []models.ForumComment
}

func (m *mockFeedCommentRepo) CreateLessonComment(ctx context.Context, comment *models.LessonComment) error {
	comment.ID = int64(len(m.lessonComments) + 1)
	comment.CreatedAt = time.Now().UTC()
	m.lessonComments = append(m.lessonComments, *comment)
	return nil
}

func (m *mockFeedCommentRepo) FindLessonCommentTime(ctx context.Context, id int64) (time.Time, error) {
	for _, c := range m.lessonComments {
		if c.ID == id {
			return c.CreatedAt, nil
		}
	}
	return time.Time{}, sql.ErrNoRows
}

func (m *mockFeedCommentRepo) ListLessonCommentsNewer(ctx context.Context, lessonID int64, after time.Time, limit int) ([]models.LessonComment, error) {
	var out []models.LessonComment
	for _, c := range m.lessonComments {
		if c.LessonID == lessonID && c.CreatedAt.After(after) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFeedCommentRepo) ListLessonCommentsOlder(ctx context.Context, lessonID int64, before time.Time, limit int) ([]models.LessonComment, error) {
	var out []models.LessonComment
	for _, c := range m.lessonComments {
		if c.LessonID == lessonID && c.CreatedAt.Before(before) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFeedCommentRepo) CreateForumComment(ctx context.Context, comment *models.ForumComment) error {
	comment.ID = int64(len(m.forumComments) + 1)
	comment.CreatedAt = time.Now().UTC()
	m.forumComments = append(m.forumComments, *comment)
	return nil
}

func (m *mockFeedCommentRepo) FindForumCommentTime(ctx context.Context, id int64) (time.Time, error) {
	for _, c := range m.forumComments {
		if c.ID == id {
			return c.CreatedAt, nil
		}
	}
	return time.Time{}, sql.ErrNoRows
}

func (m *mockFeedCommentRepo) ListForumCommentsNewer(ctx context.Context, after time.Time, limit int) ([]models.ForumComment, error) {
	var out []models.ForumComment
	for _, c := range m.forumComments {
		if c.CreatedAt.After(after) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFeedCommentRepo) ListForumCommentsOlder(ctx context.Context, before time.Time, limit int) ([]models.ForumComment, error) {
	var out []models.ForumComment
	for _, c := range m.forumComments {
		if c.CreatedAt.Before(before) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockFeedReportRepo struct {
	reports []models.Report
}

func (m *mockFeedReportRepo) Create(ctx context.Context, report *models.Report) error {
	report.ID = int64(len(m.reports) + 1)
	report.CreatedAt = time.Now().UTC()
	m.reports = append(m.reports, *report)
	return nil
}

func (m *mockFeedReportRepo) FindTime(ctx context.Context, id int64) (time.Time, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r.CreatedAt, nil
		}
	}
	return time.Time{}, sql.ErrNoRows
}

func (m *mockFeedReportRepo) ListNewerByUser(ctx context.Context, userID string, after time.Time, limit int) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.reports {
		if r.UserID == userID && r.CreatedAt.After(after) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFeedReportRepo) ListOlderByUser(ctx context.Context, userID string, before time.Time, limit int) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.reports {
		if r.UserID == userID && r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockFeedLessonRepo struct {
	lessons []models.Lesson
}

func (m *mockFeedLessonRepo) FindByID(ctx context.Context, id int64) (*models.Lesson, error) {
	for _, l := range m.lessons {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeedLessonRepo) FindStartTime(ctx context.Context, id int64) (time.Time, error) {
	lesson, err := m.FindByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return lesson.StartTime, nil
}

func (m *mockFeedLessonRepo) ListNewerBySubject(ctx context.Context, subjectID int64, after time.Time, limit int) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range m.lessons {
		if l.SubjectID == subjectID && l.StartTime.After(after) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFeedLessonRepo) ListOlderBySubject(ctx context.Context, subjectID int64, before time.Time, limit int) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range m.lessons {
		if l.SubjectID == subjectID && l.StartTime.Before(before) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newFeedFixture() (*FeedService, *mockFeedCommentRepo, *mockFeedReportRepo, *mockFeedLessonRepo, time.Time) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	comments := &mockFeedCommentRepo{}
	reports := &mockFeedReportRepo{}
	lessons := &mockFeedLessonRepo{lessons: []models.Lesson{
		lessonAt(1, 7, 5, now.Add(-2*time.Hour), now.Add(-time.Hour)),
	}}
	subjects := &mockSubjectReader{subjects: map[int64]models.Subject{
		7: {ID: 7, Name: "Algorithms"},
		8: {ID: 8, Name: "Go Workshop", IsSeminar: true},
	}}
	enrollments := &mockEnrollmentReader{enrolled: map[string]bool{"student-1": true}}
	svc := NewFeedService(comments, reports, lessons, subjects, enrollments, 24*time.Hour, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, comments, reports, lessons, now
}

// seedLessonComments plants n comments on lesson 1, one minute apart,
// the first at base.
func seedLessonComments(repo *mockFeedCommentRepo, n int, base time.Time) {
	for i := 0; i < n; i++ {
		repo.lessonComments = append(repo.lessonComments, models.LessonComment{
			ID:        int64(i + 1),
			UserID:    "student-1",
			LessonID:  1,
			Body:      "note",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestFeedBootstrapReturnsRecentWindow(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	// Two comments older than the window, three inside it.
	comments.lessonComments = []models.LessonComment{
		{ID: 1, LessonID: 1, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: 2, LessonID: 1, CreatedAt: now.Add(-25 * time.Hour)},
		{ID: 3, LessonID: 1, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: 4, LessonID: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 5, LessonID: 1, CreatedAt: now.Add(-1 * time.Hour)},
	}

	page, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	// Newest first.
	assert.Equal(t, int64(5), page.Items[0].ID)
	assert.Equal(t, int64(3), page.Items[2].ID)
	assert.Equal(t, int64(5), page.EdgeID)
}

func TestFeedBootstrapForcesNewerDirection(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	comments.lessonComments = []models.LessonComment{
		{ID: 1, LessonID: 1, CreatedAt: now.Add(-time.Hour)},
	}

	// direction=older with no cursor still reads forward from the window.
	page, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{Older: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestFeedNewerKeepsNearestTen(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	seedLessonComments(comments, 16, now.Add(-30*time.Minute))

	// Page newer from comment 1: fifteen candidates, the ten closest to
	// the cursor win, so ids 2..11 come back newest-first.
	page, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{Cursor: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	assert.Equal(t, int64(11), page.Items[0].ID)
	assert.Equal(t, int64(2), page.Items[9].ID)
	assert.Equal(t, int64(11), page.EdgeID)
}

func TestFeedOlderPage(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	seedLessonComments(comments, 16, now.Add(-30*time.Minute))

	page, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{Cursor: 16, Older: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	assert.Equal(t, int64(15), page.Items[0].ID)
	assert.Equal(t, int64(6), page.Items[9].ID)
	assert.Equal(t, int64(6), page.EdgeID)
}

func TestFeedRoundTrip(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	seedLessonComments(comments, 16, now.Add(-30*time.Minute))

	older, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{Cursor: 16, Older: true})
	require.NoError(t, err)
	require.Equal(t, int64(6), older.EdgeID)

	// Paging back newer from the older edge returns the items between
	// the edge and the original cursor.
	newer, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{Cursor: older.EdgeID})
	require.NoError(t, err)
	require.Len(t, newer.Items, 10)
	assert.Equal(t, int64(16), newer.Items[0].ID)
	assert.Equal(t, int64(7), newer.Items[9].ID)
}

func TestFeedMissingCursorSoftFails(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	seedLessonComments(comments, 3, now.Add(-30*time.Minute))

	page, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 1, FeedRequest{Cursor: 99})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.EdgeID)
}

func TestFeedMissingLessonSoftFails(t *testing.T) {
	svc, _, _, _, _ := newFeedFixture()

	page, err := svc.LessonComments(context.Background(), "student-1", models.RoleStudent, 42, FeedRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestFeedOutsiderGetsEmptyPage(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	seedLessonComments(comments, 3, now.Add(-30*time.Minute))

	page, err := svc.LessonComments(context.Background(), "outsider", models.RoleStudent, 1, FeedRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestFeedAdminBypassesGate(t *testing.T) {
	svc, comments, _, _, now := newFeedFixture()
	seedLessonComments(comments, 3, now.Add(-30*time.Minute))

	page, err := svc.LessonComments(context.Background(), "outsider", models.RoleAdmin, 1, FeedRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
}

func TestAddLessonComment(t *testing.T) {
	svc, comments, _, _, _ := newFeedFixture()

	comment, err := svc.AddLessonComment(context.Background(), "student-1", models.RoleStudent, AddLessonCommentRequest{LessonID: 1, Body: "great lecture"})
	require.NoError(t, err)
	assert.NotZero(t, comment.ID)
	assert.Len(t, comments.lessonComments, 1)
}

func TestAddLessonCommentOutsiderForbidden(t *testing.T) {
	svc, _, _, _, _ := newFeedFixture()

	_, err := svc.AddLessonComment(context.Background(), "outsider", models.RoleStudent, AddLessonCommentRequest{LessonID: 1, Body: "hi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAddLessonCommentTooLong(t *testing.T) {
	svc, _, _, _, _ := newFeedFixture()

	_, err := svc.AddLessonComment(context.Background(), "student-1", models.RoleStudent, AddLessonCommentRequest{LessonID: 1, Body: strings.Repeat("x", 251)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAddForumCommentTooLong(t *testing.T) {
	svc, _, _, _, _ := newFeedFixture()

	_, err := svc.AddForumComment(context.Background(), "student-1", AddForumCommentRequest{Body: strings.Repeat("x", 151)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportsScopedToAuthor(t *testing.T) {
	svc, _, reports, _, now := newFeedFixture()
	reports.reports = []models.Report{
		{ID: 1, UserID: "student-1", Title: "wifi down", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, UserID: "someone-else", Title: "projector", CreatedAt: now.Add(-time.Hour)},
	}

	page, err := svc.Reports(context.Background(), "student-1", FeedRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].ID)
}

func TestCreateReportDefaultsOpen(t *testing.T) {
	svc, _, _, _, _ := newFeedFixture()

	report, err := svc.CreateReport(context.Background(), "student-1", CreateReportRequest{Title: "wifi down", Body: "room 101 has no signal"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportOpen, report.Status)
}

func TestLessonFeedSeminarVisibleToAll(t *testing.T) {
	svc, _, _, lessons, now := newFeedFixture()
	lessons.lessons = append(lessons.lessons, lessonAt(2, 8, 5, now.Add(-time.Hour), now))

	page, err := svc.Lessons(context.Background(), "outsider", models.RoleStudent, 8, FeedRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].ID)
}

func TestLessonFeedRegularSubjectGated(t *testing.T) {
	svc, _, _, _, _ := newFeedFixture()

	page, err := svc.Lessons(context.Background(), "outsider", models.RoleStudent, 7, FeedRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = svc.Lessons(context.Background(), "student-1", models.RoleStudent, 7, FeedRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
