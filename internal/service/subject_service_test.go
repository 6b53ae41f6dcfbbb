package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
)

type mockSubjectRepo struct {
	subjects    []models.Subject
	subscribers map[string][]int64
	created     []models.Subject
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	for _, s := range m.subjects {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) List(ctx context.Context, seminarsOnly bool) ([]models.Subject, error) {
	var out []models.Subject
	for _, s := range m.subjects {
		if seminarsOnly && !s.IsSeminar {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSubjectRepo) ListBySubscriber(ctx context.Context, userID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, id := range m.subscribers[userID] {
		for _, s := range m.subjects {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = int64(len(m.subjects) + 1)
	m.subjects = append(m.subjects, *subject)
	m.created = append(m.created, *subject)
	return nil
}

func newSubjectFixture() (*SubjectService, *mockSubjectRepo) {
	repo := &mockSubjectRepo{
		subjects: []models.Subject{
			{ID: 1, Name: "Algorithms"},
			{ID: 2, Name: "Go Workshop", IsSeminar: true},
		},
		subscribers: map[string][]int64{"student-1": {1}},
	}
	return NewSubjectService(repo, validator.New(), zap.NewNop()), repo
}

func TestSubjectGet(t *testing.T) {
	svc, _ := newSubjectFixture()

	subject, err := svc.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Go Workshop", subject.Name)

	_, err = svc.Get(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectListFilters(t *testing.T) {
	svc, _ := newSubjectFixture()

	all, err := svc.List(context.Background(), "student-1", SubjectListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	seminars, err := svc.List(context.Background(), "student-1", SubjectListFilter{SeminarsOnly: true})
	require.NoError(t, err)
	require.Len(t, seminars, 1)
	assert.True(t, seminars[0].IsSeminar)

	mine, err := svc.List(context.Background(), "student-1", SubjectListFilter{Mine: true})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].ID)
}

func TestSubjectListNeverNil(t *testing.T) {
	svc, _ := newSubjectFixture()

	mine, err := svc.List(context.Background(), "nobody", SubjectListFilter{Mine: true})
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)
}

func TestSubjectCreate(t *testing.T) {
	svc, repo := newSubjectFixture()

	subject, err := svc.Create(context.Background(), "teacher-1", CreateSubjectRequest{
		Name:        "Databases",
		FirstDate:   "2026-09-07",
		LastDate:    "2026-12-18",
		MaxStudents: 0,
	})
	require.NoError(t, err)
	assert.NotZero(t, subject.ID)
	assert.Equal(t, "teacher-1", subject.CreatorID)
	assert.Len(t, repo.created, 1)
}

func TestSubjectCreateInvertedDates(t *testing.T) {
	svc, _ := newSubjectFixture()

	_, err := svc.Create(context.Background(), "teacher-1", CreateSubjectRequest{
		Name:      "Databases",
		FirstDate: "2026-12-18",
		LastDate:  "2026-09-07",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectCreateBadDate(t *testing.T) {
	svc, _ := newSubjectFixture()

	_, err := svc.Create(context.Background(), "teacher-1", CreateSubjectRequest{
		Name:      "Databases",
		FirstDate: "07/09/2026",
		LastDate:  "2026-12-18",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
