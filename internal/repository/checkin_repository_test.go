package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/urjc-apps/checkin-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCheckInRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCheckInRepository(db)

	created := time.Now()
	mock.ExpectQuery("INSERT INTO checkins").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	checkin := &models.CheckIn{UserID: "u1", LessonID: 3, Mark: 4}
	require.NoError(t, repo.Create(context.Background(), checkin))
	require.Equal(t, int64(7), checkin.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCheckInRepository(db)

	mock.ExpectQuery("INSERT INTO checkins").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "checkins_user_id_lesson_id_key"})

	err := repo.Create(context.Background(), &models.CheckIn{UserID: "u1", LessonID: 3, Mark: 4})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInRepositoryCountStudentCheckins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCheckInRepository(db)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountStudentCheckins(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInRepositoryAverageStudentMark(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCheckInRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT AVG(c.mark)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(4.25))

	avg, ok, err := repo.AverageStudentMark(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4.25, avg)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInRepositoryAverageStudentMarkNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCheckInRepository(db)

	// AVG over zero rows is SQL NULL, not an error.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT AVG(c.mark)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	_, ok, err := repo.AverageStudentMark(context.Background(), 3)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInRepositoryListByLesson(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCheckInRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "lesson_id", "mark", "comment", "created_at"}).
		AddRow(int64(1), "u1", int64(3), 4, nil, time.Now()).
		AddRow(int64(2), "u2", int64(3), 5, "good one", time.Now())
	mock.ExpectQuery("SELECT id, user_id, lesson_id, mark, comment, created_at").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	checkins, err := repo.ListByLesson(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, checkins, 2)
	require.Equal(t, "u2", checkins[1].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}
