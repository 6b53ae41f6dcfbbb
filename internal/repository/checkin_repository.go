package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint
// violations; it is the atomic duplicate signal for check-in inserts.
const uniqueViolation = pq.ErrorCode("23505")

// CheckInRepository handles persistence of attendance check-ins.
type CheckInRepository struct {
	db *sqlx.DB
}

// NewCheckInRepository constructs the repository.
func NewCheckInRepository(db *sqlx.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Create inserts the check-in. Uniqueness of (user, lesson) is enforced
// by the database, not by a prior existence check; a violation surfaces
// as ErrDuplicate.
func (r *CheckInRepository) Create(ctx context.Context, checkin *models.CheckIn) error {
	const query = `INSERT INTO checkins (user_id, lesson_id, mark, comment)
        VALUES (:user_id, :lesson_id, :mark, :comment)
        RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, checkin)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("create checkin: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&checkin.ID, &checkin.CreatedAt); err != nil {
			return fmt.Errorf("scan created checkin: %w", err)
		}
	}
	return rows.Err()
}

// CountStudentCheckins counts check-ins made by student profiles.
func (r *CheckInRepository) CountStudentCheckins(ctx context.Context, lessonID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM checkins c
        JOIN user_profiles p ON p.user_id = c.user_id
        WHERE c.lesson_id = $1 AND p.is_student`
	var count int
	if err := r.db.GetContext(ctx, &count, query, lessonID); err != nil {
		return 0, fmt.Errorf("count student checkins: %w", err)
	}
	return count, nil
}

// AverageStudentMark returns the mean mark of student check-ins for a
// lesson. The boolean reports whether any student check-in exists.
func (r *CheckInRepository) AverageStudentMark(ctx context.Context, lessonID int64) (float64, bool, error) {
	const query = `SELECT AVG(c.mark) FROM checkins c
        JOIN user_profiles p ON p.user_id = c.user_id
        WHERE c.lesson_id = $1 AND p.is_student`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, lessonID); err != nil {
		return 0, false, fmt.Errorf("average student mark: %w", err)
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}

// ListByLesson returns the check-ins recorded for a lesson.
func (r *CheckInRepository) ListByLesson(ctx context.Context, lessonID int64) ([]models.CheckIn, error) {
	const query = `SELECT id, user_id, lesson_id, mark, comment, created_at
        FROM checkins WHERE lesson_id = $1 ORDER BY created_at`
	var checkins []models.CheckIn
	if err := r.db.SelectContext(ctx, &checkins, query, lessonID); err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	return checkins, nil
}
