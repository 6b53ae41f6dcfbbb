package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// LessonRepository handles persistence of lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `id, subject_id, room_id, start_time, end_time, is_extra, students_counted, created_at, updated_at`

// FindByID returns a lesson by its ID.
func (r *LessonRepository) FindByID(ctx context.Context, id int64) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListOverlapping returns lessons whose half-open interval intersects
// [start, end), excluding excludeID when it is non-zero. Ordered by
// start time so the conflict check sees a deterministic sequence.
func (r *LessonRepository) ListOverlapping(ctx context.Context, start, end time.Time, excludeID int64) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE start_time < $2 AND end_time > $1`, lessonColumns)
	args := []interface{}{start, end}
	if excludeID > 0 {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time"
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping lessons: %w", err)
	}
	return lessons, nil
}

// Create persists a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	const query = `INSERT INTO lessons (subject_id, room_id, start_time, end_time, is_extra)
        VALUES (:subject_id, :room_id, :start_time, :end_time, :is_extra)
        RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, query, lesson)
	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
			return fmt.Errorf("scan created lesson: %w", err)
		}
	}
	return rows.Err()
}

// Update rewrites the schedulable fields of a lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	const query = `UPDATE lessons SET room_id = $2, start_time = $3, end_time = $4, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, lesson.ID, lesson.RoomID, lesson.StartTime, lesson.EndTime); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson together with its check-ins and comments.
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

// UpdateStudentsCounted stores a teacher-reported headcount.
func (r *LessonRepository) UpdateStudentsCounted(ctx context.Context, id int64, counted int) error {
	const query = `UPDATE lessons SET students_counted = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, counted); err != nil {
		return fmt.Errorf("update students counted: %w", err)
	}
	return nil
}

// FindStartTime resolves a lesson's feed timestamp without loading the row.
func (r *LessonRepository) FindStartTime(ctx context.Context, id int64) (time.Time, error) {
	const query = `SELECT start_time FROM lessons WHERE id = $1`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// ListNewerBySubject returns up to limit lessons of a subject starting
// strictly after the threshold, nearest first.
func (r *LessonRepository) ListNewerBySubject(ctx context.Context, subjectID int64, after time.Time, limit int) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
        WHERE subject_id = $1 AND start_time > $2
        ORDER BY start_time ASC LIMIT $3`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, subjectID, after, limit); err != nil {
		return nil, fmt.Errorf("list newer lessons: %w", err)
	}
	return lessons, nil
}

// ListOlderBySubject returns up to limit lessons of a subject starting
// strictly before the threshold, newest first.
func (r *LessonRepository) ListOlderBySubject(ctx context.Context, subjectID int64, before time.Time, limit int) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
        WHERE subject_id = $1 AND start_time < $2
        ORDER BY start_time DESC LIMIT $3`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, subjectID, before, limit); err != nil {
		return nil, fmt.Errorf("list older lessons: %w", err)
	}
	return lessons, nil
}
