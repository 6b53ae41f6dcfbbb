package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// TimetableRepository handles persistence of recurring weekly rules.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `id, subject_id, day, start_time, end_time, room_id, created_at, updated_at`

// FindByID returns a timetable entry by its ID.
func (r *TimetableRepository) FindByID(ctx context.Context, id int64) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE id = $1`, timetableColumns)
	var tt models.Timetable
	if err := r.db.GetContext(ctx, &tt, query, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

// ListBySubject returns the weekly rules for a subject.
func (r *TimetableRepository) ListBySubject(ctx context.Context, subjectID int64) ([]models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE subject_id = $1 ORDER BY day, start_time`, timetableColumns)
	var tts []models.Timetable
	if err := r.db.SelectContext(ctx, &tts, query, subjectID); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return tts, nil
}

// ListOverlapping returns same-day entries whose time-of-day interval
// intersects [start, end), excluding excludeID when non-zero. Times are
// zero-padded "HH:MM" so string comparison matches time order.
func (r *TimetableRepository) ListOverlapping(ctx context.Context, day models.Weekday, start, end string, excludeID int64) ([]models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE day = $1 AND start_time < $3 AND end_time > $2`, timetableColumns)
	args := []interface{}{day, start, end}
	if excludeID > 0 {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time"
	var tts []models.Timetable
	if err := r.db.SelectContext(ctx, &tts, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping timetables: %w", err)
	}
	return tts, nil
}

// Create persists a new timetable entry.
func (r *TimetableRepository) Create(ctx context.Context, tt *models.Timetable) error {
	const query = `INSERT INTO timetables (subject_id, day, start_time, end_time, room_id)
        VALUES (:subject_id, :day, :start_time, :end_time, :room_id)
        RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, query, tt)
	if err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&tt.ID, &tt.CreatedAt, &tt.UpdatedAt); err != nil {
			return fmt.Errorf("scan created timetable: %w", err)
		}
	}
	return rows.Err()
}

// Update rewrites a timetable entry.
func (r *TimetableRepository) Update(ctx context.Context, tt *models.Timetable) error {
	const query = `UPDATE timetables SET day = $2, start_time = $3, end_time = $4, room_id = $5, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, tt.ID, tt.Day, tt.StartTime, tt.EndTime, tt.RoomID); err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	return nil
}
