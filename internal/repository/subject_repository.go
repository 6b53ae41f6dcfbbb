package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// SubjectRepository handles persistence of subjects and seminars.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, name, first_date, last_date, is_seminar, max_students, description, creator_id, created_at, updated_at`

// FindByID returns a subject by its ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE id = $1`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// List returns all subjects, seminars first when requested.
func (r *SubjectRepository) List(ctx context.Context, seminarsOnly bool) ([]models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects`, subjectColumns)
	if seminarsOnly {
		query += " WHERE is_seminar"
	}
	query += " ORDER BY name"
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListBySubscriber returns the subjects a user is enrolled in.
func (r *SubjectRepository) ListBySubscriber(ctx context.Context, userID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.name, s.first_date, s.last_date, s.is_seminar, s.max_students,
        s.description, s.creator_id, s.created_at, s.updated_at
        FROM subjects s
        JOIN enrollments e ON e.subject_id = s.id
        WHERE e.user_id = $1 ORDER BY s.name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled subjects: %w", err)
	}
	return subjects, nil
}

// Create persists a new subject. The creator is always explicit.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	const query = `INSERT INTO subjects (name, first_date, last_date, is_seminar, max_students, description, creator_id)
        VALUES (:name, :first_date, :last_date, :is_seminar, :max_students, :description, :creator_id)
        RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&subject.ID, &subject.CreatedAt, &subject.UpdatedAt); err != nil {
			return fmt.Errorf("scan created subject: %w", err)
		}
	}
	return rows.Err()
}
