package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository handles the user ⇄ subject membership relation.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Exists reports whether the user is enrolled in the subject.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID string, subjectID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CountStudents counts enrolled users whose profile marks them a student.
func (r *EnrollmentRepository) CountStudents(ctx context.Context, subjectID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments e
        JOIN user_profiles p ON p.user_id = e.user_id
        WHERE e.subject_id = $1 AND p.is_student`
	var count int
	if err := r.db.GetContext(ctx, &count, query, subjectID); err != nil {
		return 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return count, nil
}

// ToggleParams control a seminar enrollment toggle.
type ToggleParams struct {
	UserID    string
	SubjectID int64
	// EnforceCapacity applies the max_students limit; staff callers skip it.
	EnforceCapacity bool
}

// Toggle flips the enrollment relation inside one transaction. The
// subject row is locked first so concurrent toggles serialise and the
// capacity check cannot race past max_students. Returns true when the
// user ends up enrolled, false when withdrawn, and ErrCapacityExceeded
// when a seat was required but none was left.
func (r *EnrollmentRepository) Toggle(ctx context.Context, params ToggleParams) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var maxStudents int
	if err := tx.GetContext(ctx, &maxStudents,
		`SELECT max_students FROM subjects WHERE id = $1 FOR UPDATE`, params.SubjectID); err != nil {
		return false, fmt.Errorf("lock subject: %w", err)
	}

	var member int
	err = tx.GetContext(ctx, &member,
		`SELECT 1 FROM enrollments WHERE user_id = $1 AND subject_id = $2`, params.UserID, params.SubjectID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM enrollments WHERE user_id = $1 AND subject_id = $2`, params.UserID, params.SubjectID); err != nil {
			return false, fmt.Errorf("withdraw enrollment: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit withdrawal: %w", err)
		}
		return false, nil
	case err != sql.ErrNoRows:
		return false, fmt.Errorf("check membership: %w", err)
	}

	if params.EnforceCapacity && maxStudents > 0 {
		var enrolled int
		if err := tx.GetContext(ctx, &enrolled,
			`SELECT COUNT(*) FROM enrollments e
             JOIN user_profiles p ON p.user_id = e.user_id
             WHERE e.subject_id = $1 AND p.is_student`, params.SubjectID); err != nil {
			return false, fmt.Errorf("count seats: %w", err)
		}
		if enrolled >= maxStudents {
			return false, ErrCapacityExceeded
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO enrollments (user_id, subject_id) VALUES ($1, $2)`, params.UserID, params.SubjectID); err != nil {
		return false, fmt.Errorf("add enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit enrollment: %w", err)
	}
	return true, nil
}
