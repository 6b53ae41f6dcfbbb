package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// ProfileRepository handles persistence of academic user profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns the profile owned by the given user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	const query = `SELECT user_id, is_student, age, dni, description FROM user_profiles WHERE user_id = $1`
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces the profile for a user.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	const query = `INSERT INTO user_profiles (user_id, is_student, age, dni, description)
        VALUES (:user_id, :is_student, :age, :dni, :description)
        ON CONFLICT (user_id) DO UPDATE SET is_student = EXCLUDED.is_student,
            age = EXCLUDED.age, dni = EXCLUDED.dni, description = EXCLUDED.description`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
