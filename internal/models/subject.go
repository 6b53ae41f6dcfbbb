package models

import "time"

// Degree is an academic degree subjects and profiles can belong to.
type Degree struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// Subject represents a taught subject or an opt-in seminar.
// MaxStudents is only meaningful for seminars; 0 means unlimited.
type Subject struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	FirstDate   time.Time `db:"first_date" json:"first_date"`
	LastDate    time.Time `db:"last_date" json:"last_date"`
	IsSeminar   bool      `db:"is_seminar" json:"is_seminar"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentState is the outcome of toggling a seminar enrollment.
type EnrollmentState string

const (
	EnrollmentStateEnrolled  EnrollmentState = "ENROLLED"
	EnrollmentStateWithdrawn EnrollmentState = "WITHDRAWN"
)

// EnrollmentResult reports the state a toggle left the caller in.
type EnrollmentResult struct {
	SubjectID int64           `json:"subject_id"`
	UserID    string          `json:"user_id"`
	State     EnrollmentState `json:"state"`
	IsStudent bool            `json:"is_student"`
}
