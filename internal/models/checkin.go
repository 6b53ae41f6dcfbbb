package models

import "time"

// CheckIn is one user's attendance record for one lesson.
// The (user, lesson) pair is unique at the storage layer; a second
// submission surfaces as a conflict, never an update.
type CheckIn struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	LessonID  int64     `db:"lesson_id" json:"lesson_id"`
	Mark      int       `db:"mark" json:"mark"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
