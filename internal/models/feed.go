package models

import "time"

// LessonComment is a comment posted on a lesson's wall. Immutable once
// created except for administrative deletion.
type LessonComment struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	LessonID  int64     `db:"lesson_id" json:"lesson_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeedID implements the feed item contract.
func (c LessonComment) FeedID() int64 { return c.ID }

// FeedTime implements the feed item contract.
func (c LessonComment) FeedTime() time.Time { return c.CreatedAt }

// ForumComment is a comment on the global forum.
type ForumComment struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (c ForumComment) FeedID() int64       { return c.ID }
func (c ForumComment) FeedTime() time.Time { return c.CreatedAt }

// ReportStatus tracks administrative handling of a report.
type ReportStatus string

const (
	ReportOpen     ReportStatus = "OPEN"
	ReportResolved ReportStatus = "RESOLVED"
)

// Report is a problem report a user files for the administrators.
type Report struct {
	ID        int64        `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Title     string       `db:"title" json:"title"`
	Body      string       `db:"body" json:"body"`
	Status    ReportStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

func (r Report) FeedID() int64       { return r.ID }
func (r Report) FeedTime() time.Time { return r.CreatedAt }
