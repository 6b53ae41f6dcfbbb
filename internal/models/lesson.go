package models

import "time"

// Lesson is a single scheduled occurrence of a subject in a room.
// Extra lessons are created ad hoc outside the timetable and are the
// only kind that can be deleted individually.
type Lesson struct {
	ID              int64     `db:"id" json:"id"`
	SubjectID       int64     `db:"subject_id" json:"subject_id"`
	RoomID          int64     `db:"room_id" json:"room_id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	IsExtra         bool      `db:"is_extra" json:"is_extra"`
	StudentsCounted *int      `db:"students_counted" json:"students_counted,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// FeedID implements the feed item contract for the per-subject lesson feed.
func (l Lesson) FeedID() int64 { return l.ID }

// FeedTime orders the lesson feed by start time.
func (l Lesson) FeedTime() time.Time { return l.StartTime }

// LessonState describes where "now" falls relative to a lesson's interval.
type LessonState string

const (
	LessonNotYetOpen LessonState = "NOT_YET_OPEN"
	LessonOpen       LessonState = "OPEN"
	LessonClosed     LessonState = "CLOSED"
)

// State returns the check-in window state at the given instant.
// The interval is half-open: open at start_time, closed again at end_time.
func (l Lesson) State(now time.Time) LessonState {
	if now.Before(l.StartTime) {
		return LessonNotYetOpen
	}
	if now.Before(l.EndTime) {
		return LessonOpen
	}
	return LessonClosed
}

// ConflictKind partitions scheduling conflicts by the shared resource.
type ConflictKind string

const (
	ConflictSameSubject ConflictKind = "SAME_SUBJECT"
	ConflictSameRoom    ConflictKind = "SAME_ROOM"
)

// ScheduleConflict describes the existing entry a candidate collides with.
type ScheduleConflict struct {
	Kind      ConflictKind `json:"kind"`
	LessonID  int64        `json:"lesson_id,omitempty"`
	SubjectID int64        `json:"subject_id"`
	RoomID    int64        `json:"room_id"`
}

// ScheduleConflictError carries the structured conflict a scheduling
// operation collided with.
type ScheduleConflictError struct {
	Conflict ScheduleConflict
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Conflict.Kind == ConflictSameRoom {
		return "lesson overlaps another in the same room"
	}
	return "lesson overlaps another of the same subject"
}

// LessonStats are the derived attendance metrics for one lesson.
type LessonStats struct {
	LessonID       int64   `json:"lesson_id"`
	EnrolledCount  int     `json:"enrolled_count"`
	CheckinCount   int     `json:"checkin_count"`
	CheckinPercent float64 `json:"checkin_percent"`
	AverageMark    float64 `json:"average_mark"`
}
