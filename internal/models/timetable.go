package models

import "time"

// Weekday is the three-letter day code used by timetable entries.
type Weekday string

const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
	Saturday  Weekday = "Sat"
	Sunday    Weekday = "Sun"
)

// Valid returns true when the weekday is a supported value.
func (w Weekday) Valid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	default:
		return false
	}
}

// Timetable is a recurring weekly scheduling rule for a subject.
// Start and end are zero-padded "HH:MM" times of day, which keeps the
// same ordering under string comparison as under time comparison.
type Timetable struct {
	ID        int64     `db:"id" json:"id"`
	SubjectID int64     `db:"subject_id" json:"subject_id"`
	Day       Weekday   `db:"day" json:"day"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	RoomID    int64     `db:"room_id" json:"room_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
