package service

import (
	"time"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Exactly-touching intervals do not.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// findLessonConflict checks a candidate lesson against existing lessons
// and returns the first conflict found, or nil. Same-subject conflicts
// take priority over same-room conflicts when both occur. Callers pass
// excludeID = 0 on creation and the lesson's own id on edits.
func findLessonConflict(candidate models.Lesson, existing []models.Lesson, excludeID int64) *models.ScheduleConflict {
	var roomClash *models.Lesson
	for i := range existing {
		other := &existing[i]
		if excludeID > 0 && other.ID == excludeID {
			continue
		}
		if !overlaps(candidate.StartTime, candidate.EndTime, other.StartTime, other.EndTime) {
			continue
		}
		if other.SubjectID == candidate.SubjectID {
			return &models.ScheduleConflict{
				Kind:      models.ConflictSameSubject,
				LessonID:  other.ID,
				SubjectID: other.SubjectID,
				RoomID:    other.RoomID,
			}
		}
		if other.RoomID == candidate.RoomID && roomClash == nil {
			roomClash = other
		}
	}
	if roomClash != nil {
		return &models.ScheduleConflict{
			Kind:      models.ConflictSameRoom,
			LessonID:  roomClash.ID,
			SubjectID: roomClash.SubjectID,
			RoomID:    roomClash.RoomID,
		}
	}
	return nil
}

// timesOverlap is the "HH:MM" variant of overlaps. Zero-padded times
// order the same lexicographically as chronologically.
func timesOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}

// findTimetableConflict is the weekly-rule variant of findLessonConflict,
// scoped to a single weekday.
func findTimetableConflict(candidate models.Timetable, existing []models.Timetable, excludeID int64) *models.ScheduleConflict {
	var roomClash *models.Timetable
	for i := range existing {
		other := &existing[i]
		if excludeID > 0 && other.ID == excludeID {
			continue
		}
		if other.Day != candidate.Day {
			continue
		}
		if !timesOverlap(candidate.StartTime, candidate.EndTime, other.StartTime, other.EndTime) {
			continue
		}
		if other.SubjectID == candidate.SubjectID {
			return &models.ScheduleConflict{
				Kind:      models.ConflictSameSubject,
				SubjectID: other.SubjectID,
				RoomID:    other.RoomID,
			}
		}
		if other.RoomID == candidate.RoomID && roomClash == nil {
			roomClash = other
		}
	}
	if roomClash != nil {
		return &models.ScheduleConflict{
			Kind:      models.ConflictSameRoom,
			SubjectID: roomClash.SubjectID,
			RoomID:    roomClash.RoomID,
		}
	}
	return nil
}
