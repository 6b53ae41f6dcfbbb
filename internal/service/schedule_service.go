package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Lesson, error)
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID int64) ([]models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id int64) error
}

type timetableRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Timetable, error)
	ListOverlapping(ctx context.Context, day models.Weekday, start, end string, excludeID int64) ([]models.Timetable, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]models.Timetable, error)
	Create(ctx context.Context, tt *models.Timetable) error
	Update(ctx context.Context, tt *models.Timetable) error
}

type subjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type roomRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Room, error)
	List(ctx context.Context) ([]models.Room, error)
	ListFree(ctx context.Context, start, end time.Time) ([]models.Room, error)
}

// CreateLessonRequest describes an ad hoc lesson creation payload.
type CreateLessonRequest struct {
	RoomID    int64     `json:"room_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// EditLessonRequest describes a lesson reschedule payload.
type EditLessonRequest struct {
	RoomID    int64     `json:"room_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// TimetableRequest describes a weekly rule payload.
type TimetableRequest struct {
	Day       models.Weekday `json:"day" validate:"required"`
	StartTime string         `json:"start_time" validate:"required,len=5"`
	EndTime   string         `json:"end_time" validate:"required,len=5"`
	RoomID    int64          `json:"room_id" validate:"required"`
}

// ScheduleService owns lesson and timetable scheduling rules.
type ScheduleService struct {
	lessons    lessonRepository
	timetables timetableRepository
	subjects   subjectReader
	rooms      roomRepository
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(lessons lessonRepository, timetables timetableRepository, subjects subjectReader, rooms roomRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		lessons:    lessons,
		timetables: timetables,
		subjects:   subjects,
		rooms:      rooms,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// GetLesson loads a single lesson.
func (s *ScheduleService) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// CreateLesson schedules an extra lesson for a subject.
func (s *ScheduleService) CreateLesson(ctx context.Context, subjectID int64, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	lesson := &models.Lesson{
		SubjectID: subjectID,
		RoomID:    req.RoomID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsExtra:   true,
	}
	if err := s.validateInterval(ctx, lesson, 0); err != nil {
		return nil, err
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.logger.Info("lesson created",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("subject_id", lesson.SubjectID),
		zap.Int64("room_id", lesson.RoomID))
	return lesson, nil
}

// EditLesson reschedules a future lesson. Lessons that already started
// are immutable.
func (s *ScheduleService) EditLesson(ctx context.Context, lessonID int64, req EditLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if !lesson.StartTime.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "past lessons cannot be edited")
	}
	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	lesson.RoomID = req.RoomID
	lesson.StartTime = req.StartTime
	lesson.EndTime = req.EndTime
	if err := s.validateInterval(ctx, lesson, lesson.ID); err != nil {
		return nil, err
	}
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return lesson, nil
}

// DeleteLesson removes an extra lesson. Timetable-generated lessons
// cannot be deleted individually.
func (s *ScheduleService) DeleteLesson(ctx context.Context, lessonID int64) error {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if !lesson.IsExtra {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only extra lessons can be deleted")
	}
	if err := s.lessons.Delete(ctx, lessonID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.logger.Info("lesson deleted", zap.Int64("lesson_id", lessonID))
	return nil
}

// validateInterval enforces the interval invariants and the non-overlap
// rule. excludeID is 0 for creation and the lesson's own id for edits.
func (s *ScheduleService) validateInterval(ctx context.Context, lesson *models.Lesson, excludeID int64) error {
	if !lesson.EndTime.After(lesson.StartTime) {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if !lesson.StartTime.After(s.now()) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be in the future")
	}
	existing, err := s.lessons.ListOverlapping(ctx, lesson.StartTime, lesson.EndTime, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson overlap")
	}
	if conflict := findLessonConflict(*lesson, existing, excludeID); conflict != nil {
		confErr := &models.ScheduleConflictError{Conflict: *conflict}
		return appErrors.Wrap(confErr, appErrors.ErrSchedulingConflict.Code, appErrors.ErrSchedulingConflict.Status, confErr.Error())
	}
	return nil
}

// ListTimetables returns the weekly rules of a subject.
func (s *ScheduleService) ListTimetables(ctx context.Context, subjectID int64) ([]models.Timetable, error) {
	tts, err := s.timetables.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return tts, nil
}

// CreateTimetable adds a weekly rule for a subject.
func (s *ScheduleService) CreateTimetable(ctx context.Context, subjectID int64, req TimetableRequest) (*models.Timetable, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	tt := &models.Timetable{
		SubjectID: subjectID,
		Day:       req.Day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		RoomID:    req.RoomID,
	}
	if err := s.validateTimetable(ctx, tt, 0); err != nil {
		return nil, err
	}
	if err := s.timetables.Create(ctx, tt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	return tt, nil
}

// EditTimetable rewrites a weekly rule.
func (s *ScheduleService) EditTimetable(ctx context.Context, ttID int64, req TimetableRequest) (*models.Timetable, error) {
	tt, err := s.timetables.FindByID(ctx, ttID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	tt.Day = req.Day
	tt.StartTime = req.StartTime
	tt.EndTime = req.EndTime
	tt.RoomID = req.RoomID
	if err := s.validateTimetable(ctx, tt, tt.ID); err != nil {
		return nil, err
	}
	if err := s.timetables.Update(ctx, tt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}
	return tt, nil
}

func (s *ScheduleService) validateTimetable(ctx context.Context, tt *models.Timetable, excludeID int64) error {
	if err := s.validator.Struct(TimetableRequest{Day: tt.Day, StartTime: tt.StartTime, EndTime: tt.EndTime, RoomID: tt.RoomID}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if !tt.Day.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "day must be one of Mon..Sun")
	}
	if !validClockTime(tt.StartTime) || !validClockTime(tt.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must be zero-padded HH:MM")
	}
	if tt.StartTime >= tt.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if _, err := s.rooms.FindByID(ctx, tt.RoomID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	existing, err := s.timetables.ListOverlapping(ctx, tt.Day, tt.StartTime, tt.EndTime, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check timetable overlap")
	}
	if conflict := findTimetableConflict(*tt, existing, excludeID); conflict != nil {
		confErr := &models.ScheduleConflictError{Conflict: *conflict}
		return appErrors.Wrap(confErr, appErrors.ErrSchedulingConflict.Code, appErrors.ErrSchedulingConflict.Status, confErr.Error())
	}
	return nil
}

// ListRooms returns every room.
func (s *ScheduleService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// FreeRooms returns rooms with no lesson during [start, end).
func (s *ScheduleService) FreeRooms(ctx context.Context, start, end time.Time) ([]models.Room, error) {
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	rooms, err := s.rooms.ListFree(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list free rooms")
	}
	return rooms, nil
}

// validClockTime accepts zero-padded 24h "HH:MM" strings.
func validClockTime(v string) bool {
	if len(v) != 5 || v[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", v)
	return err == nil
}
