package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	"github.com/urjc-apps/checkin-api/internal/repository"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
)

type checkinRepository interface {
	Create(ctx context.Context, checkin *models.CheckIn) error
	ListByLesson(ctx context.Context, lessonID int64) ([]models.CheckIn, error)
}

type checkinLessonRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Lesson, error)
	UpdateStudentsCounted(ctx context.Context, id int64, counted int) error
}

type profileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

type enrollmentReader interface {
	Exists(ctx context.Context, userID string, subjectID int64) (bool, error)
}

type statsNotifier interface {
	NotifyCheckIn(lessonID int64)
}

// SubmitCheckInRequest is one attendance submission.
type SubmitCheckInRequest struct {
	LessonID int64   `json:"lesson_id" validate:"required"`
	Mark     int     `json:"mark" validate:"min=0,max=5"`
	Comment  *string `json:"comment,omitempty" validate:"omitempty,max=250"`
	// Headcount is the teacher-observed number of students present.
	// Only honoured for non-student callers; invalid values are ignored.
	Headcount *int `json:"headcount,omitempty"`
}

// CheckInService runs the per-(user, lesson) attendance state machine.
type CheckInService struct {
	checkins    checkinRepository
	lessons     checkinLessonRepository
	profiles    profileReader
	enrollments enrollmentReader
	stats       statsNotifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewCheckInService constructs CheckInService.
func NewCheckInService(checkins checkinRepository, lessons checkinLessonRepository, profiles profileReader, enrollments enrollmentReader, stats statsNotifier, validate *validator.Validate, logger *zap.Logger) *CheckInService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{
		checkins:    checkins,
		lessons:     lessons,
		profiles:    profiles,
		enrollments: enrollments,
		stats:       stats,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit records the caller's check-in for a lesson. The lesson must be
// open, the caller enrolled in its subject (or holding the statistics
// capability), and no prior check-in may exist for the pair. Uniqueness
// is settled by the storage layer, so two concurrent submissions cannot
// both succeed.
func (s *CheckInService) Submit(ctx context.Context, userID string, role models.UserRole, req SubmitCheckInRequest) (*models.CheckIn, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	lesson, err := s.lessons.FindByID(ctx, req.LessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	enrolled, err := s.enrollments.Exists(ctx, userID, lesson.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled && !role.Has(models.CapSeeStatistics) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this subject")
	}

	switch lesson.State(s.now()) {
	case models.LessonNotYetOpen:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lesson has not started yet")
	case models.LessonClosed:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lesson has already ended")
	}

	checkin := &models.CheckIn{
		UserID:   userID,
		LessonID: req.LessonID,
		Mark:     req.Mark,
		Comment:  req.Comment,
	}
	if err := s.checkins.Create(ctx, checkin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCheckIn, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	// Teachers may report how many students they counted in the room.
	// A missing or negative value is silently ignored, by the stated
	// best-effort policy for this field.
	if !profile.IsStudent && req.Headcount != nil && *req.Headcount >= 0 {
		if err := s.lessons.UpdateStudentsCounted(ctx, req.LessonID, *req.Headcount); err != nil {
			s.logger.Warn("failed to store reported headcount",
				zap.Int64("lesson_id", req.LessonID), zap.Error(err))
		}
	}

	if s.stats != nil {
		s.stats.NotifyCheckIn(req.LessonID)
	}

	s.logger.Info("check-in recorded",
		zap.Int64("lesson_id", req.LessonID),
		zap.String("user_id", userID),
		zap.Bool("student", profile.IsStudent))
	return checkin, nil
}

// ListByLesson returns the check-ins of a lesson for statistics views.
func (s *CheckInService) ListByLesson(ctx context.Context, lessonID int64) ([]models.CheckIn, error) {
	checkins, err := s.checkins.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list check-ins")
	}
	return checkins, nil
}
