package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/urjc-apps/checkin-api/internal/models"
	"github.com/urjc-apps/checkin-api/internal/repository"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
)

type enrollmentToggler interface {
	Toggle(ctx context.Context, params repository.ToggleParams) (bool, error)
	CountStudents(ctx context.Context, subjectID int64) (int, error)
}

// EnrollmentService manages seminar sign-up and withdrawal.
type EnrollmentService struct {
	enrollments enrollmentToggler
	subjects    subjectReader
	profiles    profileReader
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentToggler, subjects subjectReader, profiles profileReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		subjects:    subjects,
		profiles:    profiles,
		logger:      logger,
		now:         time.Now,
	}
}

// Toggle enrolls the user in a seminar, or withdraws them if already
// enrolled. Repeated calls alternate state. Capacity applies to student
// callers only and is checked under the subject row lock, so N
// concurrent sign-ups can never exceed max_students.
func (s *EnrollmentService) Toggle(ctx context.Context, userID string, subjectID int64) (*models.EnrollmentResult, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.IsSeminar {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment can only be toggled on seminars")
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if subject.FirstDate.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "the seminar has already started")
	}

	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	enrolled, err := s.enrollments.Toggle(ctx, repository.ToggleParams{
		UserID:          userID,
		SubjectID:       subjectID,
		EnforceCapacity: profile.IsStudent,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			return nil, appErrors.Clone(appErrors.ErrSeminarFull, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle enrollment")
	}

	state := models.EnrollmentStateWithdrawn
	if enrolled {
		state = models.EnrollmentStateEnrolled
	}
	s.logger.Info("enrollment toggled",
		zap.String("user_id", userID),
		zap.Int64("subject_id", subjectID),
		zap.String("state", string(state)))
	return &models.EnrollmentResult{
		SubjectID: subjectID,
		UserID:    userID,
		State:     state,
		IsStudent: profile.IsStudent,
	}, nil
}

// EnrolledStudents counts the students currently enrolled in a subject.
func (s *EnrollmentService) EnrolledStudents(ctx context.Context, subjectID int64) (int, error) {
	count, err := s.enrollments.CountStudents(ctx, subjectID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	return count, nil
}
