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

type subjectRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	List(ctx context.Context, seminarsOnly bool) ([]models.Subject, error)
	ListBySubscriber(ctx context.Context, userID string) ([]models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// CreateSubjectRequest is the payload for registering a subject or
// seminar.
type CreateSubjectRequest struct {
	Name        string  `json:"name" validate:"required,max=150"`
	FirstDate   string  `json:"first_date" validate:"required,datetime=2006-01-02"`
	LastDate    string  `json:"last_date" validate:"required,datetime=2006-01-02"`
	IsSeminar   bool    `json:"is_seminar"`
	MaxStudents int     `json:"max_students" validate:"min=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// SubjectListFilter narrows subject listings.
type SubjectListFilter struct {
	SeminarsOnly bool
	Mine         bool
}

// SubjectService manages the subject catalog.
type SubjectService struct {
	subjects subjectRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(subjects subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, validate: validate, logger: logger}
}

// Get returns a single subject.
func (s *SubjectService) Get(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// List returns subjects matching the filter. Mine restricts the result
// to subjects the caller is enrolled in.
func (s *SubjectService) List(ctx context.Context, userID string, filter SubjectListFilter) ([]models.Subject, error) {
	var (
		subjects []models.Subject
		err      error
	)
	if filter.Mine {
		subjects, err = s.subjects.ListBySubscriber(ctx, userID)
	} else {
		subjects, err = s.subjects.List(ctx, filter.SeminarsOnly)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

// Create registers a subject. The span must be a non-empty date range.
func (s *SubjectService) Create(ctx context.Context, creatorID string, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	firstDate, err := time.Parse("2006-01-02", req.FirstDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid first_date")
	}
	lastDate, err := time.Parse("2006-01-02", req.LastDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid last_date")
	}
	if lastDate.Before(firstDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "last_date must not precede first_date")
	}

	subject := &models.Subject{
		Name:        req.Name,
		FirstDate:   firstDate,
		LastDate:    lastDate,
		IsSeminar:   req.IsSeminar,
		MaxStudents: req.MaxStudents,
		Description: req.Description,
		CreatorID:   creatorID,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	s.logger.Info("subject created",
		zap.Int64("subject_id", subject.ID),
		zap.String("name", subject.Name),
		zap.Bool("is_seminar", subject.IsSeminar),
		zap.String("creator_id", creatorID))
	return subject, nil
}
