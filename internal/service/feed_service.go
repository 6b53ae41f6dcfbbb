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

// feedPageSize is the fixed page length of every cursor feed.
const feedPageSize = 10

// feedItem is anything a feed can page over.
type feedItem interface {
	FeedID() int64
	FeedTime() time.Time
}

// FeedPage is one page of a cursor feed, newest item first. EdgeID is
// the cursor for the next request in the same direction, 0 when the
// page is empty.
type FeedPage[T feedItem] struct {
	Items  []T   `json:"items"`
	EdgeID int64 `json:"edge_id"`
}

func emptyPage[T feedItem]() *FeedPage[T] {
	return &FeedPage[T]{Items: []T{}}
}

// feedSource supplies the three queries pageFeed needs: resolving a
// cursor id to its timestamp, and fetching items on either side of a
// threshold. The newer query must return ascending order so the page
// holds the items nearest the threshold.
type feedSource[T feedItem] struct {
	resolve func(ctx context.Context, id int64) (time.Time, error)
	newer   func(ctx context.Context, after time.Time, limit int) ([]T, error)
	older   func(ctx context.Context, before time.Time, limit int) ([]T, error)
}

// pageFeed runs one page of a cursor feed. A non-positive cursor
// bootstraps the feed from now minus the bootstrap window and always
// pages toward newer items. A cursor that no longer resolves yields an
// empty page rather than an error, so clients holding a deleted edge
// recover on their own.
func pageFeed[T feedItem](ctx context.Context, src feedSource[T], cursor int64, wantOlder bool, now time.Time, window time.Duration) (*FeedPage[T], error) {
	var threshold time.Time
	if cursor <= 0 {
		threshold = now.Add(-window)
		wantOlder = false
	} else {
		ts, err := src.resolve(ctx, cursor)
		if err != nil {
			if err == sql.ErrNoRows {
				return emptyPage[T](), nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve feed cursor")
		}
		threshold = ts
	}

	if wantOlder {
		items, err := src.older(ctx, threshold, feedPageSize)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feed page")
		}
		page := &FeedPage[T]{Items: items}
		if len(items) > 0 {
			page.EdgeID = items[len(items)-1].FeedID()
		}
		if page.Items == nil {
			page.Items = []T{}
		}
		return page, nil
	}

	items, err := src.newer(ctx, threshold, feedPageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feed page")
	}
	// The query returns ascending order so the limit keeps the items
	// nearest the threshold; flip to newest-first for the client.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	page := &FeedPage[T]{Items: items}
	if len(items) > 0 {
		page.EdgeID = items[0].FeedID()
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

type feedCommentRepository interface {
	CreateLessonComment(ctx context.Context, comment *models.LessonComment) error
	FindLessonCommentTime(ctx context.Context, id int64) (time.Time, error)
	ListLessonCommentsNewer(ctx context.Context, lessonID int64, after time.Time, limit int) ([]models.LessonComment, error)
	ListLessonCommentsOlder(ctx context.Context, lessonID int64, before time.Time, limit int) ([]models.LessonComment, error)
	CreateForumComment(ctx context.Context, comment *models.ForumComment) error
	FindForumCommentTime(ctx context.Context, id int64) (time.Time, error)
	ListForumCommentsNewer(ctx context.Context, after time.Time, limit int) ([]models.ForumComment, error)
	ListForumCommentsOlder(ctx context.Context, before time.Time, limit int) ([]models.ForumComment, error)
}

type feedReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindTime(ctx context.Context, id int64) (time.Time, error)
	ListNewerByUser(ctx context.Context, userID string, after time.Time, limit int) ([]models.Report, error)
	ListOlderByUser(ctx context.Context, userID string, before time.Time, limit int) ([]models.Report, error)
}

type feedLessonRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Lesson, error)
	FindStartTime(ctx context.Context, id int64) (time.Time, error)
	ListNewerBySubject(ctx context.Context, subjectID int64, after time.Time, limit int) ([]models.Lesson, error)
	ListOlderBySubject(ctx context.Context, subjectID int64, before time.Time, limit int) ([]models.Lesson, error)
}

// FeedService pages the comment, report and lesson feeds and accepts
// new entries for them.
type FeedService struct {
	comments    feedCommentRepository
	reports     feedReportRepository
	lessons     feedLessonRepository
	subjects    subjectReader
	enrollments enrollmentReader
	window      time.Duration
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewFeedService constructs FeedService. window is how far back a
// cursorless request starts reading.
func NewFeedService(comments feedCommentRepository, reports feedReportRepository, lessons feedLessonRepository, subjects subjectReader, enrollments enrollmentReader, window time.Duration, validate *validator.Validate, logger *zap.Logger) *FeedService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedService{
		comments:    comments,
		reports:     reports,
		lessons:     lessons,
		subjects:    subjects,
		enrollments: enrollments,
		window:      window,
		validate:    validate,
		logger:      logger,
		now:         time.Now,
	}
}

// FeedRequest carries the cursor parameters shared by every feed.
type FeedRequest struct {
	Cursor int64
	Older  bool
}

// AddLessonCommentRequest is the payload for posting on a lesson wall.
type AddLessonCommentRequest struct {
	LessonID int64  `json:"lesson_id" validate:"required"`
	Body     string `json:"body" validate:"required,max=250"`
}

// AddForumCommentRequest is the payload for posting on the forum.
type AddForumCommentRequest struct {
	Body string `json:"body" validate:"required,max=150"`
}

// CreateReportRequest is the payload for filing a report.
type CreateReportRequest struct {
	Title string `json:"title" validate:"required,max=100"`
	Body  string `json:"body" validate:"required,max=1000"`
}

// canViewLesson reports whether the caller may read a lesson's wall.
func (s *FeedService) canViewLesson(ctx context.Context, userID string, role models.UserRole, subjectID int64) (bool, error) {
	if role.Has(models.CapSeeStatistics) {
		return true, nil
	}
	return s.enrollments.Exists(ctx, userID, subjectID)
}

// LessonComments pages a lesson's wall. Callers outside the subject,
// and lessons that no longer exist, get an empty page.
func (s *FeedService) LessonComments(ctx context.Context, userID string, role models.UserRole, lessonID int64, req FeedRequest) (*FeedPage[models.LessonComment], error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return emptyPage[models.LessonComment](), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	ok, err := s.canViewLesson(ctx, userID, role, lesson.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !ok {
		return emptyPage[models.LessonComment](), nil
	}

	return pageFeed(ctx, feedSource[models.LessonComment]{
		resolve: s.comments.FindLessonCommentTime,
		newer: func(ctx context.Context, after time.Time, limit int) ([]models.LessonComment, error) {
			return s.comments.ListLessonCommentsNewer(ctx, lessonID, after, limit)
		},
		older: func(ctx context.Context, before time.Time, limit int) ([]models.LessonComment, error) {
			return s.comments.ListLessonCommentsOlder(ctx, lessonID, before, limit)
		},
	}, req.Cursor, req.Older, s.now(), s.window)
}

// AddLessonComment posts on a lesson's wall. Unlike reads, an attempt
// to write without access is rejected outright.
func (s *FeedService) AddLessonComment(ctx context.Context, userID string, role models.UserRole, req AddLessonCommentRequest) (*models.LessonComment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment")
	}
	lesson, err := s.lessons.FindByID(ctx, req.LessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	ok, err := s.canViewLesson(ctx, userID, role, lesson.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this subject")
	}

	comment := &models.LessonComment{
		UserID:   userID,
		LessonID: req.LessonID,
		Body:     req.Body,
	}
	if err := s.comments.CreateLessonComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	s.logger.Info("lesson comment created",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("lesson_id", req.LessonID),
		zap.String("user_id", userID))
	return comment, nil
}

// ForumComments pages the global forum, visible to every
// authenticated user.
func (s *FeedService) ForumComments(ctx context.Context, req FeedRequest) (*FeedPage[models.ForumComment], error) {
	return pageFeed(ctx, feedSource[models.ForumComment]{
		resolve: s.comments.FindForumCommentTime,
		newer:   s.comments.ListForumCommentsNewer,
		older:   s.comments.ListForumCommentsOlder,
	}, req.Cursor, req.Older, s.now(), s.window)
}

// AddForumComment posts on the global forum.
func (s *FeedService) AddForumComment(ctx context.Context, userID string, req AddForumCommentRequest) (*models.ForumComment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment")
	}
	comment := &models.ForumComment{
		UserID: userID,
		Body:   req.Body,
	}
	if err := s.comments.CreateForumComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	s.logger.Info("forum comment created",
		zap.Int64("comment_id", comment.ID),
		zap.String("user_id", userID))
	return comment, nil
}

// Reports pages the caller's own reports.
func (s *FeedService) Reports(ctx context.Context, userID string, req FeedRequest) (*FeedPage[models.Report], error) {
	return pageFeed(ctx, feedSource[models.Report]{
		resolve: s.reports.FindTime,
		newer: func(ctx context.Context, after time.Time, limit int) ([]models.Report, error) {
			return s.reports.ListNewerByUser(ctx, userID, after, limit)
		},
		older: func(ctx context.Context, before time.Time, limit int) ([]models.Report, error) {
			return s.reports.ListOlderByUser(ctx, userID, before, limit)
		},
	}, req.Cursor, req.Older, s.now(), s.window)
}

// CreateReport files a report for the administrators.
func (s *FeedService) CreateReport(ctx context.Context, userID string, req CreateReportRequest) (*models.Report, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report")
	}
	report := &models.Report{
		UserID: userID,
		Title:  req.Title,
		Body:   req.Body,
		Status: models.ReportOpen,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	s.logger.Info("report created",
		zap.Int64("report_id", report.ID),
		zap.String("user_id", userID))
	return report, nil
}

// Lessons pages a subject's lessons by start time. Seminars are public
// to authenticated users; regular subjects require enrollment or the
// statistics capability. Ineligible callers and unknown subjects get
// an empty page.
func (s *FeedService) Lessons(ctx context.Context, userID string, role models.UserRole, subjectID int64, req FeedRequest) (*FeedPage[models.Lesson], error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return emptyPage[models.Lesson](), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.IsSeminar {
		ok, err := s.canViewLesson(ctx, userID, role, subjectID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !ok {
			return emptyPage[models.Lesson](), nil
		}
	}

	return pageFeed(ctx, feedSource[models.Lesson]{
		resolve: s.lessons.FindStartTime,
		newer: func(ctx context.Context, after time.Time, limit int) ([]models.Lesson, error) {
			return s.lessons.ListNewerBySubject(ctx, subjectID, after, limit)
		},
		older: func(ctx context.Context, before time.Time, limit int) ([]models.Lesson, error) {
			return s.lessons.ListOlderBySubject(ctx, subjectID, before, limit)
		},
	}, req.Cursor, req.Older, s.now(), s.window)
}
