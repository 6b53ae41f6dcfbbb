package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// CommentRepository handles lesson-wall and forum comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// CreateLessonComment persists a comment on a lesson.
func (r *CommentRepository) CreateLessonComment(ctx context.Context, comment *models.LessonComment) error {
	const query = `INSERT INTO lesson_comments (user_id, lesson_id, body)
        VALUES (:user_id, :lesson_id, :body)
        RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, comment)
	if err != nil {
		return fmt.Errorf("create lesson comment: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&comment.ID, &comment.CreatedAt); err != nil {
			return fmt.Errorf("scan created lesson comment: %w", err)
		}
	}
	return rows.Err()
}

// FindLessonCommentTime resolves a comment's timestamp across all
// lessons; the cursor lookup is deliberately unscoped.
func (r *CommentRepository) FindLessonCommentTime(ctx context.Context, id int64) (time.Time, error) {
	const query = `SELECT created_at FROM lesson_comments WHERE id = $1`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// ListLessonCommentsNewer returns up to limit comments of a lesson
// posted strictly after the threshold, nearest first.
func (r *CommentRepository) ListLessonCommentsNewer(ctx context.Context, lessonID int64, after time.Time, limit int) ([]models.LessonComment, error) {
	const query = `SELECT id, user_id, lesson_id, body, created_at FROM lesson_comments
        WHERE lesson_id = $1 AND created_at > $2
        ORDER BY created_at ASC LIMIT $3`
	var comments []models.LessonComment
	if err := r.db.SelectContext(ctx, &comments, query, lessonID, after, limit); err != nil {
		return nil, fmt.Errorf("list newer lesson comments: %w", err)
	}
	return comments, nil
}

// ListLessonCommentsOlder returns up to limit comments of a lesson
// posted strictly before the threshold, newest first.
func (r *CommentRepository) ListLessonCommentsOlder(ctx context.Context, lessonID int64, before time.Time, limit int) ([]models.LessonComment, error) {
	const query = `SELECT id, user_id, lesson_id, body, created_at FROM lesson_comments
        WHERE lesson_id = $1 AND created_at < $2
        ORDER BY created_at DESC LIMIT $3`
	var comments []models.LessonComment
	if err := r.db.SelectContext(ctx, &comments, query, lessonID, before, limit); err != nil {
		return nil, fmt.Errorf("list older lesson comments: %w", err)
	}
	return comments, nil
}

// CreateForumComment persists a global forum comment.
func (r *CommentRepository) CreateForumComment(ctx context.Context, comment *models.ForumComment) error {
	const query = `INSERT INTO forum_comments (user_id, body)
        VALUES (:user_id, :body)
        RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, comment)
	if err != nil {
		return fmt.Errorf("create forum comment: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&comment.ID, &comment.CreatedAt); err != nil {
			return fmt.Errorf("scan created forum comment: %w", err)
		}
	}
	return rows.Err()
}

// FindForumCommentTime resolves a forum comment's timestamp.
func (r *CommentRepository) FindForumCommentTime(ctx context.Context, id int64) (time.Time, error) {
	const query = `SELECT created_at FROM forum_comments WHERE id = $1`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// ListForumCommentsNewer returns up to limit forum comments posted
// strictly after the threshold, nearest first.
func (r *CommentRepository) ListForumCommentsNewer(ctx context.Context, after time.Time, limit int) ([]models.ForumComment, error) {
	const query = `SELECT id, user_id, body, created_at FROM forum_comments
        WHERE created_at > $1
        ORDER BY created_at ASC LIMIT $2`
	var comments []models.ForumComment
	if err := r.db.SelectContext(ctx, &comments, query, after, limit); err != nil {
		return nil, fmt.Errorf("list newer forum comments: %w", err)
	}
	return comments, nil
}

// ListForumCommentsOlder returns up to limit forum comments posted
// strictly before the threshold, newest first.
func (r *CommentRepository) ListForumCommentsOlder(ctx context.Context, before time.Time, limit int) ([]models.ForumComment, error) {
	const query = `SELECT id, user_id, body, created_at FROM forum_comments
        WHERE created_at < $1
        ORDER BY created_at DESC LIMIT $2`
	var comments []models.ForumComment
	if err := r.db.SelectContext(ctx, &comments, query, before, limit); err != nil {
		return nil, fmt.Errorf("list older forum comments: %w", err)
	}
	return comments, nil
}
