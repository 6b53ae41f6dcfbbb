package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// ReportRepository handles persistence of user problem reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create persists a new report in the OPEN state.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportOpen
	}
	const query = `INSERT INTO reports (user_id, title, body, status)
        VALUES (:user_id, :title, :body, :status)
        RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, report)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&report.ID, &report.CreatedAt); err != nil {
			return fmt.Errorf("scan created report: %w", err)
		}
	}
	return rows.Err()
}

// FindTime resolves a report's timestamp; unscoped cursor lookup.
func (r *ReportRepository) FindTime(ctx context.Context, id int64) (time.Time, error) {
	const query = `SELECT created_at FROM reports WHERE id = $1`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// ListNewerByUser returns up to limit reports of a user filed strictly
// after the threshold, nearest first.
func (r *ReportRepository) ListNewerByUser(ctx context.Context, userID string, after time.Time, limit int) ([]models.Report, error) {
	const query = `SELECT id, user_id, title, body, status, created_at FROM reports
        WHERE user_id = $1 AND created_at > $2
        ORDER BY created_at ASC LIMIT $3`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, userID, after, limit); err != nil {
		return nil, fmt.Errorf("list newer reports: %w", err)
	}
	return reports, nil
}

// ListOlderByUser returns up to limit reports of a user filed strictly
// before the threshold, newest first.
func (r *ReportRepository) ListOlderByUser(ctx context.Context, userID string, before time.Time, limit int) ([]models.Report, error) {
	const query = `SELECT id, user_id, title, body, status, created_at FROM reports
        WHERE user_id = $1 AND created_at < $2
        ORDER BY created_at DESC LIMIT $3`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, userID, before, limit); err != nil {
		return nil, fmt.Errorf("list older reports: %w", err)
	}
	return reports, nil
}
