package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/urjc-apps/checkin-api/internal/models"
)

// RoomRepository handles persistence of rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByID returns a room by its ID.
func (r *RoomRepository) FindByID(ctx context.Context, id int64) (*models.Room, error) {
	const query = `SELECT id, name, building, centre_longitude, centre_latitude, radius FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// List returns all rooms ordered by building and name.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, building, centre_longitude, centre_latitude, radius
        FROM rooms ORDER BY building, name`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListFree returns rooms with no lesson overlapping [start, end).
func (r *RoomRepository) ListFree(ctx context.Context, start, end time.Time) ([]models.Room, error) {
	const query = `SELECT id, name, building, centre_longitude, centre_latitude, radius
        FROM rooms r
        WHERE NOT EXISTS (
            SELECT 1 FROM lessons l
            WHERE l.room_id = r.id AND l.start_time < $2 AND l.end_time > $1
        )
        ORDER BY building, name`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, start, end); err != nil {
		return nil, fmt.Errorf("list free rooms: %w", err)
	}
	return rooms, nil
}
