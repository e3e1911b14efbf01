// Package repository contains data access logic separated from HTTP handlers.
// This file defines read access to events.  Event CRUD lives in the admin
// application; the lock service only reads events to validate lock targets
// and to serve the public, lock-aware browse endpoints.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/alumnirel/eventlock/internal/model"
)

// EventRepo reads the events table.  flow and gallery are stored as JSON
// columns.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, slug, description, poster_url, status, is_hidden,
	is_deleted, paid, flow, gallery, created_at`

// GetByID fetches an event by id, including soft-deleted rows; callers
// decide whether IsDeleted matters to them.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// GetBySlug fetches a non-deleted event by slug.
func (r *EventRepo) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE slug = ? AND is_deleted = 0 LIMIT 1", slug)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// ListPublic returns the events shown in the unlocked directory:
// LIVE, PAUSED or CLOSED, not hidden, not deleted, newest first.
func (r *EventRepo) ListPublic(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		  WHERE status IN ('LIVE', 'PAUSED', 'CLOSED') AND is_hidden = 0 AND is_deleted = 0
		  ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var (
		ev          model.Event
		description sql.NullString
		flow        []byte
		gallery     []byte
	)
	if err := s.Scan(&ev.ID, &ev.Name, &ev.Slug, &description, &ev.PosterURL, &ev.Status,
		&ev.IsHidden, &ev.IsDeleted, &ev.Paid, &flow, &gallery, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.Description = description.String
	if len(flow) > 0 {
		if err := json.Unmarshal(flow, &ev.Flow); err != nil {
			return nil, err
		}
	}
	if len(gallery) > 0 {
		if err := json.Unmarshal(gallery, &ev.Gallery); err != nil {
			return nil, err
		}
	}
	return &ev, nil
}
