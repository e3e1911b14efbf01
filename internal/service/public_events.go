package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/alumnirel/eventlock/internal/model"
	"github.com/alumnirel/eventlock/internal/repository"
)

var (
	// ErrRestricted is returned when a locked client asks for an event
	// other than the one its lock grants.
	ErrRestricted = errors.New("access to this event is restricted")
	// ErrEventNotFound is returned for unknown or soft-deleted slugs.
	ErrEventNotFound = repository.ErrEventNotFound
	// ErrLockedEventNotFound is returned when the event a lock points to
	// has been deleted since the lock was issued.
	ErrLockedEventNotFound = errors.New("locked event not found")
)

// EventReader is the read side of the events table.
type EventReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	GetBySlug(ctx context.Context, slug string) (*model.Event, error)
	ListPublic(ctx context.Context) ([]*model.Event, error)
}

// PublicEvent is the event shape served by the public read endpoints.
type PublicEvent struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	PosterURL   string    `json:"posterUrl"`
	Status      string    `json:"status"`
	Paid        bool      `json:"paid"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toPublic(ev *model.Event) PublicEvent {
	return PublicEvent{
		ID:          ev.ID,
		Name:        ev.Name,
		Slug:        ev.Slug,
		Description: ev.Description,
		PosterURL:   ev.PosterURL,
		Status:      ev.Status,
		Paid:        ev.Paid,
		CreatedAt:   ev.CreatedAt,
	}
}

// Timeline is the flow view of one event.
type Timeline struct {
	Name string           `json:"name"`
	Flow []model.FlowStep `json:"flow"`
}

// PublicEventService applies the caller's lock scope to every public
// event read.  A locked caller sees exactly one event; everything else
// is either hidden (directory) or refused (by slug).
type PublicEventService struct {
	events EventReader
}

func NewPublicEventService(events EventReader) *PublicEventService {
	return &PublicEventService{events: events}
}

// Directory lists the events visible to lc.  The locked event is
// returned even when it is hidden or not yet live.
func (s *PublicEventService) Directory(ctx context.Context, lc model.LockContext) ([]PublicEvent, error) {
	if lc.IsLocked {
		ev, err := s.events.GetByID(ctx, lc.EventID)
		if errors.Is(err, repository.ErrEventNotFound) || (err == nil && ev.IsDeleted) {
			return nil, ErrLockedEventNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load locked event: %w", err)
		}
		return []PublicEvent{toPublic(ev)}, nil
	}

	evs, err := s.events.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	// Listed events only, newest first, whatever order the reader used.
	listed := make([]*model.Event, 0, len(evs))
	for _, ev := range evs {
		if ev.Listed() {
			listed = append(listed, ev)
		}
	}
	slices.SortStableFunc(listed, func(a, b *model.Event) int { return b.CreatedAt.Compare(a.CreatedAt) })
	out := make([]PublicEvent, 0, len(listed))
	for _, ev := range listed {
		out = append(out, toPublic(ev))
	}
	return out, nil
}

// EventBySlug returns one event when lc allows it.
func (s *PublicEventService) EventBySlug(ctx context.Context, lc model.LockContext, slug string) (*PublicEvent, error) {
	ev, err := s.load(ctx, lc, slug)
	if err != nil {
		return nil, err
	}
	out := toPublic(ev)
	return &out, nil
}

// Timeline returns the flow of one event when lc allows it.
func (s *PublicEventService) Timeline(ctx context.Context, lc model.LockContext, slug string) (*Timeline, error) {
	ev, err := s.load(ctx, lc, slug)
	if err != nil {
		return nil, err
	}
	flow := ev.Flow
	if flow == nil {
		flow = []model.FlowStep{}
	}
	return &Timeline{Name: ev.Name, Flow: flow}, nil
}

// Gallery returns the uploaded memories of one event when lc allows it.
// An event without memories yields an empty, non-nil slice.
func (s *PublicEventService) Gallery(ctx context.Context, lc model.LockContext, slug string) ([]model.GalleryItem, error) {
	ev, err := s.load(ctx, lc, slug)
	if err != nil {
		return nil, err
	}
	if ev.Gallery == nil {
		return []model.GalleryItem{}, nil
	}
	return ev.Gallery, nil
}

// load enforces the lock scope before touching storage.
func (s *PublicEventService) load(ctx context.Context, lc model.LockContext, slug string) (*model.Event, error) {
	if !lc.Allows(slug) {
		return nil, ErrRestricted
	}
	ev, err := s.events.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return ev, nil
}
