package model

import "time"

// Event statuses.  Only LIVE, PAUSED and CLOSED events appear in the
// public directory.
const (
	EventStatusDraft  = "DRAFT"
	EventStatusLive   = "LIVE"
	EventStatusPaused = "PAUSED"
	EventStatusClosed = "CLOSED"
)

// Event is the read model of an alumni event.  Events are managed by
// the admin CRUD surface; this service only reads them.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Slug        – unique URL slug.
//  Description – free text description.
//  PosterURL   – poster image reference from object storage.
//  Status      – DRAFT, LIVE, PAUSED or CLOSED.
//  IsHidden    – hidden from the public directory.
//  IsDeleted   – soft-deleted flag.
//  Paid        – whether registration requires payment.
//  Flow        – ordered timeline steps.
//  Gallery     – uploaded memories.
//  CreatedAt   – creation timestamp.
type Event struct {
	ID          uint64        // events.id
	Name        string        // events.name
	Slug        string        // events.slug
	Description string        // events.description
	PosterURL   string        // events.poster_url
	Status      string        // events.status
	IsHidden    bool          // events.is_hidden
	IsDeleted   bool          // events.is_deleted
	Paid        bool          // events.paid
	Flow        []FlowStep    // events.flow (JSON)
	Gallery     []GalleryItem // events.gallery (JSON)
	CreatedAt   time.Time     // events.created_at
}

// FlowStep is one entry of an event timeline.
type FlowStep struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
	Date  string `json:"date"`
}

// GalleryItem is one uploaded memory of an event.
type GalleryItem struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	Caption    string    `json:"caption"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// EventSnapshot is the public-safe subset of an event returned by a
// successful lock verification.  Clients keep it for the session; it is
// not refreshed when the event is edited.
type EventSnapshot struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	PosterURL   string `json:"posterUrl"`
}

// Snapshot returns the public-safe subset of e.
func (e *Event) Snapshot() EventSnapshot {
	return EventSnapshot{
		ID:          e.ID,
		Name:        e.Name,
		Slug:        e.Slug,
		Description: e.Description,
		PosterURL:   e.PosterURL,
	}
}

// Listed reports whether the event belongs in the unlocked public
// directory.
func (e *Event) Listed() bool {
	if e.IsHidden || e.IsDeleted {
		return false
	}
	switch e.Status {
	case EventStatusLive, EventStatusPaused, EventStatusClosed:
		return true
	}
	return false
}
