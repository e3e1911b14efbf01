// Package lock owns the lifecycle of event lock links: generation,
// consuming verification, non-consuming checks for the request gate,
// revocation and the admin listing.  All validity rules live here and
// in model.LockRecord; handlers and middleware only translate results.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/alumnirel/eventlock/internal/model"
	"github.com/alumnirel/eventlock/internal/queue"
	"github.com/alumnirel/eventlock/internal/repository"
)

// DefaultExpiryDays applies when a generate request omits expiresInDays.
const DefaultExpiryDays = 30

var (
	// ErrInvalidInput rejects malformed generate requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEventNotFound is returned when the lock target does not exist.
	ErrEventNotFound = repository.ErrEventNotFound
	// ErrLockNotFound is returned by Revoke for an unknown id.
	ErrLockNotFound = repository.ErrLockNotFound
)

// EventReader is the slice of the event store the service needs.
type EventReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// AdminReader resolves creator names for the admin listing.
type AdminReader interface {
	Usernames(ctx context.Context, ids []uint64) (map[uint64]string, error)
}

// Auditor receives lock lifecycle events.  Publish is called on the
// request path and must not block; failures are logged and ignored.
type Auditor interface {
	Publish(ctx context.Context, ev queue.LockAuditEvent) error
}

// Options tunes a Service.  Zero values select defaults.
type Options struct {
	FrontendURL       string
	DefaultExpiryDays int
	NegativeCacheSize int // negative disables the unknown-token cache
	Audit             Auditor
	Now               func() time.Time
}

// Service is the sole authority over lock record validity and mutation.
type Service struct {
	store       repository.LockStore
	events      EventReader
	admins      AdminReader
	audit       Auditor
	frontendURL string
	defaultDays int
	now         func() time.Time

	// unknown remembers tokens the store does not know; nil when disabled.
	// Tokens are random and never reissued, so a miss stays a miss.
	unknown *lru.Cache
}

// NewService wires a Service.  admins may be nil, in which case creator
// names are reported as "Unknown".
func NewService(store repository.LockStore, events EventReader, admins AdminReader, opts Options) *Service {
	if store == nil || events == nil {
		panic("nil dependency passed to lock.NewService")
	}
	s := &Service{
		store:       store,
		events:      events,
		admins:      admins,
		audit:       opts.Audit,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		defaultDays: opts.DefaultExpiryDays,
		now:         opts.Now,
	}
	if s.frontendURL == "" {
		s.frontendURL = "http://localhost:5173"
	}
	if s.defaultDays <= 0 {
		s.defaultDays = DefaultExpiryDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	if size := opts.NegativeCacheSize; size >= 0 {
		if size == 0 {
			size = 4096
		}
		s.unknown, _ = lru.New(size)
	}
	return s
}

// GenerateInput carries a generate request.  ExpiresInDays 0 selects the
// default; MaxUsage nil or 0 means unlimited.
type GenerateInput struct {
	EventID       uint64
	CreatedBy     uint64
	ExpiresInDays int
	MaxUsage      *int
}

// Generated is the result of a successful Generate.
type Generated struct {
	Lock      *model.LockRecord
	EventName string
	EventSlug string
	URL       string
}

// Generate creates a new lock record for an existing event.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Generated, error) {
	if in.EventID == 0 || in.CreatedBy == 0 {
		return nil, fmt.Errorf("%w: eventId and creator are required", ErrInvalidInput)
	}
	days := in.ExpiresInDays
	if days < 0 {
		return nil, fmt.Errorf("%w: expiresInDays must be positive", ErrInvalidInput)
	}
	if days == 0 {
		days = s.defaultDays
	}
	var maxUsage *int
	if in.MaxUsage != nil {
		if *in.MaxUsage < 0 {
			return nil, fmt.Errorf("%w: maxUsage must be positive", ErrInvalidInput)
		}
		if *in.MaxUsage > 0 {
			n := *in.MaxUsage
			maxUsage = &n
		}
	}

	ev, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	if ev.IsDeleted {
		return nil, ErrEventNotFound
	}

	now := s.now().UTC()
	rec := &model.LockRecord{
		ID:        uuid.NewString(),
		EventID:   ev.ID,
		CreatedBy: in.CreatedBy,
		ExpiresAt: now.AddDate(0, 0, days),
		MaxUsage:  maxUsage,
		CreatedAt: now,
	}
	// One retry on a token collision; a second collision means the
	// random source is broken and the error should surface.
	for attempt := 0; ; attempt++ {
		if rec.Token, err = NewToken(); err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		err = s.store.Create(ctx, rec)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateToken) || attempt > 0 {
			return nil, fmt.Errorf("store lock: %w", err)
		}
	}

	s.publish(ctx, queue.LockAuditEvent{
		Type:        queue.LockGenerated,
		LockID:      rec.ID,
		TokenPrefix: queue.TokenPrefix(rec.Token),
		EventID:     rec.EventID,
		AdminID:     rec.CreatedBy,
		MaxUsage:    rec.MaxUsage,
	})
	return &Generated{
		Lock:      rec,
		EventName: ev.Name,
		EventSlug: ev.Slug,
		URL:       s.frontendURL + "/lock/" + rec.Token,
	}, nil
}

// Verification is the outcome of Verify.  An invalid token is a normal
// result, not an error.
type Verification struct {
	Valid  bool
	Reason model.LockReason
	Event  *model.EventSnapshot
	Token  string
}

func rejected(reason model.LockReason) *Verification {
	return &Verification{Reason: reason}
}

// Verify is the consuming check used when a client activates a lock.  A
// valid lock has one usage unit consumed atomically with the validity
// check; the returned snapshot is what the client keeps for its session.
// Errors are storage failures only.
func (s *Service) Verify(ctx context.Context, token string) (*Verification, error) {
	token = strings.TrimSpace(token)
	if !plausibleToken(token) || s.knownMiss(token) {
		return rejected(model.ReasonNotFound), nil
	}
	rec, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrLockNotFound) {
		s.rememberMiss(token)
		return rejected(model.ReasonNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load lock: %w", err)
	}

	// Resolve the event before consuming so a lock whose event vanished
	// does not burn a unit.
	ev, err := s.events.GetByID(ctx, rec.EventID)
	if errors.Is(err, repository.ErrEventNotFound) || (err == nil && ev.IsDeleted) {
		return rejected(model.ReasonNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}

	now := s.now()
	usage, consumed, err := s.store.ConsumeIfValid(ctx, token, now)
	if err != nil {
		return nil, fmt.Errorf("consume lock: %w", err)
	}
	if !consumed {
		// Re-read so the reason reflects the state that made the
		// conditional update miss, not the state seen before it.
		cur, err := s.store.GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrLockNotFound) {
				return rejected(model.ReasonNotFound), nil
			}
			return nil, fmt.Errorf("reload lock: %w", err)
		}
		reason := cur.InvalidReason(now)
		if reason == model.ReasonNone {
			// Revocation, expiry and usage are monotone, so a record that
			// missed the update cannot read as valid here.  Report the cap.
			reason = model.ReasonUsageLimit
		}
		s.publish(ctx, queue.LockAuditEvent{
			Type:        queue.LockRejected,
			LockID:      cur.ID,
			TokenPrefix: queue.TokenPrefix(token),
			EventID:     cur.EventID,
			Reason:      string(reason),
		})
		return rejected(reason), nil
	}

	snap := ev.Snapshot()
	s.publish(ctx, queue.LockAuditEvent{
		Type:        queue.LockVerified,
		LockID:      rec.ID,
		TokenPrefix: queue.TokenPrefix(token),
		EventID:     rec.EventID,
		UsageCount:  usage,
		MaxUsage:    rec.MaxUsage,
	})
	return &Verification{Valid: true, Event: &snap, Token: token}, nil
}

// Check is the non-consuming validity read used by the request gate.
// Unknown and invalid tokens yield an unlocked context with a nil error;
// only storage failures are returned.
func (s *Service) Check(ctx context.Context, token string) (model.LockContext, error) {
	token = strings.TrimSpace(token)
	if !plausibleToken(token) || s.knownMiss(token) {
		return model.Unlocked, nil
	}
	rec, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrLockNotFound) {
		s.rememberMiss(token)
		return model.Unlocked, nil
	}
	if err != nil {
		return model.Unlocked, err
	}
	if !rec.IsValid(s.now()) {
		return model.Unlocked, nil
	}
	ev, err := s.events.GetByID(ctx, rec.EventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		return model.Unlocked, nil
	}
	if err != nil {
		return model.Unlocked, err
	}
	return model.Locked(ev.ID, ev.Slug), nil
}

// Revoke permanently invalidates the lock with the given id.
func (s *Service) Revoke(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrLockNotFound
	}
	if err := s.store.Revoke(ctx, id); err != nil {
		if errors.Is(err, repository.ErrLockNotFound) {
			return ErrLockNotFound
		}
		return fmt.Errorf("revoke lock: %w", err)
	}
	s.publish(ctx, queue.LockAuditEvent{Type: queue.LockRevoked, LockID: id})
	return nil
}

// Summary is one row of the admin listing.
type Summary struct {
	ID             string
	Token          string
	EventID        uint64
	EventName      string
	EventSlug      string
	CreatedBy      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UsageCount     int
	MaxUsage       *int
	LastAccessedAt *time.Time
	IsValid        bool
}

// List returns every non-revoked lock newest first.  IsValid is computed
// now, never read from storage.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	recs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}

	events := make(map[uint64]*model.Event)
	var adminIDs []uint64
	seenAdmin := make(map[uint64]bool)
	for _, rec := range recs {
		if _, ok := events[rec.EventID]; !ok {
			ev, err := s.events.GetByID(ctx, rec.EventID)
			if err != nil && !errors.Is(err, repository.ErrEventNotFound) {
				return nil, fmt.Errorf("load event: %w", err)
			}
			events[rec.EventID] = ev
		}
		if !seenAdmin[rec.CreatedBy] {
			seenAdmin[rec.CreatedBy] = true
			adminIDs = append(adminIDs, rec.CreatedBy)
		}
	}
	names := map[uint64]string{}
	if s.admins != nil && len(adminIDs) > 0 {
		if names, err = s.admins.Usernames(ctx, adminIDs); err != nil {
			return nil, fmt.Errorf("load admins: %w", err)
		}
	}

	now := s.now()
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		sum := Summary{
			ID:             rec.ID,
			Token:          rec.Token,
			EventID:        rec.EventID,
			EventName:      "Unknown",
			EventSlug:      "unknown",
			CreatedBy:      "Unknown",
			CreatedAt:      rec.CreatedAt,
			ExpiresAt:      rec.ExpiresAt,
			UsageCount:     rec.UsageCount,
			MaxUsage:       rec.MaxUsage,
			LastAccessedAt: rec.LastAccessedAt,
			IsValid:        rec.IsValid(now),
		}
		if ev := events[rec.EventID]; ev != nil {
			sum.EventName, sum.EventSlug = ev.Name, ev.Slug
		}
		if n, ok := names[rec.CreatedBy]; ok {
			sum.CreatedBy = n
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Service) knownMiss(token string) bool {
	return s.unknown != nil && s.unknown.Contains(token)
}

func (s *Service) rememberMiss(token string) {
	if s.unknown != nil {
		s.unknown.Add(token, struct{}{})
	}
}

func (s *Service) publish(ctx context.Context, ev queue.LockAuditEvent) {
	if s.audit == nil {
		return
	}
	ev.At = s.now().UTC().Format(time.RFC3339)
	if err := s.audit.Publish(ctx, ev); err != nil {
		log.Printf("lock: audit %s not published: %v", ev.Type, err)
	}
}
