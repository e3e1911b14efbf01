package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alumnirel/eventlock/internal/config"
	"github.com/alumnirel/eventlock/internal/handler"
	"github.com/alumnirel/eventlock/internal/lock"
	"github.com/alumnirel/eventlock/internal/middleware"
	"github.com/alumnirel/eventlock/internal/model"
	"github.com/alumnirel/eventlock/internal/repository"
	"github.com/alumnirel/eventlock/internal/repository/repotest"
	"github.com/alumnirel/eventlock/internal/service"
	"github.com/alumnirel/eventlock/internal/utils"
)

const secret = "router-test-secret"

type fakeAdmins struct{ admin *model.Admin }

func (f fakeAdmins) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	if username == f.admin.Username {
		cp := *f.admin
		return &cp, nil
	}
	return nil, repository.ErrAdminNotFound
}

type server struct {
	e     *echo.Echo
	store *repository.MemoryLockStore
}

func newServer(t *testing.T) *server {
	t.Helper()
	hash, err := utils.HashPassword("correct horse", 4)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events := repotest.NewEventStore(
		&model.Event{ID: 1, Name: "Reunion", Slug: "reunion-2025", Status: model.EventStatusLive, CreatedAt: base},
		&model.Event{ID: 2, Name: "Gala", Slug: "gala", Status: model.EventStatusDraft, IsHidden: true, CreatedAt: base.Add(time.Hour)},
		&model.Event{ID: 4, Name: "Sports Day", Slug: "sports", Status: model.EventStatusClosed, CreatedAt: base.Add(2 * time.Hour)},
	)
	store := repository.NewMemoryLockStore()
	locks := lock.NewService(store, events, &repotest.AdminStore{Names: map[uint64]string{10: "root"}},
		lock.Options{FrontendURL: "https://alumni.example"})

	e := echo.New()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5}
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(cfg, fakeAdmins{&model.Admin{ID: 10, Username: "root", PasswordHash: hash}}))
	RegisterLocks(e, handler.NewLockHandler(locks), secret, passthrough)
	RegisterPublic(e, handler.NewPublicEventHandler(service.NewPublicEventService(events)),
		middleware.LockAware(locks), passthrough)
	return &server{e: e, store: store}
}

func (s *server) do(t *testing.T, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func (s *server) login(t *testing.T) map[string]string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/admin/login", `{"username":"Root","password":"correct horse"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out struct{ Token string }
	decode(t, rec, &out)
	return map[string]string{echo.HeaderAuthorization: "Bearer " + out.Token}
}

type generated struct {
	Success bool
	Lock    struct {
		ID        string
		Token     string
		EventSlug string
		MaxUsage  *int
	}
	URL string
}

func (s *server) generate(t *testing.T, auth map[string]string, body string) generated {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/locks", body, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d body=%s", rec.Code, rec.Body.String())
	}
	var g generated
	decode(t, rec, &g)
	return g
}

func eventSlugs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var evs []struct{ Slug string }
	decode(t, rec, &evs)
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Slug
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	if rec := s.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newServer(t)
	for _, body := range []string{
		`{"username":"root","password":"wrong"}`,
		`{"username":"nobody","password":"correct horse"}`,
	} {
		if rec := s.do(t, http.MethodPost, "/api/admin/login", body, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d", body, rec.Code)
		}
	}
	if rec := s.do(t, http.MethodPost, "/api/admin/login", `{"username":""}`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d", rec.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newServer(t)
	for _, r := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/locks", `{"eventId":1}`},
		{http.MethodPost, "/api/locks/generate", `{"eventId":1}`},
		{http.MethodGet, "/api/locks", ""},
		{http.MethodDelete, "/api/locks/abc", ""},
	} {
		if rec := s.do(t, r.method, r.path, r.body, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", r.method, r.path, rec.Code)
		}
	}
}

func TestGenerate_Errors(t *testing.T) {
	s := newServer(t)
	auth := s.login(t)
	cases := []struct {
		body string
		want int
		msg  string
	}{
		{`{"eventId":99}`, http.StatusNotFound, "Event not found"},
		{`{}`, http.StatusBadRequest, "Event ID is required"},
		{`{"eventId":1,"maxUsage":-1}`, http.StatusBadRequest, ""},
		{`{"eventId":1,"expiresInDays":-3}`, http.StatusBadRequest, ""},
		{`{"eventId":"x"}`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		rec := s.do(t, http.MethodPost, "/api/locks", tc.body, auth)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.body, rec.Code, tc.want)
			continue
		}
		var out struct {
			Success bool
			Message string
		}
		decode(t, rec, &out)
		if out.Success || (tc.msg != "" && out.Message != tc.msg) {
			t.Errorf("%s: body = %+v", tc.body, out)
		}
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/api/locks/verify/deadbeef", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Success bool
		Message string
	}
	decode(t, rec, &out)
	if out.Success || out.Message != "Invalid lock token" {
		t.Errorf("body = %+v", out)
	}
}

func TestLockLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	auth := s.login(t)

	g := s.generate(t, auth, `{"eventId":1,"maxUsage":2}`)
	if !g.Success || g.Lock.EventSlug != "reunion-2025" || g.URL != "https://alumni.example/lock/"+g.Lock.Token {
		t.Fatalf("generate = %+v", g)
	}
	if g.Lock.MaxUsage == nil || *g.Lock.MaxUsage != 2 {
		t.Errorf("maxUsage = %v", g.Lock.MaxUsage)
	}

	// Activation.
	rec := s.do(t, http.MethodGet, "/api/locks/verify/"+g.Lock.Token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d body=%s", rec.Code, rec.Body.String())
	}
	var v struct {
		Success bool
		Event   model.EventSnapshot
		Token   string
	}
	decode(t, rec, &v)
	if !v.Success || v.Event.Slug != "reunion-2025" || v.Token != g.Lock.Token {
		t.Errorf("verify body = %+v", v)
	}

	locked := map[string]string{middleware.HeaderLockToken: g.Lock.Token}

	// Locked reads see exactly one event and never consume usage.
	for i := 0; i < 3; i++ {
		rec = s.do(t, http.MethodGet, "/api/events/ongoing", "", locked)
		if got := eventSlugs(t, rec); len(got) != 1 || got[0] != "reunion-2025" {
			t.Fatalf("locked directory = %v", got)
		}
	}
	if rec = s.do(t, http.MethodGet, "/api/events/reunion-2025", "", locked); rec.Code != http.StatusOK {
		t.Errorf("own event status = %d", rec.Code)
	}
	if rec = s.do(t, http.MethodGet, "/api/events/reunion-2025/flow", "", locked); rec.Code != http.StatusOK {
		t.Errorf("own flow status = %d", rec.Code)
	}
	for _, p := range []string{"/api/events/sports", "/api/events/sports/flow", "/api/events/sports/memories"} {
		rec = s.do(t, http.MethodGet, p, "", locked)
		if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "Access to this event is restricted") {
			t.Errorf("%s: status = %d body=%s", p, rec.Code, rec.Body.String())
		}
	}

	// Unlocked reads see the public directory.
	rec = s.do(t, http.MethodGet, "/api/events/ongoing", "", nil)
	if got := eventSlugs(t, rec); len(got) != 2 || got[0] != "sports" || got[1] != "reunion-2025" {
		t.Errorf("public directory = %v", got)
	}

	// Listing shows one consumption.
	rec = s.do(t, http.MethodGet, "/api/locks", "", auth)
	var list []struct {
		ID         string
		CreatedBy  string
		UsageCount int
		IsValid    bool
	}
	decode(t, rec, &list)
	if len(list) != 1 || list[0].UsageCount != 1 || !list[0].IsValid || list[0].CreatedBy != "root" {
		t.Fatalf("list = %+v", list)
	}

	// Revoke, then the same token is refused and the gate falls back to public.
	if rec = s.do(t, http.MethodDelete, "/api/locks/"+g.Lock.ID, "", auth); rec.Code != http.StatusOK {
		t.Fatalf("revoke status = %d", rec.Code)
	}
	if rec = s.do(t, http.MethodDelete, "/api/locks/"+g.Lock.ID, "", auth); rec.Code != http.StatusOK {
		t.Errorf("second revoke status = %d, want idempotent 200", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/locks/verify/"+g.Lock.Token, "", nil)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "This link has been revoked") {
		t.Errorf("verify after revoke = %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, "/api/events/ongoing", "", locked)
	if got := eventSlugs(t, rec); len(got) != 2 {
		t.Errorf("directory with revoked token = %v, want public", got)
	}
	rec = s.do(t, http.MethodGet, "/api/locks", "", auth)
	decode(t, rec, &list)
	if len(list) != 0 {
		t.Errorf("revoked lock still listed: %+v", list)
	}

	if rec = s.do(t, http.MethodDelete, "/api/locks/nope", "", auth); rec.Code != http.StatusNotFound {
		t.Errorf("revoke unknown status = %d", rec.Code)
	}
}

func TestVerify_UsageLimitOverHTTP(t *testing.T) {
	s := newServer(t)
	g := s.generate(t, s.login(t), `{"eventId":2,"maxUsage":1}`)

	if rec := s.do(t, http.MethodGet, "/api/locks/verify/"+g.Lock.Token, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("first verify = %d", rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/api/locks/verify/"+g.Lock.Token, "", nil)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "Usage limit exceeded") {
		t.Errorf("second verify = %d %s", rec.Code, rec.Body.String())
	}

	// An exhausted lock is no longer valid, so the gate resolves to unlocked.
	rec = s.do(t, http.MethodGet, "/api/events/ongoing", "", map[string]string{middleware.HeaderLockToken: g.Lock.Token})
	if got := eventSlugs(t, rec); len(got) != 2 {
		t.Errorf("directory = %v, want public", got)
	}
}
