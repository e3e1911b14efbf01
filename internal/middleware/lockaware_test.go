package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/alumnirel/eventlock/internal/model"
)

type stubChecker struct {
	lc    model.LockContext
	err   error
	calls int
	last  string
}

func (s *stubChecker) Check(_ context.Context, token string) (model.LockContext, error) {
	s.calls++
	s.last = token
	return s.lc, s.err
}

func runLockAware(t *testing.T, checker LockChecker, header string) (model.LockContext, int) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/events/ongoing", nil)
	if header != "" {
		req.Header.Set(HeaderLockToken, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen model.LockContext
	h := LockAware(checker)(func(c echo.Context) error {
		seen = LockContextFrom(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return seen, rec.Code
}

func TestLockAware_NoHeader(t *testing.T) {
	checker := &stubChecker{lc: model.Locked(1, "x")}
	lc, code := runLockAware(t, checker, "")
	if lc.IsLocked {
		t.Error("no header should mean unlocked")
	}
	if checker.calls != 0 {
		t.Errorf("checker called %d times without a header", checker.calls)
	}
	if code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
}

func TestLockAware_ValidToken(t *testing.T) {
	checker := &stubChecker{lc: model.Locked(7, "reunion-2025")}
	lc, _ := runLockAware(t, checker, "  tok123  ")
	if lc != model.Locked(7, "reunion-2025") {
		t.Errorf("lock context = %+v", lc)
	}
	if checker.last != "tok123" {
		t.Errorf("token passed = %q, want trimmed", checker.last)
	}
}

func TestLockAware_InvalidTokenFailsOpen(t *testing.T) {
	lc, code := runLockAware(t, &stubChecker{lc: model.Unlocked}, "expired")
	if lc.IsLocked || code != http.StatusOK {
		t.Errorf("lc=%+v code=%d", lc, code)
	}
}

func TestLockAware_StorageErrorFailsOpen(t *testing.T) {
	checker := &stubChecker{lc: model.Locked(1, "x"), err: errors.New("db down")}
	lc, code := runLockAware(t, checker, "tok")
	if lc.IsLocked {
		t.Error("lookup failure must resolve to unlocked")
	}
	if code != http.StatusOK {
		t.Errorf("status = %d, request must not fail", code)
	}
}

func TestLockContextFrom_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if LockContextFrom(c).IsLocked {
		t.Error("missing context should read as unlocked")
	}
}
