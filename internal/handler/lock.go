package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alumnirel/eventlock/internal/lock"
	"github.com/alumnirel/eventlock/internal/middleware"
	"github.com/alumnirel/eventlock/internal/model"
)

// LockHandler serves the lock management API.  Bodies use the
// {success, message} envelope the browser client already understands.
type LockHandler struct {
	Locks *lock.Service
}

func NewLockHandler(locks *lock.Service) *LockHandler {
	if locks == nil {
		panic("nil lock service passed to NewLockHandler")
	}
	return &LockHandler{Locks: locks}
}

type generateReq struct {
	EventID       uint64 `json:"eventId"`
	ExpiresInDays int    `json:"expiresInDays"`
	MaxUsage      *int   `json:"maxUsage"`
}

type lockPart struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	EventName  string    `json:"eventName"`
	EventSlug  string    `json:"eventSlug"`
	ExpiresAt  time.Time `json:"expiresAt"`
	MaxUsage   *int      `json:"maxUsage"`
	UsageCount int       `json:"usageCount"`
}

type generateResp struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Lock    lockPart `json:"lock"`
	URL     string   `json:"url"`
}

type lockListItem struct {
	ID             string     `json:"id"`
	Token          string     `json:"token"`
	EventID        uint64     `json:"eventId"`
	EventName      string     `json:"eventName"`
	EventSlug      string     `json:"eventSlug"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	UsageCount     int        `json:"usageCount"`
	MaxUsage       *int       `json:"maxUsage"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	IsValid        bool       `json:"isValid"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// Generate handles POST /api/locks (and /api/locks/generate).
func (h *LockHandler) Generate(c echo.Context) error {
	adminID, ok := middleware.AdminID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.EventID == 0 {
		return fail(c, http.StatusBadRequest, "Event ID is required")
	}

	gen, err := h.Locks.Generate(c.Request().Context(), lock.GenerateInput{
		EventID:       req.EventID,
		CreatedBy:     adminID,
		ExpiresInDays: req.ExpiresInDays,
		MaxUsage:      req.MaxUsage,
	})
	switch {
	case errors.Is(err, lock.ErrInvalidInput):
		return fail(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), lock.ErrInvalidInput.Error()+": "))
	case errors.Is(err, lock.ErrEventNotFound):
		return fail(c, http.StatusNotFound, "Event not found")
	case err != nil:
		c.Logger().Errorf("generate lock for event %d: %v", req.EventID, err)
		return fail(c, http.StatusInternalServerError, "Failed to generate lock token")
	}

	return c.JSON(http.StatusCreated, generateResp{
		Success: true,
		Message: "Lock token generated successfully",
		Lock: lockPart{
			ID:         gen.Lock.ID,
			Token:      gen.Lock.Token,
			EventName:  gen.EventName,
			EventSlug:  gen.EventSlug,
			ExpiresAt:  gen.Lock.ExpiresAt,
			MaxUsage:   gen.Lock.MaxUsage,
			UsageCount: gen.Lock.UsageCount,
		},
		URL: gen.URL,
	})
}

// Verify handles GET /api/locks/verify/:token.  It is public and consumes
// one usage unit on success.
func (h *LockHandler) Verify(c echo.Context) error {
	v, err := h.Locks.Verify(c.Request().Context(), c.Param("token"))
	if err != nil {
		c.Logger().Errorf("verify lock: %v", err)
		return fail(c, http.StatusInternalServerError, "Failed to verify lock token")
	}
	if !v.Valid {
		return fail(c, reasonStatus(v.Reason), v.Reason.Message())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"event":   v.Event,
		"token":   v.Token,
	})
}

// reasonStatus maps a rejection to its HTTP status: unknown tokens are
// 404, known but unusable ones 403.
func reasonStatus(r model.LockReason) int {
	if r == model.ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusForbidden
}

// List handles GET /api/locks.
func (h *LockHandler) List(c echo.Context) error {
	sums, err := h.Locks.List(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list locks: %v", err)
		return fail(c, http.StatusInternalServerError, "Failed to fetch locks")
	}
	out := make([]lockListItem, 0, len(sums))
	for _, s := range sums {
		out = append(out, lockListItem{
			ID:             s.ID,
			Token:          s.Token,
			EventID:        s.EventID,
			EventName:      s.EventName,
			EventSlug:      s.EventSlug,
			CreatedBy:      s.CreatedBy,
			CreatedAt:      s.CreatedAt,
			ExpiresAt:      s.ExpiresAt,
			UsageCount:     s.UsageCount,
			MaxUsage:       s.MaxUsage,
			LastAccessedAt: s.LastAccessedAt,
			IsValid:        s.IsValid,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Revoke handles DELETE /api/locks/:id.
func (h *LockHandler) Revoke(c echo.Context) error {
	err := h.Locks.Revoke(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, lock.ErrLockNotFound):
		return fail(c, http.StatusNotFound, "Lock not found")
	case err != nil:
		c.Logger().Errorf("revoke lock %s: %v", c.Param("id"), err)
		return fail(c, http.StatusInternalServerError, "Failed to revoke lock")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Lock revoked successfully"})
}
