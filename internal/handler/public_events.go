package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alumnirel/eventlock/internal/middleware"
	"github.com/alumnirel/eventlock/internal/service"
)

// PublicEventHandler serves the lock-aware public event reads.  Every
// route it backs must be wrapped in middleware.LockAware.
type PublicEventHandler struct {
	Events *service.PublicEventService
}

func NewPublicEventHandler(events *service.PublicEventService) *PublicEventHandler {
	return &PublicEventHandler{Events: events}
}

// readError maps service errors to responses and logs the unexpected ones.
func readError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrRestricted):
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Access to this event is restricted"})
	case errors.Is(err, service.ErrLockedEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Locked event not found"})
	case errors.Is(err, service.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Event not found"})
	}
	c.Logger().Errorf("public event read %s: %v", c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to fetch events"})
}

// Ongoing handles GET /api/events/ongoing.
func (h *PublicEventHandler) Ongoing(c echo.Context) error {
	evs, err := h.Events.Directory(c.Request().Context(), middleware.LockContextFrom(c))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

// BySlug handles GET /api/events/:slug.
func (h *PublicEventHandler) BySlug(c echo.Context) error {
	ev, err := h.Events.EventBySlug(c.Request().Context(), middleware.LockContextFrom(c), c.Param("slug"))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Flow handles GET /api/events/:slug/flow.
func (h *PublicEventHandler) Flow(c echo.Context) error {
	tl, err := h.Events.Timeline(c.Request().Context(), middleware.LockContextFrom(c), c.Param("slug"))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, tl)
}

// Memories handles GET /api/events/:slug/memories.
func (h *PublicEventHandler) Memories(c echo.Context) error {
	items, err := h.Events.Gallery(c.Request().Context(), middleware.LockContextFrom(c), c.Param("slug"))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
