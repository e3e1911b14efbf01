package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alumnirel/eventlock/internal/model"
)

// HeaderLockToken carries an activated lock token.  Clients attach it
// explicitly on every call; it is never read from a cookie.
const HeaderLockToken = "X-Event-Lock-Token"

const lockContextKey = "lock_context"

// LockChecker resolves a token to a lock context without consuming a
// usage unit.  *lock.Service implements it.
type LockChecker interface {
	Check(ctx context.Context, token string) (model.LockContext, error)
}

// LockAware returns a middleware that resolves the lock header once per
// request and stores the resulting model.LockContext on the echo
// context.  It never fails a request: a missing, unknown or invalid
// token and any lookup failure all resolve to the unlocked context.
// Lookup failures are logged.
func LockAware(checker LockChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(lockContextKey, resolveLock(c, checker))
			return next(c)
		}
	}
}

func resolveLock(c echo.Context, checker LockChecker) model.LockContext {
	token := strings.TrimSpace(c.Request().Header.Get(HeaderLockToken))
	if token == "" {
		return model.Unlocked
	}
	lc, err := checker.Check(c.Request().Context(), token)
	if err != nil {
		c.Logger().Errorf("lock-aware: resolving lock token failed, continuing unlocked: %v", err)
		return model.Unlocked
	}
	return lc
}

// LockContextFrom returns the context stored by LockAware, or the
// unlocked context when the middleware did not run.
func LockContextFrom(c echo.Context) model.LockContext {
	if lc, ok := c.Get(lockContextKey).(model.LockContext); ok {
		return lc
	}
	return model.Unlocked
}
