package middleware

// identity.go holds the helpers that read the authenticated admin back
// out of the echo context.  JWTAuth is the only writer.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const adminIDKey = "admin_id"

// AdminID returns the id of the admin authenticated by JWTAuth.  ok is
// false on routes without JWTAuth.
func AdminID(c echo.Context) (id uint64, ok bool) {
    id, ok = c.Get(adminIDKey).(uint64)
    return id, ok && id != 0
}

// clientIdentity is the caller identity used in rate limit keys: the
// admin id when authenticated, otherwise "anon".
func clientIdentity(c echo.Context) string {
    if id, ok := AdminID(c); ok {
        return "admin-" + strconv.FormatUint(id, 10)
    }
    return "anon"
}
