package middleware

import (
    "net/http"
    "slices"

    "github.com/labstack/echo/v4"
)

// RequireRole rejects callers whose role claim is not in roles with 403.
// It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get(roleKey).(string)
            if role == "" || !slices.Contains(roles, role) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
