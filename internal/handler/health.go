package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is the liveness endpoint for load balancers.  It does not touch
// the lock store, so it stays green while storage is degraded and the
// lock gate is failing open.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
