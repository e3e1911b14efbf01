package handler

import (
    "context"  // provides context with cancellation for DB calls
    "errors"   // sentinel comparison for repository errors
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/alumnirel/eventlock/internal/config"     // app configuration
    "github.com/alumnirel/eventlock/internal/model"      // admin model
    "github.com/alumnirel/eventlock/internal/repository" // repository sentinel errors
    "github.com/alumnirel/eventlock/internal/utils"      // password check and token issuing
)

// AdminAccounts looks admins up by username.  *repository.AdminRepo
// implements it.
type AdminAccounts interface {
    GetByUsername(ctx context.Context, username string) (*model.Admin, error)
}

// AuthHandler bundles dependencies for admin auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Admins AdminAccounts
}

func NewAuthHandler(cfg config.Config, admins AdminAccounts) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Admins: admins}
}

type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

// Login handles POST /api/admin/login and returns an ADMIN access token.
// Unknown usernames and wrong passwords get the same response.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Username = strings.ToLower(strings.TrimSpace(req.Username))
    if req.Username == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Admins.GetByUsername(ctx, req.Username)
    if err != nil {
        if errors.Is(err, repository.ErrAdminNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        c.Logger().Errorf("admin login lookup: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !utils.VerifyPassword(a.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.ID, utils.RoleAdmin, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, tokenPart{Token: access.Token, Expires: access.Exp})
}
