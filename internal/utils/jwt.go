package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role this service issues.  Lock management routes
// require it.
const RoleAdmin = "ADMIN"

// AdminClaims is the payload of an admin access token.  Subject carries
// the admin id as a decimal string.
type AdminClaims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// AdminID parses the subject.  ok is false for a missing, zero or
// non-numeric subject.
func (c *AdminClaims) AdminID() (uint64, bool) {
    id, err := strconv.ParseUint(c.Subject, 10, 64)
    return id, err == nil && id != 0
}

// AccessToken is a signed admin JWT and its expiry.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// NewAccessToken signs an HS256 token for adminID valid for ttlMin minutes.
func NewAccessToken(secret string, adminID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := AdminClaims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(adminID, 10),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrBadSubject reports a token whose subject is not an admin id.
var ErrBadSubject = errors.New("token subject is not an admin id")

// ParseAccessToken verifies an HS256 token signed with secret.  Tokens
// without exp are rejected.
func ParseAccessToken(secret, raw string) (*AdminClaims, uint64, error) {
    var claims AdminClaims
    _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        return nil, 0, err
    }
    id, ok := claims.AdminID()
    if !ok {
        return nil, 0, ErrBadSubject
    }
    return &claims, id, nil
}
