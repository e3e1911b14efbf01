package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestNewAccessToken_RoundTrip(t *testing.T) {
    at, err := NewAccessToken("s3cret", 42, RoleAdmin, 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    claims, id, err := ParseAccessToken("s3cret", at.Token)
    if err != nil {
        t.Fatalf("ParseAccessToken: %v", err)
    }
    if id != 42 || claims.Subject != "42" || claims.Role != RoleAdmin {
        t.Errorf("id=%d claims=%+v", id, claims)
    }
    if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != at.Exp.Unix() {
        t.Errorf("exp = %v, want %v", claims.ExpiresAt, at.Exp)
    }
}

func TestParseAccessToken_Rejects(t *testing.T) {
    sign := func(m jwt.SigningMethod, key interface{}, c jwt.MapClaims) string {
        s, err := jwt.NewWithClaims(m, c).SignedString(key)
        if err != nil {
            t.Fatal(err)
        }
        return s
    }
    exp := time.Now().Add(time.Minute).Unix()
    cases := map[string]string{
        "hs512":     sign(jwt.SigningMethodHS512, []byte("s3cret"), jwt.MapClaims{"sub": "1", "exp": exp}),
        "none alg":  sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "1", "exp": exp}),
        "no exp":    sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.MapClaims{"sub": "1"}),
        "zero sub":  sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.MapClaims{"sub": "0", "exp": exp}),
        "wrong key": sign(jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "1", "exp": exp}),
    }
    for name, raw := range cases {
        if _, _, err := ParseAccessToken("s3cret", raw); err == nil {
            t.Errorf("%s: accepted", name)
        }
    }
}

func TestVerifyPassword(t *testing.T) {
    hash, err := HashPassword("hunter2", 4)
    if err != nil {
        t.Fatalf("HashPassword: %v", err)
    }
    if !VerifyPassword(hash, "hunter2") {
        t.Error("correct password rejected")
    }
    if VerifyPassword(hash, "hunter3") {
        t.Error("wrong password accepted")
    }
}
