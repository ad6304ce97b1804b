package domain

import "github.com/golang-jwt/jwt/v5"

// AuthClaims is the JWT payload issued to the tracker's client apps. The
// tracker is single-tenant per deployment, so the user id is the only custom
// claim.
type AuthClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
