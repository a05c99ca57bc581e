package models

import "github.com/golang-jwt/jwt/v5"

// Operator identifies the authenticated caller managing links.
type Operator struct {
	ID   string
	Role UserRole
}

// JWTClaims represents the JWT payload for operator access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Operator returns the operator identity carried by the claims.
func (c *JWTClaims) Operator() Operator {
	return Operator{ID: c.UserID, Role: c.Role}
}
