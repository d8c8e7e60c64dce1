package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Roles recognized by the API
const (
	RoleUploader = "uploader"
	RoleAdmin    = "admin"
)

// APIClaims represents the custom JWT claims callers present on mutating
// file routes
type APIClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}
