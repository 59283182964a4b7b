package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the claims carried by access tokens issued by the campus
// identity provider. Only the numeric user code matters to this service;
// tokens are validated, never issued, here.
type JWTClaims struct {
	UserCode int64  `json:"user_code"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
