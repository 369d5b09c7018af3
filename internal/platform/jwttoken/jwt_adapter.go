package jwttoken

import (
	authmw "verity/pkg/platform/middleware/auth"
)

// MiddlewareAdapter exposes Service through the auth middleware's validator port.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
		JTI:     claims.ID,
	}, nil
}
