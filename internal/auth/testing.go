package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// WithClaims returns a new context with the given claims.
// This is primarily for testing purposes.
func WithClaims(ctx context.Context, claims *ClinicianClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// NewTestClaims creates a ClinicianClaims with the given clinician ID and email.
// This is primarily for testing purposes.
func NewTestClaims(clinicianID, email string) *ClinicianClaims {
	return &ClinicianClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: clinicianID,
		},
		Email: email,
	}
}
