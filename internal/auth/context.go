package auth

import (
	"context"
)

type contextKey int

const (
	claimsKey contextKey = iota
)

// Claims returns the clinician claims from context, or nil if not authenticated.
func Claims(ctx context.Context) *ClinicianClaims {
	claims, _ := ctx.Value(claimsKey).(*ClinicianClaims)
	return claims
}

// ClinicianID returns the clinician ID (subject) from context, or empty string if not authenticated.
func ClinicianID(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// Email returns the clinician's email from context, or empty string if not available.
func Email(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.Email
}

// Department returns the clinician's department from context, or empty string if not available.
func Department(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.Department
}

// IsAuthenticated returns true if the request has valid authentication.
func IsAuthenticated(ctx context.Context) bool {
	return Claims(ctx) != nil
}

// HasPermission checks if the clinician has a specific permission.
func HasPermission(ctx context.Context, permission string) bool {
	claims := Claims(ctx)
	if claims == nil {
		return false
	}
	for _, p := range claims.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HasRole checks if the clinician has a specific role by key.
func HasRole(ctx context.Context, roleKey string) bool {
	claims := Claims(ctx)
	if claims == nil {
		return false
	}
	for _, r := range claims.Roles {
		if r.Key == roleKey {
			return true
		}
	}
	return false
}
