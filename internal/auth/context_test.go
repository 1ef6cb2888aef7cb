package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestClaims(t *testing.T) {
	t.Run("returns nil for empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.Nil(t, Claims(ctx))
	})

	t.Run("returns claims from context", func(t *testing.T) {
		claims := &ClinicianClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "clin_123",
			},
			Email: "dr.house@example.com",
		}
		ctx := WithClaims(context.Background(), claims)

		got := Claims(ctx)
		assert.NotNil(t, got)
		assert.Equal(t, "clin_123", got.Subject)
		assert.Equal(t, "dr.house@example.com", got.Email)
	})
}

func TestClinicianID(t *testing.T) {
	t.Run("returns empty string for empty context", func(t *testing.T) {
		assert.Equal(t, "", ClinicianID(context.Background()))
	})

	t.Run("returns subject from claims", func(t *testing.T) {
		ctx := WithClaims(context.Background(), NewTestClaims("clin_abc", "a@b.com"))
		assert.Equal(t, "clin_abc", ClinicianID(ctx))
	})
}

func TestEmail(t *testing.T) {
	t.Run("returns empty string for empty context", func(t *testing.T) {
		assert.Equal(t, "", Email(context.Background()))
	})

	t.Run("returns email from claims", func(t *testing.T) {
		ctx := WithClaims(context.Background(), NewTestClaims("clin_abc", "doc@example.com"))
		assert.Equal(t, "doc@example.com", Email(ctx))
	})
}

func TestDepartment(t *testing.T) {
	claims := &ClinicianClaims{Department: "radiology"}
	ctx := WithClaims(context.Background(), claims)
	assert.Equal(t, "radiology", Department(ctx))
	assert.Equal(t, "", Department(context.Background()))
}

func TestIsAuthenticated(t *testing.T) {
	assert.False(t, IsAuthenticated(context.Background()))
	ctx := WithClaims(context.Background(), NewTestClaims("clin_1", ""))
	assert.True(t, IsAuthenticated(ctx))
}

func TestHasPermission(t *testing.T) {
	claims := &ClinicianClaims{Permissions: []string{"diagnosis:write", "cases:read"}}
	ctx := WithClaims(context.Background(), claims)

	assert.True(t, HasPermission(ctx, "diagnosis:write"))
	assert.False(t, HasPermission(ctx, "admin:all"))
	assert.False(t, HasPermission(context.Background(), "diagnosis:write"))
}

func TestHasRole(t *testing.T) {
	claims := &ClinicianClaims{
		Roles: []Role{{ID: "1", Key: "physician", Name: "Physician"}},
	}
	ctx := WithClaims(context.Background(), claims)

	assert.True(t, HasRole(ctx, "physician"))
	assert.False(t, HasRole(ctx, "radiologist"))
	assert.False(t, HasRole(context.Background(), "physician"))
}
