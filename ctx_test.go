package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	user := &User{Username: "alice", Email: "alice@example.com"}

	ctx := WithContext(context.Background(), user)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, user, got)
}

func TestFromContext(t *testing.T) {
	t.Run("should return false when no user in context", func(t *testing.T) {
		got, ok := FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("should return false when context has wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), userCtxKey, "not-a-user")
		got, ok := FromContext(ctx)
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestGetClaims(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantOK   bool
	}{
		{
			name: "should return claims when present in context",
			setupCtx: func() context.Context {
				claims := &JWTClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						Subject: "user123",
					},
					UID:      "user123",
					Username: "alice",
				}
				ctx := context.Background()
				return WithClaimsContext(ctx, claims)
			},
			wantOK: true,
		},
		{
			name: "should return false when no claims in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantOK: false,
		},
		{
			name: "should return false when context has wrong type",
			setupCtx: func() context.Context {
				ctx := context.Background()
				return context.WithValue(ctx, claimsCtxKey, "not-a-claims-object")
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.setupCtx()
			gotClaims, gotOK := GetClaims(ctx)

			assert.Equal(t, tt.wantOK, gotOK)
			if tt.wantOK {
				assert.NotNil(t, gotClaims)
				assert.Equal(t, "user123", gotClaims.Subject())
				assert.Equal(t, "user123", gotClaims.UserID())
				assert.Equal(t, "alice", gotClaims.UserName())
			} else {
				assert.Nil(t, gotClaims)
			}
		})
	}
}

func TestGetRouterClaims(t *testing.T) {
	tests := []struct {
		name    string
		setupFn func() router.Context
		key     string
		wantOK  bool
	}{
		{
			name: "should return claims when present with default key",
			setupFn: func() router.Context {
				ctx := router.NewMockContext()
				ctx.LocalsMock["user"] = &JWTClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						Subject: "user123",
					},
					UID:      "user123",
					Username: "alice",
				}
				return ctx
			},
			key:    "", // Use default key
			wantOK: true,
		},
		{
			name: "should return claims when present with custom key",
			setupFn: func() router.Context {
				ctx := router.NewMockContext()
				ctx.LocalsMock["custom-claims"] = &JWTClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						Subject: "user123",
					},
					UID:      "user123",
					Username: "alice",
				}
				return ctx
			},
			key:    "custom-claims",
			wantOK: true,
		},
		{
			name: "should return false when key not present",
			setupFn: func() router.Context {
				return router.NewMockContext()
			},
			key:    "user",
			wantOK: false,
		},
		{
			name: "should return false when value is wrong type",
			setupFn: func() router.Context {
				ctx := router.NewMockContext()
				ctx.LocalsMock["user"] = "not-a-claims-object"
				return ctx
			},
			key:    "user",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.setupFn()
			gotClaims, gotOK := GetRouterClaims(ctx, tt.key)

			assert.Equal(t, tt.wantOK, gotOK)
			if tt.wantOK {
				assert.NotNil(t, gotClaims)
				assert.Equal(t, "user123", gotClaims.Subject())
				assert.Equal(t, "user123", gotClaims.UserID())
				assert.Equal(t, "alice", gotClaims.UserName())
			} else {
				assert.Nil(t, gotClaims)
			}
		})
	}
}

func TestWithClaimsContext(t *testing.T) {
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UID:      "user123",
		Username: "alice",
	}

	ctx := context.Background()
	newCtx := WithClaimsContext(ctx, claims)

	retrievedClaims, ok := GetClaims(newCtx)
	assert.True(t, ok)
	assert.NotNil(t, retrievedClaims)
	assert.Equal(t, "user123", retrievedClaims.Subject())
	assert.Equal(t, "user123", retrievedClaims.UserID())
	assert.Equal(t, "alice", retrievedClaims.UserName())

	// The original context stays untouched
	_, ok = GetClaims(ctx)
	assert.False(t, ok)
}
