package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/auth"
)

func newTestAuthenticator(t *testing.T) (*auth.MockAuthenticator, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("test-secret-key", 15*time.Minute)
	authn, err := auth.NewMockAuthenticator(tokens)
	require.NoError(t, err)
	return authn, tokens
}

func issue(t *testing.T, tokens *auth.TokenService, user auth.User) string {
	t.Helper()
	token, _, err := tokens.Issue(user)
	require.NoError(t, err)
	return token
}

func captureClaims(out **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetUserFromContext(r.Context()); ok {
			*out = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================
// AuthMiddleware Tests
// ============================================

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)
	token := issue(t, tokens, auth.User{ID: "user-123", Email: "test@example.com", Role: auth.RoleStaff})

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(authn)(captureClaims(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-123", captured.UserID)
	assert.Equal(t, "test@example.com", captured.Email)
	assert.Equal(t, auth.RoleStaff, captured.Role)
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)
	token := issue(t, tokens, auth.User{ID: "user-456", Role: auth.RoleAdmin})

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()

	AuthMiddleware(authn)(captureClaims(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-456", captured.UserID)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	authn, _ := newTestAuthenticator(t)
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	AuthMiddleware(authn)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	authn, _ := newTestAuthenticator(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	AuthMiddleware(authn)(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	authn, _ := newTestAuthenticator(t)
	expired := auth.NewTokenService("test-secret-key", -time.Minute)
	token := issue(t, expired, auth.User{ID: "user-123"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(authn)(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_WrongSignature(t *testing.T) {
	authn, _ := newTestAuthenticator(t)
	other := auth.NewTokenService("another-secret", time.Minute)
	token := issue(t, other, auth.User{ID: "user-123"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(authn)(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)
	token := issue(t, tokens, auth.User{ID: "user-123"})
	require.NoError(t, authn.Logout(context.Background(), token))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(authn)(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_CookieTakesPrecedence(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)
	cookieToken := issue(t, tokens, auth.User{ID: "cookie-user"})
	headerToken := issue(t, tokens, auth.User{ID: "header-user"})

	var captured *auth.Claims
	var token string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = GetUserFromContext(r.Context())
		token = GetToken(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+headerToken)

	AuthMiddleware(authn)(handler).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.Equal(t, "cookie-user", captured.UserID)
	assert.Equal(t, cookieToken, token)
}

// ============================================
// RequireRole / RequirePermission Tests
// ============================================

func withClaims(claims *auth.Claims) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if claims == nil {
		return req
	}
	return req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{name: "has role", claims: &auth.Claims{UserID: "u1", Role: auth.RoleAdmin}, want: http.StatusOK},
		{name: "alternate role", claims: &auth.Claims{UserID: "u1", Role: auth.RoleManager}, want: http.StatusOK},
		{name: "wrong role", claims: &auth.Claims{UserID: "u1", Role: auth.RoleStaff}, want: http.StatusForbidden},
		{name: "no claims", claims: nil, want: http.StatusUnauthorized},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireRole(auth.RoleAdmin, auth.RoleManager)(ok).ServeHTTP(rec, withClaims(tt.claims))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{name: "granted", claims: &auth.Claims{Role: auth.RoleStaff, Permissions: []string{"orders:read"}}, want: http.StatusOK},
		{name: "admin holds all", claims: &auth.Claims{Role: auth.RoleAdmin}, want: http.StatusOK},
		{name: "missing", claims: &auth.Claims{Role: auth.RoleStaff, Permissions: []string{"orders:write"}}, want: http.StatusForbidden},
		{name: "no claims", claims: nil, want: http.StatusUnauthorized},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequirePermission("orders:read")(ok).ServeHTTP(rec, withClaims(tt.claims))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// ============================================
// Context Helper Tests
// ============================================

func TestGetUserFromContext(t *testing.T) {
	claims := &auth.Claims{UserID: "user-123", Email: "test@example.com"}
	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	got, ok := GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, got)
	assert.Equal(t, "user-123", GetUserID(ctx))

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, GetUserID(context.Background()))
	assert.Empty(t, GetToken(context.Background()))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
