package middlewarectx_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/jwt"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

type ParserMock struct {
	mock.Mock
}

func (m *ParserMock) ParseToken(token string) (*jwt.CustomClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	valid, err := maker.GenerateToken("user-42", "a@b.c", "authenticated")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUser   string
	}{
		{name: "нет заголовка", wantStatus: http.StatusUnauthorized},
		{name: "не Bearer", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "чужая подпись", authHeader: "Bearer " + mustToken(t, "other"), wantStatus: http.StatusUnauthorized},
		{name: "валидный токен", authHeader: "Bearer " + valid, wantStatus: http.StatusOK, wantUser: "user-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = middlewarectx.UserIDFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			h := middlewarectx.JWTMiddleware(maker, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/access", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}

func mustToken(t *testing.T, secret string) string {
	t.Helper()
	tok, err := jwt.NewJWTMaker(secret, time.Hour).GenerateToken("user-42", "", "")
	require.NoError(t, err)
	return tok
}

func TestJWTMiddleware_ParserError(t *testing.T) {
	parser := new(ParserMock)
	parser.On("ParseToken", "tok").Return(nil, errors.New("expired")).Once()

	called := false
	h := middlewarectx.JWTMiddleware(parser, newNoopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	parser.AssertExpectations(t)
}

func TestPlatformMiddleware(t *testing.T) {
	tests := []struct {
		header string
		want   models.Platform
	}{
		{"ios", models.PlatformNative},
		{"Android", models.PlatformNative},
		{"web", models.PlatformWeb},
		{"", models.PlatformWeb},
		{"toaster", models.PlatformWeb},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			var got models.Platform
			h := middlewarectx.PlatformMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = middlewarectx.PlatformFrom(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middlewarectx.PlatformHeader, tt.header)
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(0.001, 2)
	h := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(middlewarectx.WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusTooManyRequests, do("u1"))
	assert.Equal(t, http.StatusOK, do("u2"), "у каждого пользователя свой лимит")
}
