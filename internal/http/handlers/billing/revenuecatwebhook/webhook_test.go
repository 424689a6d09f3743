package revenuecatwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

const authValue = "Bearer rc-hook-secret"

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func post(h http.Handler, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/billing/revenuecat/webhook", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRevenueCatWebhook_Enqueues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.ReconcileJob
	}{
		{
			name: "покупка в App Store",
			body: `{"event":{"id":"e1","type":"INITIAL_PURCHASE","app_user_id":"user-1","store":"APP_STORE","entitlement_id":"pro"}}`,
			want: models.ReconcileJob{UserID: "user-1", Platform: models.PlatformNative, Source: "revenuecat", Event: "INITIAL_PURCHASE"},
		},
		{
			name: "анонимный id и алиас",
			body: `{"event":{"id":"e2","type":"RENEWAL","app_user_id":"$RCAnonymousID:abc","aliases":["$RCAnonymousID:abc","user-2"],"store":"RC_BILLING"}}`,
			want: models.ReconcileJob{UserID: "user-2", Platform: models.PlatformWeb, Source: "revenuecat", Event: "RENEWAL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(MockPublisher)
			pub.On("Publish", mock.Anything, rabbitmq.ReconcileKey, tt.want).Return(nil).Once()

			rec := post(New(noopLogger(), pub, authValue), authValue, tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			pub.AssertExpectations(t)
		})
	}
}

func TestRevenueCatWebhook_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		auth       string
		body       string
		wantStatus int
	}{
		{name: "неверный заголовок", configured: authValue, auth: "Bearer wrong", body: `{}`, wantStatus: http.StatusUnauthorized},
		{name: "секрет не настроен", configured: "", auth: "", body: `{}`, wantStatus: http.StatusUnauthorized},
		{name: "некорректный JSON", configured: authValue, auth: authValue, body: `{"event":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(MockPublisher)
			rec := post(New(noopLogger(), pub, tt.configured), tt.auth, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRevenueCatWebhook_AnonymousOnlyIgnored(t *testing.T) {
	pub := new(MockPublisher)
	body := `{"event":{"id":"e3","type":"TEST","app_user_id":"$RCAnonymousID:zzz"}}`

	rec := post(New(noopLogger(), pub, authValue), authValue, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ignored"`)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevenueCatWebhook_PublishFailure(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, rabbitmq.ReconcileKey, mock.Anything).Return(errors.New("channel closed")).Once()

	body := `{"event":{"id":"e4","type":"EXPIRATION","app_user_id":"user-4","store":"PLAY_STORE"}}`
	rec := post(New(noopLogger(), pub, authValue), authValue, body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
