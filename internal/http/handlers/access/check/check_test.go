package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Decide(ctx context.Context, userID string, platform models.Platform) (subscription.Decision, error) {
	args := m.Called(ctx, userID, platform)
	return args.Get(0).(subscription.Decision), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCheckHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		header      string
		platform    models.Platform
		decision    subscription.Decision
		err         error
		wantStatus  int
		wantGranted any
		wantReason  any
	}{
		{
			name:        "доступ через нативную запись",
			userID:      "u1",
			header:      "web",
			platform:    models.PlatformWeb,
			decision:    subscription.Decision{Granted: true, Reason: subscription.ReasonNativeRecord},
			wantStatus:  http.StatusOK,
			wantGranted: true,
			wantReason:  "native_record",
		},
		{
			name:        "нет подписки",
			userID:      "u1",
			header:      "ios",
			platform:    models.PlatformNative,
			decision:    subscription.Decision{Granted: false, Reason: subscription.ReasonNoEntitlement},
			wantStatus:  http.StatusOK,
			wantGranted: false,
			wantReason:  "no_entitlement",
		},
		{
			name:       "нет пользователя",
			platform:   models.PlatformWeb,
			err:        fmt.Errorf("op: %w", apperr.ErrUnauthorized),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Decide", mock.Anything, tt.userID, tt.platform).Return(tt.decision, tt.err).Once()

			h := middlewarectx.PlatformMiddleware(New(newNoopLogger(), svc))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/access", nil)
			req.Header.Set(middlewarectx.PlatformHeader, tt.header)
			if tt.userID != "" {
				req = req.WithContext(middlewarectx.WithUserID(req.Context(), tt.userID))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantStatus == http.StatusOK {
				data := body["data"].(map[string]any)
				assert.Equal(t, tt.wantGranted, data["granted"])
				assert.Equal(t, tt.wantReason, data["reason"])
				assert.Equal(t, string(tt.platform), data["platform"])
			} else {
				assert.Equal(t, "Error", body["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}
