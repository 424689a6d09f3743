package approval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/cache"
	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func setup(t *testing.T) (*Service, *MockPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	pub := new(MockPublisher)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(c, pub, 10*time.Minute, log), pub, mr
}

func draft() *models.PendingApproval {
	return &models.PendingApproval{
		ID: "d-1", Kind: "email", To: "smith@example.com", Subject: "Estimate", Body: "Hi John",
	}
}

func TestApprove(t *testing.T) {
	svc, pub, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Hold(ctx, "u1", draft()))

	want := &models.OutgoingMail{DraftID: "d-1", UserID: "u1", To: "smith@example.com", Subject: "Estimate", Body: "Hi John"}
	pub.On("Publish", mock.Anything, "outgoing", want).Return(nil).Once()

	mail, err := svc.Approve(ctx, "u1", "d-1", Edit{})
	require.NoError(t, err)
	assert.Equal(t, want, mail)

	_, err = svc.Approve(ctx, "u1", "d-1", Edit{})
	assert.ErrorIs(t, err, apperr.ErrNotFound, "черновик подтверждается один раз")
	pub.AssertExpectations(t)
}

func TestApprove_OtherUserCannotApprove(t *testing.T) {
	svc, pub, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Hold(ctx, "u1", draft()))

	_, err := svc.Approve(ctx, "u2", "d-1", Edit{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_Expired(t *testing.T) {
	svc, pub, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Hold(ctx, "u1", draft()))
	mr.FastForward(11 * time.Minute)

	_, err := svc.Approve(ctx, "u1", "d-1", Edit{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_PublishFailureRestoresDraft(t *testing.T) {
	svc, pub, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Hold(ctx, "u1", draft()))

	pub.On("Publish", mock.Anything, "outgoing", mock.Anything).Return(errors.New("channel closed")).Once()
	_, err := svc.Approve(ctx, "u1", "d-1", Edit{})
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	pub.On("Publish", mock.Anything, "outgoing", mock.Anything).Return(nil).Once()
	_, err = svc.Approve(ctx, "u1", "d-1", Edit{})
	require.NoError(t, err)
}

func TestDiscard(t *testing.T) {
	svc, pub, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Hold(ctx, "u1", draft()))
	require.NoError(t, svc.Discard(ctx, "u1", "d-1"))

	_, err := svc.Approve(ctx, "u1", "d-1", Edit{})
	assert.ErrorIs(t, err, apperr.ErrNotFound, "удалённый черновик нельзя подтвердить")
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)

	assert.NoError(t, svc.Discard(ctx, "u1", "d-1"), "повторное удаление не ошибка")
	assert.ErrorIs(t, svc.Discard(ctx, "", "d-1"), apperr.ErrUnauthorized)
}

func TestRejections(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Hold(ctx, "", draft()), apperr.ErrUnauthorized)
	assert.ErrorIs(t, svc.Hold(ctx, "u1", &models.PendingApproval{}), apperr.ErrValidation)
	_, err := svc.Approve(ctx, "", "d-1", Edit{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestApprove_WithEdit(t *testing.T) {
	svc, pub, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Hold(ctx, "u1", draft()))

	want := &models.OutgoingMail{DraftID: "d-1", UserID: "u1", To: "smith@example.com", Subject: "Estimate", Body: "Hi John, updated numbers attached"}
	pub.On("Publish", mock.Anything, "outgoing", want).Return(nil).Once()

	mail, err := svc.Approve(ctx, "u1", "d-1", Edit{Body: "Hi John, updated numbers attached"})
	require.NoError(t, err)
	assert.Equal(t, want, mail)
}
