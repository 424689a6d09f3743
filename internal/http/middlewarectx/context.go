// Package middlewarectx содержит HTTP middleware, которые кладут в контекст
// запроса личность вызывающего и его платформу, а также ограничивают
// частоту запросов.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ идентификатора пользователя в контексте
	UserID Key = "user_id"
	// Platform ключ платформы вызывающего клиента в контексте
	Platform Key = "platform"
)

// UserIDFrom возвращает идентификатор пользователя или пустую строку.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(UserID).(string)
	return id
}

// PlatformFrom возвращает платформу клиента; по умолчанию web.
func PlatformFrom(ctx context.Context) models.Platform {
	if p, ok := ctx.Value(Platform).(models.Platform); ok && p.Valid() {
		return p
	}
	return models.PlatformWeb
}

// WithUserID кладёт идентификатор пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserID, userID)
}

// WithPlatform кладёт платформу клиента в контекст.
func WithPlatform(ctx context.Context, p models.Platform) context.Context {
	return context.WithValue(ctx, Platform, p)
}
