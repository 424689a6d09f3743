// Package models содержит доменные структуры: записи о правах доступа (entitlements),
// реплики диалога с ассистентом и сущности бизнеса подрядчика.
package models

import "time"

// Platform платформа, на которой была совершена или проверяется покупка.
type Platform string

const (
	// PlatformNative нативный магазин приложений (App Store, Google Play).
	PlatformNative Platform = "native"
	// PlatformWeb веб-биллинг.
	PlatformWeb Platform = "web"
)

// Valid сообщает, является ли значение известной платформой.
func (p Platform) Valid() bool {
	return p == PlatformNative || p == PlatformWeb
}

// Other возвращает противоположную платформу.
func (p Platform) Other() Platform {
	if p == PlatformNative {
		return PlatformWeb
	}
	return PlatformNative
}

// EntitlementRecord состояние подписки пользователя на одной платформе.
// Для пары (UserID, Platform) существует не более одной записи.
type EntitlementRecord struct {
	UserID             string     `json:"user_id"`
	Platform           Platform   `json:"platform"`
	IsActive           bool       `json:"is_active"`
	ProductID          *string    `json:"product_id,omitempty"`
	EntitlementID      *string    `json:"entitlement_id,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	WillRenew          bool       `json:"will_renew"`
	LinkedFromPlatform *Platform  `json:"linked_from_platform,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// SameState сравнивает записи без учёта UpdatedAt.
func (r EntitlementRecord) SameState(o EntitlementRecord) bool {
	return r.UserID == o.UserID &&
		r.Platform == o.Platform &&
		r.IsActive == o.IsActive &&
		r.WillRenew == o.WillRenew &&
		equalString(r.ProductID, o.ProductID) &&
		equalString(r.EntitlementID, o.EntitlementID) &&
		equalTime(r.ExpiresAt, o.ExpiresAt) &&
		equalPlatform(r.LinkedFromPlatform, o.LinkedFromPlatform)
}

// ActiveEntitlement активное право, как его видит биллинг-провайдер.
type ActiveEntitlement struct {
	EntitlementID string
	ProductID     string
	ExpiresAt     *time.Time
	WillRenew     bool
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalPlatform(a, b *Platform) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
