package stripebilling

import (
	"encoding/json"
	"fmt"
	"strings"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ParseWebhook проверяет подпись Stripe-Signature и разбирает событие.
func ParseWebhook(payload []byte, sigHeader, secret string) (stripelib.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// UserFromEvent извлекает id пользователя из метаданных подписки или
// checkout-сессии. false, если событие не относится к подпискам или
// пользователь не указан.
func UserFromEvent(event stripelib.Event) (string, bool, error) {
	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
		"checkout.session.completed":
	default:
		return "", false, nil
	}
	if event.Data == nil {
		return "", false, nil
	}

	var obj struct {
		Metadata          map[string]string `json:"metadata"`
		ClientReferenceID string            `json:"client_reference_id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return "", false, fmt.Errorf("decode %s: %w", event.Type, err)
	}
	userID := strings.TrimSpace(obj.Metadata[MetadataUserKey])
	if userID == "" {
		userID = strings.TrimSpace(obj.ClientReferenceID)
	}
	return userID, userID != "", nil
}
