package revenuecat

import "time"

// subscriberResponse ответ GET /v1/subscribers/{app_user_id} и POST /v1/receipts.
type subscriberResponse struct {
	Subscriber subscriber `json:"subscriber"`
}

type subscriber struct {
	OriginalAppUserID string                      `json:"original_app_user_id"`
	Entitlements      map[string]entitlement      `json:"entitlements"`
	Subscriptions     map[string]subscription     `json:"subscriptions"`
	NonSubscriptions  map[string][]nonSubcription `json:"non_subscriptions"`
}

type entitlement struct {
	ExpiresDate       *time.Time `json:"expires_date"`
	GracePeriodExpire *time.Time `json:"grace_period_expires_date"`
	ProductIdentifier string     `json:"product_identifier"`
	PurchaseDate      *time.Time `json:"purchase_date"`
}

type subscription struct {
	Store                   string     `json:"store"`
	ExpiresDate             *time.Time `json:"expires_date"`
	UnsubscribeDetectedAt   *time.Time `json:"unsubscribe_detected_at"`
	BillingIssuesDetectedAt *time.Time `json:"billing_issues_detected_at"`
	PeriodType              string     `json:"period_type"`
}

type nonSubcription struct {
	ID    string `json:"id"`
	Store string `json:"store"`
}

// receiptRequest тело POST /v1/receipts.
type receiptRequest struct {
	AppUserID  string `json:"app_user_id"`
	FetchToken string `json:"fetch_token"`
}

// WebhookEvent событие вебхука RevenueCat (используемые поля).
type WebhookEvent struct {
	Event struct {
		ID            string   `json:"id"`
		Type          string   `json:"type"`
		AppUserID     string   `json:"app_user_id"`
		Aliases       []string `json:"aliases"`
		Store         string   `json:"store"`
		ProductID     string   `json:"product_id"`
		EntitlementID string   `json:"entitlement_id"`
	} `json:"event"`
}
