// Package stripebilling читает состояние веб-подписок напрямую из Stripe,
// когда веб-биллинг работает без RevenueCat.
package stripebilling

import (
	"context"
	"fmt"
	"sort"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// MetadataUserKey ключ метаданных клиента и подписки Stripe с id пользователя.
const MetadataUserKey = "app_user_id"

// Subscription минимальное представление подписки Stripe.
type Subscription struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

// SubscriptionItem позиция подписки с ценой и концом текущего периода.
type SubscriptionItem struct {
	CurrentPeriodEnd int64 `json:"current_period_end"`
	Price            struct {
		ID        string `json:"id"`
		LookupKey string `json:"lookup_key"`
	} `json:"price"`
}

// Client клиент Stripe для одного права доступа (entitlementID),
// которое дают любые активные подписки клиента.
type Client struct {
	entitlementID string
	configured    bool

	findCustomers     func(ctx context.Context, appUserID string) ([]string, error)
	listSubscriptions func(ctx context.Context, customerID string) ([]Subscription, error)
}

// NewClient создаёт клиент Stripe с секретным ключом secretKey.
func NewClient(secretKey, entitlementID string) *Client {
	sc := client.New(secretKey, nil)
	c := &Client{
		entitlementID: entitlementID,
		configured:    secretKey != "",
	}
	c.findCustomers = func(ctx context.Context, appUserID string) ([]string, error) {
		params := &stripelib.CustomerSearchParams{
			SearchParams: stripelib.SearchParams{
				Query:   fmt.Sprintf("metadata['%s']:'%s'", MetadataUserKey, appUserID),
				Context: ctx,
			},
		}
		var ids []string
		it := sc.Customers.Search(params)
		for it.Next() {
			ids = append(ids, it.Customer().ID)
		}
		return ids, it.Err()
	}
	c.listSubscriptions = func(ctx context.Context, customerID string) ([]Subscription, error) {
		params := &stripelib.SubscriptionListParams{
			Customer: stripelib.String(customerID),
			Status:   stripelib.String("all"),
		}
		params.Context = ctx
		var subs []Subscription
		it := sc.Subscriptions.List(params)
		for it.Next() {
			subs = append(subs, fromStripe(it.Subscription()))
		}
		return subs, it.Err()
	}
	return c
}

// Configured сообщает, задан ли секретный ключ.
func (c *Client) Configured() bool {
	return c.configured
}

// ActiveEntitlements возвращает право entitlementID, если у пользователя есть
// подписка в статусе active или trialing.
func (c *Client) ActiveEntitlements(ctx context.Context, appUserID string) ([]models.ActiveEntitlement, error) {
	const op = "stripebilling.ActiveEntitlements"
	if !c.configured {
		return nil, fmt.Errorf("%s: %w: secret key is not set", op, apperr.ErrConfiguration)
	}

	customers, err := c.findCustomers(ctx, appUserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}

	var active []Subscription
	for _, id := range customers {
		subs, err := c.listSubscriptions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
		}
		for _, s := range subs {
			if IsActiveStatus(s.Status) {
				active = append(active, s)
			}
		}
	}
	if len(active) == 0 {
		return []models.ActiveEntitlement{}, nil
	}

	// Берём подписку с самым поздним окончанием периода.
	sort.Slice(active, func(i, j int) bool { return periodEnd(active[i]) > periodEnd(active[j]) })
	best := active[0]
	ent := models.ActiveEntitlement{
		EntitlementID: c.entitlementID,
		ProductID:     productID(best),
		WillRenew:     !best.CancelAtPeriodEnd,
	}
	if end := periodEnd(best); end > 0 {
		t := time.Unix(end, 0).UTC()
		ent.ExpiresAt = &t
	}
	return []models.ActiveEntitlement{ent}, nil
}

// IsActiveStatus сообщает, даёт ли статус подписки доступ.
func IsActiveStatus(status string) bool {
	return status == string(stripelib.SubscriptionStatusActive) ||
		status == string(stripelib.SubscriptionStatusTrialing)
}

func fromStripe(s *stripelib.Subscription) Subscription {
	out := Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.Customer = s.Customer.ID
	}
	if s.Items == nil {
		return out
	}
	for _, item := range s.Items.Data {
		var d SubscriptionItem
		d.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			d.Price.ID = item.Price.ID
			d.Price.LookupKey = item.Price.LookupKey
		}
		out.Items.Data = append(out.Items.Data, d)
	}
	return out
}

func periodEnd(s Subscription) int64 {
	var end int64
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > end {
			end = item.CurrentPeriodEnd
		}
	}
	return end
}

func productID(s Subscription) string {
	for _, item := range s.Items.Data {
		if item.Price.LookupKey != "" {
			return item.Price.LookupKey
		}
		if item.Price.ID != "" {
			return item.Price.ID
		}
	}
	return ""
}
