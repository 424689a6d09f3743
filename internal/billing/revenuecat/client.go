// Package revenuecat реализует клиент REST API RevenueCat v1 для чтения
// активных прав подписчика и восстановления покупок по чеку.
package revenuecat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// Магазины, покупки из которых считаются нативными или веб.
var (
	NativeStores = []string{"app_store", "mac_app_store", "play_store", "amazon"}
	WebStores    = []string{"stripe", "rc_billing", "promotional"}
)

// Client клиент RevenueCat, ограниченный набором магазинов одной платформы.
type Client struct {
	apiKey     string
	apiURL     string
	xPlatform  string
	stores     map[string]struct{}
	httpClient *http.Client
	now        func() time.Time
}

// NewClient создаёт клиент RevenueCat. xPlatform передаётся в заголовке
// X-Platform при восстановлении покупок (ios, android, stripe).
func NewClient(apiURL, apiKey, xPlatform string, stores []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	set := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		set[s] = struct{}{}
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		xPlatform:  xPlatform,
		stores:     set,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// NewNativeClient клиент для покупок из App Store / Google Play.
func NewNativeClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return NewClient(apiURL, apiKey, "ios", NativeStores, timeout)
}

// NewWebClient клиент для веб-биллинга.
func NewWebClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return NewClient(apiURL, apiKey, "stripe", WebStores, timeout)
}

// Configured сообщает, задан ли API-ключ.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (*subscriberResponse, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var out subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, err
	}
	return &out, resp.StatusCode, nil
}

// ActiveEntitlements возвращает права подписчика, активные сейчас и
// купленные в магазинах платформы клиента. Неизвестный подписчик даёт
// пустой список без ошибки.
func (c *Client) ActiveEntitlements(ctx context.Context, appUserID string) ([]models.ActiveEntitlement, error) {
	const op = "revenuecat.ActiveEntitlements"
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w: api key is not set", op, apperr.ErrConfiguration)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/v1/subscribers/"+url.PathEscape(appUserID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, status, err := c.do(req)
	if status == http.StatusNotFound {
		return []models.ActiveEntitlement{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	return c.activeFrom(out.Subscriber), nil
}

// RestorePurchases отправляет чек магазина в RevenueCat, привязывая
// покупку к appUserID.
func (c *Client) RestorePurchases(ctx context.Context, appUserID, receipt string) error {
	const op = "revenuecat.RestorePurchases"
	if !c.Configured() {
		return fmt.Errorf("%s: %w: api key is not set", op, apperr.ErrConfiguration)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/receipts", receiptRequest{
		AppUserID:  appUserID,
		FetchToken: receipt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("X-Platform", c.xPlatform)
	if _, _, err := c.do(req); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	return nil
}

func (c *Client) activeFrom(s subscriber) []models.ActiveEntitlement {
	now := c.now()
	result := []models.ActiveEntitlement{}
	for id, ent := range s.Entitlements {
		expires := ent.ExpiresDate
		if ent.GracePeriodExpire != nil && (expires == nil || ent.GracePeriodExpire.After(*expires)) {
			expires = ent.GracePeriodExpire
		}
		if expires != nil && !expires.After(now) {
			continue
		}

		store, willRenew := c.lookupProduct(s, ent.ProductIdentifier)
		if _, ok := c.stores[store]; !ok {
			continue
		}
		result = append(result, models.ActiveEntitlement{
			EntitlementID: id,
			ProductID:     ent.ProductIdentifier,
			ExpiresAt:     expires,
			WillRenew:     willRenew,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntitlementID < result[j].EntitlementID })
	return result
}

// lookupProduct находит магазин продукта и признак автопродления.
func (c *Client) lookupProduct(s subscriber, productID string) (string, bool) {
	if sub, ok := s.Subscriptions[productID]; ok {
		renew := sub.UnsubscribeDetectedAt == nil && sub.BillingIssuesDetectedAt == nil && sub.ExpiresDate != nil
		return sub.Store, renew
	}
	if purchases, ok := s.NonSubscriptions[productID]; ok && len(purchases) > 0 {
		return purchases[len(purchases)-1].Store, false
	}
	return "", false
}
