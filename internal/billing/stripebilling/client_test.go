package stripebilling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

func sub(status string, end int64, lookup string, cancel bool) Subscription {
	s := Subscription{Status: status, CancelAtPeriodEnd: cancel}
	var item SubscriptionItem
	item.CurrentPeriodEnd = end
	item.Price.ID = "price_" + lookup
	item.Price.LookupKey = lookup
	s.Items.Data = append(s.Items.Data, item)
	return s
}

func newFakeClient(customers []string, subs map[string][]Subscription, err error) *Client {
	return &Client{
		entitlementID: "pro",
		configured:    true,
		findCustomers: func(_ context.Context, _ string) ([]string, error) {
			return customers, err
		},
		listSubscriptions: func(_ context.Context, id string) ([]Subscription, error) {
			return subs[id], nil
		},
	}
}

func TestActiveEntitlements(t *testing.T) {
	later := time.Now().Add(60 * 24 * time.Hour).Unix()
	sooner := time.Now().Add(10 * 24 * time.Hour).Unix()

	tests := []struct {
		name       string
		subs       map[string][]Subscription
		wantActive bool
		wantProd   string
		wantRenew  bool
	}{
		{
			name:       "active subscription",
			subs:       map[string][]Subscription{"cus_1": {sub("active", later, "pro_monthly", false)}},
			wantActive: true,
			wantProd:   "pro_monthly",
			wantRenew:  true,
		},
		{
			name: "latest period wins",
			subs: map[string][]Subscription{
				"cus_1": {sub("trialing", sooner, "trial", true)},
				"cus_2": {sub("active", later, "pro_yearly", true)},
			},
			wantActive: true,
			wantProd:   "pro_yearly",
			wantRenew:  false,
		},
		{
			name: "canceled only",
			subs: map[string][]Subscription{"cus_1": {sub("canceled", later, "pro_monthly", false)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFakeClient([]string{"cus_1", "cus_2"}, tt.subs, nil)
			got, err := c.ActiveEntitlements(context.Background(), "user-1")
			require.NoError(t, err)
			if !tt.wantActive {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, "pro", got[0].EntitlementID)
			assert.Equal(t, tt.wantProd, got[0].ProductID)
			assert.Equal(t, tt.wantRenew, got[0].WillRenew)
			require.NotNil(t, got[0].ExpiresAt)
		})
	}
}

func TestActiveEntitlements_Errors(t *testing.T) {
	c := newFakeClient(nil, nil, errors.New("boom"))
	_, err := c.ActiveEntitlements(context.Background(), "user-1")
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	unconfigured := NewClient("", "pro")
	assert.False(t, unconfigured.Configured())
	_, err = unconfigured.ActiveEntitlements(context.Background(), "user-1")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}
