package stripebilling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testSecret,
	})
	return sp.Payload, sp.Header
}

func TestParseWebhook(t *testing.T) {
	payload, header := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {"id": "sub_1", "object": "subscription", "metadata": {"app_user_id": "user-1"}}}
	}`)

	event, err := ParseWebhook(payload, header, testSecret)
	require.NoError(t, err)

	userID, ok, err := UserFromEvent(event)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, err = ParseWebhook(payload, header, "whsec_other")
	assert.Error(t, err)
}

func TestUserFromEvent_Ignored(t *testing.T) {
	payload, header := signed(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "invoice.paid",
		"data": {"object": {"id": "in_1", "object": "invoice"}}
	}`)
	event, err := ParseWebhook(payload, header, testSecret)
	require.NoError(t, err)

	_, ok, err := UserFromEvent(event)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserFromEvent_ClientReference(t *testing.T) {
	payload, header := signed(t, `{
		"id": "evt_3",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "client_reference_id": "user-9"}}
	}`)
	event, err := ParseWebhook(payload, header, testSecret)
	require.NoError(t, err)

	userID, ok, err := UserFromEvent(event)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-9", userID)
}
