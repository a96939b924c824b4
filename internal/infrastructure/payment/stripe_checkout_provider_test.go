package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

const testWebhookSecret = "whsec_test_secret"

func TestBuildCheckoutSessionParams(t *testing.T) {
	params := BuildCheckoutSessionParams(&model.CheckoutSessionParams{
		Squares:       []model.CellKey{"5738000_1834000", "5738000_1834001"},
		Donor:         model.DonorInfo{Name: "Anna", Email: "anna@example.se", Greeting: "Hej ängen"},
		UnitAmountOre: 2000,
		Currency:      "sek",
		ProductName:   model.ProductName,
		SuccessURL:    "http://localhost:8888?success=true",
		CancelURL:     "http://localhost:8888?canceled=true",
	})

	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(2), *item.Quantity)
	assert.Equal(t, int64(2000), *item.PriceData.UnitAmount)
	assert.Equal(t, "sek", *item.PriceData.Currency)
	assert.Equal(t, "Donation för 2 kvadratmeter", *item.PriceData.ProductData.Description)
	assert.Equal(t, "anna@example.se", *params.CustomerEmail)
	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "Anna", params.Metadata[MetadataDonorName])
	assert.Equal(t, "2", params.Metadata[MetadataSquareCount])
	assert.Equal(t, `["5738000_1834000","5738000_1834001"]`, params.Metadata[MetadataSquares])
}

func TestCheckoutMetadataDropsOversizedSquares(t *testing.T) {
	squares := make([]model.CellKey, 100)
	for i := range squares {
		squares[i] = "5738000_1834000"
	}
	metadata := CheckoutMetadata(model.DonorInfo{Name: "Anna"}, squares)

	_, ok := metadata[MetadataSquares]
	assert.False(t, ok)
	assert.Equal(t, "100", metadata[MetadataSquareCount])
	assert.Nil(t, SquaresFromMetadata(metadata))
}

func TestSquaresFromMetadata(t *testing.T) {
	keys := SquaresFromMetadata(map[string]string{MetadataSquares: `["1_2","1_3"]`})
	assert.Equal(t, []model.CellKey{"1_2", "1_3"}, keys)

	assert.Nil(t, SquaresFromMetadata(map[string]string{MetadataSquares: "not json"}))
}

func signedPayload(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestParseWebhookEventCompletedCheckout(t *testing.T) {
	p := NewStripeCheckoutProvider("sk_test_dummy", testWebhookSecret)
	header, payload := signedPayload(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"customer_email": "anna@example.se",
			"amount_total": 4000,
			"payment_status": "paid",
			"metadata": {"donorName": "Anna", "squares": "[\"1_2\",\"1_3\"]"}
		}}
	}`)

	event, err := p.ParseWebhookEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, model.EventCheckoutSessionCompleted, event.Type)
	require.NotNil(t, event.Checkout)
	assert.Equal(t, "cs_test_1", event.Checkout.SessionID)
	assert.Equal(t, "anna@example.se", event.Checkout.CustomerEmail)
	assert.Equal(t, int64(4000), event.Checkout.AmountTotalOre)
	assert.Equal(t, "paid", event.Checkout.PaymentStatus)
	assert.Equal(t, []model.CellKey{"1_2", "1_3"}, SquaresFromMetadata(event.Checkout.Metadata))
}

func TestParseWebhookEventOtherType(t *testing.T) {
	p := NewStripeCheckoutProvider("sk_test_dummy", testWebhookSecret)
	header, payload := signedPayload(t, `{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{}}}`)

	event, err := p.ParseWebhookEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", event.Type)
	assert.Nil(t, event.Checkout)
}

func TestParseWebhookEventRejectsBadSignature(t *testing.T) {
	p := NewStripeCheckoutProvider("sk_test_dummy", testWebhookSecret)
	_, err := p.ParseWebhookEvent([]byte(`{"id":"evt_3"}`), "t=1,v1="+strings.Repeat("0", 64))
	assert.ErrorIs(t, err, model.ErrInvalidWebhook)
}
