package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Webhook event types.
const (
	EventPurchaseCompleted = "purchase.completed"
	EventPurchaseRefunded  = "purchase.refunded"
	EventPurchaseCancelled = "purchase.cancelled"
)

// PurchaseEvent is the provider-agnostic shape of a payment webhook delivery
// after parsing.
type PurchaseEvent struct {
	EventID           string
	EventType         string
	ProviderPaymentID string
	UserID            uint
	AccessPassID      uint
	AmountCents       int64
	Currency          string
}

// ParsePurchaseEvent decodes a payment provider webhook body. All providers
// are normalized to the same envelope by the payment gateway:
//
//	{
//	  "id": "evt_…",
//	  "type": "purchase.completed",
//	  "data": {
//	    "payment_id": "pay_…",
//	    "user_id": 42,
//	    "access_pass_id": 7,
//	    "amount_cents": 1500,
//	    "currency": "EUR"
//	  }
//	}
func ParsePurchaseEvent(payload []byte) (*PurchaseEvent, error) {
	type rawPayload struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			PaymentID    string `json:"payment_id"`
			UserID       uint   `json:"user_id"`
			AccessPassID uint   `json:"access_pass_id"`
			AmountCents  int64  `json:"amount_cents"`
			Currency     string `json:"currency"`
		} `json:"data"`
	}

	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	out := &PurchaseEvent{
		EventID:           strings.TrimSpace(raw.ID),
		EventType:         strings.ToLower(strings.TrimSpace(raw.Type)),
		ProviderPaymentID: strings.TrimSpace(raw.Data.PaymentID),
		UserID:            raw.Data.UserID,
		AccessPassID:      raw.Data.AccessPassID,
		AmountCents:       raw.Data.AmountCents,
		Currency:          strings.ToUpper(strings.TrimSpace(raw.Data.Currency)),
	}
	if out.Currency == "" {
		out.Currency = "USD"
	}

	if out.EventID == "" {
		return nil, errors.New("webhook payload missing event id")
	}
	switch out.EventType {
	case EventPurchaseCompleted, EventPurchaseRefunded, EventPurchaseCancelled:
	case "":
		return nil, errors.New("webhook payload missing event type")
	default:
		return nil, fmt.Errorf("unsupported webhook event type: %s", out.EventType)
	}
	if out.ProviderPaymentID == "" {
		return nil, errors.New("webhook payload missing payment id")
	}
	return out, nil
}
