package model

import (
	"encoding/json"
	"fmt"
)

const (
	EventOrderApproved    = "CHECKOUT.ORDER.APPROVED"
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
)

type PaypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type Amount struct {
	Currency string `json:"currency_code"`
	Value    string `json:"value"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Final  bool   `json:"final_capture"`
	Amount Amount `json:"amount"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id"`
	CustomID    string   `json:"custom_id"`
	InvoiceID   string   `json:"invoice_id"` // paypal-unique id, not the billing invoice id
	Description string   `json:"description"`
	Amount      Amount   `json:"amount"`
	Payments    Payments `json:"payments"`
}

type RelatedIDs struct {
	OrderID string `json:"order_id"`
}

type SupplementaryData struct {
	RelatedIDs RelatedIDs `json:"related_ids"`
}

// PaypalResource is the union of the resource shapes we consume. For
// CHECKOUT.ORDER.APPROVED it is an order (purchase units); for
// PAYMENT.CAPTURE.COMPLETED it is a capture (amount, custom_id,
// supplementary_data).
type PaypalResource struct {
	ID                string            `json:"id"`
	Intent            string            `json:"intent"`
	Status            string            `json:"status"`
	CustomID          string            `json:"custom_id"`
	Amount            Amount            `json:"amount"`
	PurchaseUnits     []PurchaseUnit    `json:"purchase_units"`
	SupplementaryData SupplementaryData `json:"supplementary_data"`
}

type PayPalWebhookEvent struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	CreateTime string         `json:"create_time"`
	Resource   PaypalResource `json:"resource"`
}

// ClassifiedEvent is the typed variant an inbound webhook body resolves to
// before the reconciler consumes it.
type ClassifiedEvent interface {
	EventID() string
}

// OrderApprovedEvent carries an approved but not yet captured order.
type OrderApprovedEvent struct {
	ID        string
	OrderID   string
	InvoiceID string // empty when neither custom_id nor reference_id was present
}

func (e *OrderApprovedEvent) EventID() string { return e.ID }

// CaptureCompletedEvent carries an already settled capture.
type CaptureCompletedEvent struct {
	ID             string
	CaptureID      string
	InvoiceID      string // empty when custom_id was absent
	RelatedOrderID string // order-lookup fallback for the invoice id
	Amount         Amount
}

func (e *CaptureCompletedEvent) EventID() string { return e.ID }

// UnhandledEvent is any event type the reconciler acknowledges but does not
// act on.
type UnhandledEvent struct {
	ID        string
	EventType string
}

func (e *UnhandledEvent) EventID() string { return e.ID }

// ClassifyEvent decodes a raw webhook body into its typed variant. Field
// access beyond this point is plain struct access, never re-parsing.
func ClassifyEvent(body []byte) (ClassifiedEvent, error) {
	var event PayPalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("webhook payload has no event_type")
	}

	switch event.EventType {
	case EventOrderApproved:
		if event.Resource.ID == "" {
			return nil, fmt.Errorf("order approved event has no order id")
		}
		approved := &OrderApprovedEvent{
			ID:      event.ID,
			OrderID: event.Resource.ID,
		}
		if len(event.Resource.PurchaseUnits) > 0 {
			unit := event.Resource.PurchaseUnits[0]
			approved.InvoiceID = unit.CustomID
			if approved.InvoiceID == "" {
				approved.InvoiceID = unit.ReferenceID
			}
		}
		return approved, nil
	case EventCaptureCompleted:
		if event.Resource.ID == "" {
			return nil, fmt.Errorf("capture completed event has no capture id")
		}
		return &CaptureCompletedEvent{
			ID:             event.ID,
			CaptureID:      event.Resource.ID,
			InvoiceID:      event.Resource.CustomID,
			RelatedOrderID: event.Resource.SupplementaryData.RelatedIDs.OrderID,
			Amount:         event.Resource.Amount,
		}, nil
	default:
		return &UnhandledEvent{ID: event.ID, EventType: event.EventType}, nil
	}
}
