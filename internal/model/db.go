package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusUnpaid        = "UNPAID"
	InvoiceStatusPaid          = "PAID"
	InvoiceStatusPartiallyPaid = "PARTIALLY_PAID"
)

type Invoice struct {
	ID        uint   `gorm:"primaryKey"`
	Currency  string `gorm:"size:8;not null"`
	Status    string `gorm:"size:32;index;not null"` // UNPAID, PAID, PARTIALLY_PAID
	Gateway   string `gorm:"size:32;index;not null"` // payment method assigned to the invoice
	Items     []InvoiceItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type InvoiceItem struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   uint            `gorm:"index;not null"`
	Description string          `gorm:"size:255;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null"`
	Taxed       bool            `gorm:"not null"`
	CreatedAt   time.Time
}

// Payment records a settled gateway transaction against an invoice. The
// unique index on TransactionID is the duplicate-transaction guard for
// redelivered webhooks.
type Payment struct {
	ID            uint            `gorm:"primaryKey"`
	InvoiceID     uint            `gorm:"index;not null"`
	TransactionID string          `gorm:"size:64;uniqueIndex;not null"` // paypal capture id
	Amount        decimal.Decimal `gorm:"type:numeric;not null"`
	GatewayFee    decimal.Decimal `gorm:"type:numeric;not null"`
	Gateway       string          `gorm:"size:32;not null"`
	CreatedAt     time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"` // paypal event id
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
