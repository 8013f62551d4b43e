// Package billing abstracts the invoice store the gateway mutates: invoice
// reads, fee line items, and idempotency-guarded payment posting.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"paypal-billing-gateway/internal/fee"
	"paypal-billing-gateway/internal/model"
	"paypal-billing-gateway/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GatewayName is the payment method identifier invoices must carry to be
// payable through this module.
const GatewayName = "paypal"

// feeMarkers are the description substrings that identify an existing fee
// line item. Both spellings have been used historically, so both are scanned.
var feeMarkers = []string{
	"PayPal Processing Fee",
	"PayPal Payment Gateway Fee",
}

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrWrongGateway         = errors.New("invoice does not belong to this gateway")
	ErrDuplicateTransaction = errors.New("transaction already processed")
)

type LineItem struct {
	Description string
	Amount      decimal.Decimal
	Taxed       bool
}

type InvoiceDetails struct {
	ID       uint
	Currency string
	Status   string
	Total    decimal.Decimal
	Items    []LineItem
}

// OriginalTotal is the invoice total with any previously added fee line
// items excluded. Fee computation must use this base so a redelivered event
// never compounds a fee on top of an earlier fee.
func (d *InvoiceDetails) OriginalTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		if HasFeeMarker(item.Description) {
			continue
		}
		total = total.Add(item.Amount)
	}
	return total
}

type Gateway interface {
	GetInvoice(ctx context.Context, id uint) (*InvoiceDetails, error)
	ValidateInvoiceID(ctx context.Context, rawID string) (uint, error)
	AddFeeLineItem(ctx context.Context, invoiceID uint, feeAmount, percent, fixed decimal.Decimal, currency string) error
	RejectIfDuplicateTransaction(ctx context.Context, transactionID string) error
	PostPayment(ctx context.Context, invoiceID uint, transactionID string, amount, gatewayFee decimal.Decimal) error
}

type gatewayImpl struct {
	db          *gorm.DB
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
}

func NewGateway(
	db *gorm.DB,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
) Gateway {
	return &gatewayImpl{
		db:          db,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
	}
}

func (g *gatewayImpl) GetInvoice(ctx context.Context, id uint) (*InvoiceDetails, error) {
	invoice, err := g.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}

	details := &InvoiceDetails{
		ID:       invoice.ID,
		Currency: invoice.Currency,
		Status:   invoice.Status,
		Total:    decimal.Zero,
		Items:    make([]LineItem, len(invoice.Items)),
	}
	for i, item := range invoice.Items {
		details.Items[i] = LineItem{
			Description: item.Description,
			Amount:      item.Amount,
			Taxed:       item.Taxed,
		}
		details.Total = details.Total.Add(item.Amount)
	}

	return details, nil
}

// ValidateInvoiceID checks that the referenced invoice exists and is assigned
// to this gateway before any mutation runs against it.
func (g *gatewayImpl) ValidateInvoiceID(ctx context.Context, rawID string) (uint, error) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a valid invoice id", ErrInvoiceNotFound, rawID)
	}

	invoice, err := g.invoiceRepo.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %d", ErrInvoiceNotFound, id)
		}
		return 0, fmt.Errorf("find invoice: %w", err)
	}

	if invoice.Gateway != GatewayName {
		return 0, fmt.Errorf("%w: invoice %d uses %s", ErrWrongGateway, id, invoice.Gateway)
	}

	return invoice.ID, nil
}

// AddFeeLineItem appends the processing fee as an untaxed line item. It is
// idempotent: the invoice's items are re-read and scanned for the fee markers
// first, so a redelivered webhook never inserts a second fee.
func (g *gatewayImpl) AddFeeLineItem(ctx context.Context, invoiceID uint, feeAmount, percent, fixed decimal.Decimal, currency string) error {
	if feeAmount.LessThanOrEqual(decimal.Zero) {
		// no fee to add
		return nil
	}

	invoice, err := g.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("re-read invoice items: %w", err)
	}

	for _, item := range invoice.Items {
		if HasFeeMarker(item.Description) {
			// fee already on the invoice
			return nil
		}
	}

	err = g.invoiceRepo.AddItem(ctx, &model.InvoiceItem{
		InvoiceID:   invoiceID,
		Description: fee.Description(percent, fixed, currency),
		Amount:      feeAmount,
		Taxed:       false,
	})
	if err != nil {
		return fmt.Errorf("add fee line item: %w", err)
	}

	return nil
}

func (g *gatewayImpl) RejectIfDuplicateTransaction(ctx context.Context, transactionID string) error {
	exists, err := g.paymentRepo.ExistsByTransactionID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("check duplicate transaction: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, transactionID)
	}

	return nil
}

// PostPayment is the terminal invoice-mutating write. The unique index on the
// transaction id makes a concurrent redelivery lose the race instead of
// double-posting.
func (g *gatewayImpl) PostPayment(ctx context.Context, invoiceID uint, transactionID string, amount, gatewayFee decimal.Decimal) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := g.paymentRepo.Create(ctx, tx, &model.Payment{
			InvoiceID:     invoiceID,
			TransactionID: transactionID,
			Amount:        amount,
			GatewayFee:    gatewayFee,
			Gateway:       GatewayName,
		})
		if err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		paid, err := g.paymentRepo.SumByInvoiceID(ctx, tx, invoiceID)
		if err != nil {
			return fmt.Errorf("sum invoice payments: %w", err)
		}

		var invoice model.Invoice
		if err := tx.WithContext(ctx).Preload("Items").First(&invoice, invoiceID).Error; err != nil {
			return fmt.Errorf("find invoice: %w", err)
		}

		total := decimal.Zero
		for _, item := range invoice.Items {
			total = total.Add(item.Amount)
		}

		status := model.InvoiceStatusPartiallyPaid
		if paid.GreaterThanOrEqual(total) {
			status = model.InvoiceStatusPaid
		}

		return g.invoiceRepo.UpdateStatus(ctx, tx, invoiceID, status)
	})
}

// HasFeeMarker reports whether a line-item description identifies a
// previously added processing-fee item.
func HasFeeMarker(description string) bool {
	for _, marker := range feeMarkers {
		if strings.Contains(description, marker) {
			return true
		}
	}
	return false
}
