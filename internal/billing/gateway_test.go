package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"paypal-billing-gateway/internal/model"
	"paypal-billing-gateway/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestGateway(t *testing.T) (Gateway, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// an in-memory sqlite db lives per connection
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&model.Invoice{}, &model.InvoiceItem{}, &model.Payment{}, &model.WebhookEvent{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gateway := NewGateway(db, repository.NewInvoiceRepository(db), repository.NewPaymentRepository(db))
	return gateway, db
}

func seedInvoice(t *testing.T, db *gorm.DB, gatewayName string, amounts ...string) uint {
	t.Helper()

	invoice := &model.Invoice{
		Currency: "USD",
		Status:   model.InvoiceStatusUnpaid,
		Gateway:  gatewayName,
	}
	for i, amount := range amounts {
		invoice.Items = append(invoice.Items, model.InvoiceItem{
			Description: fmt.Sprintf("Hosting plan %d", i+1),
			Amount:      dec(amount),
			Taxed:       true,
		})
	}
	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice.ID
}

func TestValidateInvoiceID(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	ours := seedInvoice(t, db, GatewayName, "100.00")
	theirs := seedInvoice(t, db, "stripe", "100.00")

	id, err := gateway.ValidateInvoiceID(ctx, fmt.Sprint(ours))
	if err != nil {
		t.Fatalf("ValidateInvoiceID: %v", err)
	}
	if id != ours {
		t.Errorf("id = %d, want %d", id, ours)
	}

	if _, err := gateway.ValidateInvoiceID(ctx, fmt.Sprint(theirs)); !errors.Is(err, ErrWrongGateway) {
		t.Errorf("err = %v, want ErrWrongGateway", err)
	}
	if _, err := gateway.ValidateInvoiceID(ctx, "999999"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("err = %v, want ErrInvoiceNotFound", err)
	}
	if _, err := gateway.ValidateInvoiceID(ctx, "not-a-number"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("err = %v, want ErrInvoiceNotFound", err)
	}
}

func TestGetInvoiceTotals(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "60.00", "40.00")

	invoice, err := gateway.GetInvoice(ctx, id)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if !invoice.Total.Equal(dec("100.00")) {
		t.Errorf("total = %s, want 100.00", invoice.Total)
	}
	if !invoice.OriginalTotal().Equal(dec("100.00")) {
		t.Errorf("original total = %s, want 100.00", invoice.OriginalTotal())
	}
}

func TestAddFeeLineItemIdempotent(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")
	percent, fixed := dec("5.95"), dec("0.30")

	if err := gateway.AddFeeLineItem(ctx, id, dec("6.25"), percent, fixed, "USD"); err != nil {
		t.Fatalf("first AddFeeLineItem: %v", err)
	}
	// a redelivered event attempts the same insert
	if err := gateway.AddFeeLineItem(ctx, id, dec("6.25"), percent, fixed, "USD"); err != nil {
		t.Fatalf("second AddFeeLineItem: %v", err)
	}

	invoice, err := gateway.GetInvoice(ctx, id)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if len(invoice.Items) != 2 {
		t.Fatalf("items = %d, want item + single fee", len(invoice.Items))
	}

	feeItem := invoice.Items[1]
	if feeItem.Description != "PayPal Processing Fee (5.95% + USD 0.3)" {
		t.Errorf("fee description = %q", feeItem.Description)
	}
	if feeItem.Taxed {
		t.Error("fee line item must be untaxed")
	}
	if !invoice.OriginalTotal().Equal(dec("100.00")) {
		t.Errorf("original total = %s, fee must not feed back into the base", invoice.OriginalTotal())
	}
}

func TestAddFeeLineItemRecognizesLegacyMarker(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")
	err := db.Create(&model.InvoiceItem{
		InvoiceID:   id,
		Description: "PayPal Payment Gateway Fee (5.95% + USD 0.3)",
		Amount:      dec("6.25"),
	}).Error
	if err != nil {
		t.Fatalf("seed legacy fee item: %v", err)
	}

	if err := gateway.AddFeeLineItem(ctx, id, dec("6.25"), dec("5.95"), dec("0.30"), "USD"); err != nil {
		t.Fatalf("AddFeeLineItem: %v", err)
	}

	invoice, _ := gateway.GetInvoice(ctx, id)
	if len(invoice.Items) != 2 {
		t.Errorf("items = %d, the legacy marker must suppress a second fee", len(invoice.Items))
	}
}

func TestAddFeeLineItemSkipsNonPositiveFee(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")
	if err := gateway.AddFeeLineItem(ctx, id, decimal.Zero, decimal.Zero, decimal.Zero, "USD"); err != nil {
		t.Fatalf("AddFeeLineItem: %v", err)
	}

	invoice, _ := gateway.GetInvoice(ctx, id)
	if len(invoice.Items) != 1 {
		t.Errorf("items = %d, zero fee must not add a line item", len(invoice.Items))
	}
}

func TestRejectIfDuplicateTransaction(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")

	if err := gateway.RejectIfDuplicateTransaction(ctx, "CAP-1"); err != nil {
		t.Fatalf("fresh transaction rejected: %v", err)
	}

	if err := gateway.PostPayment(ctx, id, "CAP-1", dec("100.00"), decimal.Zero); err != nil {
		t.Fatalf("PostPayment: %v", err)
	}

	if err := gateway.RejectIfDuplicateTransaction(ctx, "CAP-1"); !errors.Is(err, ErrDuplicateTransaction) {
		t.Errorf("err = %v, want ErrDuplicateTransaction", err)
	}
}

func TestPostPaymentMarksInvoicePaid(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")
	if err := gateway.AddFeeLineItem(ctx, id, dec("6.25"), dec("5.95"), dec("0.30"), "USD"); err != nil {
		t.Fatalf("AddFeeLineItem: %v", err)
	}

	if err := gateway.PostPayment(ctx, id, "CAP-9", dec("106.25"), decimal.Zero); err != nil {
		t.Fatalf("PostPayment: %v", err)
	}

	invoice, err := gateway.GetInvoice(ctx, id)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if invoice.Status != model.InvoiceStatusPaid {
		t.Errorf("status = %s, want PAID", invoice.Status)
	}

	var payment model.Payment
	if err := db.Where("transaction_id = ?", "CAP-9").First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if !payment.Amount.Equal(dec("106.25")) {
		t.Errorf("payment amount = %s", payment.Amount)
	}
	if !payment.GatewayFee.IsZero() {
		t.Errorf("gateway fee = %s, want 0", payment.GatewayFee)
	}
	if payment.Gateway != GatewayName {
		t.Errorf("payment gateway = %q", payment.Gateway)
	}
}

func TestPostPaymentPartial(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")

	if err := gateway.PostPayment(ctx, id, "CAP-1", dec("40.00"), decimal.Zero); err != nil {
		t.Fatalf("PostPayment: %v", err)
	}

	invoice, _ := gateway.GetInvoice(ctx, id)
	if invoice.Status != model.InvoiceStatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", invoice.Status)
	}

	if err := gateway.PostPayment(ctx, id, "CAP-2", dec("60.00"), decimal.Zero); err != nil {
		t.Fatalf("second PostPayment: %v", err)
	}

	invoice, _ = gateway.GetInvoice(ctx, id)
	if invoice.Status != model.InvoiceStatusPaid {
		t.Errorf("status = %s, want PAID after the balance settles", invoice.Status)
	}
}

func TestPostPaymentDuplicateTransactionIDFailsOnUniqueIndex(t *testing.T) {
	gateway, db := newTestGateway(t)
	ctx := context.Background()

	id := seedInvoice(t, db, GatewayName, "100.00")

	if err := gateway.PostPayment(ctx, id, "CAP-1", dec("100.00"), decimal.Zero); err != nil {
		t.Fatalf("PostPayment: %v", err)
	}
	if err := gateway.PostPayment(ctx, id, "CAP-1", dec("100.00"), decimal.Zero); err == nil {
		t.Fatal("reposting the same transaction id must fail")
	}

	var count int64
	db.Model(&model.Payment{}).Where("transaction_id = ?", "CAP-1").Count(&count)
	if count != 1 {
		t.Errorf("payments = %d, want 1", count)
	}
}

func TestHasFeeMarker(t *testing.T) {
	tests := []struct {
		description string
		want        bool
	}{
		{"PayPal Processing Fee (5.95% + USD 0.3)", true},
		{"PayPal Payment Gateway Fee (5.95% + USD 0.3)", true},
		{"Hosting plan", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasFeeMarker(tt.description); got != tt.want {
			t.Errorf("HasFeeMarker(%q) = %v, want %v", tt.description, got, tt.want)
		}
	}
}
