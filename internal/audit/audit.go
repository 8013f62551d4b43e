// Package audit logs the webhook reconciliation checkpoints: event received,
// signature result, capture result, fee result, payment result.
package audit

import (
	"context"
	"log/slog"
)

type Log struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) EventReceived(ctx context.Context, size int) {
	l.logger.InfoContext(ctx, "webhook event received", "bytes", size)
}

func (l *Log) SignatureResult(ctx context.Context, ok bool, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "webhook signature verification errored", "error", err)
		return
	}
	if !ok {
		l.logger.WarnContext(ctx, "webhook signature verification failed")
		return
	}
	l.logger.InfoContext(ctx, "webhook signature verified")
}

func (l *Log) EventClassified(ctx context.Context, eventID, eventType string) {
	l.logger.InfoContext(ctx, "webhook event classified", "event_id", eventID, "event_type", eventType)
}

func (l *Log) EventDuplicate(ctx context.Context, eventID string) {
	l.logger.InfoContext(ctx, "webhook event already processed, ignoring", "event_id", eventID)
}

func (l *Log) EventUnhandled(ctx context.Context, eventID, eventType string) {
	l.logger.InfoContext(ctx, "ignoring unhandled webhook event type", "event_id", eventID, "event_type", eventType)
}

func (l *Log) CaptureResult(ctx context.Context, orderID, captureID string, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "order capture failed", "order_id", orderID, "error", err)
		return
	}
	l.logger.InfoContext(ctx, "order captured", "order_id", orderID, "capture_id", captureID)
}

func (l *Log) FeeResult(ctx context.Context, invoiceID uint, amount string, err error) {
	if err != nil {
		// payment still proceeds, but the discrepancy must be visible
		l.logger.ErrorContext(ctx, "fee line item not added, payment recorded without fee item",
			"invoice_id", invoiceID, "fee_amount", amount, "error", err)
		return
	}
	l.logger.InfoContext(ctx, "fee line item applied", "invoice_id", invoiceID, "fee_amount", amount)
}

func (l *Log) DuplicateTransaction(ctx context.Context, transactionID string) {
	l.logger.InfoContext(ctx, "transaction already recorded, skipping", "transaction_id", transactionID)
}

func (l *Log) PaymentResult(ctx context.Context, invoiceID uint, transactionID, amount string, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "payment posting failed",
			"invoice_id", invoiceID, "transaction_id", transactionID, "error", err)
		return
	}
	l.logger.InfoContext(ctx, "payment posted",
		"invoice_id", invoiceID, "transaction_id", transactionID, "amount", amount)
}
