package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"paypal-billing-gateway/internal/audit"
	"paypal-billing-gateway/internal/billing"
	"paypal-billing-gateway/internal/client"
	"paypal-billing-gateway/internal/dto"
	"paypal-billing-gateway/internal/fee"
	"paypal-billing-gateway/internal/model"
	"paypal-billing-gateway/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	ReturnStatusWaiting   = "waitingconfirmation"
	ReturnStatusCancelled = "cancelled"
	ReturnStatusSuccess   = "success"
)

type PaypalService interface {
	CreatePaymentLink(ctx context.Context, rawInvoiceID string) (*dto.PayResponse, error)
	ResolveReturn(ctx context.Context, params *ReturnParams) string
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookOutcome, error)
}

// ReturnParams is the browser-return query state. The redirect it resolves to
// only drives the presentation layer; settlement happens via the webhook.
type ReturnParams struct {
	InvoiceID string
	Token     string
	PayerID   string
	Status    string
	Cancel    bool
}

type WebhookOutcome struct {
	Message    string
	Duplicate  bool
	FeeApplied bool
	Degraded   bool
}

type paypalServiceImpl struct {
	paypalClient     client.PaypalClient
	gateway          billing.Gateway
	webhookEventRepo repository.WebhookEventRepository
	audit            *audit.Log
	baseURL          string
	systemURL        string
	feePercent       decimal.Decimal
	feeFixed         decimal.Decimal
}

func NewPaypalService(
	paypalClient client.PaypalClient,
	gateway billing.Gateway,
	webhookEventRepo repository.WebhookEventRepository,
	auditLog *audit.Log,
	baseURL string,
	systemURL string,
	feePercent decimal.Decimal,
	feeFixed decimal.Decimal,
) PaypalService {
	return &paypalServiceImpl{
		paypalClient:     paypalClient,
		gateway:          gateway,
		webhookEventRepo: webhookEventRepo,
		audit:            auditLog,
		baseURL:          baseURL,
		systemURL:        systemURL,
		feePercent:       feePercent,
		feeFixed:         feeFixed,
	}
}

func (s *paypalServiceImpl) CreatePaymentLink(ctx context.Context, rawInvoiceID string) (*dto.PayResponse, error) {
	invoiceID, err := s.gateway.ValidateInvoiceID(ctx, rawInvoiceID)
	if err != nil {
		return nil, fmt.Errorf("validate invoice id: %w", err)
	}

	invoice, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyPaid, invoiceID)
	}

	base := invoice.OriginalTotal()
	feeAmount := fee.Compute(base, s.feePercent, s.feeFixed)
	total := base
	if feeAmount.GreaterThan(decimal.Zero) {
		total = total.Add(feeAmount)
	}

	resp, err := s.paypalClient.CreateOrder(ctx, &client.CreateOrderRequest{
		InvoiceID:   strconv.FormatUint(uint64(invoiceID), 10),
		Description: fmt.Sprintf("Invoice #%d", invoiceID),
		Value:       total.StringFixed(2),
		Currency:    invoice.Currency,
		ReturnURL:   fmt.Sprintf("%s/api/paypal/return?success=1&invoiceid=%d", s.baseURL, invoiceID),
		CancelURL:   fmt.Sprintf("%s/api/paypal/return?cancel=1&invoiceid=%d", s.baseURL, invoiceID),
	})
	if err != nil {
		return nil, fmt.Errorf("paypal api create order: %w", err)
	}

	return &dto.PayResponse{
		OrderID:          resp.OrderID,
		OrderApprovalURL: resp.ApproveURL,
		Total:            total.StringFixed(2),
		Fee:              feeAmount.StringFixed(2),
	}, nil
}

// ResolveReturn maps the browser-return query state to an invoice-view URL
// tagged with a status. It never posts a payment: the redirect can arrive
// before, after, or never relative to the webhook.
func (s *paypalServiceImpl) ResolveReturn(ctx context.Context, params *ReturnParams) string {
	if params.InvoiceID == "" {
		return s.systemURL + "/"
	}

	values := url.Values{}
	values.Set("id", params.InvoiceID)
	values.Set("gateway", billing.GatewayName)

	if params.Cancel || params.Status == ReturnStatusCancelled {
		values.Set("status", ReturnStatusCancelled)
		return s.viewInvoiceURL(values)
	}

	// the webhook may have settled already; show success instead of waiting
	if invoiceID, err := s.gateway.ValidateInvoiceID(ctx, params.InvoiceID); err == nil {
		if invoice, err := s.gateway.GetInvoice(ctx, invoiceID); err == nil && invoice.Status == model.InvoiceStatusPaid {
			values.Set("status", ReturnStatusSuccess)
			return s.viewInvoiceURL(values)
		}
	}

	if params.Token != "" && params.PayerID != "" {
		values.Set("status", ReturnStatusWaiting)
		values.Set("token", params.Token)
		values.Set("PayerID", params.PayerID)
		return s.viewInvoiceURL(values)
	}

	return s.viewInvoiceURL(values)
}

func (s *paypalServiceImpl) viewInvoiceURL(values url.Values) string {
	return s.systemURL + "/viewinvoice?" + values.Encode()
}

func (s *paypalServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookOutcome, error) {
	s.audit.EventReceived(ctx, len(body))

	// sole authentication of the webhook route; nothing runs before it
	verified, err := s.paypalClient.VerifyWebhookSignature(ctx, headers, body)
	if err != nil {
		s.audit.SignatureResult(ctx, false, err)
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	s.audit.SignatureResult(ctx, verified, nil)
	if !verified {
		return nil, ErrSignatureInvalid
	}

	event, err := model.ClassifyEvent(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}

	if eventID := event.EventID(); eventID != "" {
		exists, existsErr := s.webhookEventRepo.Exists(ctx, eventID)
		if existsErr == nil && exists {
			s.audit.EventDuplicate(ctx, eventID)
			return &WebhookOutcome{Message: "Event already processed.", Duplicate: true}, nil
		}
	}

	var (
		outcome   *WebhookOutcome
		eventType string
	)
	switch ev := event.(type) {
	case *model.OrderApprovedEvent:
		eventType = model.EventOrderApproved
		s.audit.EventClassified(ctx, ev.ID, eventType)
		outcome, err = s.handleOrderApproved(ctx, ev)
	case *model.CaptureCompletedEvent:
		eventType = model.EventCaptureCompleted
		s.audit.EventClassified(ctx, ev.ID, eventType)
		outcome, err = s.handleCaptureCompleted(ctx, ev)
	case *model.UnhandledEvent:
		eventType = ev.EventType
		s.audit.EventUnhandled(ctx, ev.ID, ev.EventType)
		outcome = &WebhookOutcome{Message: "OK"}
	}
	if err != nil {
		return nil, err
	}

	// best effort; the transaction guard is the real duplicate defense
	if eventID := event.EventID(); eventID != "" {
		_ = s.webhookEventRepo.MarkProcessed(ctx, eventID, eventType)
	}

	return outcome, nil
}

func (s *paypalServiceImpl) handleOrderApproved(ctx context.Context, event *model.OrderApprovedEvent) (*WebhookOutcome, error) {
	if event.InvoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id not found in order data", ErrData)
	}

	invoiceID, err := s.gateway.ValidateInvoiceID(ctx, event.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}
	invoice, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}

	base := invoice.OriginalTotal()
	feeAmount := fee.Compute(base, s.feePercent, s.feeFixed)

	// capture before any invoice mutation; a failed capture leaves the order
	// capturable on a future redelivery
	capture, err := s.paypalClient.CaptureOrder(ctx, event.OrderID)
	if err != nil {
		s.audit.CaptureResult(ctx, event.OrderID, "", err)
		return nil, fmt.Errorf("capture order: %w", err)
	}
	s.audit.CaptureResult(ctx, event.OrderID, capture.CaptureID, nil)

	return s.settle(ctx, invoice, base, capture.CaptureID, capture.Value, capture.Currency, feeAmount,
		"Payment captured, PayPal fee added to invoice, and invoice marked as paid.")
}

func (s *paypalServiceImpl) handleCaptureCompleted(ctx context.Context, event *model.CaptureCompletedEvent) (*WebhookOutcome, error) {
	rawInvoiceID := event.InvoiceID
	if rawInvoiceID == "" && event.RelatedOrderID != "" {
		// capture events reference the order only by id; one extra hop
		// recovers the invoice id from the order's purchase unit
		order, err := s.paypalClient.GetOrder(ctx, event.RelatedOrderID)
		if err != nil {
			return nil, fmt.Errorf("get order for invoice id: %w", err)
		}
		rawInvoiceID = order.CustomID
		if rawInvoiceID == "" {
			rawInvoiceID = order.ReferenceID
		}
	}
	if rawInvoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id not found in payment data", ErrData)
	}

	invoiceID, err := s.gateway.ValidateInvoiceID(ctx, rawInvoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}
	invoice, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}

	base := invoice.OriginalTotal()
	feeAmount := fee.Compute(base, s.feePercent, s.feeFixed)

	// paypal already captured; no capture call on this path
	return s.settle(ctx, invoice, base, event.CaptureID, event.Amount.Value, event.Amount.Currency, feeAmount,
		"Payment completed, PayPal fee added to invoice, and invoice marked as paid.")
}

// settle runs the shared tail of both paths: duplicate-transaction guard,
// best-effort fee line item, then the terminal payment post.
func (s *paypalServiceImpl) settle(
	ctx context.Context,
	invoice *billing.InvoiceDetails,
	base decimal.Decimal,
	captureID, capturedValue, capturedCurrency string,
	feeAmount decimal.Decimal,
	message string,
) (*WebhookOutcome, error) {
	if err := s.gateway.RejectIfDuplicateTransaction(ctx, captureID); err != nil {
		if errors.Is(err, billing.ErrDuplicateTransaction) {
			s.audit.DuplicateTransaction(ctx, captureID)
			return &WebhookOutcome{Message: "Transaction already processed.", Duplicate: true}, nil
		}
		return nil, fmt.Errorf("duplicate transaction check: %w", err)
	}

	feeErr := s.gateway.AddFeeLineItem(ctx, invoice.ID, feeAmount, s.feePercent, s.feeFixed, invoice.Currency)
	s.audit.FeeResult(ctx, invoice.ID, feeAmount.StringFixed(2), feeErr)

	// post exactly what paypal settled whenever the currencies line up, so
	// billing never records more than was actually received
	amount := base
	if feeAmount.GreaterThan(decimal.Zero) {
		amount = amount.Add(feeAmount)
	}
	if capturedCurrency == invoice.Currency {
		if parsed, parseErr := decimal.NewFromString(capturedValue); parseErr == nil {
			amount = parsed
		}
	}

	err := s.gateway.PostPayment(ctx, invoice.ID, captureID, amount, decimal.Zero)
	s.audit.PaymentResult(ctx, invoice.ID, captureID, amount.StringFixed(2), err)
	if err != nil {
		return nil, fmt.Errorf("post payment: %w", err)
	}

	outcome := &WebhookOutcome{
		Message:    message,
		FeeApplied: feeErr == nil && feeAmount.GreaterThan(decimal.Zero),
	}
	if feeErr != nil {
		outcome.Degraded = true
		outcome.Message = "Payment recorded; PayPal fee line item could not be added."
	}

	return outcome, nil
}
