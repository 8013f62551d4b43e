package service

import (
	"context"
	"fmt"
	"strconv"

	"paypal-billing-gateway/internal/billing"
	"paypal-billing-gateway/internal/dto"
	"paypal-billing-gateway/internal/model"
	"paypal-billing-gateway/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceService interface {
	Create(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Get(ctx context.Context, rawID string) (*dto.InvoiceResponse, error)
}

type invoiceServiceImpl struct {
	db          *gorm.DB
	invoiceRepo repository.InvoiceRepository
}

func NewInvoiceService(db *gorm.DB, invoiceRepo repository.InvoiceRepository) InvoiceService {
	return &invoiceServiceImpl{
		db:          db,
		invoiceRepo: invoiceRepo,
	}
}

func (s *invoiceServiceImpl) Create(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if req.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}

	items := make([]model.InvoiceItem, len(req.Items))
	for i, item := range req.Items {
		amount, err := decimal.NewFromString(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("item %d has invalid amount %q", i, item.Amount)
		}
		items[i] = model.InvoiceItem{
			Description: item.Description,
			Amount:      amount,
			Taxed:       item.Taxed,
		}
	}

	invoice := &model.Invoice{
		Currency: req.Currency,
		Status:   model.InvoiceStatusUnpaid,
		Gateway:  billing.GatewayName,
		Items:    items,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.invoiceRepo.Create(ctx, tx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("store invoice in db: %w", err)
	}

	return toInvoiceResponse(invoice), nil
}

func (s *invoiceServiceImpl) Get(ctx context.Context, rawID string) (*dto.InvoiceResponse, error) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id %q", rawID)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, uint(id))
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}

	return toInvoiceResponse(invoice), nil
}

func toInvoiceResponse(invoice *model.Invoice) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:       invoice.ID,
		Currency: invoice.Currency,
		Status:   invoice.Status,
		Items:    make([]*dto.InvoiceItemResponse, len(invoice.Items)),
	}

	total := decimal.Zero
	for i, item := range invoice.Items {
		resp.Items[i] = &dto.InvoiceItemResponse{
			Description: item.Description,
			Amount:      item.Amount.StringFixed(2),
			Taxed:       item.Taxed,
		}
		total = total.Add(item.Amount)
	}
	resp.Total = total.StringFixed(2)

	return resp
}
