package repository

import (
	"context"
	"paypal-billing-gateway/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)
	SumByInvoiceID(ctx context.Context, tx *gorm.DB, invoiceID uint) (decimal.Decimal, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{
		db: db,
	}
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error

	return count > 0, err
}

func (r *paymentRepoImpl) SumByInvoiceID(ctx context.Context, tx *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	var payments []*model.Payment
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Find(&payments).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.Amount)
	}

	return total, nil
}
