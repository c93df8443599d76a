package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/peptide-shop/models"
	"github.com/yourusername/peptide-shop/notify"
	"github.com/yourusername/peptide-shop/payment"
	"gorm.io/gorm"
)

// GormFinalizer marks the order paid and writes the settlement record. The
// completion trigger already guarantees a single call per session; the status
// check here makes the hand-off idempotent on this side as well.
type GormFinalizer struct {
	db       *gorm.DB
	notifier notify.Notifier
}

func NewGormFinalizer(db *gorm.DB, notifier notify.Notifier) *GormFinalizer {
	return &GormFinalizer{db: db, notifier: notifier}
}

func (f *GormFinalizer) CompleteOrder(ctx context.Context, orderID uint, completion *payment.Completion) error {
	var order models.Order

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return fmt.Errorf("order %d not found: %w", orderID, err)
		}
		if order.Status == models.OrderStatusPaid {
			return nil
		}

		now := time.Now()
		order.Status = models.OrderStatusPaid
		order.PaidAt = &now
		order.SettledTxHash = completion.TransactionHash
		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to update order %d: %w", orderID, err)
		}

		record := models.CompletionRecord{
			OrderID:         order.ID,
			TransactionHash: completion.TransactionHash,
			SettledAmount:   completion.SettledAmount,
			Currency:        completion.Currency,
			Confirmations:   completion.Confirmations,
			SettledAt:       completion.SettledAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create completion record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return f.notifier.SendOrderConfirmation(ctx, &order)
}
