package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCancelled      = "cancelled"
)

type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
	CustomerID    uint            `gorm:"not null" json:"customer_id"`
	OrderNo       string          `gorm:"uniqueIndex;size:50;not null" json:"order_no"`
	Total         decimal.Decimal `gorm:"type:decimal(30,10);not null" json:"total"`
	Currency      string          `gorm:"size:10;not null" json:"currency"` // BTC, ETH, USDT, USDC, XLM
	Status        string          `gorm:"size:20;default:'pending_payment'" json:"status"`
	PaidAt        *time.Time      `json:"paid_at"`
	SettledTxHash string          `gorm:"size:128" json:"settled_tx_hash"`
	Email         string          `gorm:"size:255" json:"email"`
	Notes         string          `gorm:"type:text" json:"notes"`
}

// TableName overrides the table name
func (Order) TableName() string {
	return "orders"
}
