package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompletionRecord is the settlement record written when a payment session
// reaches its confirmed state. Exactly one row exists per confirmed session;
// the row is never updated after creation.
type CompletionRecord struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	OrderID         uint            `gorm:"not null;index" json:"order_id"`
	Order           Order           `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	TransactionHash string          `gorm:"uniqueIndex;size:128;not null" json:"transaction_hash"`
	SettledAmount   decimal.Decimal `gorm:"type:decimal(30,10);not null" json:"settled_amount"`
	Currency        string          `gorm:"size:10;not null" json:"currency"`
	Confirmations   int             `gorm:"not null" json:"confirmations"`
	SettledAt       time.Time       `gorm:"not null" json:"settled_at"`
}

// TableName overrides the table name
func (CompletionRecord) TableName() string {
	return "completion_records"
}
