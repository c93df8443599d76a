package models

import (
	"time"

	"gorm.io/gorm"
)

// Account roles. Storefront signups are customers; admin accounts are
// provisioned out of band for back-office access.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	PasswordHash    string         `gorm:"size:255;not null" json:"-"`
	Role            string         `gorm:"size:20;default:'customer'" json:"role"` // admin, customer
	Country         string         `gorm:"size:2" json:"country"`                  // ISO country code
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	DefaultCurrency string         `gorm:"size:10;default:'USDC'" json:"default_currency"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}
