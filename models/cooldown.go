package models

import (
	"time"
)

// CooldownEntry is the durable audit row behind the resend throttle. The
// authoritative admission check happens in the cooldown store (atomic per
// key); this row records the last allowed fire for reporting and retention.
type CooldownEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Key         string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	LastFiredAt time.Time `gorm:"not null" json:"last_fired_at"`
}

// TableName overrides the table name
func (CooldownEntry) TableName() string {
	return "cooldown_entries"
}
