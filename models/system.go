package models

import (
	"time"
)

// SystemState is the single-row bootstrap guard. The owner-scoped bootstrap
// call flips Initialized exactly once per deployment; every mutating
// operation checks it first.
type SystemState struct {
	ID              uint       `json:"-" gorm:"primaryKey"` // always 1
	Initialized     bool       `json:"initialized" gorm:"not null;default:false"`
	EscrowAccountID string     `json:"escrow_account_id"`
	BootstrappedBy  string     `json:"bootstrapped_by,omitempty"`
	BootstrappedAt  *time.Time `json:"bootstrapped_at,omitempty"`
}
