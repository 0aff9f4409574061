package models

import (
	"time"
)

// AccountCredential caches the authority registered for an account so
// ownership checks don't hit the external ledger on every call.
// Created on first authenticated interaction; rotated only by a caller who
// satisfies the *previous* authority; never deleted.
type AccountCredential struct {
	AccountID string    `json:"account_id" gorm:"primaryKey"`
	Authority string    `json:"-" gorm:"not null"` // opaque authority key, never serialized out
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
