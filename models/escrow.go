package models

import (
	"time"
)

// Escrow journal directions.
const (
	TransferIn  = "in"  // fee collected into escrow
	TransferOut = "out" // payout disbursed from escrow
)

// Escrow journal reasons.
const (
	ReasonHouseFee      = "house_fee"
	ReasonPvpFee        = "pvp_fee"
	ReasonTournamentFee = "tournament_fee"
	ReasonPayout        = "payout"
)

// EscrowTransfer is one journal row per ledger movement touching the escrow
// account, written in the same transaction as the operation that caused it.
// The journal is the audit trail the reconciliation worker checks the real
// ledger balance against.
type EscrowTransfer struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Direction    string    `json:"direction" gorm:"not null;type:varchar(8)"`
	AccountID    string    `json:"account_id" gorm:"not null;index"` // counterparty
	Amount       float64   `json:"amount" gorm:"not null"`
	Reason       string    `json:"reason" gorm:"not null;type:varchar(32)"`
	SessionID    *string   `json:"session_id,omitempty" gorm:"index"`
	TournamentID *string   `json:"tournament_id,omitempty" gorm:"index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// EscrowCheckpoint mirrors the last reconciliation pass: the ledger balance
// of the escrow account vs the journal's net position. One row per escrow
// account, upserted by the reconciliation worker.
type EscrowCheckpoint struct {
	AccountID     string    `json:"account_id" gorm:"primaryKey"`
	LedgerBalance float64   `json:"ledger_balance" gorm:"not null"`
	JournalNet    float64   `json:"journal_net" gorm:"not null"`
	Drift         float64   `json:"drift" gorm:"not null"` // ledger - journal
	CheckedAt     time.Time `json:"checked_at" gorm:"not null"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
