package models

import (
	"time"
)

// Tournament is a time-boxed, capacity-bounded competition with a fixed
// prize pool funded by registration fees. The roster grows monotonically
// during the signup window and is never trimmed.
type Tournament struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	PrizePool   float64   `json:"prize_pool" gorm:"not null"`
	MaxPlayers  int       `json:"max_players" gorm:"not null"`
	SignupStart time.Time `json:"signup_start" gorm:"not null"`
	SignupEnd   time.Time `json:"signup_end" gorm:"not null"`
	PlayStart   time.Time `json:"play_start" gorm:"not null"`
	PlayEnd     time.Time `json:"play_end" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	CreatedBy   string    `json:"created_by,omitempty"` // admin authority that created it

	// Relationships
	Players []TournamentPlayer `json:"players,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated fields (not stored in DB)
	PlayerCount    int64 `json:"player_count,omitempty" gorm:"-"`
	AvailableSlots int64 `json:"available_slots,omitempty" gorm:"-"`
}

// TournamentPlayer is one roster entry, created when the registration fee
// clears into escrow. Seat preserves registration order.
type TournamentPlayer struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;uniqueIndex:idx_tournament_account"`
	AccountID    string    `json:"account_id" gorm:"not null;uniqueIndex:idx_tournament_account"`
	Seat         int       `json:"seat" gorm:"not null"`
	FeePaid      float64   `json:"fee_paid" gorm:"not null"` // tournament fee at registration time
	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
}
