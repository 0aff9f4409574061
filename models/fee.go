package models

import (
	"time"
)

// Game modes — the three wager flavors the engine settles.
const (
	ModeHouse      = "house"
	ModePvp        = "pvp"
	ModeTournament = "tournament"
)

// KnownMode reports whether mode is one of the three supported game modes.
func KnownMode(mode string) bool {
	return mode == ModeHouse || mode == ModePvp || mode == ModeTournament
}

// FeeRecord holds the entry fee for one game mode. One row per mode,
// seeded at bootstrap and mutated only by admins. Amount must stay > 0.
type FeeRecord struct {
	Mode      string    `json:"mode" gorm:"primaryKey;type:varchar(16)"`
	Amount    float64   `json:"amount" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	UpdatedBy string    `json:"updated_by,omitempty"` // authority that last set the fee
}
