package models

import (
	"time"
)

// Session lifecycle. Only active → completed is ever produced; "cancelled"
// is reserved in the schema but no operation emits it today.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// GameSession records a single wagering match: participants, status and the
// declared winner. Game rules live elsewhere — the engine only settles money.
// A session is created by a join, completed exactly once by a win report and
// immutable afterwards.
type GameSession struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Mode         string     `json:"mode" gorm:"not null;index;type:varchar(16)"`
	Status       string     `json:"status" gorm:"not null;default:'active';index;type:varchar(16)"`
	Winner       string     `json:"winner,omitempty"`
	TournamentID *string    `json:"tournament_id,omitempty" gorm:"index"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// Settlement archive (set by the archiver job, not part of settlement itself)
	SettlementURL string     `json:"settlement_url,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty" gorm:"index"`

	// Relationships
	Players []SessionPlayer `json:"players,omitempty" gorm:"foreignKey:SessionID"`
}

// HasPlayer reports whether account holds a seat in the session.
// Players must be preloaded.
func (s *GameSession) HasPlayer(account string) bool {
	for _, p := range s.Players {
		if p.AccountID == account {
			return true
		}
	}
	return false
}

// SessionPlayer is one seat in a session, in join order.
type SessionPlayer struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"not null;uniqueIndex:idx_session_account"`
	AccountID string    `json:"account_id" gorm:"not null;uniqueIndex:idx_session_account;index"`
	Seat      int       `json:"seat" gorm:"not null"`
	JoinedAt  time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
