package models

import (
	"time"
)

// PlayerStats tracks per-account counters (denormalized for cheap reads).
// Created on first join with zero values, incremented alongside joins and
// win reports, never decremented or deleted.
type PlayerStats struct {
	AccountID   string    `json:"account_id" gorm:"primaryKey"`
	GamesPlayed int64     `json:"games_played" gorm:"not null;default:0"`
	Wins        int64     `json:"wins" gorm:"not null;default:0"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LeaderboardEntry is the read model returned by the leaderboard query:
// accounts with at least one win, wins descending.
type LeaderboardEntry struct {
	AccountID   string `json:"account_id"`
	Wins        int64  `json:"wins"`
	GamesPlayed int64  `json:"games_played"`
}
