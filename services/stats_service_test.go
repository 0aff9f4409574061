package services

import (
	"testing"

	"wager-session-system/models"
)

func TestGetStatsUnknownAccount(t *testing.T) {
	e := newTestEngine(t)

	stats, err := e.Stats.getStats("nobody")
	if err != nil {
		t.Fatalf("getStats failed: %v", err)
	}
	if stats.GamesPlayed != 0 || stats.Wins != 0 {
		t.Fatalf("stats = %d/%d for unknown account, want 0/0", stats.GamesPlayed, stats.Wins)
	}

	// Reads never materialize a row.
	var count int64
	e.DB.Model(&models.PlayerStats{}).Count(&count)
	if count != 0 {
		t.Fatalf("player_stats rows = %d after read, want 0", count)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	e := newTestEngine(t)

	seed := []models.PlayerStats{
		{AccountID: "alice", GamesPlayed: 10, Wins: 3},
		{AccountID: "bob", GamesPlayed: 4, Wins: 0},
		{AccountID: "carol", GamesPlayed: 8, Wins: 5},
		{AccountID: "dave", GamesPlayed: 6, Wins: 3},
	}
	for i := range seed {
		if err := e.DB.Create(&seed[i]).Error; err != nil {
			t.Fatalf("failed to seed stats: %v", err)
		}
	}

	entries, err := e.Stats.leaderboard()
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	// bob has no wins and is excluded; alice beats dave on the id tiebreak.
	want := []string{"carol", "alice", "dave"}
	if len(entries) != len(want) {
		t.Fatalf("leaderboard has %d entries, want %d", len(entries), len(want))
	}
	for i, account := range want {
		if entries[i].AccountID != account {
			t.Fatalf("entry %d = %s, want %s", i, entries[i].AccountID, account)
		}
	}
	if entries[0].Wins != 5 || entries[0].GamesPlayed != 8 {
		t.Fatalf("top entry = %d wins / %d played, want 5/8", entries[0].Wins, entries[0].GamesPlayed)
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	e := newTestEngine(t)

	entries, err := e.Stats.leaderboard()
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("leaderboard has %d entries on empty table, want 0", len(entries))
	}
}
