// wager-session-system/services/stats_service.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"wager-session-system/models"
)

type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// getStats returns zero counters for unknown accounts and never creates a
// record on read.
func (s *StatsService) getStats(account string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := s.DB.First(&stats, "account_id = ?", account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PlayerStats{AccountID: account}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// leaderboard lists accounts with at least one win, wins descending. The
// account id tiebreak keeps the order stable; it is not a contract.
func (s *StatsService) leaderboard() ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	query := `
        SELECT
            account_id,
            wins,
            games_played
        FROM player_stats
        WHERE wins > 0
        ORDER BY wins DESC, account_id ASC
    `
	if err := s.DB.Raw(query).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// --- HTTP handlers ---

func (s *StatsService) GetStats(c *fiber.Ctx) error {
	stats, err := s.getStats(c.Params("account"))
	if err != nil {
		log.Printf("ERROR fetching stats for %s: %v", c.Params("account"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch stats"})
	}
	return c.JSON(stats)
}

func (s *StatsService) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := s.leaderboard()
	if err != nil {
		log.Printf("ERROR fetching leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	return c.JSON(entries)
}
