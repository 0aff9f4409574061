// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"wager-session-system/models"
	"wager-session-system/utils"
)

// settlementReport is the JSON document archived per completed session.
type settlementReport struct {
	SessionID    string     `json:"session_id"`
	Mode         string     `json:"mode"`
	Winner       string     `json:"winner"`
	TournamentID *string    `json:"tournament_id,omitempty"`
	Players      []string   `json:"players"`
	Payout       float64    `json:"payout"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// StartSettlementArchiver uploads a settlement report for each completed,
// not-yet-archived session to object storage. The archive is a convenience
// copy for auditors — settlement itself already happened inside recordWin.
func (s *SessionService) StartSettlementArchiver() {
	if !utils.ArchiveEnabled() {
		log.Println("[ARCHIVER] object storage not configured, settlement archiving disabled")
		return
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var sessions []models.GameSession
			err := s.DB.
				Preload("Players").
				Where("status = ? AND archived_at IS NULL", models.SessionCompleted).
				Limit(50).
				Find(&sessions).Error
			if err != nil {
				log.Printf("[ARCHIVER] DB error: %v", err)
				return
			}

			for _, session := range sessions {
				report := settlementReport{
					SessionID:    session.ID,
					Mode:         session.Mode,
					Winner:       session.Winner,
					TournamentID: session.TournamentID,
					CompletedAt:  session.CompletedAt,
				}
				for _, p := range session.Players {
					report.Players = append(report.Players, p.AccountID)
				}
				var payout models.EscrowTransfer
				if err := s.DB.
					Where("session_id = ? AND direction = ?", session.ID, models.TransferOut).
					First(&payout).Error; err == nil {
					report.Payout = payout.Amount
				}

				key := fmt.Sprintf("settlements/%s.json", session.ID)
				url, err := utils.UploadJSON(context.Background(), key, report)
				if err != nil {
					log.Printf("[ARCHIVER] failed to archive session %s: %v", session.ID, err)
					continue
				}
				now := time.Now()
				if err := s.DB.Model(&models.GameSession{}).
					Where("id = ?", session.ID).
					Updates(map[string]interface{}{
						"settlement_url": url,
						"archived_at":    &now,
					}).Error; err != nil {
					log.Printf("[ARCHIVER] failed to stamp session %s: %v", session.ID, err)
				} else {
					log.Printf("[ARCHIVER] archived settlement for %s", session.ID)
				}
			}
		}),
	)
}
