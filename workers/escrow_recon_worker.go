package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wager-session-system/models"
	"wager-session-system/services"
)

// EscrowReconClient compares the escrow account's real ledger balance with
// the journal's net position and records the result as a checkpoint row.
type EscrowReconClient struct {
	DB      *gorm.DB
	Ledger  services.Ledger
	Account string
}

func NewEscrowReconClient(db *gorm.DB, ledger services.Ledger, account string) *EscrowReconClient {
	return &EscrowReconClient{DB: db, Ledger: ledger, Account: account}
}

func (c *EscrowReconClient) checkOnce(ctx context.Context) (*models.EscrowCheckpoint, error) {
	balance, err := c.Ledger.GetBalance(ctx, c.Account)
	if err != nil {
		return nil, err
	}
	net, err := services.JournalNet(c.DB)
	if err != nil {
		return nil, err
	}

	checkpoint := models.EscrowCheckpoint{
		AccountID:     c.Account,
		LedgerBalance: balance,
		JournalNet:    net,
		Drift:         balance - net,
		CheckedAt:     time.Now().UTC(),
	}
	if err := c.DB.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ledger_balance",
				"journal_net",
				"drift",
				"checked_at",
			}),
		},
	).Create(&checkpoint).Error; err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// PollEscrow runs the reconciliation loop until ctx is cancelled. A ledger
// balance below the journal's net position means escrow cannot cover its
// outstanding obligations — that gets a loud log line, never an automatic
// correction.
func PollEscrow(ctx context.Context, client *EscrowReconClient, pollInterval time.Duration) {
	log.Println("Starting escrow reconciliation polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Escrow reconciliation stopped.")
			return
		case <-ticker.C:
			checkpoint, err := client.checkOnce(ctx)
			if err != nil {
				log.Printf("[ESCROW_RECON] check failed: %v", err)
				continue
			}
			if checkpoint.LedgerBalance < checkpoint.JournalNet {
				log.Printf("[ESCROW_RECON] ⚠️ escrow underfunded: ledger %.2f < journal net %.2f (drift %.2f)",
					checkpoint.LedgerBalance, checkpoint.JournalNet, checkpoint.Drift)
			} else {
				log.Printf("[ESCROW_RECON] ok: ledger %.2f, journal net %.2f", checkpoint.LedgerBalance, checkpoint.JournalNet)
			}
		}
	}
}
