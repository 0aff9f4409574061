// wager-session-system/services/escrow.go
package services

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wager-session-system/models"
)

// bankGrant is the transient bank-transfer authorization. Only code in this
// package can mint one, and the only minting site is the payout path — so no
// handler, worker or external caller can ever move escrow funds. A grant
// covers exactly one disbursement and dies with the call.
type bankGrant struct {
	to     string
	amount float64
}

// EscrowService owns the custodial pooled account: fee collection in, payouts
// out, the journal rows for both, and the one-time deployment bootstrap.
type EscrowService struct {
	DB        *gorm.DB
	Ledger    Ledger
	Auth      *Authorizer
	AccountID string
}

func NewEscrowService(db *gorm.DB, ledger Ledger, auth *Authorizer) *EscrowService {
	return &EscrowService{
		DB:        db,
		Ledger:    ledger,
		Auth:      auth,
		AccountID: EscrowAccountID(),
	}
}

// EscrowAccountID derives the custodial account identity deterministically
// from the deployment name, so external parties can pre-fund or verify it
// without ever holding its authority.
func EscrowAccountID() string {
	name := os.Getenv("DEPLOYMENT_NAME")
	if name == "" {
		name = "default"
	}
	return "escrow-" + slug.Make(name)
}

// lockForUpdate takes a row lock on the following query. sqlite (the test
// database) has no FOR UPDATE; its write transactions are serialized, so the
// transaction itself is the lock there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// requireInitialized gates every mutating operation on the bootstrap flag.
func requireInitialized(tx *gorm.DB) error {
	var state models.SystemState
	if err := tx.First(&state, "id = ?", 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conflictErr("deployment not bootstrapped")
		}
		return err
	}
	if !state.Initialized {
		return conflictErr("deployment not bootstrapped")
	}
	return nil
}

// BootstrapInput seeds the three fee records. All must be positive.
type BootstrapInput struct {
	HouseFee      float64 `json:"house_fee"`
	PvpFee        float64 `json:"pvp_fee"`
	TournamentFee float64 `json:"tournament_fee"`
}

// bootstrap initializes the deployment exactly once: records the escrow
// account, seeds the fee vault and flips the initialized flag. Re-invocation
// fails with a state conflict so a misconfigured second deploy is visible.
func (s *EscrowService) bootstrap(auth AuthContext, in BootstrapInput) (*models.SystemState, error) {
	if err := s.Auth.RequireOwner(auth); err != nil {
		return nil, err
	}
	fees := map[string]float64{
		models.ModeHouse:      in.HouseFee,
		models.ModePvp:        in.PvpFee,
		models.ModeTournament: in.TournamentFee,
	}
	for mode, amount := range fees {
		if amount <= 0 {
			return nil, validationErr("%s fee must be > 0", mode)
		}
	}

	now := time.Now()
	state := models.SystemState{
		ID:              1,
		Initialized:     true,
		EscrowAccountID: s.AccountID,
		BootstrappedBy:  auth.Caller,
		BootstrappedAt:  &now,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.SystemState
		err := tx.First(&existing, "id = ?", 1).Error
		if err == nil && existing.Initialized {
			return conflictErr("deployment already bootstrapped")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Save(&state).Error; err != nil {
			return err
		}
		for mode, amount := range fees {
			rec := models.FeeRecord{Mode: mode, Amount: amount, UpdatedBy: auth.Caller}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[ESCROW] deployment bootstrapped, escrow account %s", s.AccountID)
	return &state, nil
}

// collectFee debits amount from the player into escrow through the external
// ledger and journals it inside tx. A ledger failure fails the surrounding
// transaction, so the business record the fee paid for is never persisted.
func (s *EscrowService) collectFee(ctx context.Context, tx *gorm.DB, from string, amount float64, reason string, sessionID, tournamentID *string) error {
	if err := s.Ledger.Transfer(ctx, from, s.AccountID, amount); err != nil {
		return conflictErr("fee debit failed: %v", err)
	}
	journal := models.EscrowTransfer{
		ID:           uuid.NewString(),
		Direction:    models.TransferIn,
		AccountID:    from,
		Amount:       amount,
		Reason:       reason,
		SessionID:    sessionID,
		TournamentID: tournamentID,
	}
	return tx.Create(&journal).Error
}

// payOut disburses a single payout to the winner. The bank-transfer grant is
// minted here, used once and discarded — it must not outlive the call.
func (s *EscrowService) payOut(ctx context.Context, tx *gorm.DB, to string, amount float64, sessionID *string) error {
	grant := bankGrant{to: to, amount: amount}
	return s.disburse(ctx, tx, grant, sessionID)
}

func (s *EscrowService) disburse(ctx context.Context, tx *gorm.DB, grant bankGrant, sessionID *string) error {
	if err := s.Ledger.Transfer(ctx, s.AccountID, grant.to, grant.amount); err != nil {
		return conflictErr("%s disbursement failed: %v", scopeBankTransfer, err)
	}
	journal := models.EscrowTransfer{
		ID:        uuid.NewString(),
		Direction: models.TransferOut,
		AccountID: grant.to,
		Amount:    grant.amount,
		Reason:    models.ReasonPayout,
		SessionID: sessionID,
	}
	return tx.Create(&journal).Error
}

// JournalNet returns the journal's net position (fees in minus payouts out).
// Used by the reconciliation worker against the real ledger balance.
func JournalNet(db *gorm.DB) (float64, error) {
	var net float64
	err := db.Model(&models.EscrowTransfer{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0)", models.TransferIn).
		Scan(&net).Error
	return net, err
}

// --- HTTP handlers ---

// GetEscrowAccount exposes the escrow identity as a public read.
func (s *EscrowService) GetEscrowAccount(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"escrow_account": s.AccountID})
}

func (s *EscrowService) Bootstrap(c *fiber.Ctx) error {
	var in BootstrapInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	state, err := s.bootstrap(AuthFromCtx(c), in)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(201).JSON(state)
}

// GetCheckpoint returns the last reconciliation checkpoint (admin read).
func (s *EscrowService) GetCheckpoint(c *fiber.Ctx) error {
	if err := s.Auth.RequireAdmin(AuthFromCtx(c)); err != nil {
		return respondErr(c, err)
	}
	var cp models.EscrowCheckpoint
	if err := s.DB.First(&cp, "account_id = ?", s.AccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondErr(c, notFoundErr("escrow checkpoint", s.AccountID))
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(cp)
}
