// wager-session-system/services/tournament_service.go
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"wager-session-system/models"
)

type TournamentService struct {
	DB     *gorm.DB
	Auth   *Authorizer
	Escrow *EscrowService
	Fees   *FeeService
}

func NewTournamentService(db *gorm.DB, auth *Authorizer, escrow *EscrowService, fees *FeeService) *TournamentService {
	return &TournamentService{DB: db, Auth: auth, Escrow: escrow, Fees: fees}
}

type CreateTournamentInput struct {
	ID          string    `json:"id"`
	PrizePool   float64   `json:"prize_pool"`
	MaxPlayers  int       `json:"max_players"`
	SignupStart time.Time `json:"signup_start"`
	SignupEnd   time.Time `json:"signup_end"`
	PlayStart   time.Time `json:"play_start"`
	PlayEnd     time.Time `json:"play_end"`
}

// createTournament validates and inserts a tournament in one shot — there is
// no partial insert and no update path for the windows afterwards.
func (s *TournamentService) createTournament(auth AuthContext, in CreateTournamentInput) (*models.Tournament, error) {
	if err := s.Auth.RequireAdmin(auth); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, validationErr("tournament id is required")
	}
	if in.PrizePool <= 0 {
		return nil, validationErr("prize_pool must be > 0")
	}
	if in.MaxPlayers <= 0 {
		return nil, validationErr("max_players must be > 0")
	}
	if !in.SignupStart.Before(in.SignupEnd) {
		return nil, validationErr("signup_start must be before signup_end")
	}
	if !in.PlayStart.Before(in.PlayEnd) {
		return nil, validationErr("play_start must be before play_end")
	}
	if in.SignupEnd.After(in.PlayStart) {
		return nil, validationErr("signup_end must not be after play_start")
	}

	tournament := &models.Tournament{
		ID:          in.ID,
		PrizePool:   in.PrizePool,
		MaxPlayers:  in.MaxPlayers,
		SignupStart: in.SignupStart,
		SignupEnd:   in.SignupEnd,
		PlayStart:   in.PlayStart,
		PlayEnd:     in.PlayEnd,
		CreatedBy:   auth.Caller,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}
		var existing models.Tournament
		if err := tx.First(&existing, "id = ?", in.ID).Error; err == nil {
			return conflictErr("tournament %q already exists", in.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(tournament).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[TOURNAMENT] created %s (pool %.2f, capacity %d)", tournament.ID, tournament.PrizePool, tournament.MaxPlayers)
	return tournament, nil
}

// register adds account to the roster during the signup window. The fee
// debit into escrow and the roster append happen in one transaction — if the
// ledger refuses the debit, no roster entry is recorded.
func (s *TournamentService) register(ctx context.Context, auth AuthContext, tournamentID, account string) (*models.TournamentPlayer, error) {
	if err := s.Auth.RequireAccountOwner(ctx, auth, account); err != nil {
		return nil, err
	}

	var entry *models.TournamentPlayer
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}

		// Lock the tournament row so concurrent registrations serialize on
		// the capacity re-check.
		var tournament models.Tournament
		if err := lockForUpdate(tx).First(&tournament, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("tournament", tournamentID)
			}
			return err
		}

		now := time.Now()
		if now.Before(tournament.SignupStart) || now.After(tournament.SignupEnd) {
			return conflictErr("signup window for tournament %q is closed", tournamentID)
		}

		var count int64
		if err := tx.Model(&models.TournamentPlayer{}).
			Where("tournament_id = ?", tournamentID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(tournament.MaxPlayers) {
			return conflictErr("tournament %q is full", tournamentID)
		}

		var existing models.TournamentPlayer
		if err := tx.Where("tournament_id = ? AND account_id = ?", tournamentID, account).
			First(&existing).Error; err == nil {
			return conflictErr("account %q already registered", account)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		fee, err := s.Fees.getFee(tx, models.ModeTournament)
		if err != nil {
			return err
		}
		if err := s.Escrow.collectFee(ctx, tx, account, fee.Amount, models.ReasonTournamentFee, nil, &tournamentID); err != nil {
			return err
		}

		entry = &models.TournamentPlayer{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			AccountID:    account,
			Seat:         int(count),
			FeePaid:      fee.Amount,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *TournamentService) getTournament(id string) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat ASC")
		}).
		First(&tournament, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("tournament", id)
		}
		return nil, err
	}
	tournament.PlayerCount = int64(len(tournament.Players))
	tournament.AvailableSlots = int64(tournament.MaxPlayers) - tournament.PlayerCount
	return &tournament, nil
}

// --- HTTP handlers ---

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var in CreateTournamentInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	tournament, err := s.createTournament(AuthFromCtx(c), in)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(201).JSON(tournament)
}

func (s *TournamentService) Register(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	type Req struct {
		Account string `json:"account"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	entry, err := s.register(c.Context(), AuthFromCtx(c), tournamentID, req.Account)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"message":      "registration recorded",
		"registration": entry,
	})
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	tournament, err := s.getTournament(c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(tournament)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	if err := s.Auth.RequireAdmin(AuthFromCtx(c)); err != nil {
		return respondErr(c, err)
	}
	var tournaments []models.Tournament
	err := s.DB.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat ASC")
		}).
		Order("created_at DESC").
		Find(&tournaments).Error
	if err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	for i := range tournaments {
		tournaments[i].PlayerCount = int64(len(tournaments[i].Players))
		tournaments[i].AvailableSlots = int64(tournaments[i].MaxPlayers) - tournaments[i].PlayerCount
	}
	return c.JSON(tournaments)
}
