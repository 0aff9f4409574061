// wager-session-system/services/session_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wager-session-system/models"
)

// Payout shares. house and pvp are cut from the entry fees, tournament from
// the fixed prize pool; the remainder stays in escrow as the house take.
const (
	housePayoutShare      = 0.7
	pvpPayoutShare        = 0.6
	tournamentPayoutShare = 0.7
)

// SessionService drives the game-session state machine: joins create active
// sessions (debiting the entry fee into escrow), a win report completes a
// session exactly once and pays the winner in the same transaction.
type SessionService struct {
	DB     *gorm.DB
	Auth   *Authorizer
	Escrow *EscrowService
	Fees   *FeeService
}

func NewSessionService(db *gorm.DB, auth *Authorizer, escrow *EscrowService, fees *FeeService) *SessionService {
	return &SessionService{DB: db, Auth: auth, Escrow: escrow, Fees: fees}
}

// newSessionID derives a globally unique id from mode, account and time.
func newSessionID(mode, account string) string {
	return fmt.Sprintf("%s-%s-%d", mode, slug.Make(account), time.Now().UnixNano())
}

// joinHouse debits the house fee and opens a single-player session against
// the house.
func (s *SessionService) joinHouse(ctx context.Context, auth AuthContext, account string) (*models.GameSession, error) {
	if err := s.Auth.RequireAccountOwner(ctx, auth, account); err != nil {
		return nil, err
	}
	return s.createFeeSession(ctx, models.ModeHouse, models.ReasonHouseFee, account)
}

// joinPvp opens a pvp session with one seat taken; a second player attaches
// via joinPvpSecond.
func (s *SessionService) joinPvp(ctx context.Context, auth AuthContext, account string) (*models.GameSession, error) {
	if err := s.Auth.RequireAccountOwner(ctx, auth, account); err != nil {
		return nil, err
	}
	return s.createFeeSession(ctx, models.ModePvp, models.ReasonPvpFee, account)
}

func (s *SessionService) createFeeSession(ctx context.Context, mode, feeReason, account string) (*models.GameSession, error) {
	session := &models.GameSession{
		ID:     newSessionID(mode, account),
		Mode:   mode,
		Status: models.SessionActive,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}
		fee, err := s.Fees.getFee(tx, mode)
		if err != nil {
			return err
		}
		if err := s.Escrow.collectFee(ctx, tx, account, fee.Amount, feeReason, &session.ID, nil); err != nil {
			return err
		}
		if err := tx.Omit("Players").Create(session).Error; err != nil {
			return err
		}
		return s.seatPlayer(tx, session, account, 0)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[SESSION] %s opened by %s", session.ID, account)
	return session, nil
}

// joinPvpSecond fills the second seat of an open pvp session. The joiner
// pays the pvp fee current at this moment, same read-at-use rule as all fees.
func (s *SessionService) joinPvpSecond(ctx context.Context, auth AuthContext, sessionID, account string) (*models.GameSession, error) {
	if err := s.Auth.RequireAccountOwner(ctx, auth, account); err != nil {
		return nil, err
	}
	var session models.GameSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}
		// Lock the session row so concurrent second joins serialize on the
		// seat-count re-check.
		if err := lockForUpdate(tx).Preload("Players").First(&session, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("session", sessionID)
			}
			return err
		}
		if session.Mode != models.ModePvp {
			return conflictErr("session %q is not a pvp session", sessionID)
		}
		if session.Status != models.SessionActive {
			return conflictErr("session %q is not active", sessionID)
		}
		if len(session.Players) >= 2 {
			return conflictErr("session %q is already full", sessionID)
		}
		if session.HasPlayer(account) {
			return conflictErr("account %q already joined session %q", account, sessionID)
		}
		fee, err := s.Fees.getFee(tx, models.ModePvp)
		if err != nil {
			return err
		}
		if err := s.Escrow.collectFee(ctx, tx, account, fee.Amount, models.ReasonPvpFee, &session.ID, nil); err != nil {
			return err
		}
		return s.seatPlayer(tx, &session, account, len(session.Players))
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// joinTournamentSession opens a tournament-linked session during the play
// window. Entry was already paid at registration, so no fee is charged here.
func (s *SessionService) joinTournamentSession(ctx context.Context, auth AuthContext, account, tournamentID string) (*models.GameSession, error) {
	if err := s.Auth.RequireAccountOwner(ctx, auth, account); err != nil {
		return nil, err
	}
	session := &models.GameSession{
		ID:           newSessionID(models.ModeTournament, account),
		Mode:         models.ModeTournament,
		Status:       models.SessionActive,
		TournamentID: &tournamentID,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("tournament", tournamentID)
			}
			return err
		}
		now := time.Now()
		if now.Before(tournament.PlayStart) || now.After(tournament.PlayEnd) {
			return conflictErr("play window for tournament %q is closed", tournamentID)
		}
		var registered int64
		if err := tx.Model(&models.TournamentPlayer{}).
			Where("tournament_id = ? AND account_id = ?", tournamentID, account).
			Count(&registered).Error; err != nil {
			return err
		}
		if registered == 0 {
			return conflictErr("account %q is not registered for tournament %q", account, tournamentID)
		}
		if err := tx.Omit("Players").Create(session).Error; err != nil {
			return err
		}
		return s.seatPlayer(tx, session, account, 0)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// seatPlayer appends a seat and bumps the player's games-played counter.
func (s *SessionService) seatPlayer(tx *gorm.DB, session *models.GameSession, account string, seat int) error {
	player := models.SessionPlayer{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		AccountID: account,
		Seat:      seat,
	}
	if err := tx.Create(&player).Error; err != nil {
		return err
	}
	session.Players = append(session.Players, player)

	if err := ensureStats(tx, account); err != nil {
		return err
	}
	return bumpStat(tx, account, "games_played")
}

func ensureStats(tx *gorm.DB, account string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PlayerStats{AccountID: account}).Error
}

// bumpStat increments a counter in place; a read-modify-write here would lose
// updates under concurrent joins or reports.
func bumpStat(tx *gorm.DB, account, column string) error {
	return tx.Model(&models.PlayerStats{}).
		Where("account_id = ?", account).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

// recordWin transitions a session from active to completed and pays the
// winner from escrow, all in one transaction. If the ledger refuses the
// payout, the status transition rolls back too. The session row is locked
// for the transaction and the transition UPDATE carries the status
// predicate, so a session completes at most once even under concurrent
// reports — the no-double-payout property hangs on that.
//
// The payout for house and pvp sessions is computed from the fee value at
// report time, not the fee actually collected at join time. A fee change
// between join and report therefore shifts the payout. That is deliberate:
// it reproduces the settlement behavior this engine replaces.
func (s *SessionService) recordWin(ctx context.Context, auth AuthContext, sessionID, winner, mode string) (*models.GameSession, error) {
	if err := s.Auth.RequireWinReporter(auth); err != nil {
		return nil, err
	}
	if !models.KnownMode(mode) {
		return nil, validationErr("unknown game mode %q", mode)
	}

	var session models.GameSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}
		// Lock the session row; two concurrent reports must not both read it
		// as active.
		if err := lockForUpdate(tx).Preload("Players").First(&session, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("session", sessionID)
			}
			return err
		}
		if session.Mode != mode {
			return conflictErr("session %q is a %s session, not %s", sessionID, session.Mode, mode)
		}
		if session.Status != models.SessionActive {
			return conflictErr("session %q is not active", sessionID)
		}
		if !session.HasPlayer(winner) {
			return conflictErr("winner %q is not a participant of session %q", winner, sessionID)
		}

		payout, err := s.payoutAmount(tx, &session)
		if err != nil {
			return err
		}

		if err := completeSession(tx, &session, winner); err != nil {
			return err
		}

		if err := ensureStats(tx, winner); err != nil {
			return err
		}
		if err := bumpStat(tx, winner, "wins"); err != nil {
			return err
		}

		return s.Escrow.payOut(ctx, tx, winner, payout, &session.ID)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[SESSION] %s completed, winner %s", session.ID, winner)
	return &session, nil
}

// completeSession flips active → completed with the status predicate inside
// the UPDATE itself. A report racing past the read check sees zero rows
// affected here and fails instead of paying out twice.
func completeSession(tx *gorm.DB, session *models.GameSession, winner string) error {
	now := time.Now()
	res := tx.Model(&models.GameSession{}).
		Where("id = ? AND status = ?", session.ID, models.SessionActive).
		Updates(map[string]interface{}{
			"status":       models.SessionCompleted,
			"winner":       winner,
			"completed_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictErr("session %q is not active", session.ID)
	}
	session.Status = models.SessionCompleted
	session.Winner = winner
	session.CompletedAt = &now
	return nil
}

func (s *SessionService) payoutAmount(tx *gorm.DB, session *models.GameSession) (float64, error) {
	switch session.Mode {
	case models.ModeHouse:
		fee, err := s.Fees.getFee(tx, models.ModeHouse)
		if err != nil {
			return 0, err
		}
		return housePayoutShare * fee.Amount, nil
	case models.ModePvp:
		fee, err := s.Fees.getFee(tx, models.ModePvp)
		if err != nil {
			return 0, err
		}
		// 60% of the combined pot of two entry fees.
		return pvpPayoutShare * (2 * fee.Amount), nil
	case models.ModeTournament:
		if session.TournamentID == nil {
			return 0, conflictErr("session %q has no tournament reference", session.ID)
		}
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", *session.TournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, notFoundErr("tournament", *session.TournamentID)
			}
			return 0, err
		}
		return tournamentPayoutShare * tournament.PrizePool, nil
	default:
		return 0, validationErr("unknown game mode %q", session.Mode)
	}
}

func (s *SessionService) getSession(id string) (*models.GameSession, error) {
	var session models.GameSession
	err := s.DB.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("session", id)
		}
		return nil, err
	}
	return &session, nil
}

// --- HTTP handlers ---

func (s *SessionService) JoinHousePlay(c *fiber.Ctx) error {
	return s.handleJoin(c, s.joinHouse)
}

func (s *SessionService) JoinPvp(c *fiber.Ctx) error {
	return s.handleJoin(c, s.joinPvp)
}

func (s *SessionService) handleJoin(c *fiber.Ctx, join func(context.Context, AuthContext, string) (*models.GameSession, error)) error {
	type Req struct {
		Account string `json:"account"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	session, err := join(c.Context(), AuthFromCtx(c), req.Account)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(201).JSON(session)
}

func (s *SessionService) JoinPvpSecond(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	type Req struct {
		Account string `json:"account"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	session, err := s.joinPvpSecond(c.Context(), AuthFromCtx(c), sessionID, req.Account)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(session)
}

func (s *SessionService) JoinTournamentSession(c *fiber.Ctx) error {
	type Req struct {
		Account      string `json:"account"`
		TournamentID string `json:"tournament_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	session, err := s.joinTournamentSession(c.Context(), AuthFromCtx(c), req.Account, req.TournamentID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(201).JSON(session)
}

func (s *SessionService) RecordWin(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	type Req struct {
		Winner string `json:"winner"`
		Mode   string `json:"mode"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	session, err := s.recordWin(c.Context(), AuthFromCtx(c), sessionID, req.Winner, req.Mode)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(session)
}

func (s *SessionService) GetSessionByID(c *fiber.Ctx) error {
	session, err := s.getSession(c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(session)
}

func (s *SessionService) GetActiveSessions(c *fiber.Ctx) error {
	return s.listByStatus(c, models.SessionActive)
}

func (s *SessionService) GetCompletedSessions(c *fiber.Ctx) error {
	return s.listByStatus(c, models.SessionCompleted)
}

func (s *SessionService) listByStatus(c *fiber.Ctx, status string) error {
	var sessions []models.GameSession
	err := s.DB.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat ASC")
		}).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		log.Printf("ERROR fetching %s sessions: %v", status, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch sessions"})
	}
	return c.JSON(sessions)
}

func (s *SessionService) GetSessionsByPlayer(c *fiber.Ctx) error {
	account := c.Params("account")
	var sessions []models.GameSession
	err := s.DB.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat ASC")
		}).
		Joins("JOIN session_players sp ON sp.session_id = game_sessions.id").
		Where("sp.account_id = ?", account).
		Order("game_sessions.created_at DESC").
		Find(&sessions).Error
	if err != nil {
		log.Printf("ERROR fetching sessions for %s: %v", account, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch sessions"})
	}
	return c.JSON(sessions)
}
