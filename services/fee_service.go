// wager-session-system/services/fee_service.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"wager-session-system/models"
)

// FeeService is the fee vault: one admin-settable positive amount per game
// mode. Fees are read at the moment of each join/registration, never cached,
// so a change only affects subsequent joins.
type FeeService struct {
	DB   *gorm.DB
	Auth *Authorizer
}

func NewFeeService(db *gorm.DB, auth *Authorizer) *FeeService {
	return &FeeService{DB: db, Auth: auth}
}

func (s *FeeService) setFee(auth AuthContext, mode string, amount float64) (*models.FeeRecord, error) {
	if err := s.Auth.RequireAdmin(auth); err != nil {
		return nil, err
	}
	if !models.KnownMode(mode) {
		return nil, validationErr("unknown game mode %q", mode)
	}
	if amount <= 0 {
		return nil, validationErr("fee amount must be > 0")
	}

	rec := models.FeeRecord{Mode: mode, Amount: amount, UpdatedBy: auth.Caller}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireInitialized(tx); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[FEES] %s fee set to %.2f by %s", mode, amount, auth.Caller)
	return &rec, nil
}

// getFee fails for modes that were never initialized.
func (s *FeeService) getFee(db *gorm.DB, mode string) (*models.FeeRecord, error) {
	if !models.KnownMode(mode) {
		return nil, validationErr("unknown game mode %q", mode)
	}
	var rec models.FeeRecord
	if err := db.First(&rec, "mode = ?", mode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("fee record", mode)
		}
		return nil, err
	}
	return &rec, nil
}

// --- HTTP handlers ---

func (s *FeeService) SetFee(c *fiber.Ctx) error {
	mode := c.Params("mode")
	type Req struct {
		Amount float64 `json:"amount"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	rec, err := s.setFee(AuthFromCtx(c), mode, req.Amount)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(rec)
}

func (s *FeeService) GetFee(c *fiber.Ctx) error {
	rec, err := s.getFee(s.DB, c.Params("mode"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(rec)
}

func (s *FeeService) GetAllFees(c *fiber.Ctx) error {
	var fees []models.FeeRecord
	if err := s.DB.Order("mode ASC").Find(&fees).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch fees"})
	}
	return c.JSON(fees)
}
