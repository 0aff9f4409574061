package services

import (
	"errors"
	"testing"

	"wager-session-system/models"
)

func TestSetFeeRejectsNonPositive(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)

	for _, amount := range []float64{0, -0.01, -10} {
		_, err := e.Fees.setFee(adminCtx(), models.ModePvp, amount)
		var valE *ValidationError
		if !errors.As(err, &valE) {
			t.Fatalf("amount %v: expected ValidationError, got %v", amount, err)
		}
	}

	// Prior value untouched.
	fee, err := e.Fees.getFee(e.DB, models.ModePvp)
	if err != nil {
		t.Fatalf("getFee failed: %v", err)
	}
	if fee.Amount != 2.0 {
		t.Fatalf("pvp fee = %v after rejected updates, want 2.0", fee.Amount)
	}
}

func TestSetFeeRequiresAdmin(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)

	_, err := e.Fees.setFee(AuthContext{Caller: "random-player"}, models.ModeHouse, 9.0)
	var authE *AuthorizationError
	if !errors.As(err, &authE) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	fee, _ := e.Fees.getFee(e.DB, models.ModeHouse)
	if fee.Amount != 1.5 {
		t.Fatalf("house fee mutated by unauthorized caller: %v", fee.Amount)
	}
}

func TestSetFeeUpdates(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)

	rec, err := e.Fees.setFee(adminCtx(), models.ModeTournament, 7.5)
	if err != nil {
		t.Fatalf("setFee failed: %v", err)
	}
	if rec.Amount != 7.5 {
		t.Fatalf("returned amount = %v, want 7.5", rec.Amount)
	}
	fee, _ := e.Fees.getFee(e.DB, models.ModeTournament)
	if fee.Amount != 7.5 {
		t.Fatalf("stored amount = %v, want 7.5", fee.Amount)
	}
}

func TestGetFeeUnknownMode(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)

	_, err := e.Fees.getFee(e.DB, "roulette")
	var valE *ValidationError
	if !errors.As(err, &valE) {
		t.Fatalf("expected ValidationError for unknown mode, got %v", err)
	}
	_, err = e.Fees.setFee(adminCtx(), "roulette", 1.0)
	if !errors.As(err, &valE) {
		t.Fatalf("expected ValidationError for unknown mode, got %v", err)
	}
}

func TestGetFeeUninitialized(t *testing.T) {
	e := newTestEngine(t)
	// No bootstrap: no fee rows exist yet.
	_, err := e.Fees.getFee(e.DB, models.ModeHouse)
	var nfE *NotFoundError
	if !errors.As(err, &nfE) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
