package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"wager-session-system/models"
)

// openTournament creates a tournament whose signup window straddles now and
// whose play window follows immediately.
func (e *testEngine) openTournament(t *testing.T, id string, pool float64, maxPlayers int) *models.Tournament {
	t.Helper()
	now := time.Now()
	tournament, err := e.Tournaments.createTournament(adminCtx(), CreateTournamentInput{
		ID:          id,
		PrizePool:   pool,
		MaxPlayers:  maxPlayers,
		SignupStart: now.Add(-time.Hour),
		SignupEnd:   now.Add(time.Hour),
		PlayStart:   now.Add(time.Hour),
		PlayEnd:     now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("createTournament failed: %v", err)
	}
	return tournament
}

// playTournament creates a tournament already inside its play window, with
// the signup window just behind us.
func (e *testEngine) playTournament(t *testing.T, id string, pool float64, maxPlayers int) *models.Tournament {
	t.Helper()
	now := time.Now()
	tournament, err := e.Tournaments.createTournament(adminCtx(), CreateTournamentInput{
		ID:          id,
		PrizePool:   pool,
		MaxPlayers:  maxPlayers,
		SignupStart: now.Add(-2 * time.Hour),
		SignupEnd:   now.Add(-time.Minute),
		PlayStart:   now.Add(-time.Minute),
		PlayEnd:     now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("createTournament failed: %v", err)
	}
	return tournament
}

func TestCreateTournamentValidation(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	now := time.Now()

	base := CreateTournamentInput{
		ID:          "summer-open",
		PrizePool:   50,
		MaxPlayers:  10,
		SignupStart: now,
		SignupEnd:   now.Add(time.Hour),
		PlayStart:   now.Add(time.Hour),
		PlayEnd:     now.Add(2 * time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(in *CreateTournamentInput)
	}{
		{"empty id", func(in *CreateTournamentInput) { in.ID = "" }},
		{"zero pool", func(in *CreateTournamentInput) { in.PrizePool = 0 }},
		{"negative pool", func(in *CreateTournamentInput) { in.PrizePool = -5 }},
		{"zero capacity", func(in *CreateTournamentInput) { in.MaxPlayers = 0 }},
		{"signup start after end", func(in *CreateTournamentInput) { in.SignupStart = in.SignupEnd.Add(time.Hour) }},
		{"play start after end", func(in *CreateTournamentInput) { in.PlayStart = in.PlayEnd.Add(time.Hour) }},
		{"signup overlaps play", func(in *CreateTournamentInput) { in.SignupEnd = in.PlayStart.Add(time.Minute) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := e.Tournaments.createTournament(adminCtx(), in)
			var valE *ValidationError
			if !errors.As(err, &valE) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if _, err := e.Tournaments.createTournament(adminCtx(), base); err != nil {
		t.Fatalf("valid tournament rejected: %v", err)
	}
	// Duplicate id.
	_, err := e.Tournaments.createTournament(adminCtx(), base)
	var conflictE *StateConflictError
	if !errors.As(err, &conflictE) {
		t.Fatalf("expected StateConflictError for duplicate id, got %v", err)
	}
}

func TestCreateTournamentRequiresAdmin(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	now := time.Now()

	_, err := e.Tournaments.createTournament(AuthContext{Caller: "random"}, CreateTournamentInput{
		ID: "nope", PrizePool: 10, MaxPlayers: 2,
		SignupStart: now, SignupEnd: now.Add(time.Hour),
		PlayStart: now.Add(time.Hour), PlayEnd: now.Add(2 * time.Hour),
	})
	var authE *AuthorizationError
	if !errors.As(err, &authE) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestRegisterDebitsFeeIntoEscrow(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.openTournament(t, "summer-open", 50, 10)
	alice := e.playerCtx("alice")

	entry, err := e.Tournaments.register(ctx, alice, "summer-open", "alice")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if entry.FeePaid != 5.0 {
		t.Fatalf("fee paid = %v, want 5.0", entry.FeePaid)
	}
	if entry.Seat != 0 {
		t.Fatalf("seat = %d, want 0", entry.Seat)
	}
	if e.Ledger.balances[testEscrow] != 5.0 {
		t.Fatalf("escrow balance = %v, want 5.0", e.Ledger.balances[testEscrow])
	}
	if e.Ledger.balances["alice"] != 995.0 {
		t.Fatalf("alice balance = %v, want 995.0", e.Ledger.balances["alice"])
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.openTournament(t, "summer-open", 50, 10)
	alice := e.playerCtx("alice")

	if _, err := e.Tournaments.register(ctx, alice, "summer-open", "alice"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := e.Tournaments.register(ctx, alice, "summer-open", "alice")
	var conflictE *StateConflictError
	if !errors.As(err, &conflictE) {
		t.Fatalf("expected StateConflictError on duplicate registration, got %v", err)
	}
	// Only one fee was collected.
	if e.Ledger.balances[testEscrow] != 5.0 {
		t.Fatalf("escrow balance = %v after duplicate attempt, want 5.0", e.Ledger.balances[testEscrow])
	}
}

func TestRegisterRosterBound(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.openTournament(t, "tiny-cup", 20, 2)

	for _, account := range []string{"alice", "bob"} {
		player := e.playerCtx(account)
		if _, err := e.Tournaments.register(ctx, player, "tiny-cup", account); err != nil {
			t.Fatalf("register %s failed: %v", account, err)
		}
	}

	carol := e.playerCtx("carol")
	_, err := e.Tournaments.register(ctx, carol, "tiny-cup", "carol")
	var conflictE *StateConflictError
	if !errors.As(err, &conflictE) {
		t.Fatalf("expected StateConflictError when roster is full, got %v", err)
	}

	var count int64
	e.DB.Model(&models.TournamentPlayer{}).Where("tournament_id = ?", "tiny-cup").Count(&count)
	if count != 2 {
		t.Fatalf("roster size = %d, want 2", count)
	}
}

func TestRegisterOutsideSignupWindow(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.playTournament(t, "late-cup", 50, 10) // signup already closed
	alice := e.playerCtx("alice")

	_, err := e.Tournaments.register(ctx, alice, "late-cup", "alice")
	var conflictE *StateConflictError
	if !errors.As(err, &conflictE) {
		t.Fatalf("expected StateConflictError outside signup window, got %v", err)
	}
}

func TestRegisterRolledBackWhenDebitFails(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.openTournament(t, "summer-open", 50, 10)
	alice := e.playerCtx("alice")

	e.Ledger.failNext = true
	_, err := e.Tournaments.register(ctx, alice, "summer-open", "alice")
	if err == nil {
		t.Fatal("register succeeded despite ledger failure")
	}

	// No roster entry and no journal row survived.
	var roster int64
	e.DB.Model(&models.TournamentPlayer{}).Where("tournament_id = ?", "summer-open").Count(&roster)
	if roster != 0 {
		t.Fatalf("roster size = %d after failed debit, want 0", roster)
	}
	var journal int64
	e.DB.Model(&models.EscrowTransfer{}).Count(&journal)
	if journal != 0 {
		t.Fatalf("journal rows = %d after failed debit, want 0", journal)
	}
}

func TestRegisterRequiresAccountOwnership(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.openTournament(t, "summer-open", 50, 10)
	e.playerCtx("alice")

	_, err := e.Tournaments.register(ctx, AuthContext{Caller: "mallory-key"}, "summer-open", "alice")
	var authE *AuthorizationError
	if !errors.As(err, &authE) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	// Nothing was read or written on alice's behalf.
	if e.Ledger.balances[testEscrow] != 0 {
		t.Fatalf("escrow balance = %v, want 0", e.Ledger.balances[testEscrow])
	}
}

func TestGetTournamentRoster(t *testing.T) {
	e := newTestEngine(t)
	e.bootstrap(t, 1.5, 2.0, 5.0)
	ctx := context.Background()
	e.openTournament(t, "summer-open", 50, 10)

	for _, account := range []string{"alice", "bob", "carol"} {
		player := e.playerCtx(account)
		if _, err := e.Tournaments.register(ctx, player, "summer-open", account); err != nil {
			t.Fatalf("register %s failed: %v", account, err)
		}
	}

	tournament, err := e.Tournaments.getTournament("summer-open")
	if err != nil {
		t.Fatalf("getTournament failed: %v", err)
	}
	if tournament.PlayerCount != 3 || tournament.AvailableSlots != 7 {
		t.Fatalf("counts = %d/%d, want 3/7", tournament.PlayerCount, tournament.AvailableSlots)
	}
	// Registration order preserved via seats.
	want := []string{"alice", "bob", "carol"}
	for i, p := range tournament.Players {
		if p.AccountID != want[i] {
			t.Fatalf("seat %d = %s, want %s", i, p.AccountID, want[i])
		}
	}

	_, err = e.Tournaments.getTournament("no-such-cup")
	var nfE *NotFoundError
	if !errors.As(err, &nfE) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
