package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wager-session-system/models"
)

const (
	testOwner    = "owner-root-key"
	testReporter = "oracle-key"
	testEscrow   = "escrow-test"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.SystemState{},
		&models.AccountCredential{},
		&models.FeeRecord{},
		&models.Tournament{},
		&models.TournamentPlayer{},
		&models.GameSession{},
		&models.SessionPlayer{},
		&models.PlayerStats{},
		&models.EscrowTransfer{},
		&models.EscrowCheckpoint{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type fakeTransfer struct {
	From, To string
	Amount   float64
}

// fakeLedger is an in-memory stand-in for the external token ledger.
type fakeLedger struct {
	balances    map[string]float64
	authorities map[string]string
	failNext    bool
	transfers   []fakeTransfer
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:    map[string]float64{},
		authorities: map[string]string{},
	}
}

func (l *fakeLedger) Transfer(ctx context.Context, from, to string, amount float64) error {
	if l.failNext {
		l.failNext = false
		return fmt.Errorf("ledger refused the transfer")
	}
	if l.balances[from] < amount {
		return fmt.Errorf("insufficient balance on %s", from)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	l.transfers = append(l.transfers, fakeTransfer{From: from, To: to, Amount: amount})
	return nil
}

func (l *fakeLedger) GetBalance(ctx context.Context, account string) (float64, error) {
	return l.balances[account], nil
}

func (l *fakeLedger) GetAuthority(ctx context.Context, account string) (string, error) {
	authority, ok := l.authorities[account]
	if !ok {
		return "", fmt.Errorf("account %s not registered on ledger", account)
	}
	return authority, nil
}

type testEngine struct {
	DB          *gorm.DB
	Ledger      *fakeLedger
	Auth        *Authorizer
	Escrow      *EscrowService
	Fees        *FeeService
	Tournaments *TournamentService
	Sessions    *SessionService
	Stats       *StatsService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	db := newTestDB(t)
	ledger := newFakeLedger()
	auth := &Authorizer{DB: db, Ledger: ledger, Owner: testOwner, WinReporter: testReporter}
	escrow := &EscrowService{DB: db, Ledger: ledger, Auth: auth, AccountID: testEscrow}
	fees := NewFeeService(db, auth)
	return &testEngine{
		DB:          db,
		Ledger:      ledger,
		Auth:        auth,
		Escrow:      escrow,
		Fees:        fees,
		Tournaments: NewTournamentService(db, auth, escrow, fees),
		Sessions:    NewSessionService(db, auth, escrow, fees),
		Stats:       NewStatsService(db),
	}
}

func ownerCtx() AuthContext {
	return AuthContext{Caller: testOwner}
}

func adminCtx() AuthContext {
	return AuthContext{Caller: "delegated-admin", Roles: []string{RoleAdmin}}
}

func reporterCtx() AuthContext {
	return AuthContext{Caller: testReporter}
}

// playerCtx registers account on the fake ledger with its own authority key
// and a comfortable balance, returning the matching auth context.
func (e *testEngine) playerCtx(account string) AuthContext {
	key := account + "-key"
	e.Ledger.authorities[account] = key
	if _, ok := e.Ledger.balances[account]; !ok {
		e.Ledger.balances[account] = 1000
	}
	return AuthContext{Caller: key}
}

func (e *testEngine) bootstrap(t *testing.T, house, pvp, tournament float64) {
	t.Helper()
	_, err := e.Escrow.bootstrap(ownerCtx(), BootstrapInput{
		HouseFee:      house,
		PvpFee:        pvp,
		TournamentFee: tournament,
	})
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
}
