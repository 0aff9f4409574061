package workers

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

func newReconDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.EscrowTransfer{}, &models.EscrowCheckpoint{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

type staticLedger struct {
	balance float64
}

func (l *staticLedger) Transfer(ctx context.Context, from, to string, amount float64) error {
	return nil
}

func (l *staticLedger) GetBalance(ctx context.Context, account string) (float64, error) {
	return l.balance, nil
}

func (l *staticLedger) GetAuthority(ctx context.Context, account string) (string, error) {
	return "", nil
}

func journalRow(direction string, amount float64) models.EscrowTransfer {
	return models.EscrowTransfer{
		ID:        uuid.NewString(),
		Direction: direction,
		AccountID: "player",
		Amount:    amount,
		Reason:    models.ReasonHouseFee,
	}
}

func TestCheckOnceComputesDrift(t *testing.T) {
	db := newReconDB(t)
	for _, row := range []models.EscrowTransfer{
		journalRow(models.TransferIn, 10.0),
		journalRow(models.TransferIn, 2.5),
		journalRow(models.TransferOut, 4.0),
	} {
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed journal: %v", err)
		}
	}

	client := NewEscrowReconClient(db, &staticLedger{balance: 10.0}, "escrow-test")
	checkpoint, err := client.checkOnce(context.Background())
	if err != nil {
		t.Fatalf("checkOnce failed: %v", err)
	}
	if checkpoint.JournalNet != 8.5 {
		t.Fatalf("journal net = %v, want 8.5", checkpoint.JournalNet)
	}
	if checkpoint.Drift != 1.5 {
		t.Fatalf("drift = %v, want 1.5", checkpoint.Drift)
	}
}

func TestCheckOnceUpsertsSingleRow(t *testing.T) {
	db := newReconDB(t)
	ledger := &staticLedger{balance: 3.0}
	client := NewEscrowReconClient(db, ledger, "escrow-test")

	if _, err := client.checkOnce(context.Background()); err != nil {
		t.Fatalf("first checkOnce failed: %v", err)
	}
	ledger.balance = 7.0
	if _, err := client.checkOnce(context.Background()); err != nil {
		t.Fatalf("second checkOnce failed: %v", err)
	}

	var checkpoints []models.EscrowCheckpoint
	if err := db.Find(&checkpoints).Error; err != nil {
		t.Fatalf("failed to read checkpoints: %v", err)
	}
	if len(checkpoints) != 1 {
		t.Fatalf("checkpoint rows = %d, want 1", len(checkpoints))
	}
	if checkpoints[0].LedgerBalance != 7.0 {
		t.Fatalf("ledger balance = %v, want the latest value 7.0", checkpoints[0].LedgerBalance)
	}
}
