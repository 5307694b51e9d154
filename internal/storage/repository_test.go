package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"cassa/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(":memory:")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testDate() time.Time {
	return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
}

func newEntry(accountID int64, cents int64) core.NewEntry {
	return core.NewEntry{
		AccountID: accountID,
		PeriodID:  1,
		Date:      testDate(),
		Amount:    core.Money{Cents: cents},
		Category:  "Other",
	}
}

func TestCreateAccountSeedsDenominations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, err := repo.CreateAccount(ctx, "Register", core.Money{Cents: 10000})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if account.Balance.Cents != 10000 {
		t.Fatalf("opening balance: got %d", account.Balance.Cents)
	}

	counts, err := repo.DenominationCounts(ctx, account.ID)
	if err != nil {
		t.Fatalf("denomination counts: %v", err)
	}
	if len(counts) != len(core.DefaultDenominations) {
		t.Fatalf("expected %d seeded rows, got %d", len(core.DefaultDenominations), len(counts))
	}
	for _, c := range counts {
		if c.Quantity != 0 {
			t.Fatalf("denomination %s seeded with quantity %d", c.Denomination, c.Quantity)
		}
	}
	// Largest face first.
	if counts[0].Denomination.Cents != 50000 {
		t.Fatalf("expected 500.00 first, got %s", counts[0].Denomination)
	}
}

func TestCreateAccountRejectsEmptyNameAndDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateAccount(ctx, "", core.Money{}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("empty name: got %v", err)
	}

	if _, err := repo.CreateAccount(ctx, "Petty cash", core.Money{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := repo.CreateAccount(ctx, "Petty cash", core.Money{}); err == nil {
		t.Fatalf("duplicate name should fail")
	}
}

func TestGetAccountNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetAccount(context.Background(), 404)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertEntryMovesBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 10000})

	income, err := repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 2500))
	if err != nil {
		t.Fatalf("insert income: %v", err)
	}
	if income.ID == 0 {
		t.Fatalf("expected assigned entry id")
	}

	if _, err := repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 1000)); err != nil {
		t.Fatalf("insert outcome: %v", err)
	}

	got, _ := repo.GetAccount(ctx, account.ID)
	if got.Balance.Cents != 10000+2500-1000 {
		t.Fatalf("balance: got %d, want %d", got.Balance.Cents, 11500)
	}
}

func TestInsertEntryUnknownAccountRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertEntry(ctx, core.KindIncome, newEntry(999, 100))
	if err == nil {
		t.Fatalf("expected error for unknown account")
	}

	// The failed insert must leave no entry row behind.
	entries, err := repo.EntriesByAccount(ctx, 999)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rolled-back insert left %d rows", len(entries))
	}
}

func TestUpdateEntrySameAccountAmount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 10000})
	entry, _ := repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 3000))

	amount := core.Money{Cents: 1200}
	updated, err := repo.UpdateEntry(ctx, core.KindOutcome, entry.ID, core.EntryUpdate{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 1200 {
		t.Fatalf("amount not updated: %d", updated.Amount.Cents)
	}

	got, _ := repo.GetAccount(ctx, account.ID)
	if got.Balance.Cents != 10000-1200 {
		t.Fatalf("balance after amount change: got %d, want %d", got.Balance.Cents, 8800)
	}
}

func TestUpdateEntryMoveBetweenAccounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 10000})
	b, _ := repo.CreateAccount(ctx, "Safe", core.Money{Cents: 5000})
	entry, _ := repo.InsertEntry(ctx, core.KindIncome, newEntry(a.ID, 700))

	updated, err := repo.UpdateEntry(ctx, core.KindIncome, entry.ID, core.EntryUpdate{AccountID: &b.ID})
	if err != nil {
		t.Fatalf("move entry: %v", err)
	}
	if updated.AccountID != b.ID {
		t.Fatalf("entry still on account %d", updated.AccountID)
	}

	gotA, _ := repo.GetAccount(ctx, a.ID)
	gotB, _ := repo.GetAccount(ctx, b.ID)
	if gotA.Balance.Cents != 10000 {
		t.Fatalf("source balance: got %d, want 10000", gotA.Balance.Cents)
	}
	if gotB.Balance.Cents != 5700 {
		t.Fatalf("target balance: got %d, want 5700", gotB.Balance.Cents)
	}
	// The move conserves the combined total.
	if gotA.Balance.Cents+gotB.Balance.Cents != 15700 {
		t.Fatalf("combined total changed: %d", gotA.Balance.Cents+gotB.Balance.Cents)
	}
}

func TestUpdateEntryNoMoneyFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 10000})
	entry, _ := repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 3000))
	before, _ := repo.GetAccount(ctx, account.ID)

	category := "Supplies"
	if _, err := repo.UpdateEntry(ctx, core.KindOutcome, entry.ID, core.EntryUpdate{Category: &category}); err != nil {
		t.Fatalf("update: %v", err)
	}

	after, _ := repo.GetAccount(ctx, account.ID)
	if after.Balance.Cents != before.Balance.Cents {
		t.Fatalf("category-only update moved money: %d -> %d", before.Balance.Cents, after.Balance.Cents)
	}
}

func TestUpdateEntryNotFound(t *testing.T) {
	repo := newTestRepo(t)

	amount := core.Money{Cents: 100}
	_, err := repo.UpdateEntry(context.Background(), core.KindIncome, 404, core.EntryUpdate{Amount: &amount})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEntryReversesExactly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 10000})
	entry, _ := repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 4999))

	deleted, err := repo.DeleteEntry(ctx, core.KindOutcome, entry.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != entry.ID {
		t.Fatalf("deleted wrong entry: %d", deleted.ID)
	}

	got, _ := repo.GetAccount(ctx, account.ID)
	if got.Balance.Cents != 10000 {
		t.Fatalf("create-then-delete is not balance neutral: %d", got.Balance.Cents)
	}

	if _, err := repo.DeleteEntry(ctx, core.KindOutcome, entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestInsertEntriesAggregatesPerAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 0})
	b, _ := repo.CreateAccount(ctx, "Safe", core.Money{Cents: 0})

	items := []core.NewEntry{
		newEntry(a.ID, 100),
		newEntry(b.ID, 200),
		newEntry(a.ID, 300),
	}
	entries, err := repo.InsertEntries(ctx, core.KindIncome, items)
	if err != nil {
		t.Fatalf("insert batch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ID == 0 {
			t.Fatalf("entry %d has no id", i)
		}
	}

	gotA, _ := repo.GetAccount(ctx, a.ID)
	gotB, _ := repo.GetAccount(ctx, b.ID)
	if gotA.Balance.Cents != 400 || gotB.Balance.Cents != 200 {
		t.Fatalf("batch balances: a=%d b=%d", gotA.Balance.Cents, gotB.Balance.Cents)
	}
}

func TestInsertEntriesAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 0})

	items := []core.NewEntry{
		newEntry(a.ID, 100),
		newEntry(999, 200), // unknown account makes the whole batch fail
		newEntry(a.ID, 300),
	}
	if _, err := repo.InsertEntries(ctx, core.KindIncome, items); err == nil {
		t.Fatalf("expected batch failure")
	}

	got, _ := repo.GetAccount(ctx, a.ID)
	if got.Balance.Cents != 0 {
		t.Fatalf("failed batch moved money: %d", got.Balance.Cents)
	}
	entries, _ := repo.EntriesByAccount(ctx, a.ID)
	if len(entries) != 0 {
		t.Fatalf("failed batch persisted %d rows", len(entries))
	}
}

func TestResyncBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 5000})
	repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 2000))
	repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 700))

	// Corrupt the stored balance out from under the ledger.
	if _, err := repo.db.Exec(`UPDATE cash_accounts SET balance_cents = 1 WHERE id = ?`, account.ID); err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}

	result, err := repo.ResyncBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if result.OldBalance.Cents != 1 {
		t.Fatalf("old balance: got %d", result.OldBalance.Cents)
	}
	if result.NewBalance.Cents != 5000+2000-700 {
		t.Fatalf("resynced balance: got %d, want 6300", result.NewBalance.Cents)
	}

	// Idempotent: a second run is a no-op.
	again, err := repo.ResyncBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("second resync: %v", err)
	}
	if again.OldBalance != again.NewBalance {
		t.Fatalf("second resync changed the balance: %s -> %s", again.OldBalance, again.NewBalance)
	}

	if _, err := repo.ResyncBalance(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("resync unknown account: got %v", err)
	}
}

func TestEntriesByAccountOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	older := newEntry(account.ID, 100)
	older.Date = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.InsertEntry(ctx, core.KindIncome, older)
	repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 200))

	entries, err := repo.EntriesByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Date.After(entries[1].Date) {
		t.Fatalf("entries not newest first: %s then %s", entries[0].Date, entries[1].Date)
	}
}

func TestPeriodTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 1000))
	repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 500))
	repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 300))

	other := newEntry(account.ID, 9999)
	other.PeriodID = 2
	repo.InsertEntry(ctx, core.KindIncome, other)

	income, outcome, err := repo.PeriodTotals(ctx, 1)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if income != 1500 || outcome != 300 {
		t.Fatalf("period 1 totals: income=%d outcome=%d", income, outcome)
	}

	income, outcome, err = repo.PeriodTotals(ctx, 77)
	if err != nil || income != 0 || outcome != 0 {
		t.Fatalf("empty period: income=%d outcome=%d err=%v", income, outcome, err)
	}
}
