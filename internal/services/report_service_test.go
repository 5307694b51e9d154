package services

import (
	"context"
	"errors"
	"testing"

	"cassa/internal/core"
)

func TestPeriodSummaryComputesNet(t *testing.T) {
	repo := newTestStorage(t)
	reports := NewReportService(repo)
	ledger := NewLedgerService(repo, nil, WithReports(reports))
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	ledger.CreateEntry(ctx, core.KindIncome, testInput(account.ID, 5000, "Donation"))
	ledger.CreateEntry(ctx, core.KindOutcome, testInput(account.ID, 1200, "Supplies"))

	s, err := reports.PeriodSummary(ctx, 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalIncome.Cents != 5000 || s.TotalOutcome.Cents != 1200 || s.Net.Cents != 3800 {
		t.Fatalf("summary: %+v", s)
	}
}

func TestPeriodSummaryInvalidatedByWrites(t *testing.T) {
	repo := newTestStorage(t)
	reports := NewReportService(repo)
	ledger := NewLedgerService(repo, nil, WithReports(reports))
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	ledger.CreateEntry(ctx, core.KindIncome, testInput(account.ID, 1000, "Donation"))

	s, _ := reports.PeriodSummary(ctx, 1)
	if s.TotalIncome.Cents != 1000 {
		t.Fatalf("first summary: %+v", s)
	}

	// The write must evict the memoized summary.
	ledger.CreateEntry(ctx, core.KindIncome, testInput(account.ID, 500, "Grant"))
	if reports.Cache().Len() != 0 {
		t.Fatalf("summary still cached after write")
	}

	s, _ = reports.PeriodSummary(ctx, 1)
	if s.TotalIncome.Cents != 1500 {
		t.Fatalf("stale summary after write: %+v", s)
	}
}

func TestPeriodSummaryEmptyPeriod(t *testing.T) {
	repo := newTestStorage(t)
	reports := NewReportService(repo)

	s, err := reports.PeriodSummary(context.Background(), 99)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalIncome.Cents != 0 || s.TotalOutcome.Cents != 0 || s.Net.Cents != 0 {
		t.Fatalf("empty period should be all zeros: %+v", s)
	}
}

func TestAccountsList(t *testing.T) {
	repo := newTestStorage(t)
	reports := NewReportService(repo)
	ctx := context.Background()

	repo.CreateAccount(ctx, "Safe", core.Money{Cents: 200})
	repo.CreateAccount(ctx, "Register", core.Money{Cents: 100})

	accounts, err := reports.Accounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	// Ordered by name.
	if accounts[0].Name != "Register" || accounts[1].Name != "Safe" {
		t.Fatalf("accounts not ordered by name: %v", accounts)
	}
}

func TestAccountHistory(t *testing.T) {
	repo := newTestStorage(t)
	reports := NewReportService(repo)
	ledger := NewLedgerService(repo, nil)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	ledger.CreateEntry(ctx, core.KindIncome, testInput(account.ID, 100, "Donation"))
	ledger.CreateEntry(ctx, core.KindOutcome, testInput(account.ID, 50, "Supplies"))

	entries, err := reports.AccountHistory(ctx, account.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if _, err := reports.AccountHistory(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown account: got %v", err)
	}
}
