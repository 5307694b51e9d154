package storage

import (
	"context"
	"errors"
	"testing"

	"cassa/internal/core"
)

func TestExportStatusLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	first, _ := repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 100))
	second, _ := repo.InsertEntry(ctx, core.KindOutcome, newEntry(account.ID, 50))

	pending, err := repo.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Fatalf("pending not oldest first")
	}

	if err := repo.MarkExported(ctx, core.KindIncome, first.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := repo.MarkExportError(ctx, core.KindOutcome, second.ID); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	pending, _ = repo.PendingExport(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("synced/error entries still pending: %d", len(pending))
	}

	if err := repo.MarkExported(ctx, core.KindIncome, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("mark unknown entry: got %v", err)
	}
}

func TestUpdateResetsExportStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})
	entry, _ := repo.InsertEntry(ctx, core.KindIncome, newEntry(account.ID, 100))
	if err := repo.MarkExported(ctx, core.KindIncome, entry.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}

	category := "Grant"
	if _, err := repo.UpdateEntry(ctx, core.KindIncome, entry.ID, core.EntryUpdate{Category: &category}); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, _ := repo.PendingExport(ctx, 10)
	if len(pending) != 1 || pending[0].ID != entry.ID {
		t.Fatalf("updated entry should be pending again, got %d rows", len(pending))
	}
}
