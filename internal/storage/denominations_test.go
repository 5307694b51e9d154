package storage

import (
	"context"
	"errors"
	"testing"

	"cassa/internal/core"
)

func TestSetDenominationQuantity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{Cents: 12000})

	count, err := repo.SetDenominationQuantity(ctx, account.ID, 2000, 3)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if count.Quantity != 3 || count.Denomination.Cents != 2000 {
		t.Fatalf("unexpected count: %+v", count)
	}

	// Overwrite, not accumulate.
	count, err = repo.SetDenominationQuantity(ctx, account.ID, 2000, 5)
	if err != nil {
		t.Fatalf("overwrite quantity: %v", err)
	}
	if count.Quantity != 5 {
		t.Fatalf("quantity not overwritten: %d", count.Quantity)
	}

	// Counting never moves the recorded balance.
	got, _ := repo.GetAccount(ctx, account.ID)
	if got.Balance.Cents != 12000 {
		t.Fatalf("counting changed the balance: %d", got.Balance.Cents)
	}
}

func TestSetDenominationQuantityRejections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})

	if _, err := repo.SetDenominationQuantity(ctx, account.ID, 2000, -1); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Fatalf("negative quantity: got %v", err)
	}
	// 3 cents is not a seeded euro denomination.
	if _, err := repo.SetDenominationQuantity(ctx, account.ID, 3, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown denomination: got %v", err)
	}
	if _, err := repo.SetDenominationQuantity(ctx, 404, 2000, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown account: got %v", err)
	}
}

func TestPhysicalTotal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, "Register", core.Money{})

	total, err := repo.PhysicalTotal(ctx, account.ID)
	if err != nil || total != 0 {
		t.Fatalf("fresh account total: %d err=%v", total, err)
	}

	// 2 x 50.00 + 3 x 0.50 + 7 x 0.02 = 101.64
	repo.SetDenominationQuantity(ctx, account.ID, 5000, 2)
	repo.SetDenominationQuantity(ctx, account.ID, 50, 3)
	repo.SetDenominationQuantity(ctx, account.ID, 2, 7)

	total, err = repo.PhysicalTotal(ctx, account.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 2*5000+3*50+7*2 {
		t.Fatalf("physical total: got %d, want %d", total, 10164)
	}
}
