package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"cassa/internal/core"
	"cassa/internal/storage"
)

// Authorizer is the injected authorization capability. Authentication and
// role storage live outside this module; the ledger only asks whether a
// caller may run the administrative resync.
type Authorizer interface {
	CanResync(ctx context.Context, caller string) bool
}

// resyncConcurrency bounds the resync-all fan-out. SQLite serializes the
// writes anyway; the bound keeps the goroutine count predictable.
const resyncConcurrency = 4

// ReconciliationService compares physically counted cash against the
// recorded balance and owns the administrative balance resync. Reading a
// reconciliation never mutates the ledger.
type ReconciliationService struct {
	storage *storage.Repository
	auth    Authorizer
}

func NewReconciliationService(store *storage.Repository, auth Authorizer) *ReconciliationService {
	return &ReconciliationService{storage: store, auth: auth}
}

// SetQuantity records the physically counted quantity of one denomination.
// It touches only the count row, never the balance.
func (s *ReconciliationService) SetQuantity(ctx context.Context, accountID int64, denomination core.Money, quantity int64) (*core.DenominationCount, error) {
	count, err := s.storage.SetDenominationQuantity(ctx, accountID, denomination.Cents, quantity)
	if err != nil {
		return nil, fmt.Errorf("set denomination quantity: %w", err)
	}

	slog.InfoContext(ctx, "Denomination quantity set",
		"account_id", accountID,
		"denomination", denomination.String(),
		"quantity", quantity)
	return count, nil
}

// CountSheet returns the account together with its denomination rows, the
// view a counter fills in before reconciling.
func (s *ReconciliationService) CountSheet(ctx context.Context, accountID int64) (*core.CashAccount, []core.DenominationCount, error) {
	account, counts, err := s.storage.GetAccountWithCounts(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("account %d: %w", accountID, err)
	}
	return account, counts, nil
}

// Totals computes the physical total, system total and drift for one
// account. Drift within the balanced epsilon is reported as balanced; the
// balance is never auto-corrected.
func (s *ReconciliationService) Totals(ctx context.Context, accountID int64) (*core.Reconciliation, error) {
	account, err := s.storage.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", accountID, err)
	}
	physical, err := s.storage.PhysicalTotal(ctx, accountID)
	if err != nil {
		return nil, err
	}

	drift := physical - account.Balance.Cents
	abs := drift
	if abs < 0 {
		abs = -abs
	}
	return &core.Reconciliation{
		AccountID:     accountID,
		PhysicalTotal: core.Money{Cents: physical},
		SystemTotal:   account.Balance,
		Drift:         core.Money{Cents: drift},
		Balanced:      abs <= core.BalancedEpsilonCents,
	}, nil
}

// Resync recomputes one account's balance from its stored entries and
// overwrites it. Gated to privileged callers; idempotent.
func (s *ReconciliationService) Resync(ctx context.Context, caller string, accountID int64) (*core.ResyncResult, error) {
	if s.auth == nil || !s.auth.CanResync(ctx, caller) {
		return nil, fmt.Errorf("caller %q: %w", caller, core.ErrUnauthorized)
	}

	result, err := s.storage.ResyncBalance(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("resync account %d: %w", accountID, err)
	}

	slog.InfoContext(ctx, "Balance resynced",
		"account_id", accountID,
		"old_balance", result.OldBalance.String(),
		"new_balance", result.NewBalance.String(),
		"caller", caller)
	return result, nil
}

// ResyncAll resyncs every account. Each account is one atomic unit of work;
// a failure on one account does not roll back the others.
func (s *ReconciliationService) ResyncAll(ctx context.Context, caller string) ([]core.ResyncResult, error) {
	if s.auth == nil || !s.auth.CanResync(ctx, caller) {
		return nil, fmt.Errorf("caller %q: %w", caller, core.ErrUnauthorized)
	}

	ids, err := s.storage.AccountIDs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*core.ResyncResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.storage.ResyncBalance(gctx, id)
			if err != nil {
				return fmt.Errorf("resync account %d: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.ResyncResult, len(results))
	for i, res := range results {
		out[i] = *res
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })

	slog.InfoContext(ctx, "All balances resynced", "accounts", len(out), "caller", caller)
	return out, nil
}
