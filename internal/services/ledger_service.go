// Package services holds the business logic of the cash ledger: entry
// posting and correction, bulk imports, denomination reconciliation, and the
// administrative balance resync.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/storage"
)

// PeriodChecker confirms that a period identifier exists before an entry
// references it. Period scheduling lives outside this module; the ledger
// only stores the reference, so the checker is optional.
type PeriodChecker interface {
	PeriodExists(ctx context.Context, periodID int64) (bool, error)
}

// LedgerService orchestrates entry lifecycle operations across storage and
// AMQP. Every balance-affecting write is atomic in storage; the event
// publication happens after commit and is non-fatal.
type LedgerService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
	periods    PeriodChecker
	reports    *ReportService
}

// LedgerOption configures optional collaborators.
type LedgerOption func(*LedgerService)

// WithPeriodChecker wires the external period validator.
func WithPeriodChecker(p PeriodChecker) LedgerOption {
	return func(s *LedgerService) { s.periods = p }
}

// WithReports wires the report service so period summaries are invalidated
// by ledger writes.
func WithReports(r *ReportService) LedgerOption {
	return func(s *LedgerService) { s.reports = r }
}

func NewLedgerService(store *storage.Repository, amqpClient *amqp.Client, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		storage:    store,
		amqpClient: amqpClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount provisions a cash account together with its zeroed
// denomination count rows.
func (s *LedgerService) CreateAccount(ctx context.Context, name string, opening core.Money) (*core.CashAccount, error) {
	account, err := s.storage.CreateAccount(ctx, name, opening)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created",
		"account_id", account.ID,
		"name", account.Name,
		"opening_balance", account.Balance.String())
	return account, nil
}

// CreateEntry validates and posts one entry. The row write and the balance
// delta commit together.
func (s *LedgerService) CreateEntry(ctx context.Context, kind core.Kind, in core.NewEntry) (*core.Entry, error) {
	if !core.ValidKind(kind) {
		return nil, fmt.Errorf("kind %q: %w", kind, core.ErrInvalidCategory)
	}
	normalized, err := s.validateNewEntry(ctx, kind, &in)
	if err != nil {
		return nil, err
	}
	in = *normalized

	entry, err := s.storage.InsertEntry(ctx, kind, in)
	if err != nil {
		return nil, fmt.Errorf("post %s entry: %w", kind, err)
	}

	slog.InfoContext(ctx, "Entry posted",
		"id", entry.ID,
		"kind", entry.Kind,
		"account_id", entry.AccountID,
		"period_id", entry.PeriodID,
		"amount", entry.Amount.String(),
		"category", entry.Category)

	s.publishEvent(ctx, entry.ID, kind, amqp.ActionPosted)
	s.invalidatePeriod(entry.PeriodID)
	return entry, nil
}

// UpdateEntry mutates an entry. Amount or account changes reverse the old
// delta and apply the new one atomically; a no-op update leaves balances
// untouched.
func (s *LedgerService) UpdateEntry(ctx context.Context, kind core.Kind, id int64, upd core.EntryUpdate) (*core.Entry, error) {
	if !core.ValidKind(kind) {
		return nil, fmt.Errorf("kind %q: %w", kind, core.ErrInvalidCategory)
	}
	if upd.Amount != nil {
		if err := upd.Amount.Validate(); err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
	}
	if upd.Category != nil {
		normalized, err := core.NormalizeCategory(kind, *upd.Category)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", *upd.Category, err)
		}
		upd.Category = &normalized
	}
	if upd.AccountID != nil {
		if _, err := s.storage.GetAccount(ctx, *upd.AccountID); err != nil {
			return nil, fmt.Errorf("target account %d: %w", *upd.AccountID, err)
		}
	}

	// Captured only so the previous period's summary can be invalidated;
	// the transactional read inside storage governs correctness.
	old, err := s.storage.GetEntry(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", id, err)
	}

	entry, err := s.storage.UpdateEntry(ctx, kind, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update %s entry %d: %w", kind, id, err)
	}

	slog.InfoContext(ctx, "Entry updated",
		"id", entry.ID,
		"kind", entry.Kind,
		"account_id", entry.AccountID,
		"amount", entry.Amount.String())

	s.publishEvent(ctx, entry.ID, kind, amqp.ActionUpdated)
	s.invalidatePeriod(old.PeriodID)
	if entry.PeriodID != old.PeriodID {
		s.invalidatePeriod(entry.PeriodID)
	}
	return entry, nil
}

// DeleteEntry removes an entry and restores the pre-create balance exactly.
func (s *LedgerService) DeleteEntry(ctx context.Context, kind core.Kind, id int64) error {
	if !core.ValidKind(kind) {
		return fmt.Errorf("kind %q: %w", kind, core.ErrInvalidCategory)
	}
	deleted, err := s.storage.DeleteEntry(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("delete %s entry %d: %w", kind, id, err)
	}

	slog.InfoContext(ctx, "Entry deleted",
		"id", id,
		"kind", kind,
		"account_id", deleted.AccountID,
		"amount", deleted.Amount.String())

	s.publishEvent(ctx, id, kind, amqp.ActionDeleted)
	s.invalidatePeriod(deleted.PeriodID)
	return nil
}

// CreateBatch posts many entries of one kind. Every item is validated before
// anything is written; one bad item rejects the whole batch. On success the
// balance of each distinct account moves exactly once, by the aggregated
// delta of its items.
func (s *LedgerService) CreateBatch(ctx context.Context, kind core.Kind, items []core.NewEntry) ([]core.Entry, error) {
	if !core.ValidKind(kind) {
		return nil, fmt.Errorf("kind %q: %w", kind, core.ErrInvalidCategory)
	}
	if len(items) == 0 {
		return nil, nil
	}

	validated := make([]core.NewEntry, len(items))
	var batchErr core.BatchError
	for i, in := range items {
		normalized, err := s.validateNewEntry(ctx, kind, &in)
		if err != nil {
			batchErr.Items = append(batchErr.Items, core.ItemError{
				Index: i,
				Field: fieldOf(err),
				Err:   err,
			})
			continue
		}
		validated[i] = *normalized
	}
	if len(batchErr.Items) > 0 {
		return nil, &batchErr
	}

	entries, err := s.storage.InsertEntries(ctx, kind, validated)
	if err != nil {
		return nil, fmt.Errorf("post %s batch: %w", kind, err)
	}

	slog.InfoContext(ctx, "Batch posted", "kind", kind, "count", len(entries))

	seen := make(map[int64]bool)
	for _, e := range entries {
		s.publishEvent(ctx, e.ID, kind, amqp.ActionPosted)
		if !seen[e.PeriodID] {
			seen[e.PeriodID] = true
			s.invalidatePeriod(e.PeriodID)
		}
	}
	return entries, nil
}

// validateNewEntry normalizes the category and checks everything that can be
// rejected before the unit of work begins.
func (s *LedgerService) validateNewEntry(ctx context.Context, kind core.Kind, in *core.NewEntry) (*core.NewEntry, error) {
	normalized, err := core.NormalizeCategory(kind, in.Category)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", in.Category, err)
	}
	out := *in
	out.Category = normalized
	if kind != core.KindIncome {
		out.CounterpartyID = nil
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetAccount(ctx, out.AccountID); err != nil {
		return nil, fmt.Errorf("account %d: %w", out.AccountID, err)
	}
	if s.periods != nil {
		ok, err := s.periods.PeriodExists(ctx, out.PeriodID)
		if err != nil {
			return nil, fmt.Errorf("check period %d: %w", out.PeriodID, err)
		}
		if !ok {
			return nil, fmt.Errorf("period %d: %w", out.PeriodID, core.ErrNotFound)
		}
	}
	return &out, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, id int64, kind core.Kind, action string) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewEntryEventMessage(id, kind, action)
	if err := s.amqpClient.PublishEntryEvent(ctx, msg); err != nil {
		// The entry is committed; the export sweep picks it up later.
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"id", id, "action", action, "error", err)
	}
}

func (s *LedgerService) invalidatePeriod(periodID int64) {
	if s.reports != nil {
		s.reports.InvalidatePeriod(periodID)
	}
}

// fieldOf names the offending field for batch rejection details.
func fieldOf(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidCategory):
		return "category"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, core.ErrInvalidDate):
		return "date"
	case errors.Is(err, core.ErrNotFound):
		return "account"
	default:
		return "entry"
	}
}

// Close releases the service's connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
