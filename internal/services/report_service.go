package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cassa/internal/cache"
	"cassa/internal/core"
	"cassa/internal/storage"
)

const (
	summaryCacheSize = 256
	summaryCacheTTL  = 5 * time.Minute
)

// ReportService derives read-only views of the ledger: period aggregates and
// account history. Period summaries are memoized; ledger writes invalidate
// the touched period.
type ReportService struct {
	storage   *storage.Repository
	summaries *cache.LRUCache[core.PeriodSummary]
}

func NewReportService(store *storage.Repository) *ReportService {
	return &ReportService{
		storage:   store,
		summaries: cache.NewLRUCache[core.PeriodSummary](summaryCacheSize, summaryCacheTTL),
	}
}

// PeriodSummary returns the materialized totals for one period, recomputing
// on a cache miss. The summary may trail an in-flight mutation; it is
// advisory, never authoritative.
func (s *ReportService) PeriodSummary(ctx context.Context, periodID int64) (*core.PeriodSummary, error) {
	key := strconv.FormatInt(periodID, 10)
	if cached, ok := s.summaries.Get(key); ok {
		return &cached, nil
	}

	income, outcome, err := s.storage.PeriodTotals(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("period summary: %w", err)
	}

	summary := core.PeriodSummary{
		PeriodID:     periodID,
		TotalIncome:  core.Money{Cents: income},
		TotalOutcome: core.Money{Cents: outcome},
		Net:          core.Money{Cents: income - outcome},
	}
	s.summaries.Set(key, summary)
	return &summary, nil
}

// InvalidatePeriod drops the cached summary for one period.
func (s *ReportService) InvalidatePeriod(periodID int64) {
	s.summaries.Delete(strconv.FormatInt(periodID, 10))
}

// Accounts lists all cash accounts with their current balances.
func (s *ReportService) Accounts(ctx context.Context) ([]core.CashAccount, error) {
	return s.storage.ListAccounts(ctx)
}

// AccountHistory lists an account's entries, newest first.
func (s *ReportService) AccountHistory(ctx context.Context, accountID int64) ([]core.Entry, error) {
	if _, err := s.storage.GetAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("account %d: %w", accountID, err)
	}
	return s.storage.EntriesByAccount(ctx, accountID)
}

// Cache exposes the summary cache for inspection.
func (s *ReportService) Cache() *cache.LRUCache[core.PeriodSummary] {
	return s.summaries
}
