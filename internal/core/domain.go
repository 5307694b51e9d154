package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two entry ledgers. Income adds to an account's
// balance, outcome subtracts from it.
type Kind string

const (
	KindIncome  Kind = "income"
	KindOutcome Kind = "outcome"
)

type (
	// CashAccount is a named pool holding a running balance. The balance is
	// mutable only through ledger operations and the administrative resync.
	CashAccount struct {
		ID        int64
		Name      string
		Balance   Money
		CreatedAt time.Time
	}

	// Entry is a dated income or outcome movement against a cash account.
	// Amount is always positive; Kind carries the sign convention.
	// CounterpartyID is only meaningful for income entries.
	Entry struct {
		ID             int64
		Kind           Kind
		AccountID      int64
		PeriodID       int64
		Date           time.Time
		Amount         Money
		Category       string
		CounterpartyID *int64
		CreatedAt      time.Time
	}

	// NewEntry is the input for posting an entry, single or bulk.
	NewEntry struct {
		AccountID      int64
		PeriodID       int64
		Date           time.Time
		Amount         Money
		Category       string
		CounterpartyID *int64
	}

	// EntryUpdate lists the mutable fields of an entry. Nil means "leave
	// unchanged". Amount and AccountID changes move money and are applied
	// atomically with the row write.
	EntryUpdate struct {
		AccountID      *int64
		PeriodID       *int64
		Date           *time.Time
		Amount         *Money
		Category       *string
		CounterpartyID *int64
	}

	// DenominationCount is a physically counted tally of one currency
	// denomination for an account. It is never derived from the ledger.
	DenominationCount struct {
		ID           int64
		AccountID    int64
		Denomination Money
		Quantity     int64
	}

	// ResyncResult reports a balance overwrite performed by the
	// administrative resync.
	ResyncResult struct {
		AccountID  int64
		OldBalance Money
		NewBalance Money
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrEmptyName       = errors.New("empty account name")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("concurrent modification conflict")
	ErrUnauthorized    = errors.New("unauthorized")
)

// ItemError describes why one item of a bulk batch was rejected.
type ItemError struct {
	Index int
	Field string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchError rejects a whole bulk batch. Nothing is persisted when it is
// returned; Items lists every offending element.
type BatchError struct {
	Items []ItemError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Items))
	for i, item := range e.Items {
		msgs[i] = item.Error()
	}
	return "batch rejected: " + strings.Join(msgs, "; ")
}

// Validate checks a new entry before it reaches storage. The category is
// checked separately via NormalizeCategory because normalization rewrites it.
func (e NewEntry) Validate() error {
	if e.AccountID <= 0 {
		return fmt.Errorf("account id: %w", ErrNotFound)
	}
	if e.PeriodID <= 0 {
		return fmt.Errorf("period id: %w", ErrInvalidDate)
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks a physically counted quantity. Zero is fine; the count is
// a tally, not a movement.
func (d DenominationCount) Validate() error {
	if d.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if d.Denomination.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the entry's contribution to its account balance in cents:
// positive for income, negative for outcome.
func (e Entry) Signed() int64 {
	if e.Kind == KindOutcome {
		return -e.Amount.Cents
	}
	return e.Amount.Cents
}

// SignedCents applies the kind's sign convention to a raw amount.
func SignedCents(kind Kind, amount Money) int64 {
	if kind == KindOutcome {
		return -amount.Cents
	}
	return amount.Cents
}

// ValidKind reports whether k is one of the two ledger kinds.
func ValidKind(k Kind) bool {
	return k == KindIncome || k == KindOutcome
}

// DefaultDenominations is the canonical euro denomination set, in cents,
// seeded (at quantity zero) for every new account.
var DefaultDenominations = []int64{
	50000, 20000, 10000, 5000, 2000, 1000, 500, // notes
	200, 100, 50, 20, 10, 5, 2, 1, // coins
}
