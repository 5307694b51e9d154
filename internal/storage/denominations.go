package storage

import (
	"context"
	"fmt"

	"cassa/internal/core"
)

// SetDenominationQuantity overwrites the counted quantity of one
// denomination row. It never touches the account balance; the count is a
// physical tally compared against the balance, not a movement.
func (r *Repository) SetDenominationQuantity(ctx context.Context, accountID, denominationCents, quantity int64) (*core.DenominationCount, error) {
	count := core.DenominationCount{
		AccountID:    accountID,
		Denomination: core.Money{Cents: denominationCents},
		Quantity:     quantity,
	}
	if err := count.Validate(); err != nil {
		return nil, err
	}

	err := r.db.QueryRowContext(ctx, `
		UPDATE denomination_counts
		SET quantity = ?
		WHERE account_id = ? AND denomination_cents = ?
		RETURNING id`,
		quantity, accountID, denominationCents).Scan(&count.ID)
	if err != nil {
		return nil, fmt.Errorf("denomination %s of account %d: %w",
			core.FormatCents(denominationCents), accountID, mapErr(err))
	}
	return &count, nil
}

// DenominationCounts lists an account's count rows, largest face value first.
func (r *Repository) DenominationCounts(ctx context.Context, accountID int64) ([]core.DenominationCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, denomination_cents, quantity
		FROM denomination_counts
		WHERE account_id = ?
		ORDER BY denomination_cents DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list denomination counts for account %d: %w", accountID, mapErr(err))
	}
	defer rows.Close()

	var counts []core.DenominationCount
	for rows.Next() {
		var c core.DenominationCount
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Denomination.Cents, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan denomination count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list denomination counts: %w", err)
	}
	return counts, nil
}

// PhysicalTotal sums denomination_cents x quantity over an account's rows.
func (r *Repository) PhysicalTotal(ctx context.Context, accountID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(denomination_cents * quantity), 0)
		FROM denomination_counts WHERE account_id = ?`, accountID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("physical total for account %d: %w", accountID, mapErr(err))
	}
	return total, nil
}
