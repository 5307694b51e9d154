package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cassa/internal/core"
)

// CreateAccount inserts a new cash account and seeds its canonical
// denomination set at quantity zero in the same transaction, so an account
// is never observable without its count rows.
func (r *Repository) CreateAccount(ctx context.Context, name string, opening core.Money) (*core.CashAccount, error) {
	if name == "" {
		return nil, core.ErrEmptyName
	}

	account := &core.CashAccount{
		Name:      name,
		Balance:   opening,
		CreatedAt: time.Now().UTC(),
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cash_accounts (name, balance_cents, starting_balance_cents, created_at)
			VALUES (?, ?, ?, ?)`,
			name, opening.Cents, opening.Cents, account.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert account: %w", mapErr(err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("account id: %w", err)
		}
		account.ID = id

		for _, denom := range core.DefaultDenominations {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO denomination_counts (account_id, denomination_cents, quantity)
				VALUES (?, ?, 0)`,
				id, denom); err != nil {
				return fmt.Errorf("seed denomination %d: %w", denom, mapErr(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount returns one account by id.
func (r *Repository) GetAccount(ctx context.Context, id int64) (*core.CashAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, balance_cents, created_at
		FROM cash_accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetAccountWithCounts returns the account and its denomination rows in one
// call, the shape reconciliation reads.
func (r *Repository) GetAccountWithCounts(ctx context.Context, id int64) (*core.CashAccount, []core.DenominationCount, error) {
	account, err := r.GetAccount(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	counts, err := r.DenominationCounts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return account, counts, nil
}

// ListAccounts returns all accounts ordered by name.
func (r *Repository) ListAccounts(ctx context.Context) ([]core.CashAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, balance_cents, created_at
		FROM cash_accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", mapErr(err))
	}
	defer rows.Close()

	var accounts []core.CashAccount
	for rows.Next() {
		var a core.CashAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance.Cents, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// AccountIDs returns the ids of all accounts.
func (r *Repository) AccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM cash_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list account ids: %w", mapErr(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// addToBalance applies a signed delta to one account's balance in place and
// returns the new balance. It must only ever run inside a live transaction;
// the single UPDATE keeps the read-modify-write atomic.
func addToBalance(ctx context.Context, tx *sql.Tx, accountID, deltaCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE cash_accounts
		SET balance_cents = balance_cents + ?
		WHERE id = ?
		RETURNING balance_cents`,
		deltaCents, accountID).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("apply balance delta to account %d: %w", accountID, mapErr(err))
	}
	return newBalance, nil
}

// ResyncBalance recomputes one account's balance from its starting balance
// plus its full entry history and overwrites the stored balance, atomically.
// Running it twice with no intervening mutations yields the same result.
func (r *Repository) ResyncBalance(ctx context.Context, accountID int64) (*core.ResyncResult, error) {
	result := &core.ResyncResult{AccountID: accountID}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var starting int64
		if err := tx.QueryRowContext(ctx, `
			SELECT balance_cents, starting_balance_cents
			FROM cash_accounts WHERE id = ?`,
			accountID).Scan(&result.OldBalance.Cents, &starting); err != nil {
			return fmt.Errorf("read account %d: %w", accountID, mapErr(err))
		}

		var history int64
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(CASE kind WHEN 'income' THEN amount_cents ELSE -amount_cents END), 0)
			FROM entries WHERE account_id = ?`,
			accountID).Scan(&history); err != nil {
			return fmt.Errorf("sum entries for account %d: %w", accountID, mapErr(err))
		}

		recomputed := starting + history
		if _, err := tx.ExecContext(ctx, `
			UPDATE cash_accounts SET balance_cents = ? WHERE id = ?`,
			recomputed, accountID); err != nil {
			return fmt.Errorf("overwrite balance of account %d: %w", accountID, mapErr(err))
		}
		result.NewBalance.Cents = recomputed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanAccount(row *sql.Row) (*core.CashAccount, error) {
	var a core.CashAccount
	if err := row.Scan(&a.ID, &a.Name, &a.Balance.Cents, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan account: %w", mapErr(err))
	}
	return &a, nil
}
