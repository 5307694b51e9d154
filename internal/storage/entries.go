package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cassa/internal/core"
)

const entryDateLayout = "2006-01-02"

const entryColumns = `id, kind, account_id, period_id, entry_date, amount_cents,
	category, counterparty_id, created_at`

// InsertEntry writes one entry row and applies its signed delta to the
// owning account. Both writes commit or roll back together.
func (r *Repository) InsertEntry(ctx context.Context, kind core.Kind, in core.NewEntry) (*core.Entry, error) {
	entry := newEntryRow(kind, in)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertEntryRow(ctx, tx, entry); err != nil {
			return err
		}
		_, err := addToBalance(ctx, tx, entry.AccountID, entry.Signed())
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// InsertEntries writes a whole batch of entries of one kind, then applies
// exactly one aggregated delta per distinct account. A reader can never
// observe a partially applied batch.
func (r *Repository) InsertEntries(ctx context.Context, kind core.Kind, items []core.NewEntry) ([]core.Entry, error) {
	entries := make([]core.Entry, len(items))
	deltas := make(map[int64]int64)
	order := make([]int64, 0, len(items))
	for i, in := range items {
		entries[i] = *newEntryRow(kind, in)
		if _, seen := deltas[in.AccountID]; !seen {
			order = append(order, in.AccountID)
		}
		deltas[in.AccountID] += entries[i].Signed()
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range entries {
			if err := insertEntryRow(ctx, tx, &entries[i]); err != nil {
				return err
			}
		}
		// One increment per account, in first-seen order.
		for _, accountID := range order {
			if _, err := addToBalance(ctx, tx, accountID, deltas[accountID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry returns one entry by kind and id.
func (r *Repository) GetEntry(ctx context.Context, kind core.Kind, id int64) (*core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries WHERE id = ? AND kind = ?`, id, kind)
	return scanEntryRow(row.Scan)
}

// UpdateEntry mutates an entry. The prior row is read once inside the
// transaction; old and new deltas are computed analytically from that capture
// and applied as one combined delta per affected account, so a same-account
// update touches the balance exactly once.
func (r *Repository) UpdateEntry(ctx context.Context, kind core.Kind, id int64, upd core.EntryUpdate) (*core.Entry, error) {
	var updated *core.Entry

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getEntryForUpdate(ctx, tx, kind, id)
		if err != nil {
			return err
		}

		next := applyUpdate(*old, upd)
		if _, err := tx.ExecContext(ctx, `
			UPDATE entries
			SET account_id = ?, period_id = ?, entry_date = ?, amount_cents = ?,
			    category = ?, counterparty_id = ?, export_status = 'pending'
			WHERE id = ? AND kind = ?`,
			next.AccountID, next.PeriodID, next.Date.Format(entryDateLayout),
			next.Amount.Cents, next.Category, next.CounterpartyID,
			id, kind); err != nil {
			return fmt.Errorf("update entry %d: %w", id, mapErr(err))
		}

		moneyMoved := next.Amount.Cents != old.Amount.Cents || next.AccountID != old.AccountID
		if moneyMoved {
			if next.AccountID == old.AccountID {
				// Reversal and re-application collapse into one delta
				// against a single consistent balance.
				if _, err := addToBalance(ctx, tx, old.AccountID, next.Signed()-old.Signed()); err != nil {
					return err
				}
			} else {
				if _, err := addToBalance(ctx, tx, old.AccountID, -old.Signed()); err != nil {
					return err
				}
				if _, err := addToBalance(ctx, tx, next.AccountID, next.Signed()); err != nil {
					return err
				}
			}
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEntry removes an entry and reverses its delta on the owning account.
// Deleting an unknown entry reports ErrNotFound, never a silent success.
func (r *Repository) DeleteEntry(ctx context.Context, kind core.Kind, id int64) (*core.Entry, error) {
	var deleted *core.Entry

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getEntryForUpdate(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM entries WHERE id = ? AND kind = ?`, id, kind); err != nil {
			return fmt.Errorf("delete entry %d: %w", id, mapErr(err))
		}
		if _, err := addToBalance(ctx, tx, old.AccountID, -old.Signed()); err != nil {
			return err
		}
		deleted = old
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// EntriesByAccount lists an account's entries, newest first.
func (r *Repository) EntriesByAccount(ctx context.Context, accountID int64) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries WHERE account_id = ?
		ORDER BY entry_date DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list entries for account %d: %w", accountID, mapErr(err))
	}
	defer rows.Close()
	return collectEntries(rows)
}

// PeriodTotals sums income and outcome over all entries referencing one
// period. Runs outside any transaction; the result is advisory.
func (r *Repository) PeriodTotals(ctx context.Context, periodID int64) (income, outcome int64, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE kind WHEN 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE kind WHEN 'outcome' THEN amount_cents ELSE 0 END), 0)
		FROM entries WHERE period_id = ?`, periodID).Scan(&income, &outcome)
	if err != nil {
		return 0, 0, fmt.Errorf("period totals for %d: %w", periodID, mapErr(err))
	}
	return income, outcome, nil
}

// PendingExport returns up to limit entries not yet exported, oldest first.
func (r *Repository) PendingExport(ctx context.Context, limit int) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries WHERE export_status = 'pending'
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", mapErr(err))
	}
	defer rows.Close()
	return collectEntries(rows)
}

// MarkExported flags an entry as exported.
func (r *Repository) MarkExported(ctx context.Context, kind core.Kind, id int64) error {
	return r.setExportStatus(ctx, kind, id, "synced")
}

// MarkExportError flags an entry whose export failed so the sweep retries it
// explicitly rather than forever.
func (r *Repository) MarkExportError(ctx context.Context, kind core.Kind, id int64) error {
	return r.setExportStatus(ctx, kind, id, "error")
}

func (r *Repository) setExportStatus(ctx context.Context, kind core.Kind, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entries SET export_status = ? WHERE id = ? AND kind = ?`,
		status, id, kind)
	if err != nil {
		return fmt.Errorf("set export status of entry %d: %w", id, mapErr(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func newEntryRow(kind core.Kind, in core.NewEntry) *core.Entry {
	return &core.Entry{
		Kind:           kind,
		AccountID:      in.AccountID,
		PeriodID:       in.PeriodID,
		Date:           in.Date,
		Amount:         in.Amount,
		Category:       in.Category,
		CounterpartyID: in.CounterpartyID,
		CreatedAt:      time.Now().UTC(),
	}
}

func insertEntryRow(ctx context.Context, tx *sql.Tx, e *core.Entry) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO entries (kind, account_id, period_id, entry_date,
			amount_cents, category, counterparty_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.AccountID, e.PeriodID, e.Date.Format(entryDateLayout),
		e.Amount.Cents, e.Category, e.CounterpartyID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	e.ID = id
	return nil
}

func getEntryForUpdate(ctx context.Context, tx *sql.Tx, kind core.Kind, id int64) (*core.Entry, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries WHERE id = ? AND kind = ?`, id, kind)
	e, err := scanEntryRow(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", id, err)
	}
	return e, nil
}

func applyUpdate(e core.Entry, upd core.EntryUpdate) core.Entry {
	if upd.AccountID != nil {
		e.AccountID = *upd.AccountID
	}
	if upd.PeriodID != nil {
		e.PeriodID = *upd.PeriodID
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	if upd.Amount != nil {
		e.Amount = *upd.Amount
	}
	if upd.Category != nil {
		e.Category = *upd.Category
	}
	if upd.CounterpartyID != nil {
		e.CounterpartyID = upd.CounterpartyID
	}
	return e
}

func scanEntryRow(scan func(...any) error) (*core.Entry, error) {
	var (
		e       core.Entry
		rawDate string
	)
	if err := scan(&e.ID, &e.Kind, &e.AccountID, &e.PeriodID, &rawDate,
		&e.Amount.Cents, &e.Category, &e.CounterpartyID, &e.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	date, err := time.Parse(entryDateLayout, rawDate)
	if err != nil {
		return nil, fmt.Errorf("parse entry date %q: %w", rawDate, err)
	}
	e.Date = date
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]core.Entry, error) {
	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
