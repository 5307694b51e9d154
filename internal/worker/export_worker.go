// Package worker exports committed ledger entries to the external sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/sheets"
	"cassa/internal/storage"
)

// ExportWorker consumes entry events and mirrors entries to the configured
// ledger sheet. The periodic pending sweep is a backup mechanism in case
// AMQP messages are lost.
type ExportWorker struct {
	storage   *storage.Repository
	sheet     sheets.LedgerWriter
	batchSize int
}

func NewExportWorker(store *storage.Repository, sheet sheets.LedgerWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   store,
		sheet:     sheet,
		batchSize: batchSize,
	}
}

// HandleEntryEvent processes a single entry event from AMQP.
func (w *ExportWorker) HandleEntryEvent(ctx context.Context, msg *amqp.EntryEventMessage) error {
	slog.InfoContext(ctx, "Processing entry event",
		"id", msg.ID,
		"kind", msg.Kind,
		"action", msg.Action)

	if msg.Action == amqp.ActionDeleted {
		if err := w.sheet.AppendDeletion(ctx, msg.Kind, msg.ID); err != nil {
			return fmt.Errorf("append deletion marker: %w", err)
		}
		return nil
	}

	entry, err := w.storage.GetEntry(ctx, msg.Kind, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between the event and now; the deletion event follows.
		slog.WarnContext(ctx, "Entry gone before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	return w.export(ctx, *entry)
}

// ProcessPending exports entries still flagged pending. Runs periodically so
// an entry whose event got lost is eventually exported anyway.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, entry := range pending {
		if err := w.export(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry", "id", entry.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck exports a larger pending backlog once at worker startup,
// recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, entry := range pending {
		if err := w.export(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry during startup",
				"id", entry.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, entry core.Entry) error {
	if err := w.sheet.AppendEntry(ctx, entry); err != nil {
		if markErr := w.storage.MarkExportError(ctx, entry.Kind, entry.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"id", entry.ID, "error", markErr)
		}
		return fmt.Errorf("append entry %d: %w", entry.ID, err)
	}
	if err := w.storage.MarkExported(ctx, entry.Kind, entry.ID); err != nil {
		return fmt.Errorf("mark entry %d exported: %w", entry.ID, err)
	}

	slog.InfoContext(ctx, "Entry exported",
		"id", entry.ID,
		"kind", entry.Kind,
		"amount", entry.Amount.String())
	return nil
}
