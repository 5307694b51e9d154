// Package sheets defines the ports of the ledger export target.
package sheets

import (
	"context"

	"cassa/internal/core"
)

// LedgerWriter appends ledger rows to the external sheet the treasurer
// reads. Implementations must be safe for use from a single worker.
type LedgerWriter interface {
	// AppendEntry appends one posted or updated entry as a row.
	AppendEntry(ctx context.Context, e core.Entry) error

	// AppendDeletion appends a marker row for a deleted entry, so the sheet
	// keeps a trace of corrections.
	AppendDeletion(ctx context.Context, kind core.Kind, id int64) error
}
