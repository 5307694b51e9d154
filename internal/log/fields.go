package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldAccountID  = "account_id"
	FieldEntryID    = "entry_id"
	FieldEntryKind  = "kind"
	FieldPeriodID   = "period_id"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldBalance    = "balance"
	FieldDrift      = "drift"
	FieldQuantity   = "quantity"
	FieldBatchCount = "batch_count"
	FieldCaller     = "caller"
)

// Components defines standard component names
const (
	ComponentApp            = "app"
	ComponentLedger         = "ledger"
	ComponentStorage        = "storage"
	ComponentAMQP           = "amqp"
	ComponentWorker         = "worker"
	ComponentSheets         = "sheets"
	ComponentReconciliation = "reconciliation"
	ComponentReports        = "reports"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpBatch    = "batch"
	OpCount    = "count"
	OpRecon    = "reconcile"
	OpResync   = "resync"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
