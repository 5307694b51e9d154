package core

// PeriodSummary is a materialized sum over all entries referencing one
// period. Recomputed on demand, never hand-edited.
type PeriodSummary struct {
	PeriodID     int64
	TotalIncome  Money
	TotalOutcome Money
	Net          Money
}

// Reconciliation compares the physically counted cash of an account with the
// system-recorded balance. It is advisory: computing it never mutates either
// side.
type Reconciliation struct {
	AccountID     int64
	PhysicalTotal Money
	SystemTotal   Money
	Drift         Money
	Balanced      bool
}

// BalancedEpsilonCents is the maximum absolute drift still reported as
// balanced. Integer cents cannot accumulate rounding error, so it is zero;
// the constant exists so a currency with rounding could widen it.
const BalancedEpsilonCents int64 = 0
