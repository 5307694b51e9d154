package services

import "context"

// AllowList is a static Authorizer granting resync to a configured set of
// caller names. Real deployments can substitute any Authorizer; the ledger
// never inspects sessions or roles itself.
type AllowList struct {
	callers map[string]bool
}

func NewAllowList(callers []string) *AllowList {
	m := make(map[string]bool, len(callers))
	for _, c := range callers {
		m[c] = true
	}
	return &AllowList{callers: m}
}

func (a *AllowList) CanResync(_ context.Context, caller string) bool {
	return a.callers[caller]
}
