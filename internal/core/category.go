package core

import "strings"

// Closed category sets per ledger kind. A submitted category must match one
// of these case-insensitively; it is never auto-created.
var (
	IncomeCategories = []string{
		"Donation",
		"Membership",
		"Event",
		"Grant",
		"Interest",
		"Other",
	}

	OutcomeCategories = []string{
		"Rent",
		"Utilities",
		"Supplies",
		"Maintenance",
		"Event",
		"Transport",
		"Other",
	}
)

// Categories returns the closed set for a kind.
func Categories(kind Kind) []string {
	if kind == KindOutcome {
		return OutcomeCategories
	}
	return IncomeCategories
}

// NormalizeCategory matches s case-insensitively against the closed set for
// kind and returns the canonical spelling, or ErrInvalidCategory when there
// is no match.
func NormalizeCategory(kind Kind, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidCategory
	}
	for _, c := range Categories(kind) {
		if strings.EqualFold(c, s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}
