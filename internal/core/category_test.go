package core

import (
	"errors"
	"testing"
)

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		kind Kind
		in   string
		out  string
		ok   bool
	}{
		{KindIncome, "Donation", "Donation", true},
		{KindIncome, "donation", "Donation", true},
		{KindIncome, "  MEMBERSHIP  ", "Membership", true},
		{KindOutcome, "rent", "Rent", true},
		{KindOutcome, "event", "Event", true},
		{KindIncome, "Rent", "", false}, // outcome-only category
		{KindOutcome, "Donation", "", false},
		{KindIncome, "", "", false},
		{KindIncome, "Pizza", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCategory(tc.kind, tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%s %q: got %q (err=%v), want %q", tc.kind, tc.in, got, err, tc.out)
			}
		} else if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%s %q: expected ErrInvalidCategory, got %v", tc.kind, tc.in, err)
		}
	}
}

func TestCategoriesPerKind(t *testing.T) {
	if len(Categories(KindIncome)) == 0 || len(Categories(KindOutcome)) == 0 {
		t.Fatalf("category sets must not be empty")
	}
	for _, c := range Categories(KindOutcome) {
		if c == "Donation" {
			t.Fatalf("income category leaked into outcome set")
		}
	}
}
