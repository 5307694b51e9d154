package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		out   string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{1205, "12.05"},
		{-1205, "-12.05"},
		{-5, "-0.05"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents); got != tc.out {
			t.Fatalf("FormatCents(%d) = %q, want %q", tc.cents, got, tc.out)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1000}
	b := Money{Cents: 250}

	if got := a.Add(b); got.Cents != 1250 {
		t.Fatalf("Add: got %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 750 {
		t.Fatalf("Sub: got %d", got.Cents)
	}
	if got := b.Neg(); got.Cents != -250 {
		t.Fatalf("Neg: got %d", got.Cents)
	}
	if !(Money{}).IsZero() || a.IsZero() {
		t.Fatalf("IsZero misclassified")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}
