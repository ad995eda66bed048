package core

import (
	"encoding/json"
	"testing"
)

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
		{"50", 5000, true},
		{"-1", 0, false},
		{"0", 0, true},
		{"0.00", 0, true},
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

func TestMoneyJSONRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`50`, 5000},
		{`12.34`, 1234},
		{`"12.34"`, 1234},
		{`0.01`, 1},
		{`0`, 0},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if m.Cents != tc.want {
			t.Fatalf("%s: expected %d cents, got %d", tc.in, tc.want, m.Cents)
		}
	}

	out, err := json.Marshal(Money{Cents: 5000})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "50.00" {
		t.Fatalf("expected 50.00, got %s", out)
	}

	var bad Money
	if err := json.Unmarshal([]byte(`-5`), &bad); err == nil {
		t.Fatalf("expected error for negative amount")
	}

	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected zero amount to fail validation")
	}
}
