package core

import (
	"math"
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
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFromFloat(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{12.34, 1234},
		{12.345, 1235}, // rounds away from zero
		{0.005, 1},
		{-0.005, -1},
		{90, 9000},
	}
	for _, tc := range cases {
		got, err := FromFloat(tc.in)
		if err != nil {
			t.Fatalf("FromFloat(%v): %v", tc.in, err)
		}
		if got.Cents != tc.out {
			t.Fatalf("FromFloat(%v) = %d, want %d", tc.in, got.Cents, tc.out)
		}
	}
}

func TestFromFloatRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := FromFloat(v); err == nil {
			t.Fatalf("FromFloat(%v) expected error", v)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{1234, "12.34"},
		{100, "1.00"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := Cents(tc.cents).String(); got != tc.want {
			t.Fatalf("Cents(%d).String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Cents(1234)
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "12.34" {
		t.Fatalf("marshal = %s, want 12.34", b)
	}
	var back Money
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != m {
		t.Fatalf("round trip: got %d cents, want %d", back.Cents, m.Cents)
	}
}

func TestMoneyUnmarshalRejectsGarbage(t *testing.T) {
	var m Money
	for _, in := range []string{`"12.34"`, `null`, `{}`} {
		if err := m.UnmarshalJSON([]byte(in)); err == nil {
			t.Fatalf("unmarshal %s expected error", in)
		}
	}
}
