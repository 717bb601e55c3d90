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

func TestParseMoneyAcceptsZero(t *testing.T) {
	m, err := ParseMoney("0")
	if err != nil || m.Cents != 0 {
		t.Fatalf("expected 0, got %d (err=%v)", m.Cents, err)
	}
	if _, err := ParseMoney("-3"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyDivideBy(t *testing.T) {
	tests := []struct {
		cents int64
		n     int64
		want  int64
	}{
		{20000, 4, 5000},
		{20000, 2, 10000},
		{1000, 3, 333},
		{1001, 2, 501}, // 500.5 rounds away from zero
		{1002, 4, 251}, // 250.5
		{999, 12, 83},
		{500, 1, 500},
	}
	for _, tt := range tests {
		got := Money{Cents: tt.cents}.DivideBy(tt.n)
		if got.Cents != tt.want {
			t.Errorf("%d / %d = %d, want %d", tt.cents, tt.n, got.Cents, tt.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1230})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "12.30" {
		t.Fatalf("marshal = %s, want 12.30", b)
	}

	for _, in := range []string{`12.3`, `"12.30"`, `"12,30"`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 1230 {
			t.Fatalf("unmarshal %s = %d, want 1230", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"ten"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
}
