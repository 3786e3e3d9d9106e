package pricing

import (
	"errors"
	"testing"
)

func TestResolve_DefaultTiers(t *testing.T) {
	r := MustDefault()

	cases := []struct {
		size     int
		fee      int64
		manual   bool
		expected string
	}{
		{size: 1, fee: 9700, expected: "R$ 97,00"},
		{size: 1000, fee: 9700, expected: "R$ 97,00"},
		{size: 10000, fee: 9700, expected: "R$ 97,00"},
		{size: 10001, fee: 14900, expected: "R$ 149,00"},
		{size: 50000, fee: 14900, expected: "R$ 149,00"},
		{size: 50001, fee: 19700, expected: "R$ 197,00"},
		{size: 100000, fee: 19700, expected: "R$ 197,00"},
		{size: 100001, manual: true},
		{size: 5000000, manual: true},
	}
	for _, tc := range cases {
		q, err := r.Resolve(tc.size)
		if err != nil {
			t.Fatalf("size %d: unexpected error %v", tc.size, err)
		}
		if q.ManualApproval != tc.manual {
			t.Fatalf("size %d: manual=%v, want %v", tc.size, q.ManualApproval, tc.manual)
		}
		if tc.manual {
			if q.FeeCents != 0 {
				t.Fatalf("size %d: manual quote must not carry a fee, got %d", tc.size, q.FeeCents)
			}
			continue
		}
		if q.FeeCents != tc.fee || q.Fee != tc.expected {
			t.Fatalf("size %d: got %d %q, want %d %q", tc.size, q.FeeCents, q.Fee, tc.fee, tc.expected)
		}
	}
}

func TestResolve_InvalidSize(t *testing.T) {
	r := MustDefault()
	for _, size := range []int{0, -1} {
		if _, err := r.Resolve(size); !errors.Is(err, ErrInvalidPoolSize) {
			t.Fatalf("size %d: expected ErrInvalidPoolSize, got %v", size, err)
		}
	}
}

func TestNewResolver_RejectsGaps(t *testing.T) {
	_, err := NewResolver([]Tier{
		{MinNumbers: 1, MaxNumbers: 100, FeeCents: 100},
		{MinNumbers: 200, MaxNumbers: 300, FeeCents: 200},
	})
	if err == nil {
		t.Fatalf("expected error for gap between tiers")
	}
}

func TestNewResolver_SortsTiers(t *testing.T) {
	r, err := NewResolver([]Tier{
		{MinNumbers: 100, MaxNumbers: 200, FeeCents: 200},
		{MinNumbers: 1, MaxNumbers: 100, FeeCents: 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q, _ := r.Resolve(150)
	if q.FeeCents != 200 {
		t.Fatalf("expected fee 200, got %d", q.FeeCents)
	}
	q, _ = r.Resolve(200)
	if !q.ManualApproval {
		t.Fatalf("expected manual approval at upper bound")
	}
}
