// Package pricing resolves the publication fee for a raffle from its pool size.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPoolSize is returned for pool sizes below one.
var ErrInvalidPoolSize = errors.New("pool size must be at least 1")

// Tier charges FeeCents for pool sizes in [MinNumbers, MaxNumbers).
type Tier struct {
	MinNumbers int   `mapstructure:"minNumbers" json:"minNumbers"`
	MaxNumbers int   `mapstructure:"maxNumbers" json:"maxNumbers"`
	FeeCents   int64 `mapstructure:"feeCents" json:"feeCents"`
}

// Quote is the result of a lookup. When ManualApproval is set there is no fee
// and the raffle must go through off-system approval.
type Quote struct {
	PoolSize       int    `json:"poolSize"`
	FeeCents       int64  `json:"feeCents"`
	Fee            string `json:"fee"`
	ManualApproval bool   `json:"manualApproval"`
}

// DefaultTiers mirrors the publication fee table shown to sellers.
func DefaultTiers() []Tier {
	return []Tier{
		{MinNumbers: 1, MaxNumbers: 10001, FeeCents: 9700},
		{MinNumbers: 10001, MaxNumbers: 50001, FeeCents: 14900},
		{MinNumbers: 50001, MaxNumbers: 100001, FeeCents: 19700},
	}
}

// Resolver is a pure tiered lookup
type Resolver struct {
	tiers []Tier
}

// NewResolver validates tiers: sorted, contiguous, non-empty ranges, starting at 1.
func NewResolver(tiers []Tier) (*Resolver, error) {
	if len(tiers) == 0 {
		return nil, errors.New("pricing: at least one tier is required")
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinNumbers < sorted[j].MinNumbers })

	if sorted[0].MinNumbers != 1 {
		return nil, fmt.Errorf("pricing: first tier must start at 1, got %d", sorted[0].MinNumbers)
	}
	for i, t := range sorted {
		if t.MaxNumbers <= t.MinNumbers {
			return nil, fmt.Errorf("pricing: tier %d has empty range [%d, %d)", i, t.MinNumbers, t.MaxNumbers)
		}
		if t.FeeCents <= 0 {
			return nil, fmt.Errorf("pricing: tier %d has non-positive fee", i)
		}
		if i > 0 && sorted[i-1].MaxNumbers != t.MinNumbers {
			return nil, fmt.Errorf("pricing: gap or overlap between tiers %d and %d", i-1, i)
		}
	}
	return &Resolver{tiers: sorted}, nil
}

// MustDefault returns a resolver over DefaultTiers.
func MustDefault() *Resolver {
	r, err := NewResolver(DefaultTiers())
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve maps a pool size to its quote. Sizes at or above the top tier's upper
// bound resolve to the manual approval sentinel, never to a fee.
func (r *Resolver) Resolve(poolSize int) (Quote, error) {
	if poolSize < 1 {
		return Quote{}, ErrInvalidPoolSize
	}
	for _, t := range r.tiers {
		if poolSize >= t.MinNumbers && poolSize < t.MaxNumbers {
			return Quote{
				PoolSize: poolSize,
				FeeCents: t.FeeCents,
				Fee:      FormatBRL(t.FeeCents),
			}, nil
		}
	}
	return Quote{PoolSize: poolSize, ManualApproval: true}, nil
}

// Tiers returns a copy of the configured tiers.
func (r *Resolver) Tiers() []Tier {
	out := make([]Tier, len(r.tiers))
	copy(out, r.tiers)
	return out
}

// FormatBRL renders cents as "R$ 97,00".
func FormatBRL(cents int64) string {
	return "R$ " + strings.Replace(decimal.New(cents, -2).StringFixed(2), ".", ",", 1)
}
