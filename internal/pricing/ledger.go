package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxRateLedger accumulates tax amounts per tax rate. Rates are keyed by
// their exact decimal representation, so 8.5 and 8.50 are distinct only if
// providers report them differently; providers are expected to be
// consistent within one calculation.
type TaxRateLedger struct {
	entries map[string]ledgerEntry
}

type ledgerEntry struct {
	rate   decimal.Decimal
	amount decimal.Decimal
}

// TaxRateEntry is one rate bucket of a ledger.
type TaxRateEntry struct {
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// NewTaxRateLedger returns an empty ledger.
func NewTaxRateLedger() *TaxRateLedger {
	return &TaxRateLedger{entries: make(map[string]ledgerEntry)}
}

// Add accumulates amount into the rate bucket. Entries with rate <= 0 or
// amount <= 0 are ignored so the ledger only carries taxed buckets.
func (l *TaxRateLedger) Add(rate, amount decimal.Decimal) {
	if rate.LessThanOrEqual(decimal.Zero) || amount.LessThanOrEqual(decimal.Zero) {
		return
	}
	key := rate.String()
	e, ok := l.entries[key]
	if !ok {
		e = ledgerEntry{rate: rate}
	}
	e.amount = e.amount.Add(amount)
	l.entries[key] = e
}

// Set overwrites the rate bucket, bypassing the positivity filter. Used
// when a stage needs to re-round a bucket in place.
func (l *TaxRateLedger) Set(rate, amount decimal.Decimal) {
	l.entries[rate.String()] = ledgerEntry{rate: rate, amount: amount}
}

// Len returns the number of rate buckets.
func (l *TaxRateLedger) Len() int {
	return len(l.entries)
}

// Entries returns the buckets ordered by ascending rate.
func (l *TaxRateLedger) Entries() []TaxRateEntry {
	out := make([]TaxRateEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, TaxRateEntry{Rate: e.rate, Amount: e.amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Rate.LessThan(out[j].Rate)
	})
	return out
}

// Sum returns the total tax across all buckets.
func (l *TaxRateLedger) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.amount)
	}
	return total
}

// String serializes the ledger for persistence. Each bucket renders as
// "{rate}:{amount};" followed by three spaces, in ascending rate order.
// The format is a storage contract; do not change it.
func (l *TaxRateLedger) String() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		fmt.Fprintf(&b, "%s:%s;   ", e.Rate.String(), e.Amount.String())
	}
	return b.String()
}
