package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaxRateLedgerSkipsNonPositive(t *testing.T) {
	l := NewTaxRateLedger()
	l.Add(dec("0"), dec("5"))
	l.Add(dec("-1"), dec("5"))
	l.Add(dec("8"), dec("0"))
	l.Add(dec("8"), dec("-2"))
	require.Equal(t, 0, l.Len())

	l.Add(dec("8"), dec("1.50"))
	l.Add(dec("8"), dec("2.50"))
	require.Equal(t, 1, l.Len())
	require.True(t, l.Sum().Equal(dec("4")))
}

func TestTaxRateLedgerEntriesAscending(t *testing.T) {
	l := NewTaxRateLedger()
	l.Add(dec("21"), dec("3"))
	l.Add(dec("8.5"), dec("1"))
	l.Add(dec("10"), dec("2"))

	entries := l.Entries()
	require.Len(t, entries, 3)
	require.True(t, entries[0].Rate.Equal(dec("8.5")))
	require.True(t, entries[1].Rate.Equal(dec("10")))
	require.True(t, entries[2].Rate.Equal(dec("21")))
	require.True(t, l.Sum().Equal(dec("6")))
}

func TestTaxRateLedgerString(t *testing.T) {
	l := NewTaxRateLedger()
	l.Add(dec("10"), dec("2.4"))
	l.Add(dec("8.5"), dec("1.02"))
	require.Equal(t, "8.5:1.02;   10:2.4;   ", l.String())

	empty := NewTaxRateLedger()
	empty.Set(dec("0"), dec("0"))
	require.Equal(t, "0:0;   ", empty.String())
}

func TestTaxRateLedgerSetOverwrites(t *testing.T) {
	l := NewTaxRateLedger()
	l.Add(dec("8"), dec("4"))
	l.Set(dec("8"), dec("3.2"))
	require.True(t, l.Sum().Equal(dec("3.2")))
}
