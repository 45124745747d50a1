package repo

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "97.20", "-12.5", "0.005", "1234567.89"} {
		d := decimal.RequireFromString(raw)
		back, err := numericToDecimal(decimalToNumeric(d))
		require.NoError(t, err)
		require.True(t, back.Equal(d), "%s round-tripped to %s", raw, back)
	}
}

func TestNumericNullIsZero(t *testing.T) {
	got, err := numericToDecimal(pgtype.Numeric{})
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestNumericNaNRejected(t *testing.T) {
	_, err := numericToDecimal(pgtype.Numeric{Valid: true, NaN: true})
	require.Error(t, err)
}
