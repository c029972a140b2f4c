package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"1000", "1,000.00"},
		{"250.5", "250.50"},
		{"-1234567.89", "-1,234,567.89"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatAmount(decimal.RequireFromString(tc.in)), "input %s", tc.in)
	}
}

func TestFormatAmountKeepsPrecisionBeyondFloat64(t *testing.T) {
	// 2^53 + 1 is the first integer float64 cannot represent exactly.
	d := decimal.RequireFromString("9007199254740993.12")
	require.Equal(t, "9,007,199,254,740,993.12", FormatAmount(d))
}
