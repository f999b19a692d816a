package api

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateAddOK(t *testing.T) {
	input, errs, err := ValidateAdd([]byte(`{"payer":"DANNON","points":-200,"timestamp":"2022-01-03T00:00:00Z"}`))
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Equal(t, AddInput{
		Payer:     "DANNON",
		Points:    -200,
		Timestamp: time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
	}, input)
}

func TestValidateEmptyBodyReportsMissingFields(t *testing.T) {
	_, errs, err := ValidateSpend(nil)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	require.Equal(t, "points", errs[0].Path)
	require.Nil(t, errs[0].Value)
}

func TestValidateAddEmptyPayer(t *testing.T) {
	_, errs, err := ValidateAdd([]byte(`{"payer":"","points":1,"timestamp":"2022-01-01"}`))
	require.NoError(t, err)
	require.Equal(t, []string{"Payer must not be empty"}, messages(errs))
}

func TestParseTimestampWithoutZoneIsUTC(t *testing.T) {
	when, err := parseTimestamp([]byte(`"2022-01-01T10:15:00"`), true)
	require.NoError(t, err)
	require.Equal(t, time.UTC, when.Location())
	require.Equal(t, 10, when.Hour())

	_, err = parseTimestamp([]byte(`12345`), true)
	require.Error(t, err)
}

func TestParseInteger(t *testing.T) {
	n, ok := parseInteger([]byte(`-9223372036854775808`), true)
	require.True(t, ok)
	require.Equal(t, int64(-9223372036854775808), n)

	_, ok = parseInteger([]byte(`1e-2`), true)
	require.False(t, ok)
	_, ok = parseInteger([]byte(`"5"`), true)
	require.False(t, ok)
	_, ok = parseInteger(nil, false)
	require.False(t, ok)
}

func TestParseIntegerRejectsHugeExponentsQuickly(t *testing.T) {
	for _, raw := range []string{"1e999999999", "1e10000000", "-1e10000000", "0e-999999999", "1e19", "1.5e-19"} {
		start := time.Now()
		_, ok := parseInteger([]byte(raw), true)
		require.False(t, ok, raw)
		require.Less(t, time.Since(start), 50*time.Millisecond, raw)
	}

	n, ok := parseInteger([]byte(`9e18`), true)
	require.True(t, ok)
	require.Equal(t, int64(9_000_000_000_000_000_000), n)
}

func TestParseIntegerRejectsLongLiterals(t *testing.T) {
	_, ok := parseInteger([]byte("1"+strings.Repeat("0", maxNumberLen)), true)
	require.False(t, ok)

	_, ok = parseInteger([]byte("300."+strings.Repeat("0", maxNumberScale)), true)
	require.True(t, ok)
}

func TestValidateSpendHugeExponent(t *testing.T) {
	start := time.Now()
	_, errs, err := ValidateSpend([]byte(`{"points": 1e999999999}`))
	require.NoError(t, err)
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Len(t, errs, 1)
	require.Equal(t, "Points must be an integer", errs[0].Msg)
}
