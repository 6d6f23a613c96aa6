package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountMarshalsAsString(t *testing.T) {
	raw, err := json.Marshal(struct {
		Amount Amount `json:"amount"`
	}{MustParseAmount("100.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"100.5"}`, string(raw))
}

func TestAmountUnmarshalAcceptsStringAndNumber(t *testing.T) {
	var fromString, fromNumber Amount
	require.NoError(t, json.Unmarshal([]byte(`"0.10"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`0.10`), &fromNumber))

	assert.True(t, fromString.Equal(fromNumber))
	assert.Equal(t, "0.1", fromNumber.String())
}

func TestAmountUnmarshalRejectsGarbage(t *testing.T) {
	var amount Amount
	assert.Error(t, json.Unmarshal([]byte(`"ten"`), &amount))
	assert.Error(t, json.Unmarshal([]byte(`""`), &amount))
}

func TestAmountArithmeticIsExact(t *testing.T) {
	total := MustParseAmount("0.1").Add(MustParseAmount("0.2"))
	assert.True(t, total.Equal(MustParseAmount("0.3")))

	left := MustParseAmount("10").Sub(MustParseAmount("10.01"))
	assert.True(t, left.IsNegative())
	assert.True(t, MustParseAmount("5").LessThan(MustParseAmount("5.01")))
}

func TestAmountScale(t *testing.T) {
	assert.True(t, MustParseAmount("12.34").HasValidScale())
	assert.True(t, MustParseAmount("12").HasValidScale())
	assert.False(t, MustParseAmount("12.345").HasValidScale())
}

func TestAmountFitsStorage(t *testing.T) {
	assert.True(t, MaxAmount.Fits())
	assert.True(t, MustParseAmount("-9999999999999999.99").Fits())
	assert.False(t, MaxAmount.Add(MustParseAmount("0.01")).Fits())
	assert.False(t, MustParseAmount("1e20").Fits())
	assert.False(t, MustParseAmount("0.005").Fits())
	assert.True(t, MustParseAmount("1e3").Fits())
}

func TestAmountValueAndScan(t *testing.T) {
	value, err := MustParseAmount("7.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "7.50", value)

	var scanned Amount
	require.NoError(t, scanned.Scan("42.10"))
	assert.Equal(t, "42.1", scanned.String())

	require.NoError(t, scanned.Scan(float64(3)))
	assert.Equal(t, "3", scanned.String())
}
