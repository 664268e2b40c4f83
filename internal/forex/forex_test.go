package forex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateSameCurrency(t *testing.T) {
	// テーブルの内容に関わらず、同一通貨は常に 1.0 です。
	r, err := Rate("JPY", "JPY", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	r, err = Rate("usd", "USD", Table{"USD": {"EUR": 0.9}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
}

func TestRateDirect(t *testing.T) {
	table := Table{"USD": {"EUR": 0.9}}

	r, err := Rate("USD", "EUR", table)
	require.NoError(t, err)
	assert.Equal(t, 0.9, r)
}

func TestRateInverse(t *testing.T) {
	table := Table{"USD": {"EUR": 0.9}}

	r, err := Rate("EUR", "USD", table)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/0.9, r, 1e-9)
}

func TestRateZeroInverseIsNotFound(t *testing.T) {
	// 逆レートが 0 の場合は除算せず「見つからない」扱い。
	table := Table{"USD": {"XXX": 0}}

	_, err := Rate("XXX", "USD", table)
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestRateAnchorBridge(t *testing.T) {
	// JPY→USD は直接、USD→EUR も直接。JPY→EUR はUSDブリッジで解決される。
	table := Table{
		"JPY": {"USD": 0.007},
		"USD": {"EUR": 0.9},
	}

	r, err := Rate("JPY", "EUR", table)
	require.NoError(t, err)
	assert.InDelta(t, 0.007*0.9, r, 1e-9)
}

func TestRateAnchorBridgeViaInverseLegs(t *testing.T) {
	// 両レッグとも逆レートからの解決。
	table := Table{
		"USD": {"JPY": 150},
		"EUR": {"USD": 1.1},
	}

	r, err := Rate("JPY", "EUR", table)
	require.NoError(t, err)
	assert.InDelta(t, (1.0/150)*(1.0/1.1), r, 1e-9)
}

func TestRateBridgeMissingLeg(t *testing.T) {
	// 片方のレッグしか無い場合は全体として見つからない。
	table := Table{"JPY": {"USD": 0.007}}

	_, err := Rate("JPY", "EUR", table)
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestConvertRoundsToTwoDecimals(t *testing.T) {
	table := Table{"USD": {"EUR": 0.9}}

	got, err := Convert(100, "USD", "EUR", table)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got)

	// 逆レート経由: 100 / 0.9 = 111.111... → 111.11
	got, err = Convert(100, "EUR", "USD", table)
	require.NoError(t, err)
	assert.Equal(t, 111.11, got)
}

func TestConvertNotFoundIsNeverZero(t *testing.T) {
	_, err := Convert(100, "GBP", "KRW", Table{})
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestConvertNonNegative(t *testing.T) {
	table := Table{"USD": {"EUR": 0.9}}

	got, err := Convert(0, "USD", "EUR", table)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 0.0)
}
