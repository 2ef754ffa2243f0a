package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Class
	}{
		{"BTC", ClassCrypto},
		{"eth", ClassCrypto},
		{"USDC", ClassCrypto},
		{"BTC-USD", ClassCrypto},
		{"link/usdt", ClassCrypto},
		{"SPY", ClassETFs},
		{"qqq", ClassETFs},
		{"AAPL", ClassStocks},
		{"MSFT", ClassStocks},
		{"LINKEDCO", ClassStocks},
		{"SPYG", ClassStocks},
		{"NVDA240119C00500000", ClassOptions},
		{"", ClassStocks},
		{"ZZZZ", ClassStocks},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.in), "symbol %q", tc.in)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AAPL", Normalize(" aapl "))
	assert.Equal(t, "BTC", Normalize("btc"))
}
