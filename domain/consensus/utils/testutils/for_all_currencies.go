package testutils

import (
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
)

// ForAllCurrencies runs the passed testFunc with the parameters of every
// built-in currency
func ForAllCurrencies(t *testing.T, testFunc func(*testing.T, *dubpconfig.CurrencyParameters)) {
	allParams := []dubpconfig.CurrencyParameters{
		dubpconfig.G1Params,
		dubpconfig.G1TestParams,
	}

	for _, params := range allParams {
		params := params
		t.Run(params.Name, func(t *testing.T) {
			t.Parallel()
			t.Logf("Running test for %s", params.Name)
			testFunc(t, &params)
		})
	}
}
