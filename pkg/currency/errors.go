package currency

import "errors"

var (
	// ErrUnsupportedCurrency is returned when a currency code is not in the catalog.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrRateUnavailable is returned when the rate provider cannot supply a
	// usable rate for a supported pair.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)
