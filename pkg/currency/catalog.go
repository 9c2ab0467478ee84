package currency

import "fmt"

// Currency describes one supported currency.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Catalog is a closed registry of supported currencies. It is assembled once
// at startup and never mutated afterwards.
type Catalog struct {
	ordered []Currency
	byCode  map[string]Currency
}

// NewCatalog builds a catalog from the given currencies. Registration order
// is preserved; a duplicate code keeps the first registration.
func NewCatalog(currencies ...Currency) *Catalog {
	c := &Catalog{byCode: make(map[string]Currency, len(currencies))}
	for _, cur := range currencies {
		if _, dup := c.byCode[cur.Code]; dup {
			continue
		}
		c.byCode[cur.Code] = cur
		c.ordered = append(c.ordered, cur)
	}
	return c
}

// DefaultCatalog returns the currencies the marketplace trades in.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Currency{Code: "GHS", Name: "Ghanaian Cedi", Symbol: "GH₵"},
		Currency{Code: "NGN", Name: "Nigerian Naira", Symbol: "₦"},
		Currency{Code: "KES", Name: "Kenyan Shilling", Symbol: "KSh"},
		Currency{Code: "ZAR", Name: "South African Rand", Symbol: "R"},
		Currency{Code: "USD", Name: "US Dollar", Symbol: "$"},
		Currency{Code: "EUR", Name: "Euro", Symbol: "€"},
		Currency{Code: "GBP", Name: "British Pound", Symbol: "£"},
	)
}

// Lookup returns the currency registered under code.
func (c *Catalog) Lookup(code string) (Currency, error) {
	cur, ok := c.byCode[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return cur, nil
}

// Supports reports whether code is registered.
func (c *Catalog) Supports(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// List returns all currencies in registration order.
func (c *Catalog) List() []Currency {
	out := make([]Currency, len(c.ordered))
	copy(out, c.ordered)
	return out
}
