package currency

import "math"

// RateSource is satisfied by *RateStore.
type RateSource interface {
	Rate(code string) (float64, bool)
}

// Converter turns USD prices into display amounts and back. Unknown
// currencies convert as identity so a number is always available.
type Converter struct {
	rates RateSource
}

func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// FromUSD rounds to whole units of the target currency. USD amounts are
// returned unchanged.
func (c *Converter) FromUSD(amountUSD float64, code string) float64 {
	code = Normalize(code)
	if code == USD {
		return amountUSD
	}
	rate, ok := c.rates.Rate(code)
	if !ok {
		return amountUSD
	}
	return math.Round(amountUSD * rate)
}

// ToUSD rounds to whole dollars.
func (c *Converter) ToUSD(amount float64, code string) float64 {
	code = Normalize(code)
	if code == USD {
		return amount
	}
	rate, ok := c.rates.Rate(code)
	if !ok {
		return amount
	}
	return math.Round(amount / rate)
}

// Convert moves an amount between two currencies through USD.
func (c *Converter) Convert(amount float64, from, to string) float64 {
	from, to = Normalize(from), Normalize(to)
	switch {
	case from == to:
		return amount
	case to == USD:
		return c.ToUSD(amount, from)
	case from == USD:
		return c.FromUSD(amount, to)
	}
	usd := amount
	if rate, ok := c.rates.Rate(from); ok {
		usd = amount / rate
	}
	return c.FromUSD(usd, to)
}

// Info returns the currency metadata with its live rate.
func (c *Converter) Info(code string) (Info, bool) {
	info, ok := Lookup(code)
	if !ok {
		return Info{}, false
	}
	if rate, ok := c.rates.Rate(info.Code); ok {
		info.Rate = rate
	}
	return info, true
}

// Format renders amount in the currency's locale.
func (c *Converter) Format(amount float64, code string) string {
	return Format(amount, code)
}
