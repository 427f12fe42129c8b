// Package currency holds the supported currency table, the USD exchange
// rate store and the converter the pricing engine quotes prices through.
package currency

import (
	"sort"
	"strings"
)

// USD is the base currency every rate is expressed against.
const USD = "USD"

// Info describes a supported currency. Rate is the amount of this currency
// per 1 USD.
type Info struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Locale string  `json:"locale"`
}

// supported is the bootstrap table. Rates are approximate and only used
// until the first successful FX fetch.
var supported = map[string]Info{
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar", Rate: 1, Locale: "en-US"},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro", Rate: 0.92, Locale: "de-DE"},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound", Rate: 0.79, Locale: "en-GB"},
	"NGN": {Code: "NGN", Symbol: "₦", Name: "Nigerian Naira", Rate: 1550, Locale: "en-NG"},
	"CAD": {Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Rate: 1.36, Locale: "en-CA"},
	"AUD": {Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Rate: 1.52, Locale: "en-AU"},
	"INR": {Code: "INR", Symbol: "₹", Name: "Indian Rupee", Rate: 83.5, Locale: "en-IN"},
	"JPY": {Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Rate: 150, Locale: "ja-JP"},
	"ZAR": {Code: "ZAR", Symbol: "R", Name: "South African Rand", Rate: 18.6, Locale: "en-ZA"},
	"KES": {Code: "KES", Symbol: "KSh", Name: "Kenyan Shilling", Rate: 129, Locale: "en-KE"},
	"GHS": {Code: "GHS", Symbol: "GH₵", Name: "Ghanaian Cedi", Rate: 15.5, Locale: "en-GH"},
	"BRL": {Code: "BRL", Symbol: "R$", Name: "Brazilian Real", Rate: 5.0, Locale: "pt-BR"},
	"MXN": {Code: "MXN", Symbol: "MX$", Name: "Mexican Peso", Rate: 17.1, Locale: "es-MX"},
	"CHF": {Code: "CHF", Symbol: "CHF", Name: "Swiss Franc", Rate: 0.88, Locale: "de-CH"},
	"CNY": {Code: "CNY", Symbol: "CN¥", Name: "Chinese Yuan", Rate: 7.2, Locale: "zh-CN"},
}

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the static metadata of a supported currency.
func Lookup(code string) (Info, bool) {
	info, ok := supported[Normalize(code)]
	return info, ok
}

// IsSupported reports whether code is in the supported table.
func IsSupported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Codes returns all supported codes, USD first, the rest alphabetically.
func Codes() []string {
	codes := make([]string, 0, len(supported))
	for code := range supported {
		if code != USD {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return append([]string{USD}, codes...)
}

// defaultRates copies the bootstrap rates.
func defaultRates() map[string]float64 {
	out := make(map[string]float64, len(supported))
	for code, info := range supported {
		out[code] = info.Rate
	}
	return out
}
