package currency

import (
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/locales"
	lc "github.com/go-playground/locales/currency"
	"github.com/go-playground/locales/de_CH"
	"github.com/go-playground/locales/de_DE"
	"github.com/go-playground/locales/en_AU"
	"github.com/go-playground/locales/en_CA"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_GH"
	"github.com/go-playground/locales/en_IN"
	"github.com/go-playground/locales/en_KE"
	"github.com/go-playground/locales/en_NG"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/en_ZA"
	"github.com/go-playground/locales/es_MX"
	"github.com/go-playground/locales/ja_JP"
	"github.com/go-playground/locales/pt_BR"
	"github.com/go-playground/locales/zh"
)

var translators = map[string]locales.Translator{
	"en-US": en_US.New(),
	"de-DE": de_DE.New(),
	"en-GB": en_GB.New(),
	"en-NG": en_NG.New(),
	"en-CA": en_CA.New(),
	"en-AU": en_AU.New(),
	"en-IN": en_IN.New(),
	"ja-JP": ja_JP.New(),
	"en-ZA": en_ZA.New(),
	"en-KE": en_KE.New(),
	"en-GH": en_GH.New(),
	"pt-BR": pt_BR.New(),
	"es-MX": es_MX.New(),
	"de-CH": de_CH.New(),
	"zh-CN": zh.New(),
}

var currencyTypes = map[string]lc.Type{
	"USD": lc.USD,
	"EUR": lc.EUR,
	"GBP": lc.GBP,
	"NGN": lc.NGN,
	"CAD": lc.CAD,
	"AUD": lc.AUD,
	"INR": lc.INR,
	"JPY": lc.JPY,
	"ZAR": lc.ZAR,
	"KES": lc.KES,
	"GHS": lc.GHS,
	"BRL": lc.BRL,
	"MXN": lc.MXN,
	"CHF": lc.CHF,
	"CNY": lc.CNY,
}

// Format renders amount using the currency's locale. Whole amounts carry no
// fraction digits in the source number. Unknown currencies and formatter
// failures fall back to symbol + grouped number.
func Format(amount float64, code string) string {
	code = Normalize(code)
	info, ok := Lookup(code)
	if !ok {
		return fallbackFormat(code+" ", amount)
	}
	out, ok := localeFormat(info, amount)
	if !ok {
		return fallbackFormat(info.Symbol, amount)
	}
	return out
}

func localeFormat(info Info, amount float64) (out string, ok bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", false
	}
	t, found := translators[info.Locale]
	ct, known := currencyTypes[info.Code]
	if !found || !known {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: currency formatting failed for %s: %v", info.Code, r)
			out, ok = "", false
		}
	}()
	out = t.FmtCurrency(amount, fractionDigits(amount), ct)
	return out, strings.TrimSpace(out) != ""
}

func fractionDigits(amount float64) uint64 {
	if amount == math.Trunc(amount) {
		return 0
	}
	return 2
}

func fallbackFormat(symbol string, amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return symbol + "0"
	}
	neg := amount < 0
	s := strconv.FormatFloat(math.Abs(amount), 'f', int(fractionDigits(amount)), 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	if neg {
		return "-" + symbol + b.String()
	}
	return symbol + b.String()
}
