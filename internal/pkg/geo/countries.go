package geo

import "strings"

type country struct {
	Name     string
	Currency string
}

var countries = map[string]country{
	"US": {"United States", "USD"},
	"PR": {"Puerto Rico", "USD"},
	"EC": {"Ecuador", "USD"},
	"SV": {"El Salvador", "USD"},
	"GB": {"United Kingdom", "GBP"},
	"NG": {"Nigeria", "NGN"},
	"CA": {"Canada", "CAD"},
	"AU": {"Australia", "AUD"},
	"IN": {"India", "INR"},
	"JP": {"Japan", "JPY"},
	"ZA": {"South Africa", "ZAR"},
	"KE": {"Kenya", "KES"},
	"GH": {"Ghana", "GHS"},
	"BR": {"Brazil", "BRL"},
	"MX": {"Mexico", "MXN"},
	"CH": {"Switzerland", "CHF"},
	"LI": {"Liechtenstein", "CHF"},
	"CN": {"China", "CNY"},
	"DE": {"Germany", "EUR"},
	"FR": {"France", "EUR"},
	"IT": {"Italy", "EUR"},
	"ES": {"Spain", "EUR"},
	"NL": {"Netherlands", "EUR"},
	"BE": {"Belgium", "EUR"},
	"AT": {"Austria", "EUR"},
	"IE": {"Ireland", "EUR"},
	"PT": {"Portugal", "EUR"},
	"FI": {"Finland", "EUR"},
	"GR": {"Greece", "EUR"},
	"LU": {"Luxembourg", "EUR"},
	"SK": {"Slovakia", "EUR"},
	"SI": {"Slovenia", "EUR"},
	"EE": {"Estonia", "EUR"},
	"LV": {"Latvia", "EUR"},
	"LT": {"Lithuania", "EUR"},
	"MT": {"Malta", "EUR"},
	"CY": {"Cyprus", "EUR"},
	"HR": {"Croatia", "EUR"},
	"PL": {"Poland", "PLN"},
	"SE": {"Sweden", "SEK"},
	"NO": {"Norway", "NOK"},
	"DK": {"Denmark", "DKK"},
	"NZ": {"New Zealand", "NZD"},
	"SG": {"Singapore", "SGD"},
	"AE": {"United Arab Emirates", "AED"},
	"EG": {"Egypt", "EGP"},
	"UG": {"Uganda", "UGX"},
	"TZ": {"Tanzania", "TZS"},
	"RW": {"Rwanda", "RWF"},
	"AR": {"Argentina", "ARS"},
	"CO": {"Colombia", "COP"},
	"KR": {"South Korea", "KRW"},
	"PH": {"Philippines", "PHP"},
	"PK": {"Pakistan", "PKR"},
}

// CountryCurrency returns the currency and display name for an ISO-3166
// alpha-2 code.
func CountryCurrency(code string) (currency, name string, ok bool) {
	c, ok := countries[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", "", false
	}
	return c.Currency, c.Name, true
}

func locationForCountry(code string) (Location, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	cur, name, ok := CountryCurrency(code)
	if !ok {
		return Location{}, false
	}
	return Location{Country: name, CountryCode: code, Currency: cur}, true
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
