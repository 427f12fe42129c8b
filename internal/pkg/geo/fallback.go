package geo

import (
	"context"
	"strings"
)

// timezoneCountries maps IANA zones to the country most visitors in that zone
// pay in. Zones spanning several currencies make this a low-confidence guess.
var timezoneCountries = map[string]string{
	"America/New_York":               "US",
	"America/Chicago":                "US",
	"America/Denver":                 "US",
	"America/Phoenix":                "US",
	"America/Los_Angeles":            "US",
	"America/Anchorage":              "US",
	"Pacific/Honolulu":               "US",
	"America/Toronto":                "CA",
	"America/Vancouver":              "CA",
	"America/Edmonton":               "CA",
	"America/Winnipeg":               "CA",
	"America/Halifax":                "CA",
	"America/Mexico_City":            "MX",
	"America/Monterrey":              "MX",
	"America/Tijuana":                "MX",
	"America/Sao_Paulo":              "BR",
	"America/Manaus":                 "BR",
	"America/Bogota":                 "CO",
	"America/Argentina/Buenos_Aires": "AR",
	"Europe/London":                  "GB",
	"Europe/Dublin":                  "IE",
	"Europe/Berlin":                  "DE",
	"Europe/Paris":                   "FR",
	"Europe/Madrid":                  "ES",
	"Europe/Rome":                    "IT",
	"Europe/Amsterdam":               "NL",
	"Europe/Brussels":                "BE",
	"Europe/Vienna":                  "AT",
	"Europe/Lisbon":                  "PT",
	"Europe/Helsinki":                "FI",
	"Europe/Athens":                  "GR",
	"Europe/Zurich":                  "CH",
	"Europe/Warsaw":                  "PL",
	"Europe/Stockholm":               "SE",
	"Africa/Lagos":                   "NG",
	"Africa/Nairobi":                 "KE",
	"Africa/Accra":                   "GH",
	"Africa/Johannesburg":            "ZA",
	"Africa/Cairo":                   "EG",
	"Africa/Kampala":                 "UG",
	"Africa/Dar_es_Salaam":           "TZ",
	"Africa/Kigali":                  "RW",
	"Asia/Kolkata":                   "IN",
	"Asia/Calcutta":                  "IN",
	"Asia/Tokyo":                     "JP",
	"Asia/Shanghai":                  "CN",
	"Asia/Singapore":                 "SG",
	"Asia/Dubai":                     "AE",
	"Asia/Seoul":                     "KR",
	"Asia/Manila":                    "PH",
	"Asia/Karachi":                   "PK",
	"Australia/Sydney":               "AU",
	"Australia/Melbourne":            "AU",
	"Australia/Brisbane":             "AU",
	"Australia/Perth":                "AU",
	"Australia/Adelaide":             "AU",
	"Pacific/Auckland":               "NZ",
}

// localeCurrencies is keyed by lower-case tags; full language-region tags
// and bare language codes share the table.
var localeCurrencies = map[string]string{
	"en-us": "USD",
	"es-us": "USD",
	"en-gb": "GBP",
	"en-ng": "NGN",
	"en-ca": "CAD",
	"fr-ca": "CAD",
	"en-au": "AUD",
	"en-in": "INR",
	"hi-in": "INR",
	"ja-jp": "JPY",
	"en-za": "ZAR",
	"af-za": "ZAR",
	"en-ke": "KES",
	"sw-ke": "KES",
	"en-gh": "GHS",
	"pt-br": "BRL",
	"pt-pt": "EUR",
	"es-mx": "MXN",
	"es-es": "EUR",
	"de-de": "EUR",
	"de-at": "EUR",
	"de-ch": "CHF",
	"fr-ch": "CHF",
	"it-ch": "CHF",
	"fr-fr": "EUR",
	"fr-be": "EUR",
	"nl-nl": "EUR",
	"nl-be": "EUR",
	"it-it": "EUR",
	"en-ie": "EUR",
	"zh-cn": "CNY",

	"en": "USD",
	"de": "EUR",
	"fr": "EUR",
	"es": "EUR",
	"it": "EUR",
	"nl": "EUR",
	"fi": "EUR",
	"el": "EUR",
	"pt": "BRL",
	"ja": "JPY",
	"zh": "CNY",
	"hi": "INR",
	"sw": "KES",
	"yo": "NGN",
	"ha": "NGN",
	"ig": "NGN",
	"zu": "ZAR",
	"af": "ZAR",
	"tw": "GHS",
}

// TimezoneStrategy maps the device's IANA zone to a country currency.
func TimezoneStrategy() Strategy {
	return Strategy{
		Name: SourceTimezone,
		Resolve: func(_ context.Context, sig Signals) (Location, bool) {
			tz := strings.TrimSpace(sig.Timezone)
			code, ok := timezoneCountries[tz]
			if !ok {
				return Location{}, false
			}
			loc, ok := locationForCountry(code)
			if !ok {
				return Location{}, false
			}
			loc.Timezone = tz
			return loc, true
		},
	}
}

// LocaleStrategy maps a locale tag like en-NG, trying the full tag before
// the bare language.
func LocaleStrategy() Strategy {
	return Strategy{
		Name: SourceLocale,
		Resolve: func(_ context.Context, sig Signals) (Location, bool) {
			candidates, region := localeCandidates(sig.Locale)
			for _, tag := range candidates {
				cur, ok := localeCurrencies[tag]
				if !ok {
					continue
				}
				loc := Location{Currency: cur}
				if l, ok := locationForCountry(region); ok && l.Currency == cur {
					loc.Country, loc.CountryCode = l.Country, l.CountryCode
				}
				return loc, true
			}
			return Location{}, false
		},
	}
}

// localeCandidates normalizes POSIX and BCP 47 spellings ("en_NG.UTF-8",
// "zh-Hans-CN") into lookup keys, most specific first.
func localeCandidates(raw string) ([]string, string) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.ReplaceAll(tag, "_", "-")
	if tag == "" {
		return nil, ""
	}

	parts := strings.Split(tag, "-")
	lang := parts[0]
	region := ""
	for _, p := range parts[1:] {
		if len(p) == 2 {
			region = p
		}
	}

	candidates := []string{tag}
	if region != "" && lang+"-"+region != tag {
		candidates = append(candidates, lang+"-"+region)
	}
	if lang != tag {
		candidates = append(candidates, lang)
	}
	return candidates, strings.ToUpper(region)
}
