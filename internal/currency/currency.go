package currency

import (
	"fmt"
	"strings"

	"storefront-checkout/internal/model"
)

// InvalidCurrencyError means the input could not be mapped to a known
// ISO-4217 code after trimming and uppercasing.
type InvalidCurrencyError struct {
	Input string
}

func (e *InvalidCurrencyError) Error() string {
	return fmt.Sprintf("invalid currency code %q", e.Input)
}

// iso4217 covers the codes the payment SDK accepts. Upstream product data is
// inconsistently tagged, so everything is validated here before any network
// dispatch rather than after a failed popup.
var iso4217 = map[string]struct{}{
	"AED": {}, "ARS": {}, "AUD": {}, "BDT": {}, "BGN": {}, "BHD": {},
	"BRL": {}, "BWP": {}, "CAD": {}, "CHF": {}, "CLP": {}, "CNY": {},
	"COP": {}, "CZK": {}, "DKK": {}, "DZD": {}, "EGP": {}, "ETB": {},
	"EUR": {}, "GBP": {}, "GHS": {}, "GMD": {}, "HKD": {}, "HUF": {},
	"IDR": {}, "ILS": {}, "INR": {}, "JOD": {}, "JPY": {}, "KES": {},
	"KRW": {}, "KWD": {}, "LKR": {}, "MAD": {}, "MUR": {}, "MWK": {},
	"MXN": {}, "MYR": {}, "NAD": {}, "NGN": {}, "NOK": {}, "NZD": {},
	"OMR": {}, "PEN": {}, "PHP": {}, "PKR": {}, "PLN": {}, "QAR": {},
	"RON": {}, "RSD": {}, "RUB": {}, "RWF": {}, "SAR": {}, "SEK": {},
	"SGD": {}, "SLL": {}, "THB": {}, "TND": {}, "TRY": {}, "TZS": {},
	"UAH": {}, "UGX": {}, "USD": {}, "VND": {}, "XAF": {}, "XOF": {},
	"ZAR": {}, "ZMW": {}, "ZWL": {},
}

// DefaultCurrency is used when nothing better can be resolved.
const DefaultCurrency = "USD"

// Normalize coerces a currency code to its uppercase 3-letter ISO form.
func Normalize(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 {
		return "", &InvalidCurrencyError{Input: code}
	}
	if _, ok := iso4217[normalized]; !ok {
		return "", &InvalidCurrencyError{Input: code}
	}
	return normalized, nil
}

// NormalizeWithFallback never fails: any input that does not normalize
// resolves to the fallback, and a bad fallback resolves to DefaultCurrency.
func NormalizeWithFallback(code, fallback string) string {
	if normalized, err := Normalize(code); err == nil {
		return normalized
	}
	if normalized, err := Normalize(fallback); err == nil {
		return normalized
	}
	return DefaultCurrency
}

// FromLineItems picks the majority currency across items, ties broken by
// first-seen order. Items without a currency tag do not vote. If no item is
// tagged with a valid code, the fallback wins.
func FromLineItems(items []model.LineItem, fallback string) string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, item := range items {
		normalized, err := Normalize(item.Currency)
		if err != nil {
			continue
		}
		if _, seen := firstSeen[normalized]; !seen {
			firstSeen[normalized] = i
		}
		counts[normalized]++
	}

	best := ""
	for code, n := range counts {
		if best == "" {
			best = code
			continue
		}
		if n > counts[best] || (n == counts[best] && firstSeen[code] < firstSeen[best]) {
			best = code
		}
	}

	if best == "" {
		return NormalizeWithFallback(fallback, DefaultCurrency)
	}
	return best
}
