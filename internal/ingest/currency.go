package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Static USD conversion table. Unknown codes fall back to 1:1 — the
// pipeline favors "approximate but present" data over rejecting records.
var exchangeRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.09,
	"GBP": 1.30,
	"BRL": 0.18,
	"INR": 0.012,
	"CNY": 0.14,
	"JPY": 0.0067,
	"CAD": 0.74,
	"AUD": 0.66,
}

// ToUSD converts an amount in the given currency to a non-negative
// integer USD-equivalent. Unknown currency codes are treated as USD.
func ToUSD(amount float64, currency string) int64 {
	if amount <= 0 {
		return 0
	}
	rate, ok := exchangeRates[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		rate = 1.0
	}
	return int64(amount * rate)
}

var amountNumberRegex = regexp.MustCompile(`[\d][\d,\.]*`)

// magnitude suffixes immediately following a number: "4.2M", "$3 billion"
var magnitudeRegex = regexp.MustCompile(`(?i)^\s*(k|m|b|million|billion|thousand|mn|bn)\b`)

// ParseAmountUSD extracts the largest monetary value from free text and
// converts it to integer USD. Malformed or empty input yields 0, never
// an error: bad input must not abort the run.
func ParseAmountUSD(text string, defaultCurrency string) int64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	textLower := strings.ToLower(text)

	currency := strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if currency == "" {
		currency = "USD"
	}

	// Currency symbols and codes in the text win over the default.
	switch {
	case strings.Contains(textLower, "£") || strings.Contains(textLower, "gbp") || strings.Contains(textLower, "pound"):
		currency = "GBP"
	case strings.Contains(textLower, "€") || strings.Contains(textLower, "eur"):
		currency = "EUR"
	case strings.Contains(textLower, "$") || strings.Contains(textLower, "usd") || strings.Contains(textLower, "dollar"):
		currency = "USD"
	case strings.Contains(textLower, "¥") || strings.Contains(textLower, "jpy") || strings.Contains(textLower, "yen"):
		currency = "JPY"
	}

	best := 0.0
	for _, loc := range amountNumberRegex.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		val, ok := parseLocalizedNumber(raw)
		if !ok {
			continue
		}
		if m := magnitudeRegex.FindString(text[loc[1]:]); m != "" {
			val *= magnitudeFactor(m)
		}
		if val > best {
			best = val
		}
	}

	return ToUSD(best, currency)
}

// parseLocalizedNumber handles 1,000,000 / 1.000.000 / 1000000 / 1,000.50.
func parseLocalizedNumber(raw string) (float64, bool) {
	clean := strings.ReplaceAll(raw, ",", "")
	if val, err := strconv.ParseFloat(clean, 64); err == nil && val > 0 {
		return val, true
	}
	// European format: dot as thousands separator
	clean = strings.ReplaceAll(raw, ".", "")
	if val, err := strconv.ParseFloat(clean, 64); err == nil && val > 0 {
		return val, true
	}
	return 0, false
}

func magnitudeFactor(suffix string) float64 {
	switch strings.ToLower(strings.TrimSpace(suffix)) {
	case "k", "thousand":
		return 1_000
	case "m", "mn", "million":
		return 1_000_000
	case "b", "bn", "billion":
		return 1_000_000_000
	}
	return 1
}
