package domain

import (
	"strings"
	"unicode"
)

// NormalizeTicker appends the listing suffix unless the symbol already ends in a digit.
func NormalizeTicker(ticker, suffix string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return ""
	}
	last := rune(ticker[len(ticker)-1])
	if unicode.IsDigit(last) {
		return ticker
	}
	return ticker + suffix
}

// Watchlisted reports whether some watchlist entry starts with ticker.
func Watchlisted(ticker string, watchlist []string) bool {
	if ticker == "" {
		return false
	}
	for _, entry := range watchlist {
		if strings.HasPrefix(entry, ticker) {
			return true
		}
	}
	return false
}
