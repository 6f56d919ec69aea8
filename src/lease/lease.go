// backend/src/lease/lease.go

// Package lease converts the free-text "remaining lease" values found in the
// historical HDB resale exports into fractional years. The exports span 35
// years and several inconsistent formats: "60 years 07 months", "65 Yrs",
// "12 mths", "61 years 04", or a bare number meaning years.
package lease

import (
	"math"
	"strconv"
	"strings"
)

// Parse maps a textual remaining-lease value to fractional years.
// The boolean is false when the value is unrecoverable.
//
// Tokens are scanned in a fixed order: year-keyword scan, month-keyword scan,
// bare-number fallback, adjacent-number fallback. Downstream numeric semantics
// depend on that precedence, so do not reorder.
func Parse(value string) (float64, bool) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return 0, false
	}
	tokens := strings.Fields(value)

	var (
		years, months           int
		yearsFound, monthsFound bool
		yearKeywordIdx          = -1
	)

	// Years: the first token containing the keyword, with a plain integer
	// immediately before it.
	for i, tok := range tokens {
		if strings.Contains(tok, "year") || strings.Contains(tok, "yrs") {
			yearKeywordIdx = i
			if i > 0 && isPlainInt(tokens[i-1]) {
				years, _ = strconv.Atoi(tokens[i-1])
				yearsFound = true
			}
			break
		}
	}

	// Months: same shape, independent scan. A parsed "0 months" is a valid
	// zero count, not a missing one.
	for i, tok := range tokens {
		if isMonthKeyword(tok) {
			if i > 0 && isPlainInt(tokens[i-1]) {
				months, _ = strconv.Atoi(tokens[i-1])
				monthsFound = true
			}
			break
		}
	}

	// Bare-number fallback: a single numeric token is a year count
	// (the jan2015-dec2016 export supplied values like "70").
	if !yearsFound && !monthsFound {
		if len(tokens) == 1 && isDecimal(tokens[0]) {
			f, err := strconv.ParseFloat(tokens[0], 64)
			if err == nil {
				return f, true
			}
		}
		return 0, false
	}

	// Adjacent-number fallback: "61 years 04" carries an implicit month count.
	// Only one token of lookahead past the number; anything more irregular is
	// left unparsed rather than guessed.
	if yearsFound && !monthsFound && yearKeywordIdx+1 < len(tokens) && isPlainInt(tokens[yearKeywordIdx+1]) {
		next := yearKeywordIdx + 2
		if next >= len(tokens) || !isMonthKeyword(tokens[next]) {
			months, _ = strconv.Atoi(tokens[yearKeywordIdx+1])
		}
	}

	return float64(years) + float64(months)/12.0, true
}

// ParseNumber handles rows where the source system supplied a raw year number
// instead of text. The value is taken as already expressed in years.
func ParseNumber(value float64) (float64, bool) {
	if math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

func isMonthKeyword(tok string) bool {
	// "mth" also matches "mths".
	return strings.Contains(tok, "month") || strings.Contains(tok, "mth")
}

// isPlainInt reports whether the token is an unsigned run of digits.
func isPlainInt(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDecimal reports whether the token is an unsigned number with at most one
// decimal point. Signs and exponents are deliberately rejected.
func isDecimal(tok string) bool {
	if tok == "" || tok == "." {
		return false
	}
	dots := 0
	for _, r := range tok {
		if r == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return dots == 0 || len(tok) > 1
}
