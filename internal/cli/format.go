// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount in the given ISO currency using the
// currency's symbol, separators and minor units. Unknown currencies fall
// back to two decimals followed by the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(code)
	if cur == nil {
		s := amount.Abs().StringFixed(2)
		whole, frac, _ := strings.Cut(s, ".")
		n, _ := strconv.ParseInt(whole, 10, 64)
		s = FormatNumber(n) + "." + frac
		if amount.IsNegative() {
			s = "-" + s
		}
		if code == "" {
			return s
		}
		return s + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// FormatMoneyFloat is FormatMoney for forecast values.
func FormatMoneyFloat(amount float64, currency string) string {
	return FormatMoney(decimal.NewFromFloat(amount), currency)
}

// FormatCompact formats a value with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M"
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 value as a percentage string.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatDelta formats the change from previous to current with an explicit sign.
func FormatDelta(current, previous decimal.Decimal, currency string) string {
	delta := current.Sub(previous)
	if delta.IsNegative() {
		return "-" + FormatMoney(delta.Neg(), currency)
	}
	return "+" + FormatMoney(delta, currency)
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}
