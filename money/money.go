/*
Package money normalizes grouped-thousands currency strings.

PURPOSE:
  Every form field that carries a currency amount displays it with a
  comma every three digits ("12,345,000") but the server and all
  arithmetic work on plain non-negative integers. This package is the
  single place where the two representations meet.

KEY FUNCTIONS:
  ParseAmount:   display string -> int64 (strict, errors on junk)
  FormatAmount:  int64 -> display string
  Hours:         timelog minutes -> "x.y" hour display

SEE ALSO:
  - field.go: interactive keystroke-by-keystroke reformatting
  - check package: sum/total validation built on parsed amounts
*/
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a display string contains anything
// other than digits and grouping separators.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a grouped display string to its integer value.
// The empty string parses as 0 (an untouched form field). Grouping
// commas and surrounding whitespace are stripped; any other residue is
// rejected rather than silently dropped.
func ParseAmount(display string) (int64, error) {
	s := strings.TrimSpace(display)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}
	return n, nil
}

// FormatAmount renders n with a comma every three digits. Zero renders
// as "0"; use FormatAmountOrBlank for fields where zero means "not
// entered yet".
func FormatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatAmountOrBlank is FormatAmount except that zero renders as the
// empty string.
func FormatAmountOrBlank(n int64) string {
	if n == 0 {
		return ""
	}
	return FormatAmount(n)
}

// Hours converts timelog minutes to the one-decimal hour display used
// in the reconciliation tables, e.g. 90 -> "1.5".
func Hours(minutes int64) string {
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).StringFixed(1)
}
