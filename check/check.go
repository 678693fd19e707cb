/*
Package check validates financial line items against declared totals.

PURPOSE:
  Every monthly revenue or cost figure entered for a project must
  reconcile with the project's declared totals before any write is
  committed. The functions here are pure: they take the figures, return
  pass/fail plus a reason code, and never touch the network or any
  store.

REASON CODES:
  Callers map reason codes to corrective user messages. A Result with
  OK=true carries ReasonNone.

EDGE RULES:
  - CostsMatchTotal permits all-empty sub-costs (checking is deferred
    until any figure is entered).
  - MonthlyPaymentsWithinProjectTotal skips months that have no input
    field at all: shrinking a project's date range after data existed
    leaves such months, and they must not be treated as zero-with-error.

SEE ALSO:
  - lineitem.go: per-row validation for payment/purchase entries
  - money package: parsing the grouped display strings into the int64
    amounts consumed here
*/
package check

import "github.com/moonlake/settlement-engine/timelog"

// Reason classifies why a check failed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonSumMismatch     Reason = "sum_mismatch"      // exact equality required, sums differ
	ReasonSumExceedsTotal Reason = "sum_exceeds_total" // running sum went past the declared total
	ReasonNegativeAmount  Reason = "negative_amount"
)

// Result is the outcome of a consistency check. Sum and Total are
// reported so callers can show both figures in the corrective message.
type Result struct {
	OK     bool
	Reason Reason
	Sum    int64
	Total  int64
}

func pass(sum, total int64) Result { return Result{OK: true, Sum: sum, Total: total} }

func fail(r Reason, sum, total int64) Result { return Result{Reason: r, Sum: sum, Total: total} }

// SettlementMode selects the equality rule for PaymentsMatchTotal.
type SettlementMode int

const (
	// NotFinalized: the project is still open, monthly figures may not
	// yet add up to the declared total but must never exceed it.
	NotFinalized SettlementMode = iota

	// FinalizedByFormula: the project settles on the monthly sums, so
	// they must equal the declared total exactly.
	FinalizedByFormula
)

// PaymentsMatchTotal checks a set of payment amounts against the
// declared total revenue under the given settlement mode.
func PaymentsMatchTotal(amounts []int64, declaredTotal int64, mode SettlementMode) Result {
	var sum int64
	for _, a := range amounts {
		if a < 0 {
			return fail(ReasonNegativeAmount, sum, declaredTotal)
		}
		sum += a
	}
	switch mode {
	case FinalizedByFormula:
		if sum != declaredTotal {
			return fail(ReasonSumMismatch, sum, declaredTotal)
		}
	default:
		if sum > declaredTotal {
			return fail(ReasonSumExceedsTotal, sum, declaredTotal)
		}
	}
	return pass(sum, declaredTotal)
}

// CostsMatchTotal checks the three cost components against the declared
// total internal cost. A nil component is an empty form field. When all
// three are empty the check is deferred and passes.
func CostsMatchTotal(labor, progress, purchase *int64, declaredTotal int64) Result {
	if labor == nil && progress == nil && purchase == nil {
		return pass(0, declaredTotal)
	}
	var sum int64
	for _, c := range []*int64{labor, progress, purchase} {
		if c == nil {
			continue
		}
		if *c < 0 {
			return fail(ReasonNegativeAmount, sum, declaredTotal)
		}
		sum += *c
	}
	if sum != declaredTotal {
		return fail(ReasonSumMismatch, sum, declaredTotal)
	}
	return pass(sum, declaredTotal)
}

// MonthlySchedule is the per-month revenue figures present on a project
// form. Months between Start and End that are absent from Months have
// no input field (the date range was shrunk) and are skipped.
type MonthlySchedule struct {
	Start  timelog.MonthKey
	End    timelog.MonthKey
	Months map[timelog.MonthKey]int64
}

// MonthlyPaymentsWithinProjectTotal sums every month of the project's
// lifetime, substituting editedSum for the month currently being edited,
// and fails if the grand sum exceeds the declared total revenue.
func MonthlyPaymentsWithinProjectTotal(s MonthlySchedule, edited *timelog.MonthKey, editedSum int64, totalRevenue int64) Result {
	var sum int64
	for m := s.Start; !m.After(s.End); m = m.Next() {
		if edited != nil && m == *edited {
			sum += editedSum
			continue
		}
		if v, ok := s.Months[m]; ok {
			sum += v
		}
		// No input field for this month: skipped, not zero-with-error.
	}
	if sum > totalRevenue {
		return fail(ReasonSumExceedsTotal, sum, totalRevenue)
	}
	return pass(sum, totalRevenue)
}
