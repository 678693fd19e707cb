/*
Per-row validation for monthly payment and purchase-cost entries.

A row whose fields are all empty is blank and is skipped by callers
rather than validated. Partially filled rows are errors.
*/
package check

import (
	"time"

	"github.com/moonlake/settlement-engine/timelog"
)

// PaymentType classifies a revenue payment row.
type PaymentType string

const (
	PaymentDown    PaymentType = "down-payment"
	PaymentInterim PaymentType = "interim"
	PaymentFinal   PaymentType = "final"
)

func (t PaymentType) valid() bool {
	switch t {
	case PaymentDown, PaymentInterim, PaymentFinal:
		return true
	}
	return false
}

// Row-level reason codes.
const (
	ReasonTypeRequired       Reason = "type_required"
	ReasonDueDateRequired    Reason = "due_date_required"
	ReasonDueDateOutOfMonth  Reason = "due_date_out_of_month"
	ReasonAmountRequired     Reason = "amount_required"
	ReasonDepositDateMissing Reason = "deposit_date_required"
	ReasonDepositDateFuture  Reason = "deposit_date_in_future"
	ReasonNotMarkedDeposited Reason = "past_deposit_not_marked"
	ReasonPayeeRequired      Reason = "payee_required"
)

// PaymentItem is one revenue row on a project's monthly form.
type PaymentItem struct {
	Type        PaymentType
	DueDate     time.Time // zero when the field is empty
	Amount      int64
	AmountSet   bool
	Deposited   bool
	DepositDate time.Time // zero when the field is empty
}

// Blank reports whether the row has no input at all.
func (p PaymentItem) Blank() bool {
	return p.Type == "" && p.DueDate.IsZero() && !p.AmountSet &&
		!p.Deposited && p.DepositDate.IsZero()
}

// ValidatePaymentItem checks one payment row belonging to the given
// month. now anchors the deposit-date rules: a deposit date in the past
// forces Deposited, and a deposited row may not carry a future date.
func ValidatePaymentItem(p PaymentItem, month timelog.MonthKey, now time.Time) Result {
	if !p.Type.valid() {
		return fail(ReasonTypeRequired, 0, 0)
	}
	if p.DueDate.IsZero() {
		return fail(ReasonDueDateRequired, 0, 0)
	}
	if !month.Contains(p.DueDate) {
		return fail(ReasonDueDateOutOfMonth, 0, 0)
	}
	if !p.AmountSet {
		return fail(ReasonAmountRequired, 0, 0)
	}
	if p.Amount < 0 {
		return fail(ReasonNegativeAmount, p.Amount, 0)
	}
	today := now.Truncate(24 * time.Hour)
	if p.Deposited {
		if p.DepositDate.IsZero() {
			return fail(ReasonDepositDateMissing, 0, 0)
		}
		if p.DepositDate.After(today) {
			return fail(ReasonDepositDateFuture, 0, 0)
		}
	} else if !p.DepositDate.IsZero() && !p.DepositDate.After(today) {
		return fail(ReasonNotMarkedDeposited, 0, 0)
	}
	return pass(0, 0)
}

// PurchaseItem is one external purchase-cost row.
type PurchaseItem struct {
	Company   string
	Detail    string
	Amount    int64
	AmountSet bool
}

func (p PurchaseItem) Blank() bool {
	return p.Company == "" && p.Detail == "" && !p.AmountSet
}

// ValidatePurchaseItem checks one purchase row. Either the company or
// the work detail identifies the payee; both empty is an error.
func ValidatePurchaseItem(p PurchaseItem) Result {
	if p.Company == "" && p.Detail == "" {
		return fail(ReasonPayeeRequired, 0, 0)
	}
	if !p.AmountSet {
		return fail(ReasonAmountRequired, 0, 0)
	}
	if p.Amount < 0 {
		return fail(ReasonNegativeAmount, p.Amount, 0)
	}
	return pass(0, 0)
}
