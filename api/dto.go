/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the settlement REST contract. The
  field names (thismonth, Status, Project, Timelog, InvalidAccess)
  are the accounting API's wire vocabulary and must stay stable: the
  gateway package on the client side decodes exactly these.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - gateway package: the client-side decoding of the same shapes
*/
package api

import "github.com/moonlake/settlement-engine/timelog"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MonthlyStatusDTO reports which months are already settled.
type MonthlyStatusDTO struct {
	ThisMonth bool `json:"thismonth"`
	LastMonth bool `json:"lastmonth"`
}

// UpdateTimelogDTO is the month-close commit response.
type UpdateTimelogDTO struct {
	// Status echoes the request: true when only the current month closed.
	Status bool `json:"Status"`

	// Project is a comma-separated list of timelog project names that
	// are not registered. Empty when none.
	Project string `json:"Project"`

	// Timelog holds the entries written against finished projects.
	Timelog []timelog.Entry `json:"Timelog"`

	// InvalidAccess is true when exception entries exist but the caller
	// is not privileged to handle them.
	InvalidAccess bool `json:"InvalidAccess"`
}

// MonthlyPaymentDTO is one stored revenue row for a project month.
type MonthlyPaymentDTO struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	DueDate     string `json:"duedate"`
	DepositDate string `json:"depositdate"`
	Deposited   bool   `json:"deposited"`
}

// MonthlyPurchaseCostDTO is one stored purchase-cost row.
type MonthlyPurchaseCostDTO struct {
	Company string `json:"company"`
	Detail  string `json:"detail"`
	Amount  int64  `json:"amount"`
}

// SetMonthlyPaymentRequest replaces a project month's revenue rows.
type SetMonthlyPaymentRequest struct {
	Payments []MonthlyPaymentDTO `json:"payments"`
}

// SetMonthlyPurchaseCostRequest replaces a project month's purchase rows.
type SetMonthlyPurchaseCostRequest struct {
	Purchases []MonthlyPurchaseCostDTO `json:"purchases"`
}

// ErrorResponse is the error envelope for non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
