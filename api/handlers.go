/*
handlers.go - HTTP API handlers for the reference settlement server

PURPOSE:
  Implements the settlement REST contract the gateway package consumes.
  Handles HTTP request/response, JSON serialization, and delegates the
  row validation to the check package.

ENDPOINTS:
  Month close:
    POST   /api/checkmonthlystatus      Which months are settled
    POST   /api/updatetimelog?status=   Close the month(s)

  Monthly figures:
    GET    /api/monthlyPayment          Stored revenue rows
    POST   /api/setMonthlyPayment       Replace revenue rows
    GET    /api/monthlyPurchaseCost     Stored purchase rows
    POST   /api/setMonthlyPurchaseCost  Replace purchase rows

  Timelog maintenance:
    DELETE /api/rmtimelogbyid?id=       Remove by user id list
    DELETE /api/rmtimelogbyproject?project= Remove by project list
    POST   /api/resettimelog            Remove everything

MONTH-CLOSE SEMANTICS:
  status=true closes the current month only; status=false closes the
  prior month as well. The response reports unregistered project names
  (comma list) and timelog entries against finished projects. When such
  entries exist and the caller is not privileged, nothing is closed and
  InvalidAccess is set: the caller has to come back with the admin
  credential.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Unknown credential token
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - state.go: The in-memory world these handlers mutate
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moonlake/settlement-engine/check"
	"github.com/moonlake/settlement-engine/timelog"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	State  *State
	Logger *zap.Logger

	mu sync.Mutex
}

// NewHandler creates a new handler over the given state.
func NewHandler(state *State, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{State: state, Logger: logger}
}

// =============================================================================
// MONTH CLOSE
// =============================================================================

// CheckMonthlyStatus reports whether the current and prior months are
// settled.
// POST /api/checkmonthlystatus
func (h *Handler) CheckMonthlyStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := timelog.MonthOf(h.State.Now())
	writeJSON(w, http.StatusOK, MonthlyStatusDTO{
		ThisMonth: h.State.ClosedMonths[now],
		LastMonth: h.State.ClosedMonths[now.Prev()],
	})
}

// UpdateTimelog closes the current month, or both months when
// status=false.
// POST /api/updatetimelog?status=<bool>
func (h *Handler) UpdateTimelog(w http.ResponseWriter, r *http.Request) {
	rawStatus := r.URL.Query().Get("status")
	if rawStatus == "" {
		writeError(w, http.StatusBadRequest, "missing status parameter", nil)
		return
	}
	currentOnly, err := strconv.ParseBool(rawStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status parameter", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := timelog.MonthOf(h.State.Now())
	months := map[timelog.MonthKey]bool{now: true}
	if !currentOnly {
		months[now.Prev()] = true
	}

	var unknown []string
	seen := map[string]bool{}
	var exceptions []timelog.Entry
	for _, t := range h.State.Timelogs {
		if !months[t.Logged()] {
			continue
		}
		p, registered := h.State.Projects[t.Project]
		if !registered && t.Project != "" {
			if !seen[t.Project] {
				seen[t.Project] = true
				unknown = append(unknown, t.Project)
			}
			continue
		}
		if registered && p.Finished {
			exceptions = append(exceptions, t)
		}
	}

	result := UpdateTimelogDTO{
		Status:  currentOnly,
		Project: strings.Join(unknown, ","),
		Timelog: exceptions,
	}

	// Finished-project entries need the admin credential. Without it
	// nothing closes and the caller is told to escalate.
	if len(exceptions) > 0 && !privilegedFrom(r.Context()) {
		result.InvalidAccess = true
		h.Logger.Warn("month close refused",
			zap.Int("exception_entries", len(exceptions)),
			zap.String("month", now.String()))
		writeJSON(w, http.StatusOK, result)
		return
	}

	for m := range months {
		h.State.ClosedMonths[m] = true
	}
	h.Logger.Info("month closed",
		zap.String("month", now.String()),
		zap.Bool("current_only", currentOnly),
		zap.Int("unknown_projects", len(unknown)),
		zap.Int("exception_entries", len(exceptions)))
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// MONTHLY FIGURES
// =============================================================================

// projectMonth pulls and validates the id/date parameter pair.
func (h *Handler) projectMonth(w http.ResponseWriter, r *http.Request) (string, timelog.MonthKey, bool) {
	id := r.URL.Query().Get("id")
	rawDate := r.URL.Query().Get("date")
	if id == "" || rawDate == "" {
		writeError(w, http.StatusBadRequest, "missing id or date parameter", nil)
		return "", timelog.MonthKey{}, false
	}
	month, err := timelog.ParseMonthKey(rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter", err)
		return "", timelog.MonthKey{}, false
	}
	if _, ok := h.State.Projects[id]; !ok {
		writeError(w, http.StatusBadRequest, "unknown project", nil)
		return "", timelog.MonthKey{}, false
	}
	return id, month, true
}

// MonthlyPayment returns the stored revenue rows for a project month.
// GET /api/monthlyPayment?id=&date=
func (h *Handler) MonthlyPayment(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, month, ok := h.projectMonth(w, r)
	if !ok {
		return
	}
	rows := h.State.figuresFor(id, month).payments
	if rows == nil {
		rows = []MonthlyPaymentDTO{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// SetMonthlyPayment replaces the revenue rows for a project month.
// Blank rows are dropped; invalid rows reject the whole request.
// POST /api/setMonthlyPayment?id=&date=
func (h *Handler) SetMonthlyPayment(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, month, ok := h.projectMonth(w, r)
	if !ok {
		return
	}
	var req SetMonthlyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	kept := make([]MonthlyPaymentDTO, 0, len(req.Payments))
	for _, dto := range req.Payments {
		item, err := paymentItemFromDTO(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment row", err)
			return
		}
		if item.Blank() {
			continue
		}
		if res := check.ValidatePaymentItem(item, month, h.State.Now()); !res.OK {
			writeError(w, http.StatusBadRequest, "payment row rejected: "+string(res.Reason), nil)
			return
		}
		kept = append(kept, dto)
	}
	h.State.figuresFor(id, month).payments = kept
	writeJSON(w, http.StatusOK, kept)
}

// MonthlyPurchaseCost returns the stored purchase rows for a project
// month.
// GET /api/monthlyPurchaseCost?id=&date=
func (h *Handler) MonthlyPurchaseCost(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, month, ok := h.projectMonth(w, r)
	if !ok {
		return
	}
	rows := h.State.figuresFor(id, month).purchases
	if rows == nil {
		rows = []MonthlyPurchaseCostDTO{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// SetMonthlyPurchaseCost replaces the purchase rows for a project month.
// POST /api/setMonthlyPurchaseCost?id=&date=
func (h *Handler) SetMonthlyPurchaseCost(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, month, ok := h.projectMonth(w, r)
	if !ok {
		return
	}
	var req SetMonthlyPurchaseCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	kept := make([]MonthlyPurchaseCostDTO, 0, len(req.Purchases))
	for _, dto := range req.Purchases {
		item := check.PurchaseItem{
			Company:   dto.Company,
			Detail:    dto.Detail,
			Amount:    dto.Amount,
			AmountSet: dto.Amount != 0,
		}
		if item.Blank() {
			continue
		}
		if res := check.ValidatePurchaseItem(item); !res.OK {
			writeError(w, http.StatusBadRequest, "purchase row rejected: "+string(res.Reason), nil)
			return
		}
		kept = append(kept, dto)
	}
	h.State.figuresFor(id, month).purchases = kept
	writeJSON(w, http.StatusOK, kept)
}

func paymentItemFromDTO(dto MonthlyPaymentDTO) (check.PaymentItem, error) {
	item := check.PaymentItem{
		Type:      check.PaymentType(dto.Type),
		Amount:    dto.Amount,
		AmountSet: dto.Amount != 0,
		Deposited: dto.Deposited,
	}
	var err error
	if dto.DueDate != "" {
		if item.DueDate, err = time.Parse("2006-01-02", dto.DueDate); err != nil {
			return check.PaymentItem{}, err
		}
	}
	if dto.DepositDate != "" {
		if item.DepositDate, err = time.Parse("2006-01-02", dto.DepositDate); err != nil {
			return check.PaymentItem{}, err
		}
	}
	return item, nil
}

// =============================================================================
// TIMELOG MAINTENANCE
// =============================================================================

// RemoveTimelogByID removes every entry written by the listed user ids.
// DELETE /api/rmtimelogbyid?id=u1,u2
func (h *Handler) RemoveTimelogByID(w http.ResponseWriter, r *http.Request) {
	ids := splitList(r.URL.Query().Get("id"))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "missing id parameter", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	removed := h.filterTimelogs(func(t timelog.Entry) bool { return !ids[t.UserID] })
	h.Logger.Info("timelogs removed by user", zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// RemoveTimelogByProject removes every entry against the listed projects.
// DELETE /api/rmtimelogbyproject?project=alpha,beta
func (h *Handler) RemoveTimelogByProject(w http.ResponseWriter, r *http.Request) {
	projects := splitList(r.URL.Query().Get("project"))
	if len(projects) == 0 {
		writeError(w, http.StatusBadRequest, "missing project parameter", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	removed := h.filterTimelogs(func(t timelog.Entry) bool { return !projects[t.Project] })
	h.Logger.Info("timelogs removed by project", zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ResetTimelog removes every timelog entry.
// POST /api/resettimelog
func (h *Handler) ResetTimelog(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := len(h.State.Timelogs)
	h.State.Timelogs = nil
	h.Logger.Info("timelogs reset", zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// filterTimelogs keeps entries matching keep, returning the removed
// count. Caller holds the lock.
func (h *Handler) filterTimelogs(keep func(timelog.Entry) bool) int {
	kept := h.State.Timelogs[:0]
	for _, t := range h.State.Timelogs {
		if keep(t) {
			kept = append(kept, t)
		}
	}
	removed := len(h.State.Timelogs) - len(kept)
	h.State.Timelogs = kept
	return removed
}

func splitList(raw string) map[string]bool {
	out := map[string]bool{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out[p] = true
		}
	}
	return out
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
