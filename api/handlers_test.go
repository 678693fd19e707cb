package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonlake/settlement-engine/api"
	"github.com/moonlake/settlement-engine/gateway"
	"github.com/moonlake/settlement-engine/settle"
	"github.com/moonlake/settlement-engine/settle/store"
	"github.com/moonlake/settlement-engine/timelog"
)

var testNow = time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

func newServer(t *testing.T, seed func(*api.State)) (*httptest.Server, *api.State) {
	t.Helper()
	state := api.NewState()
	state.Now = func() time.Time { return testNow }
	if seed != nil {
		seed(state)
	}
	h := api.NewHandler(state, nil)
	srv := httptest.NewServer(api.NewRouter(h, api.Tokens{Admin: adminToken, User: userToken}))
	t.Cleanup(srv.Close)
	return srv, state
}

func call(t *testing.T, method, url, token string, body []byte) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Basic "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seedEntry(user, project string, minutes int64, y, m int) timelog.Entry {
	return timelog.Entry{UserID: user, Project: project, DurationMinutes: minutes, Year: y, Month: m}
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth(t *testing.T) {
	srv, _ := newServer(t, nil)

	// GIVEN no credential
	resp := call(t, http.MethodPost, srv.URL+"/api/checkmonthlystatus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// GIVEN an unknown credential
	resp = call(t, http.MethodPost, srv.URL+"/api/checkmonthlystatus", "stranger", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// GIVEN the user credential
	resp = call(t, http.MethodPost, srv.URL+"/api/checkmonthlystatus", userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// MONTH CLOSE
// =============================================================================

func TestCheckMonthlyStatus(t *testing.T) {
	srv, _ := newServer(t, func(s *api.State) {
		s.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.July}] = true
	})

	resp := call(t, http.MethodPost, srv.URL+"/api/checkmonthlystatus", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[api.MonthlyStatusDTO](t, resp)
	assert.False(t, status.ThisMonth)
	assert.True(t, status.LastMonth)
}

func TestUpdateTimelog_ClosesBothMonths(t *testing.T) {
	srv, state := newServer(t, func(s *api.State) {
		s.AddProject("alpha", false)
		s.AddTimelog(seedEntry("u1", "alpha", 480, 2026, 8))
		s.AddTimelog(seedEntry("u1", "alpha", 480, 2026, 7))
	})

	// WHEN closing with status=false
	resp := call(t, http.MethodPost, srv.URL+"/api/updatetimelog?status=false", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.UpdateTimelogDTO](t, resp)

	// THEN both months are marked closed with nothing to report
	assert.False(t, out.Status)
	assert.Empty(t, out.Project)
	assert.Empty(t, out.Timelog)
	assert.False(t, out.InvalidAccess)
	assert.True(t, state.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.August}])
	assert.True(t, state.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.July}])
}

func TestUpdateTimelog_ReportsUnknownProjects(t *testing.T) {
	srv, _ := newServer(t, func(s *api.State) {
		s.AddProject("alpha", false)
		s.AddTimelog(seedEntry("u1", "alpha", 60, 2026, 8))
		s.AddTimelog(seedEntry("u2", "ghost", 60, 2026, 8))
		s.AddTimelog(seedEntry("u3", "ghost", 60, 2026, 8))
		s.AddTimelog(seedEntry("u4", "phantom", 60, 2026, 8))
	})

	resp := call(t, http.MethodPost, srv.URL+"/api/updatetimelog?status=true", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.UpdateTimelogDTO](t, resp)

	// unknown names are deduplicated, in first-encounter order
	assert.Equal(t, "ghost,phantom", out.Project)
	assert.False(t, out.InvalidAccess)
}

func TestUpdateTimelog_PrivilegeRefusal(t *testing.T) {
	srv, state := newServer(t, func(s *api.State) {
		s.AddProject("done", true)
		s.AddTimelog(seedEntry("u1", "done", 120, 2026, 8))
	})

	// WHEN a non-privileged caller closes a month with finished-project
	// entries
	resp := call(t, http.MethodPost, srv.URL+"/api/updatetimelog?status=true", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.UpdateTimelogDTO](t, resp)

	// THEN the entries come back flagged and nothing is closed
	assert.True(t, out.InvalidAccess)
	require.Len(t, out.Timelog, 1)
	assert.Equal(t, "done", out.Timelog[0].Project)
	assert.False(t, state.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.August}])

	// WHEN the admin credential retries
	resp = call(t, http.MethodPost, srv.URL+"/api/updatetimelog?status=true", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decode[api.UpdateTimelogDTO](t, resp)

	// THEN the month closes and the entries are reported for staging
	assert.False(t, out.InvalidAccess)
	require.Len(t, out.Timelog, 1)
	assert.True(t, state.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.August}])
}

func TestUpdateTimelog_MissingStatus(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp := call(t, http.MethodPost, srv.URL+"/api/updatetimelog", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// MONTHLY FIGURES
// =============================================================================

func TestMonthlyPaymentRoundTrip(t *testing.T) {
	srv, _ := newServer(t, func(s *api.State) {
		s.AddProject("alpha", false)
	})
	base := srv.URL + "/api"

	// GIVEN no stored rows
	resp := call(t, http.MethodGet, base+"/monthlyPayment?id=alpha&date=2026-08", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]api.MonthlyPaymentDTO](t, resp))

	// WHEN valid rows are stored (a blank row is dropped)
	body, _ := json.Marshal(api.SetMonthlyPaymentRequest{Payments: []api.MonthlyPaymentDTO{
		{Type: "interim", Amount: 1_000_000, DueDate: "2026-08-15"},
		{},
	}})
	resp = call(t, http.MethodPost, base+"/setMonthlyPayment?id=alpha&date=2026-08", userToken, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN they read back
	resp = call(t, http.MethodGet, base+"/monthlyPayment?id=alpha&date=2026-08", userToken, nil)
	rows := decode[[]api.MonthlyPaymentDTO](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1_000_000), rows[0].Amount)

	// WHEN a row violates the month boundary
	body, _ = json.Marshal(api.SetMonthlyPaymentRequest{Payments: []api.MonthlyPaymentDTO{
		{Type: "final", Amount: 500_000, DueDate: "2026-09-01"},
	}})
	resp = call(t, http.MethodPost, base+"/setMonthlyPayment?id=alpha&date=2026-08", userToken, body)
	// THEN the whole request is rejected
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMonthlyPurchaseCostValidation(t *testing.T) {
	srv, _ := newServer(t, func(s *api.State) {
		s.AddProject("alpha", false)
	})
	base := srv.URL + "/api"

	// a row with an amount but no payee is refused
	body, _ := json.Marshal(api.SetMonthlyPurchaseCostRequest{Purchases: []api.MonthlyPurchaseCostDTO{
		{Amount: 250_000},
	}})
	resp := call(t, http.MethodPost, base+"/setMonthlyPurchaseCost?id=alpha&date=2026-08", userToken, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ = json.Marshal(api.SetMonthlyPurchaseCostRequest{Purchases: []api.MonthlyPurchaseCostDTO{
		{Company: "studio-b", Detail: "compositing", Amount: 250_000},
	}})
	resp = call(t, http.MethodPost, base+"/setMonthlyPurchaseCost?id=alpha&date=2026-08", userToken, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, http.MethodGet, base+"/monthlyPurchaseCost?id=alpha&date=2026-08", userToken, nil)
	rows := decode[[]api.MonthlyPurchaseCostDTO](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, "studio-b", rows[0].Company)
}

func TestUnknownProjectFigures(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp := call(t, http.MethodGet, srv.URL+"/api/monthlyPayment?id=ghost&date=2026-08", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// TIMELOG MAINTENANCE
// =============================================================================

func TestRemoveAndReset(t *testing.T) {
	srv, state := newServer(t, func(s *api.State) {
		s.AddTimelog(seedEntry("u1", "alpha", 60, 2026, 8))
		s.AddTimelog(seedEntry("u2", "alpha", 60, 2026, 8))
		s.AddTimelog(seedEntry("u3", "beta", 60, 2026, 8))
	})
	base := srv.URL + "/api"

	resp := call(t, http.MethodDelete, base+"/rmtimelogbyid?id=u1", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, state.Timelogs, 2)

	resp = call(t, http.MethodDelete, base+"/rmtimelogbyproject?project=alpha", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, state.Timelogs, 1)

	resp = call(t, http.MethodPost, base+"/resettimelog", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, state.Timelogs)
}

// =============================================================================
// END TO END
// =============================================================================

// The full workflow against the reference server: eligibility, commit,
// staging, reconciliation, clear.
func TestWorkflowEndToEnd(t *testing.T) {
	srv, state := newServer(t, func(s *api.State) {
		s.AddProject("alpha", false)
		s.AddProject("done", true)
		s.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.July}] = true
		s.AddTimelog(seedEntry("u1", "alpha", 480, 2026, 8))
		s.AddTimelog(seedEntry("u2", "done", 90, 2026, 8))
		s.AddTimelog(seedEntry("u3", "done", 160, 2026, 8))
	})

	ctx := context.Background()
	kv := store.NewMemory()
	m := settle.NewMachine(gateway.NewClient(srv.URL, adminToken), kv)

	// eligibility: prior month closed, so current only
	r, err := m.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, settle.ReadinessCurrentOnly, r)

	// commit stages the two finished-project entries
	require.NoError(t, m.Commit(ctx))
	require.Equal(t, settle.StateExceptionsPending, m.State())
	assert.True(t, state.ClosedMonths[timelog.MonthKey{Year: 2026, Month: time.August}])

	set, err := m.StartReconciliation()
	require.NoError(t, err)
	require.Len(t, set.Entries, 2)
	assert.False(t, set.IncludesPrior)

	// decide every row, then clear
	require.NoError(t, m.CompleteReconciliation(ctx, decidedAll{}))
	assert.Equal(t, settle.StateCleared, m.State())
	assert.Zero(t, kv.Len())

	// a second run finds the month already closed
	m2 := settle.NewMachine(gateway.NewClient(srv.URL, adminToken), kv)
	r, err = m2.Begin(ctx)
	assert.Equal(t, settle.ReadinessAlreadyClosed, r)
	assert.ErrorIs(t, err, settle.ErrAlreadyClosed)
}

type decidedAll struct{}

func (decidedAll) Undecided() int { return 0 }
