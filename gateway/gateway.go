/*
Package gateway is the HTTP client for the settlement REST contract.

PURPOSE:
  Every remote action the settlement workflow performs goes through the
  Client here: eligibility probes, the month-close commit, monthly
  figure lookups, and the timelog maintenance calls. The workflow layer
  never builds HTTP requests itself.

WIRE CONTRACT:
  All requests carry "Authorization: Basic <token>". Responses are JSON.
  Any non-2xx status surfaces as *TransportError with the status, the
  response body, and the operation name; there is no retry, the caller
  decides whether to run the workflow again.

WIRE QUIRK:
  The commit endpoint's "status" query parameter is TRUE when only the
  current month closes. CommitSettlement takes closeBothMonths and
  inverts it, so callers reason in the non-inverted direction.

SEE ALSO:
  - settle package: drives CheckEligibility/CommitSettlement
  - api package: the reference server implementing this contract
*/
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moonlake/settlement-engine/timelog"
)

// ErrTransport is the sentinel wrapped by every *TransportError.
var ErrTransport = errors.New("gateway transport error")

// TransportError carries the failed operation and the server's response.
type TransportError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: server returned %s: %s", e.Op, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// IsTransport reports whether err originated in the HTTP layer.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one settlement server with one credential token.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests inject the
// httptest server's client here).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// NewClient returns a Client for the server at baseURL. token is sent
// verbatim after "Basic " on every request.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do issues the request and decodes the JSON response into out (out may
// be nil for endpoints whose body is ignored).
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Basic "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// =============================================================================
// MONTH-CLOSE OPERATIONS
// =============================================================================

// Eligibility is the server's monthly settlement status.
type Eligibility struct {
	ThisMonth bool `json:"thismonth"` // current month already closed
	LastMonth bool `json:"lastmonth"` // prior month already closed
}

// CheckEligibility asks the server which months are already closed.
func (c *Client) CheckEligibility(ctx context.Context) (Eligibility, error) {
	var e Eligibility
	err := c.do(ctx, "check eligibility", http.MethodPost, "/api/checkmonthlystatus", nil, &e)
	return e, err
}

// CommitOutcome is the server's response to a month-close commit.
type CommitOutcome struct {
	// CurrentOnly echoes the request direction: true when only the
	// current month was closed.
	CurrentOnly bool `json:"Status"`

	// UnknownProjects is a comma-separated list of project names that
	// appeared in timelogs but are not registered. Empty means none.
	UnknownProjects string `json:"Project"`

	// Exceptions holds timelog entries written against projects whose
	// settlement is already finished.
	Exceptions []timelog.Entry `json:"Timelog"`

	// InvalidAccess is true when the caller lacks the privilege to
	// handle the exception entries.
	InvalidAccess bool `json:"InvalidAccess"`
}

// UnknownProjectList splits the comma list into names, dropping blanks.
func (o CommitOutcome) UnknownProjectList() []string {
	if o.UnknownProjects == "" {
		return nil
	}
	parts := strings.Split(o.UnknownProjects, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CommitSettlement closes the current month, or both the current and
// the prior month when closeBothMonths is set.
func (c *Client) CommitSettlement(ctx context.Context, closeBothMonths bool) (CommitOutcome, error) {
	q := url.Values{}
	// The wire flag is inverted: true means current month only.
	q.Set("status", strconv.FormatBool(!closeBothMonths))
	var o CommitOutcome
	err := c.do(ctx, "commit settlement", http.MethodPost, "/api/updatetimelog", q, &o)
	return o, err
}

// =============================================================================
// MONTHLY FIGURE LOOKUPS
// =============================================================================

// MonthlyPayment is one stored revenue row for a project month.
type MonthlyPayment struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	DueDate     string `json:"duedate"`
	DepositDate string `json:"depositdate"`
	Deposited   bool   `json:"deposited"`
}

// MonthlyPayments fetches the stored revenue rows for a project month.
func (c *Client) MonthlyPayments(ctx context.Context, projectID string, month timelog.MonthKey) ([]MonthlyPayment, error) {
	q := url.Values{}
	q.Set("id", projectID)
	q.Set("date", month.String())
	var out []MonthlyPayment
	err := c.do(ctx, "monthly payments", http.MethodGet, "/api/monthlyPayment", q, &out)
	return out, err
}

// MonthlyPurchaseCost is one stored purchase-cost row.
type MonthlyPurchaseCost struct {
	Company string `json:"company"`
	Detail  string `json:"detail"`
	Amount  int64  `json:"amount"`
}

// MonthlyPurchaseCosts fetches the stored purchase-cost rows for a
// project month.
func (c *Client) MonthlyPurchaseCosts(ctx context.Context, projectID string, month timelog.MonthKey) ([]MonthlyPurchaseCost, error) {
	q := url.Values{}
	q.Set("id", projectID)
	q.Set("date", month.String())
	var out []MonthlyPurchaseCost
	err := c.do(ctx, "monthly purchase costs", http.MethodGet, "/api/monthlyPurchaseCost", q, &out)
	return out, err
}

// =============================================================================
// TIMELOG MAINTENANCE
// =============================================================================

// RemoveTimelogByUser deletes every timelog written by the given users.
func (c *Client) RemoveTimelogByUser(ctx context.Context, userIDs []string) error {
	q := url.Values{}
	q.Set("id", strings.Join(userIDs, ","))
	return c.do(ctx, "remove timelog by user", http.MethodDelete, "/api/rmtimelogbyid", q, nil)
}

// RemoveTimelogByProject deletes every timelog written against the
// given projects.
func (c *Client) RemoveTimelogByProject(ctx context.Context, projects []string) error {
	q := url.Values{}
	q.Set("project", strings.Join(projects, ","))
	return c.do(ctx, "remove timelog by project", http.MethodDelete, "/api/rmtimelogbyproject", q, nil)
}

// ResetAllTimelog clears the entire timelog set.
func (c *Client) ResetAllTimelog(ctx context.Context) error {
	return c.do(ctx, "reset timelog", http.MethodPost, "/api/resettimelog", nil, nil)
}
